// internal/stream/decoder_test.go
package stream

import (
	"strings"
	"testing"
)

func collectText(events []Event) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.Type == EventText {
			sb.WriteString(ev.Value)
		}
	}
	return sb.String()
}

func TestRawModePassesChunksThrough(t *testing.T) {
	d := NewDecoder(ModeRaw)
	events := d.Feed([]byte("hello world"))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventText || events[0].Value != "hello world" {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestRawModeSplitMultiByteRune(t *testing.T) {
	// "é" is 0xC3 0xA9; split it across two chunks.
	d := NewDecoder(ModeRaw)

	first := d.Feed([]byte{'c', 'a', 'f', 0xC3})
	if got := collectText(first); got != "caf" {
		t.Errorf("expected incomplete rune held back, got %q", got)
	}

	second := d.Feed([]byte{0xA9, '!'})
	if got := collectText(second); got != "é!" {
		t.Errorf("expected reassembled rune, got %q", got)
	}

	total := collectText(first) + collectText(second)
	if total != "café!" {
		t.Errorf("round trip mismatch: %q", total)
	}
}

func TestRawModeSplitFourByteRune(t *testing.T) {
	// U+1F600 is 4 bytes; feed one byte at a time.
	d := NewDecoder(ModeRaw)
	raw := []byte("😀")

	var out strings.Builder
	for _, b := range raw {
		out.WriteString(collectText(d.Feed([]byte{b})))
	}
	out.WriteString(collectText(d.Flush()))

	if out.String() != "😀" {
		t.Errorf("expected single emoji, got %q", out.String())
	}
}

func TestRawModeOnlyPartialBuffered(t *testing.T) {
	d := NewDecoder(ModeRaw)
	if events := d.Feed([]byte{0xE2, 0x82}); len(events) != 0 {
		t.Errorf("expected no events for incomplete rune, got %v", events)
	}
	events := d.Feed([]byte{0xAC}) // completes "€"
	if got := collectText(events); got != "€" {
		t.Errorf("expected euro sign, got %q", got)
	}
}

func TestEventModeContentDoneError(t *testing.T) {
	d := NewDecoder(ModeEvent)
	input := "data: {\"type\":\"text\",\"text\":\"Hello \"}\n" +
		"data: {\"type\":\"text\",\"text\":\"world\"}\n" +
		"data: {\"type\":\"done\"}\n"

	events := d.Feed([]byte(input))
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %v", len(events), events)
	}
	if collectText(events) != "Hello world" {
		t.Errorf("unexpected text %q", collectText(events))
	}
	if events[2].Type != EventDone {
		t.Errorf("expected done event, got %+v", events[2])
	}

	errEvents := d.Feed([]byte("data: {\"type\":\"error\",\"message\":\"boom\"}\n"))
	if len(errEvents) != 1 || errEvents[0].Type != EventError || errEvents[0].Value != "boom" {
		t.Errorf("unexpected error event %v", errEvents)
	}
}

func TestEventModePartialLineAcrossFeeds(t *testing.T) {
	d := NewDecoder(ModeEvent)

	events := d.Feed([]byte("data: {\"type\":\"text\",\"te"))
	if len(events) != 0 {
		t.Fatalf("expected no events for partial line, got %v", events)
	}

	events = d.Feed([]byte("xt\":\"chunked\"}\n"))
	if got := collectText(events); got != "chunked" {
		t.Errorf("expected reassembled line, got %q", got)
	}
}

func TestEventModeMalformedLineDegradesToText(t *testing.T) {
	d := NewDecoder(ModeEvent)
	events := d.Feed([]byte("data: {not json at all\n"))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventText || events[0].Value != "data: {not json at all" {
		t.Errorf("malformed line should pass through verbatim, got %+v", events[0])
	}
}

func TestEventModeUnmarkedLineIsText(t *testing.T) {
	d := NewDecoder(ModeEvent)
	events := d.Feed([]byte("plain output line\n"))
	if len(events) != 1 || events[0].Value != "plain output line" {
		t.Errorf("unexpected events %v", events)
	}
}

func TestEventModeSkipsBlankLinesAndCR(t *testing.T) {
	d := NewDecoder(ModeEvent)
	events := d.Feed([]byte("\r\n\ndata: {\"type\":\"text\",\"text\":\"x\"}\r\n"))
	if len(events) != 1 || events[0].Value != "x" {
		t.Errorf("unexpected events %v", events)
	}
}

func TestFlushEmitsResidualLine(t *testing.T) {
	d := NewDecoder(ModeEvent)
	d.Feed([]byte("data: {\"type\":\"text\",\"text\":\"tail\"}"))
	events := d.Flush()
	if got := collectText(events); got != "tail" {
		t.Errorf("expected flushed tail, got %q", got)
	}
	if extra := d.Flush(); len(extra) != 0 {
		t.Errorf("second flush should be empty, got %v", extra)
	}
}

func TestDecoderRestartableAcrossManyChunks(t *testing.T) {
	d := NewDecoder(ModeRaw)
	full := "héllo wörld — ünïcode test"
	raw := []byte(full)

	var out strings.Builder
	for i := 0; i < len(raw); i += 3 {
		end := i + 3
		if end > len(raw) {
			end = len(raw)
		}
		out.WriteString(collectText(d.Feed(raw[i:end])))
	}
	out.WriteString(collectText(d.Flush()))

	if out.String() != full {
		t.Errorf("round trip mismatch:\nwant %q\ngot  %q", full, out.String())
	}
}
