// internal/stream/decoder.go
// Package stream decodes the two streaming wire shapes the pitch gateway
// produces: plain incremental UTF-8 text, and "data: "-prefixed JSON event
// lines. The decoder is a pure incremental transform; partial runes and
// partial lines are carried across Feed calls.
package stream

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// Mode selects the wire shape.
type Mode int

const (
	ModeRaw Mode = iota
	ModeEvent
)

// EventType classifies a decoded event.
type EventType int

const (
	EventText EventType = iota
	EventDone
	EventError
)

// Event is one decoded unit. Value carries text for EventText and the
// upstream message for EventError.
type Event struct {
	Type  EventType
	Value string
}

// eventMarker prefixes recognized lines in event mode.
const eventMarker = "data: "

// wireEvent is the JSON payload of a marked event line.
type wireEvent struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// Decoder incrementally decodes a byte stream into events.
type Decoder struct {
	mode Mode

	// raw mode: trailing bytes of an incomplete UTF-8 sequence
	partial []byte

	// event mode: residual unterminated line
	line []byte
}

func NewDecoder(mode Mode) *Decoder {
	return &Decoder{mode: mode}
}

// Feed consumes one chunk and returns the events it completes. Feed never
// drops data: malformed event lines degrade to plain text.
func (d *Decoder) Feed(chunk []byte) []Event {
	if len(chunk) == 0 {
		return nil
	}
	if d.mode == ModeRaw {
		return d.feedRaw(chunk)
	}
	return d.feedEvent(chunk)
}

// Flush drains any buffered remainder at end of stream.
func (d *Decoder) Flush() []Event {
	var events []Event

	if len(d.partial) > 0 {
		events = append(events, Event{Type: EventText, Value: string(d.partial)})
		d.partial = nil
	}
	if len(d.line) > 0 {
		events = append(events, d.decodeLine(d.line))
		d.line = nil
	}

	return events
}

func (d *Decoder) feedRaw(chunk []byte) []Event {
	buf := append(d.partial, chunk...)
	d.partial = nil

	// Hold back a trailing incomplete multi-byte sequence until the next
	// chunk completes it.
	cut := len(buf)
	for i := len(buf) - 1; i >= 0 && i >= len(buf)-utf8.UTFMax; i-- {
		if utf8.RuneStart(buf[i]) {
			if !utf8.FullRune(buf[i:]) {
				cut = i
			}
			break
		}
	}

	if cut < len(buf) {
		d.partial = append(d.partial, buf[cut:]...)
	}
	if cut == 0 {
		return nil
	}
	return []Event{{Type: EventText, Value: string(buf[:cut])}}
}

func (d *Decoder) feedEvent(chunk []byte) []Event {
	buf := append(d.line, chunk...)
	d.line = nil

	var events []Event
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := buf[:idx]
		buf = buf[idx+1:]

		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			continue
		}
		events = append(events, d.decodeLine(line))
	}

	if len(buf) > 0 {
		d.line = append(d.line, buf...)
	}
	return events
}

// decodeLine interprets one complete line. Lines without the event marker,
// and marked lines whose payload is not valid JSON, are passed through as
// plain text so nothing is silently lost.
func (d *Decoder) decodeLine(line []byte) Event {
	if !bytes.HasPrefix(line, []byte(eventMarker)) {
		return Event{Type: EventText, Value: string(line)}
	}

	payload := line[len(eventMarker):]
	var ev wireEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{Type: EventText, Value: string(line)}
	}

	switch ev.Type {
	case "text":
		return Event{Type: EventText, Value: ev.Text}
	case "done":
		return Event{Type: EventDone}
	case "error":
		return Event{Type: EventError, Value: ev.Message}
	default:
		return Event{Type: EventText, Value: string(line)}
	}
}
