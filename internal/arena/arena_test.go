// internal/arena/arena_test.go
package arena

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pitcharena/internal/mockgen"
	"pitcharena/internal/providers"
	"pitcharena/internal/retry"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		Client:         &http.Client{},
		Policy:         retry.Policy{MaxAttempts: 3, BaseDelay: 2 * time.Millisecond, Factor: 2, MaxDelay: 20 * time.Millisecond},
		RequestTimeout: 5 * time.Second,
		Stagger:        time.Millisecond,
		RevealInterval: time.Millisecond,
		BatchInterval:  time.Millisecond,
		BatchChars:     1,
		Debounce:       10 * time.Millisecond,
	}
}

// recorder drains the arena's event channel and tallies what it sees.
type recorder struct {
	mu        sync.Mutex
	updates   []Update
	completes int
}

func record(a *Arena) *recorder {
	r := &recorder{}
	go func() {
		for u := range a.Events() {
			r.mu.Lock()
			r.updates = append(r.updates, u)
			if u.Kind == KindComplete {
				r.completes++
			}
			r.mu.Unlock()
		}
	}()
	return r
}

func (r *recorder) completeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completes
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for: %s", msg)
}

// gateway is a fake pitch gateway with per-provider handlers.
type gateway struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
}

func newGateway() *gateway {
	return &gateway{handlers: make(map[string]http.HandlerFunc)}
}

func (g *gateway) set(provider string, h http.HandlerFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[provider] = h
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	provider := strings.TrimPrefix(r.URL.Path, "/api/pitch/")
	g.mu.Lock()
	h := g.handlers[provider]
	g.mu.Unlock()
	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func rawHandler(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		flusher, _ := w.(http.Flusher)
		for _, part := range strings.SplitAfter(text, " ") {
			fmt.Fprint(w, part)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func eventHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, chunk := range chunks {
			payload, _ := json.Marshal(map[string]string{"type": "text", "text": chunk})
			fmt.Fprintf(w, "data: %s\n", payload)
			if flusher != nil {
				flusher.Flush()
			}
		}
		fmt.Fprint(w, "data: {\"type\":\"done\"}\n")
	}
}

func jsonHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"content": content})
	}
}

func failHandler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"code": "network", "message": "backend down", "retryable": true,
		})
	}
}

func newTestArena(g *gateway) (*Arena, *httptest.Server) {
	server := httptest.NewServer(g)
	a := New(testConfig(server.URL), providers.NewRegistry())
	return a, server
}

func allTerminal(a *Arena) func() bool {
	return func() bool {
		slots := a.Slots()
		if len(slots) == 0 {
			return false
		}
		for _, s := range slots {
			if !s.Terminal {
				return false
			}
		}
		return true
	}
}

// --- Happy path ---

func TestRoundStreamsAllThreeShapes(t *testing.T) {
	g := newGateway()
	g.set("claude", rawHandler("A raw streamed pitch about synergy and disruption."))
	g.set("gpt", eventHandler("An event-framed ", "pitch with ", "several chunks."))
	g.set("gemini", jsonHandler("A single-document pitch revealed word by word for effect."))

	a, server := newTestArena(g)
	defer server.Close()
	rec := record(a)

	a.StartRound("vinyl", "beekeeping")
	waitFor(t, 5*time.Second, allTerminal(a), "all slots terminal")

	slots := a.Slots()
	want := map[string]string{
		"claude": "A raw streamed pitch about synergy and disruption.",
		"gpt":    "An event-framed pitch with several chunks.",
		"gemini": "A single-document pitch revealed word by word for effect.",
	}
	for id, expected := range want {
		slot := slots[id]
		if slot.Content != expected {
			t.Errorf("%s content mismatch:\nwant %q\ngot  %q", id, expected, slot.Content)
		}
		if !slot.Terminal {
			t.Errorf("%s not terminal", id)
		}
		if slot.Errored != nil {
			t.Errorf("%s unexpectedly errored: %v", id, slot.Errored)
		}
		if slot.Fallback {
			t.Errorf("%s should not be fallback", id)
		}
	}

	waitFor(t, 2*time.Second, func() bool { return rec.completeCount() == 1 }, "completion event")
}

// --- Fallback ---

func TestFallbackAfterExhaustedRetries(t *testing.T) {
	g := newGateway()
	g.set("claude", failHandler(http.StatusServiceUnavailable))
	g.set("gpt", eventHandler("A healthy pitch that succeeds."))
	g.set("gemini", jsonHandler("Another healthy pitch that succeeds."))

	a, server := newTestArena(g)
	defer server.Close()
	rec := record(a)

	a.StartRound("coffee", "astronomy")
	waitFor(t, 5*time.Second, allTerminal(a), "all slots terminal")

	slot := a.Slots()["claude"]
	if !slot.Fallback {
		t.Error("expected fallback after exhausted retries")
	}
	if slot.Errored == nil {
		t.Fatal("expected last fault attached to slot")
	}
	if slot.Errored.Provider != "claude" {
		t.Errorf("fault should be tagged with provider, got %q", slot.Errored.Provider)
	}
	if want := mockgen.Pitch("claude", "coffee", "astronomy"); slot.Content != want {
		t.Errorf("fallback content mismatch:\nwant %q\ngot  %q", want, slot.Content)
	}

	// The round still completes; one failing provider never stalls it.
	waitFor(t, 2*time.Second, func() bool { return rec.completeCount() == 1 }, "completion despite fallback")
}

func TestNonRetryableFailsFast(t *testing.T) {
	var calls atomic.Int32
	g := newGateway()
	g.set("claude", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"code":"auth","message":"key missing","retryable":false}`)
	})
	g.set("gpt", eventHandler("A fine pitch, streaming along."))
	g.set("gemini", jsonHandler("Another fine pitch for the round."))

	a, server := newTestArena(g)
	defer server.Close()
	record(a)

	a.StartRound("coffee", "astronomy")
	waitFor(t, 5*time.Second, allTerminal(a), "all slots terminal")

	if got := calls.Load(); got != 1 {
		t.Errorf("non-retryable failure should not be retried, got %d attempts", got)
	}
	slot := a.Slots()["claude"]
	if !slot.Fallback || slot.Errored == nil {
		t.Error("expected immediate fallback with fault attached")
	}
}

// --- Completion gate ---

func TestCompletionFiresExactlyOnce(t *testing.T) {
	g := newGateway()
	// All three complete near-simultaneously.
	g.set("claude", rawHandler("Pitch one, delivered instantly."))
	g.set("gpt", eventHandler("Pitch two, delivered instantly."))
	g.set("gemini", jsonHandler("Pitch three, short reveal."))

	a, server := newTestArena(g)
	defer server.Close()
	rec := record(a)

	a.StartRound("x", "y")
	waitFor(t, 5*time.Second, func() bool { return rec.completeCount() >= 1 }, "completion event")

	// Let any erroneous duplicate fire.
	time.Sleep(100 * time.Millisecond)
	if got := rec.completeCount(); got != 1 {
		t.Errorf("expected exactly 1 completion event, got %d", got)
	}
}

func TestCompletionWithheldBelowContentThreshold(t *testing.T) {
	g := newGateway()
	g.set("claude", rawHandler("hi")) // below MinContent
	g.set("gpt", eventHandler("A long enough pitch to pass the gate."))
	g.set("gemini", jsonHandler("Another long enough pitch right here."))

	a, server := newTestArena(g)
	defer server.Close()
	rec := record(a)

	a.StartRound("x", "y")
	waitFor(t, 5*time.Second, allTerminal(a), "all slots terminal")

	time.Sleep(100 * time.Millisecond)
	if got := rec.completeCount(); got != 0 {
		t.Errorf("gate should not fire with degenerate content, got %d completions", got)
	}
}

// --- Round replacement / stale callbacks ---

func TestNewRoundCancelsPrevious(t *testing.T) {
	g := newGateway()
	release := make(chan struct{})
	g.set("claude", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		flusher, _ := w.(http.Flusher)
		fmt.Fprint(w, "STALE ")
		if flusher != nil {
			flusher.Flush()
		}
		// Stall until cancelled or released; any late output must not
		// reach the replacement round's slot.
		select {
		case <-r.Context().Done():
		case <-release:
			fmt.Fprint(w, "STALE-TAIL")
		}
	})
	g.set("gpt", eventHandler("Round one event pitch."))
	g.set("gemini", jsonHandler("Round one json pitch."))

	a, server := newTestArena(g)
	defer server.Close()
	record(a)

	first := a.StartRound("old-a", "old-b")

	// Wait for the first round's claude stream to start.
	waitFor(t, 5*time.Second, func() bool {
		return strings.Contains(a.Slots()["claude"].Content, "STALE")
	}, "first round streaming")

	g.set("claude", rawHandler("Fresh pitch for the new round."))
	second := a.StartRound("new-a", "new-b")
	if second.ID == first.ID {
		t.Fatal("new round must get a new identity")
	}
	close(release)

	waitFor(t, 5*time.Second, allTerminal(a), "second round terminal")

	for id, slot := range a.Slots() {
		if strings.Contains(slot.Content, "STALE") {
			t.Errorf("%s slot corrupted by stale round: %q", id, slot.Content)
		}
	}
	if got := a.Slots()["claude"].Content; got != "Fresh pitch for the new round." {
		t.Errorf("unexpected claude content %q", got)
	}
}

func TestStopAllCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	g := newGateway()
	// Each handler drains the body before parking: net/http only watches
	// for client disconnect once the request body has been consumed, so an
	// undrained handler would never observe the cancellation.
	g.set("claude", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "text/plain")
		<-r.Context().Done()
	})
	g.set("gpt", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	})
	g.set("gemini", jsonHandler("irrelevant"))

	a, server := newTestArena(g)
	defer server.Close()
	defer server.CloseClientConnections()
	record(a)

	a.StartRound("x", "y")
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("gateway never saw the request")
	}
	a.StopAll()

	// Cancelled fetches settle nothing: no fallback content appears.
	time.Sleep(100 * time.Millisecond)
	for id, slot := range a.Slots() {
		if slot.Fallback {
			t.Errorf("%s should not fall back on cancellation", id)
		}
	}
}

// --- Manual retry ---

func TestRetryNowFreshBudget(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	g := newGateway()
	g.set("claude", func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			failHandler(http.StatusBadGateway)(w, r)
			return
		}
		rawHandler("Recovered pitch after manual retry.")(w, r)
	})
	g.set("gpt", eventHandler("Steady pitch from gpt."))
	g.set("gemini", jsonHandler("Steady pitch from gemini."))

	a, server := newTestArena(g)
	defer server.Close()
	record(a)

	a.StartRound("a", "b")
	waitFor(t, 5*time.Second, func() bool { return a.Slots()["claude"].Fallback }, "fallback state")

	failing.Store(false)
	if !a.RetryNow("claude") {
		t.Fatal("RetryNow should accept a terminal slot")
	}

	waitFor(t, 5*time.Second, func() bool {
		s := a.Slots()["claude"]
		return s.Terminal && !s.Fallback
	}, "recovery after manual retry")

	slot := a.Slots()["claude"]
	if slot.Content != "Recovered pitch after manual retry." {
		t.Errorf("unexpected content %q", slot.Content)
	}
	if slot.Errored != nil {
		t.Errorf("fault should be cleared after successful manual retry: %v", slot.Errored)
	}
}

func TestRetryNowRejectsNonTerminal(t *testing.T) {
	a := New(testConfig("http://localhost:0"), providers.NewRegistry())
	if a.RetryNow("claude") {
		t.Error("RetryNow with no round should return false")
	}

	g := newGateway()
	stall := func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}
	g.set("claude", stall)
	g.set("gpt", stall)
	g.set("gemini", stall)
	a2, server := newTestArena(g)
	defer server.Close()
	defer server.CloseClientConnections()
	record(a2)

	a2.StartRound("a", "b")
	time.Sleep(20 * time.Millisecond)
	if a2.RetryNow("claude") {
		t.Error("RetryNow on a streaming slot should return false")
	}
	if a2.RetryNow("unknown") {
		t.Error("RetryNow on unknown provider should return false")
	}
	a2.StopAll()
}

func TestRetryNowRejectedAfterStop(t *testing.T) {
	auth := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"code":"auth","message":"key missing","retryable":false}`)
	}
	g := newGateway()
	g.set("claude", auth)
	g.set("gpt", auth)
	g.set("gemini", auth)

	a, server := newTestArena(g)
	defer server.Close()
	record(a)

	a.StartRound("a", "b")
	waitFor(t, 5*time.Second, allTerminal(a), "all slots terminal")
	a.StopAll()

	if a.RetryNow("claude") {
		t.Error("RetryNow after StopAll should be rejected")
	}
	slot := a.Slots()["claude"]
	if slot.Retrying {
		t.Error("rejected retry must not leave the slot marked retrying")
	}
	if !slot.Terminal {
		t.Error("rejected retry must leave the slot settled")
	}
}

// --- Accessors ---

func TestPitchesReturnsTerminalOnly(t *testing.T) {
	g := newGateway()
	g.set("claude", rawHandler("Done pitch number one here."))
	g.set("gpt", eventHandler("Done pitch number two here."))
	g.set("gemini", jsonHandler("Done pitch number three here."))

	a, server := newTestArena(g)
	defer server.Close()
	record(a)

	if len(a.Pitches()) != 0 {
		t.Error("no pitches before a round starts")
	}

	a.StartRound("a", "b")
	waitFor(t, 5*time.Second, allTerminal(a), "all terminal")

	pitches := a.Pitches()
	if len(pitches) != 3 {
		t.Fatalf("expected 3 pitches, got %d", len(pitches))
	}
	if pitches["gpt"] != "Done pitch number two here." {
		t.Errorf("unexpected gpt pitch %q", pitches["gpt"])
	}
}
