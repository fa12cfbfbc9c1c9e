// internal/arena/arena.go
// Package arena coordinates one battle round: three concurrent pitch
// fetches with heterogeneous stream shapes, per-provider retry and
// fallback, and a debounced completion gate that fires exactly once when
// all slots are terminal.
package arena

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pitcharena/internal/faults"
	"pitcharena/internal/mockgen"
	"pitcharena/internal/providers"
	"pitcharena/internal/retry"
	"pitcharena/internal/stream"
)

// MinContent is the completion gate's minimum slot content length, in
// non-whitespace-trimmed bytes. Slots below it keep the gate closed.
const MinContent = 10

// Round identifies one battle from topic entry through verdict. Every
// in-flight operation is tagged with the round ID; updates from a stale
// round are discarded.
type Round struct {
	ID        string
	TopicA    string
	TopicB    string
	StartedAt time.Time
}

// Slot is the mutable per-provider state for the active round. Mutated
// only by that provider's fetcher and by a manual retry; read by the
// completion gate and the UI through snapshots.
type Slot struct {
	Provider string
	Content  string
	Terminal bool
	Retrying bool
	Fallback bool
	Attempt  int
	Errored  *faults.Fault
}

// UpdateKind labels a published state transition.
type UpdateKind int

const (
	KindChunk UpdateKind = iota
	KindRetry
	KindTerminal
	KindComplete
)

// Update is one published slot transition. Provider is empty and Slot is
// zero for KindComplete, which is a round-level event.
type Update struct {
	RoundID  string
	Provider string
	Kind     UpdateKind
	Slot     Slot
}

// Config holds the arena's network and pacing knobs.
type Config struct {
	BaseURL        string
	Client         *http.Client
	Policy         retry.Policy
	RequestTimeout time.Duration
	Stagger        time.Duration // delay between provider launches
	RevealInterval time.Duration // per-word reveal for single-JSON backends
	BatchInterval  time.Duration // min time between chunk updates per provider
	BatchChars     int           // or publish once this many chars are pending
	Debounce       time.Duration // completion gate debounce window
}

// DefaultConfig returns production pacing against the given gateway.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		Client:         &http.Client{},
		Policy:         retry.DefaultPolicy(),
		RequestTimeout: 60 * time.Second,
		Stagger:        150 * time.Millisecond,
		RevealInterval: 40 * time.Millisecond,
		BatchInterval:  50 * time.Millisecond,
		BatchChars:     24,
		Debounce:       50 * time.Millisecond,
	}
}

// Arena owns round lifecycle and slot state. Construct one per app; there
// is no ambient global.
type Arena struct {
	cfg      Config
	registry *providers.Registry
	events   chan Update

	mu          sync.Mutex
	round       *Round
	roundCtx    context.Context
	cancelRound context.CancelFunc
	slots       map[string]*Slot
	fired       bool
	gatePending bool
	lastPublish map[string]time.Time
	pending     map[string]int
}

func New(cfg Config, registry *providers.Registry) *Arena {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.BatchChars <= 0 {
		cfg.BatchChars = 24
	}
	return &Arena{
		cfg:         cfg,
		registry:    registry,
		events:      make(chan Update, 256),
		slots:       make(map[string]*Slot),
		lastPublish: make(map[string]time.Time),
		pending:     make(map[string]int),
	}
}

// Events returns the update channel the UI consumes.
func (a *Arena) Events() <-chan Update {
	return a.events
}

// Round returns the active round, if any.
func (a *Arena) Round() (Round, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.round == nil {
		return Round{}, false
	}
	return *a.round, true
}

// Slots returns a snapshot of all slot state.
func (a *Arena) Slots() map[string]Slot {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]Slot, len(a.slots))
	for id, s := range a.slots {
		out[id] = *s
	}
	return out
}

// Pitches returns provider ID -> content for terminal slots, used to build
// the judge request.
func (a *Arena) Pitches() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.slots))
	for id, s := range a.slots {
		if s.Terminal {
			out[id] = s.Content
		}
	}
	return out
}

// StartRound cancels any previous round, resets all slots, and launches
// the three fetchers with a staggered start.
func (a *Arena) StartRound(topicA, topicB string) Round {
	round := Round{
		ID:        uuid.NewString(),
		TopicA:    topicA,
		TopicB:    topicB,
		StartedAt: time.Now(),
	}

	ctx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	if a.cancelRound != nil {
		a.cancelRound()
	}
	a.round = &round
	a.roundCtx = ctx
	a.cancelRound = cancel
	a.fired = false
	a.gatePending = false
	for id := range a.slots {
		delete(a.slots, id)
	}
	infos := a.registry.All()
	for _, info := range infos {
		a.slots[info.ID] = &Slot{Provider: info.ID}
	}
	a.mu.Unlock()

	go func() {
		for i, info := range infos {
			if i > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(a.cfg.Stagger):
				}
			}
			go a.fetch(ctx, round, info)
		}
	}()

	return round
}

// StopAll cancels the active round's fetches and pending retry timers.
// Slot state is left as-is; the round is being discarded.
func (a *Arena) StopAll() {
	a.mu.Lock()
	cancel := a.cancelRound
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RetryNow resets a terminal slot and re-enters the fetch flow with a
// fresh attempt budget. Returns false when there is no active round, the
// round has been stopped, the provider is unknown, or its slot is not
// terminal. A stopped round's context is already cancelled; accepting the
// retry would flip the slot to retrying and then abandon it, since the
// fetch exits without settling on cancellation.
func (a *Arena) RetryNow(provider string) bool {
	a.mu.Lock()
	if a.round == nil || a.roundCtx == nil || a.roundCtx.Err() != nil {
		a.mu.Unlock()
		return false
	}
	slot, ok := a.slots[provider]
	if !ok || !slot.Terminal {
		a.mu.Unlock()
		return false
	}
	info, ok := a.registry.Get(provider)
	if !ok {
		a.mu.Unlock()
		return false
	}

	slot.Content = ""
	slot.Terminal = false
	slot.Retrying = true
	slot.Fallback = false
	slot.Attempt = 0
	slot.Errored = nil

	round := *a.round
	ctx := a.roundCtx
	update := Update{RoundID: round.ID, Provider: provider, Kind: KindRetry, Slot: *slot}
	a.mu.Unlock()

	a.events <- update
	go a.fetch(ctx, round, info)
	return true
}

// fetch runs one provider's full fetch-with-retry lifecycle and settles
// the slot as terminal-success or terminal-fallback. Cancellation settles
// nothing; the round is being discarded.
func (a *Arena) fetch(ctx context.Context, round Round, info providers.Info) {
	observer := func(f *faults.Fault, attempt int) {
		a.markRetrying(round, info.ID, f.WithProvider(info.ID), attempt)
	}

	_, err := retry.Do(ctx, a.cfg.Policy, observer, func(ctx context.Context) (struct{}, error) {
		a.resetAttempt(round, info.ID)
		return struct{}{}, a.streamOnce(ctx, round, info)
	})
	if err == nil {
		a.settle(round, info.ID, nil)
		return
	}

	f := faults.Classify(err)
	if f.Cancelled() {
		return
	}
	a.settle(round, info.ID, f.WithProvider(info.ID))
}

// streamOnce performs a single request attempt and streams its body into
// the slot. A retried attempt always starts from an empty buffer.
func (a *Arena) streamOnce(ctx context.Context, round Round, info providers.Info) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{
		"topicA": round.TopicA,
		"topicB": round.TopicB,
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	url := a.cfg.BaseURL + "/api/pitch/" + info.ID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.cfg.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return faults.FromResponse(resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), errBody)
	}

	ct := resp.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		return a.revealJSON(ctx, round, info.ID, resp.Body)
	}

	mode := stream.ModeRaw
	if strings.HasPrefix(ct, "text/event-stream") || info.Transport == providers.TransportEvent {
		mode = stream.ModeEvent
	}
	return a.streamBody(ctx, round, info.ID, resp.Body, mode)
}

// revealJSON handles single-document backends: the whole pitch arrives at
// once and is released word by word so all three panes stream alike.
func (a *Arena) revealJSON(ctx context.Context, round Round, provider string, body io.Reader) error {
	var doc struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return faults.New(faults.CodeParse, err.Error())
	}

	words := strings.Fields(doc.Content)
	for i, word := range words {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.cfg.RevealInterval):
		}
		if i < len(words)-1 {
			word += " "
		}
		a.appendText(round, provider, word)
	}
	return nil
}

func (a *Arena) streamBody(ctx context.Context, round Round, provider string, body io.Reader, mode stream.Mode) error {
	dec := stream.NewDecoder(mode)
	buf := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			done, derr := a.dispatch(round, provider, dec.Feed(buf[:n]))
			if derr != nil {
				return derr
			}
			if done {
				return nil
			}
		}
		if err == io.EOF {
			_, derr := a.dispatch(round, provider, dec.Flush())
			return derr
		}
		if err != nil {
			return err
		}
	}
}

// dispatch applies decoded events to the slot. It reports stream
// completion when a done event arrives; an upstream error event becomes a
// retryable fault.
func (a *Arena) dispatch(round Round, provider string, events []stream.Event) (bool, error) {
	for _, ev := range events {
		switch ev.Type {
		case stream.EventText:
			a.appendText(round, provider, ev.Value)
		case stream.EventDone:
			return true, nil
		case stream.EventError:
			return false, faults.New(faults.CodeNetwork, ev.Value)
		}
	}
	return false, nil
}

// appendText appends a chunk to the slot, batching published updates so
// the UI is not redrawn per token. Updates from a stale round, or for a
// slot already terminal, are dropped.
func (a *Arena) appendText(round Round, provider, text string) {
	if text == "" {
		return
	}

	a.mu.Lock()
	if a.round == nil || a.round.ID != round.ID {
		a.mu.Unlock()
		return
	}
	slot, ok := a.slots[provider]
	if !ok || slot.Terminal {
		a.mu.Unlock()
		return
	}

	slot.Content += text
	a.pending[provider] += len(text)

	now := time.Now()
	if a.pending[provider] < a.cfg.BatchChars && now.Sub(a.lastPublish[provider]) < a.cfg.BatchInterval {
		a.mu.Unlock()
		return
	}
	a.pending[provider] = 0
	a.lastPublish[provider] = now
	update := Update{RoundID: round.ID, Provider: provider, Kind: KindChunk, Slot: *slot}
	a.mu.Unlock()

	a.events <- update
}

// resetAttempt clears the slot buffer before a (re)attempt streams into it.
func (a *Arena) resetAttempt(round Round, provider string) {
	a.mu.Lock()
	if a.round == nil || a.round.ID != round.ID {
		a.mu.Unlock()
		return
	}
	slot, ok := a.slots[provider]
	if !ok || slot.Terminal {
		a.mu.Unlock()
		return
	}
	slot.Content = ""
	slot.Retrying = false
	update := Update{RoundID: round.ID, Provider: provider, Kind: KindChunk, Slot: *slot}
	a.mu.Unlock()

	a.events <- update
}

// markRetrying surfaces the retry state between attempts.
func (a *Arena) markRetrying(round Round, provider string, f *faults.Fault, attempt int) {
	a.mu.Lock()
	if a.round == nil || a.round.ID != round.ID {
		a.mu.Unlock()
		return
	}
	slot, ok := a.slots[provider]
	if !ok || slot.Terminal {
		a.mu.Unlock()
		return
	}
	slot.Retrying = true
	slot.Attempt = attempt
	slot.Content = ""
	slot.Errored = f
	update := Update{RoundID: round.ID, Provider: provider, Kind: KindRetry, Slot: *slot}
	a.mu.Unlock()

	a.events <- update
}

// settle marks the slot terminal. A nil fault is terminal-success; a fault
// substitutes deterministic fallback content and keeps the fault attached
// so the UI can tag the pitch as degraded.
func (a *Arena) settle(round Round, provider string, f *faults.Fault) {
	a.mu.Lock()
	if a.round == nil || a.round.ID != round.ID {
		a.mu.Unlock()
		return
	}
	slot, ok := a.slots[provider]
	if !ok || slot.Terminal {
		a.mu.Unlock()
		return
	}

	slot.Terminal = true
	slot.Retrying = false
	slot.Errored = f
	if f != nil {
		slot.Content = mockgen.Pitch(provider, round.TopicA, round.TopicB)
		slot.Fallback = true
	}
	a.pending[provider] = 0
	update := Update{RoundID: round.ID, Provider: provider, Kind: KindTerminal, Slot: *slot}

	schedule := !a.fired && !a.gatePending && a.allTerminalLocked()
	if schedule {
		a.gatePending = true
	}
	roundID := round.ID
	a.mu.Unlock()

	a.events <- update

	if schedule {
		time.AfterFunc(a.cfg.Debounce, func() { a.fireGate(roundID) })
	}
}

// allTerminalLocked reports whether every slot is terminal with content
// above the minimum threshold. Caller holds a.mu.
func (a *Arena) allTerminalLocked() bool {
	if len(a.slots) == 0 {
		return false
	}
	for _, slot := range a.slots {
		if !slot.Terminal {
			return false
		}
		if len(strings.TrimSpace(slot.Content)) < MinContent {
			return false
		}
	}
	return true
}

// fireGate re-verifies under lock after the debounce window and fires the
// round completion event exactly once.
func (a *Arena) fireGate(roundID string) {
	a.mu.Lock()
	a.gatePending = false
	if a.round == nil || a.round.ID != roundID || a.fired || !a.allTerminalLocked() {
		a.mu.Unlock()
		return
	}
	a.fired = true
	a.mu.Unlock()

	a.events <- Update{RoundID: roundID, Kind: KindComplete}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
