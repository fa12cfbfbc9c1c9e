// internal/ui/app_test.go
package ui

import (
	"testing"

	"pitcharena/internal/arena"
	"pitcharena/internal/health"
	"pitcharena/internal/judge"
	"pitcharena/internal/providers"
)

func newTestModel() Model {
	registry := providers.NewRegistry()
	return New(Options{
		Arena:    arena.New(arena.DefaultConfig("http://localhost:0"), registry),
		Judge:    judge.New(judge.Config{BaseURL: "http://localhost:0"}, registry.IDs()),
		Health:   health.NewClient("http://localhost:0"),
		Registry: registry,
	})
}

func settled(roundID, provider, content string) arena.Update {
	return arena.Update{
		RoundID:  roundID,
		Provider: provider,
		Kind:     arena.KindTerminal,
		Slot: arena.Slot{
			Provider: provider,
			Content:  content,
			Terminal: true,
		},
	}
}

func TestJudgingReopensAfterManualRetrySettles(t *testing.T) {
	m := newTestModel()
	m.round = &arena.Round{ID: "round-1", TopicA: "coffee", TopicB: "tea"}

	for _, id := range m.paneOrder {
		next, _ := m.handleArenaUpdate(settled("round-1", id, "A pitch long enough to count."))
		m = next.(Model)
	}
	next, _ := m.handleArenaUpdate(arena.Update{RoundID: "round-1", Kind: arena.KindComplete})
	m = next.(Model)
	if !m.roundComplete {
		t.Fatal("round should be complete after the completion event")
	}

	// A manual retry clears the complete flag while the slot streams again;
	// the arena's completion event will not fire a second time this round.
	m.roundComplete = false
	m.verdict = nil

	next, _ = m.handleArenaUpdate(settled("round-1", m.paneOrder[0], "A fresh pitch from the retried provider."))
	m = next.(Model)
	if !m.roundComplete {
		t.Error("settling a manually retried slot should reopen judging")
	}
}

func TestShortPitchKeepsJudgingClosed(t *testing.T) {
	m := newTestModel()
	m.round = &arena.Round{ID: "round-2", TopicA: "a", TopicB: "b"}

	for _, id := range m.paneOrder {
		next, _ := m.handleArenaUpdate(settled("round-2", id, "A pitch long enough to count."))
		m = next.(Model)
	}
	m.roundComplete = false

	next, _ := m.handleArenaUpdate(settled("round-2", m.paneOrder[0], "hi"))
	m = next.(Model)
	if m.roundComplete {
		t.Error("a settled slot below the content threshold must not reopen judging")
	}
}

func TestStaleRoundUpdateIgnored(t *testing.T) {
	m := newTestModel()
	m.round = &arena.Round{ID: "round-3", TopicA: "a", TopicB: "b"}

	next, _ := m.handleArenaUpdate(arena.Update{RoundID: "other-round", Kind: arena.KindComplete})
	m = next.(Model)
	if m.roundComplete {
		t.Error("completion from a stale round must be discarded")
	}
}
