// internal/providers/providers_test.go
package providers

import "testing"

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	ids := r.IDs()
	want := []string{"claude", "gpt", "gemini"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d providers, got %d", len(want), len(ids))
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("position %d: expected %s, got %s", i, id, ids[i])
		}
	}
}

func TestRegistryTransports(t *testing.T) {
	r := NewRegistry()

	cases := map[string]Transport{
		"claude": TransportRaw,
		"gpt":    TransportEvent,
		"gemini": TransportJSON,
	}
	for id, want := range cases {
		info, ok := r.Get(id)
		if !ok {
			t.Fatalf("provider %s missing", id)
		}
		if info.Transport != want {
			t.Errorf("%s: expected transport %s, got %s", id, want, info.Transport)
		}
	}
}

func TestSetTransport(t *testing.T) {
	r := NewRegistry()
	r.SetTransport("claude", TransportEvent)

	info, _ := r.Get("claude")
	if info.Transport != TransportEvent {
		t.Errorf("expected overridden transport, got %s", info.Transport)
	}

	// Unknown ID is a no-op
	r.SetTransport("nonexistent", TransportJSON)
	if r.Count() != 3 {
		t.Errorf("SetTransport on unknown ID changed registry size")
	}
}

func TestDisable(t *testing.T) {
	r := NewRegistry()
	r.Disable("gpt")

	if r.Count() != 2 {
		t.Fatalf("expected 2 providers after disable, got %d", r.Count())
	}
	if _, ok := r.Get("gpt"); ok {
		t.Error("disabled provider still retrievable")
	}
	ids := r.IDs()
	if ids[0] != "claude" || ids[1] != "gemini" {
		t.Errorf("remaining order should be preserved, got %v", ids)
	}

	// Unknown ID is a no-op
	r.Disable("nonexistent")
	if r.Count() != 2 {
		t.Errorf("Disable on unknown ID changed registry size")
	}
}

func TestParseTransport(t *testing.T) {
	cases := map[string]Transport{
		"raw":     TransportRaw,
		"event":   TransportEvent,
		"json":    TransportJSON,
		"bogus":   TransportRaw,
		"":        TransportRaw,
	}
	for s, want := range cases {
		if got := ParseTransport(s); got != want {
			t.Errorf("ParseTransport(%q): expected %s, got %s", s, want, got)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if DisplayName("gpt") != "GPT" {
		t.Errorf("unexpected display name %q", DisplayName("gpt"))
	}
	if DisplayName("mystery") != "mystery" {
		t.Errorf("unknown ID should fall back to itself")
	}
}
