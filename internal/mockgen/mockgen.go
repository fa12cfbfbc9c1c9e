// internal/mockgen/mockgen.go
// Package mockgen produces deterministic placeholder content used when a
// provider or the judge exhausts its retries. Output is seeded from the
// inputs, so the same round always gets the same fallback.
package mockgen

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
)

func seedFor(parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return int64(h.Sum64())
}

var openers = []string{
	"Picture this:",
	"Here's the pitch:",
	"Imagine a world where",
	"The opportunity is simple:",
	"Nobody has cracked this yet:",
}

var angles = []string{
	"a platform that fuses %s with %s into one seamless experience",
	"the first marketplace where %s meets %s head-on",
	"%s reimagined through the lens of %s",
	"a subscription service bringing %s to everyone who lives for %s",
	"an AI copilot that turns %s into a superpower for %s enthusiasts",
}

var closers = []string{
	"Early adopters are already asking for it.",
	"The market gap is obvious once you see it.",
	"This is a category waiting to be named.",
	"Competitors will spend years catching up.",
	"The unit economics work from day one.",
}

// Pitch returns a deterministic placeholder pitch for the given provider
// and topics.
func Pitch(provider, topicA, topicB string) string {
	rng := rand.New(rand.NewSource(seedFor("pitch", provider, topicA, topicB)))

	opener := openers[rng.Intn(len(openers))]
	angle := fmt.Sprintf(angles[rng.Intn(len(angles))], topicA, topicB)
	closer := closers[rng.Intn(len(closers))]

	var sb strings.Builder
	sb.WriteString(opener)
	sb.WriteString(" ")
	sb.WriteString(angle)
	sb.WriteString(". ")
	sb.WriteString(closer)
	sb.WriteString("\n\n(Generated locally: ")
	sb.WriteString(provider)
	sb.WriteString(" was unreachable.)")
	return sb.String()
}

// Verdict holds a deterministic fallback judgment. Scores land in [7,9]
// and the winner is the max score, ties resolved by the order of the
// providerIDs slice.
type Verdict struct {
	Scores    map[string]int
	Reasoning map[string]string
	Winner    string
	Overall   string
}

// MakeVerdict returns a deterministic fallback verdict for the given topics
// and providers.
func MakeVerdict(topicA, topicB string, providerIDs []string) Verdict {
	rng := rand.New(rand.NewSource(seedFor("verdict", topicA, topicB)))

	v := Verdict{
		Scores:    make(map[string]int, len(providerIDs)),
		Reasoning: make(map[string]string, len(providerIDs)),
	}

	best := -1
	for _, id := range providerIDs {
		score := 7 + rng.Intn(3) // 7..9
		v.Scores[id] = score
		v.Reasoning[id] = fmt.Sprintf("A solid take on %s and %s.", topicA, topicB)
		if score > best {
			best = score
			v.Winner = id
		}
	}

	v.Overall = fmt.Sprintf(
		"The judge was unreachable, so this verdict is a local estimate. %s edges ahead on the %s x %s brief.",
		v.Winner, topicA, topicB,
	)
	return v
}
