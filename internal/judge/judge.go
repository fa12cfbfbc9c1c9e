// internal/judge/judge.go
// Package judge runs the scoring call over the three finished pitches.
// The upstream model's output is untrusted: scores are clamped, the winner
// is recomputed locally, and JSON is dug out of whatever prose surrounds it.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"pitcharena/internal/faults"
	"pitcharena/internal/mockgen"
	"pitcharena/internal/retry"
)

// Verdict is the sanitized judgment for one round. Scores are integers in
// [1,10]; Winner is always the max score with ties resolved by provider
// enumeration order.
type Verdict struct {
	Scores    map[string]int
	Reasoning map[string]string
	Winner    string
	Overall   string
	Fallback  bool
	Errored   *faults.Fault
}

// Config holds the invoker's network knobs.
type Config struct {
	BaseURL string
	Client  *http.Client
	Policy  retry.Policy
	Timeout time.Duration
}

// Invoker issues the judge request. order is the fixed provider
// enumeration used for validation and tie-breaking.
type Invoker struct {
	cfg   Config
	order []string
}

func New(cfg Config, order []string) *Invoker {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Invoker{cfg: cfg, order: order}
}

// Invoke sends one scoring request with bounded retries and resolves with
// a verdict no matter what: on exhausted retries it falls back to a
// deterministic local verdict tagged as degraded. The only error returned
// is cancellation.
func (j *Invoker) Invoke(ctx context.Context, topicA, topicB string, pitches map[string]string) (Verdict, error) {
	verdict, err := retry.Do(ctx, j.cfg.Policy, nil, func(ctx context.Context) (Verdict, error) {
		return j.invokeOnce(ctx, topicA, topicB, pitches)
	})
	if err == nil {
		return verdict, nil
	}

	f := faults.Classify(err)
	if f.Cancelled() {
		return Verdict{}, f
	}

	mock := mockgen.MakeVerdict(topicA, topicB, j.order)
	return Verdict{
		Scores:    mock.Scores,
		Reasoning: mock.Reasoning,
		Winner:    mock.Winner,
		Overall:   mock.Overall,
		Fallback:  true,
		Errored:   f,
	}, nil
}

type wireVerdict struct {
	Scores map[string]struct {
		Score     float64 `json:"score"`
		Reasoning string  `json:"reasoning"`
	} `json:"scores"`
	Winner           string `json:"winner"`
	OverallReasoning string `json:"overallReasoning"`
}

func (j *Invoker) invokeOnce(ctx context.Context, topicA, topicB string, pitches map[string]string) (Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	reqBody, err := json.Marshal(map[string]any{
		"topicA":  topicA,
		"topicB":  topicB,
		"pitches": pitches,
	})
	if err != nil {
		return Verdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.cfg.BaseURL+"/api/judge", bytes.NewReader(reqBody))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.cfg.Client.Do(req)
	if err != nil {
		return Verdict{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Verdict{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Verdict{}, faults.FromResponse(resp.StatusCode, 0, body)
	}

	raw := ExtractJSON(body)
	if raw == nil {
		return Verdict{}, faults.New(faults.CodeParse, "no JSON object in judge response")
	}

	var wire wireVerdict
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Verdict{}, faults.New(faults.CodeParse, err.Error())
	}

	return j.sanitize(wire)
}

// sanitize validates the wire shape and applies the trust boundary: scores
// rounded and clamped to [1,10], winner recomputed as the max score with
// ties going to the first provider in enumeration order.
func (j *Invoker) sanitize(wire wireVerdict) (Verdict, error) {
	if strings.TrimSpace(wire.OverallReasoning) == "" {
		return Verdict{}, faults.New(faults.CodeParse, "judge response missing reasoning")
	}

	v := Verdict{
		Scores:    make(map[string]int, len(j.order)),
		Reasoning: make(map[string]string, len(j.order)),
		Overall:   wire.OverallReasoning,
	}

	best := -1
	for _, id := range j.order {
		entry, ok := wire.Scores[id]
		if !ok {
			return Verdict{}, faults.New(faults.CodeParse, "judge response missing score for "+id)
		}
		score := clampScore(entry.Score)
		v.Scores[id] = score
		v.Reasoning[id] = entry.Reasoning
		if score > best {
			best = score
			v.Winner = id
		}
	}

	return v, nil
}

func clampScore(raw float64) int {
	score := int(math.Round(raw))
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON returns the first well-formed JSON object in b, looking
// inside markdown code fences first, then scanning for a balanced object.
// Returns nil when none is found.
func ExtractJSON(b []byte) []byte {
	if m := fencedJSON.FindSubmatch(b); m != nil {
		if json.Valid(m[1]) {
			return m[1]
		}
	}

	for start := 0; start < len(b); start++ {
		if b[start] != '{' {
			continue
		}
		if end := balancedObjectEnd(b, start); end > start {
			candidate := b[start : end+1]
			if json.Valid(candidate) {
				return candidate
			}
		}
	}
	return nil
}

// balancedObjectEnd finds the index of the brace closing the object that
// opens at start, honoring string literals and escapes. Returns -1 when
// the object never closes.
func balancedObjectEnd(b []byte, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(b); i++ {
		c := b[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
