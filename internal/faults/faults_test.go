// internal/faults/faults_test.go
package faults

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassifyNil(t *testing.T) {
	if f := Classify(nil); f != nil {
		t.Errorf("expected nil fault for nil error, got %v", f)
	}
}

func TestClassifyCancellation(t *testing.T) {
	f := Classify(context.Canceled)
	if f.Code != CodeCancelled {
		t.Errorf("expected cancelled code, got %s", f.Code)
	}
	if f.Retryable {
		t.Error("cancellation must not be retryable")
	}
	if !f.Cancelled() {
		t.Error("Cancelled() should be true")
	}

	// Wrapped cancellation must also be recognized
	wrapped := fmt.Errorf("fetch claude: %w", context.Canceled)
	if !Classify(wrapped).Cancelled() {
		t.Error("wrapped context.Canceled should classify as cancelled")
	}
}

func TestClassifyDeadline(t *testing.T) {
	f := Classify(context.DeadlineExceeded)
	if f.Code != CodeTimeout {
		t.Errorf("expected timeout code, got %s", f.Code)
	}
	if !f.Retryable {
		t.Error("timeout should be retryable")
	}
}

func TestClassifyParseError(t *testing.T) {
	var target map[string]any
	err := json.Unmarshal([]byte("not json"), &target)
	f := Classify(err)
	if f.Code != CodeParse {
		t.Errorf("expected parse code, got %s", f.Code)
	}
	if !f.Retryable {
		t.Error("parse errors should be retryable")
	}
}

func TestClassifyPassthrough(t *testing.T) {
	orig := New(CodeContentPolicy, "refused")
	f := Classify(fmt.Errorf("judge: %w", orig))
	if f != orig {
		t.Error("expected already-classified fault to pass through")
	}
}

func TestClassifyUnknownIsNetwork(t *testing.T) {
	f := Classify(errors.New("connection reset by peer"))
	if f.Code != CodeNetwork {
		t.Errorf("expected network code, got %s", f.Code)
	}
	if !f.Retryable {
		t.Error("network errors should be retryable")
	}
}

func TestFromResponseStatusMapping(t *testing.T) {
	cases := []struct {
		status    int
		wantCode  Code
		retryable bool
	}{
		{400, CodeValidation, false},
		{401, CodeAuth, false},
		{403, CodeAuth, false},
		{404, CodeModelUnavailable, false},
		{429, CodeRateLimit, true},
		{500, CodeNetwork, true},
		{502, CodeNetwork, true},
		{503, CodeNetwork, true},
	}

	for _, tc := range cases {
		f := FromResponse(tc.status, 0, nil)
		if f.Code != tc.wantCode {
			t.Errorf("status %d: expected code %s, got %s", tc.status, tc.wantCode, f.Code)
		}
		if f.Retryable != tc.retryable {
			t.Errorf("status %d: expected retryable=%v, got %v", tc.status, tc.retryable, f.Retryable)
		}
	}
}

func TestFromResponseEnvelope(t *testing.T) {
	body := []byte(`{"code":"content_policy","message":"request blocked","retryable":false}`)
	f := FromResponse(400, 0, body)
	if f.Code != CodeContentPolicy {
		t.Errorf("expected envelope code to win, got %s", f.Code)
	}
	if f.Message != "request blocked" {
		t.Errorf("unexpected message %q", f.Message)
	}
	if f.Retryable {
		t.Error("envelope said not retryable")
	}
}

func TestFromResponseUnknownEnvelopeCode(t *testing.T) {
	body := []byte(`{"code":"mystery","message":"???"}`)
	f := FromResponse(503, 0, body)
	if f.Code != CodeNetwork {
		t.Errorf("unknown envelope code should fall back to status mapping, got %s", f.Code)
	}
}

func TestFromResponseRetryAfter(t *testing.T) {
	f := FromResponse(429, 5*time.Second, nil)
	if f.RetryAfter != 5*time.Second {
		t.Errorf("expected retry-after hint 5s, got %v", f.RetryAfter)
	}
}

func TestWithProviderCopies(t *testing.T) {
	orig := New(CodeNetwork, "down")
	tagged := orig.WithProvider("gpt")
	if orig.Provider != "" {
		t.Error("original fault mutated by WithProvider")
	}
	if tagged.Provider != "gpt" {
		t.Errorf("expected provider gpt, got %q", tagged.Provider)
	}
}

func TestFaultErrorsAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeAuth, "bad key"))
	var f *Fault
	if !errors.As(err, &f) {
		t.Fatal("errors.As failed to unwrap Fault")
	}
	if f.Code != CodeAuth {
		t.Errorf("expected auth code, got %s", f.Code)
	}
}
