// internal/faults/faults.go
// Package faults turns raw failures into typed, retry-aware errors.
package faults

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Code identifies the failure category.
type Code string

const (
	CodeConfiguration    Code = "configuration"
	CodeValidation       Code = "validation"
	CodeRateLimit        Code = "rate_limit"
	CodeAuth             Code = "auth"
	CodeModelUnavailable Code = "model_unavailable"
	CodeContentPolicy    Code = "content_policy"
	CodeTokenLimit       Code = "token_limit"
	CodeTimeout          Code = "timeout"
	CodeNetwork          Code = "network"
	CodeParse            Code = "parse"
	CodeCancelled        Code = "cancelled"
)

// Fault is an immutable classified failure. Retryable drives the retry
// controller; Cancelled faults short-circuit retry entirely and are never
// surfaced to the user as errors.
type Fault struct {
	Code       Code
	Message    string
	Retryable  bool
	Provider   string
	RetryAfter time.Duration // rate-limit hint, zero when absent
	Timestamp  time.Time
}

func (f *Fault) Error() string {
	if f.Provider != "" {
		return fmt.Sprintf("%s [%s]: %s", f.Code, f.Provider, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// New creates a fault with the retryability implied by its code.
func New(code Code, message string) *Fault {
	return &Fault{
		Code:      code,
		Message:   message,
		Retryable: retryableCode(code),
		Timestamp: time.Now(),
	}
}

// WithProvider returns a copy tagged with the provider ID.
func (f *Fault) WithProvider(provider string) *Fault {
	c := *f
	c.Provider = provider
	return &c
}

// Cancelled reports whether the fault represents a user or round
// cancellation rather than a real failure.
func (f *Fault) Cancelled() bool {
	return f.Code == CodeCancelled
}

func retryableCode(code Code) bool {
	switch code {
	case CodeRateLimit, CodeTimeout, CodeNetwork, CodeParse:
		return true
	default:
		return false
	}
}

// Classify maps any raised failure to a Fault. Already-classified faults
// pass through unchanged.
func Classify(err error) *Fault {
	if err == nil {
		return nil
	}

	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	if errors.Is(err, context.Canceled) {
		return New(CodeCancelled, "operation cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(CodeTimeout, "request timed out")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return New(CodeTimeout, err.Error())
		}
		return New(CodeNetwork, err.Error())
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return New(CodeParse, err.Error())
	}

	return New(CodeNetwork, err.Error())
}

// errorEnvelope is the gateway's non-2xx response body.
type errorEnvelope struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable *bool  `json:"retryable,omitempty"`
}

// FromResponse classifies a non-2xx HTTP response. The body may carry the
// gateway's {code, message, retryable} envelope; when it does, the
// envelope's code wins over the status mapping. retryAfter comes from the
// Retry-After header and is attached to rate-limit faults.
func FromResponse(status int, retryAfter time.Duration, body []byte) *Fault {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Code != "" {
		f := New(Code(env.Code), env.Message)
		if !knownCode(Code(env.Code)) {
			f = New(statusCode(status), env.Message)
		}
		if env.Retryable != nil {
			f.Retryable = *env.Retryable
		}
		if f.Code == CodeRateLimit {
			f.RetryAfter = retryAfter
		}
		return f
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	f := New(statusCode(status), msg)
	if f.Code == CodeRateLimit {
		f.RetryAfter = retryAfter
	}
	return f
}

func statusCode(status int) Code {
	switch {
	case status == 400:
		return CodeValidation
	case status == 401 || status == 403:
		return CodeAuth
	case status == 404:
		return CodeModelUnavailable
	case status == 429:
		return CodeRateLimit
	case status >= 500:
		return CodeNetwork
	default:
		return CodeValidation
	}
}

func knownCode(code Code) bool {
	switch code {
	case CodeConfiguration, CodeValidation, CodeRateLimit, CodeAuth,
		CodeModelUnavailable, CodeContentPolicy, CodeTokenLimit,
		CodeTimeout, CodeNetwork, CodeParse, CodeCancelled:
		return true
	}
	return false
}
