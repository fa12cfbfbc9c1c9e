// internal/retry/retry.go
// Package retry wraps an operation with bounded exponential backoff,
// honoring the fault classifier's retryable verdict.
package retry

import (
	"context"
	"time"

	"pitcharena/internal/faults"
)

// Policy holds retry configuration.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	MaxDelay    time.Duration
}

// DefaultPolicy returns sensible defaults: 3 attempts, 1s base, doubling,
// capped at 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Factor:      2,
		MaxDelay:    10 * time.Second,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Factor < 1 {
		p.Factor = 2
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	return p
}

// Observer is invoked with the classified failure and the attempt number
// (1-based) before each backoff wait, for UI feedback.
type Observer func(f *faults.Fault, attempt int)

// Do runs op up to policy.MaxAttempts times. Non-retryable faults and
// cancellations are returned immediately; cancellation during a backoff
// wait aborts the whole sequence. The returned error is always a
// *faults.Fault on failure.
func Do[T any](ctx context.Context, policy Policy, observe Observer, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	policy = policy.normalized()

	delay := policy.BaseDelay
	var last *faults.Fault

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		f := faults.Classify(err)
		if f.Cancelled() {
			return zero, f
		}
		last = f

		if !f.Retryable || attempt == policy.MaxAttempts {
			return zero, f
		}

		if observe != nil {
			observe(f, attempt)
		}

		wait := delay
		if f.RetryAfter > wait {
			wait = f.RetryAfter
		}

		select {
		case <-ctx.Done():
			return zero, faults.Classify(ctx.Err())
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * policy.Factor)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return zero, last
}
