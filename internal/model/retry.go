package model

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/verity-labs/chorus/internal/core"
	"github.com/verity-labs/chorus/internal/logging"
)

// RetryPolicy defines retry behavior for backend calls.
type RetryPolicy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64 // 0.0 to 1.0
	Multiplier   float64 // Exponential factor
}

// DefaultRetryPolicy returns a default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.2,
		Multiplier:   2.0,
	}
}

// Delay computes the backoff before the given attempt (1-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.JitterFactor > 0 {
		jitter := delay * p.JitterFactor * (rand.Float64()*2 - 1)
		delay += jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// RetryBackend wraps another backend with bounded retries. Only faults
// the domain marks retryable (timeouts, rate limits, 5xx-class
// execution errors) are retried; everything else surfaces immediately.
type RetryBackend struct {
	inner  core.ModelBackend
	policy RetryPolicy
	logger *logging.Logger
}

// NewRetryBackend wraps a backend with the given policy.
func NewRetryBackend(inner core.ModelBackend, policy RetryPolicy, logger *logging.Logger) *RetryBackend {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RetryBackend{
		inner:  inner,
		policy: policy,
		logger: logger,
	}
}

// Name returns the wrapped backend identifier.
func (b *RetryBackend) Name() string {
	return b.inner.Name()
}

// Ping delegates to the wrapped backend.
func (b *RetryBackend) Ping(ctx context.Context) error {
	return b.inner.Ping(ctx)
}

// Complete runs the completion with retries.
func (b *RetryBackend) Complete(ctx context.Context, req core.CompletionRequest) (*core.CompletionResult, error) {
	var lastErr error

	for attempt := 1; attempt <= b.policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := b.inner.Complete(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !core.IsRetryable(err) || attempt == b.policy.MaxAttempts {
			break
		}

		delay := b.policy.Delay(attempt)
		b.logger.Warn("completion failed, retrying",
			"backend", b.inner.Name(),
			"attempt", attempt,
			"delay", delay.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}
