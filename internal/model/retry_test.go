package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verity-labs/chorus/internal/core"
	"github.com/verity-labs/chorus/internal/logging"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  attempts,
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		JitterFactor: 0,
		Multiplier:   2.0,
	}
}

func TestRetryBackendRecoversFromRetryableFault(t *testing.T) {
	inner := NewScriptedBackend("ok").
		FailCall(0, core.ErrTimeout("slow backend"))
	backend := NewRetryBackend(inner, fastPolicy(3), logging.NewNop())

	result, err := backend.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	assert.Equal(t, 2, inner.CallCount())
}

func TestRetryBackendStopsOnNonRetryable(t *testing.T) {
	inner := NewScriptedBackend("unused").
		FailCall(0, core.ErrValidation(core.CodeInvalidConfig, "bad request"))
	backend := NewRetryBackend(inner, fastPolicy(3), logging.NewNop())

	_, err := backend.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, 1, inner.CallCount(), "non-retryable faults must not be retried")
}

func TestRetryBackendExhaustsAttempts(t *testing.T) {
	inner := NewScriptedBackend("unused")
	for i := 0; i < 3; i++ {
		inner.FailCall(i, core.ErrRateLimit("slow down"))
	}
	backend := NewRetryBackend(inner, fastPolicy(3), logging.NewNop())

	_, err := backend.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatRateLimit))
	assert.Equal(t, 3, inner.CallCount())
}

func TestRetryBackendHonorsContextCancellation(t *testing.T) {
	inner := NewScriptedBackend("unused")
	for i := 0; i < 10; i++ {
		inner.FailCall(i, core.ErrTimeout("slow"))
	}
	policy := fastPolicy(10)
	policy.BaseDelay = time.Second
	backend := NewRetryBackend(inner, policy, logging.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := backend.Complete(ctx, core.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryPolicyDelayGrowth(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
	}

	assert.Equal(t, time.Second, policy.Delay(1))
	assert.Equal(t, 2*time.Second, policy.Delay(2))
	assert.Equal(t, 4*time.Second, policy.Delay(3))
	// Capped at MaxDelay.
	assert.Equal(t, 10*time.Second, policy.Delay(5))
}

func TestScriptedBackendSequence(t *testing.T) {
	b := NewScriptedBackend("first", "second")

	r1, err := b.Complete(context.Background(), core.CompletionRequest{Prompt: "a"})
	require.NoError(t, err)
	r2, err := b.Complete(context.Background(), core.CompletionRequest{Prompt: "b"})
	require.NoError(t, err)
	r3, err := b.Complete(context.Background(), core.CompletionRequest{Prompt: "c"})
	require.NoError(t, err)

	assert.Equal(t, "first", r1.Text)
	assert.Equal(t, "second", r2.Text)
	assert.Equal(t, "second", r3.Text, "repeats the last response")
	assert.Len(t, b.Calls(), 3)
}
