package model

import (
	"context"
	"sync"

	"github.com/verity-labs/chorus/internal/core"
)

// ScriptedBackend replays canned completions in order. It backs tests
// and dry runs where no real model should be called.
type ScriptedBackend struct {
	mu        sync.Mutex
	responses []string
	fallback  string
	errs      map[int]error
	calls     []core.CompletionRequest
}

// NewScriptedBackend creates a backend that returns the given responses
// in sequence, then repeats the last one.
func NewScriptedBackend(responses ...string) *ScriptedBackend {
	fallback := ""
	if len(responses) > 0 {
		fallback = responses[len(responses)-1]
	}
	return &ScriptedBackend{
		responses: responses,
		fallback:  fallback,
		errs:      make(map[int]error),
	}
}

// FailCall makes the n-th call (0-indexed) return err instead of text.
func (b *ScriptedBackend) FailCall(n int, err error) *ScriptedBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[n] = err
	return b
}

// Name returns the backend identifier.
func (b *ScriptedBackend) Name() string {
	return "scripted"
}

// Ping always succeeds.
func (b *ScriptedBackend) Ping(_ context.Context) error {
	return nil
}

// Complete returns the next scripted response.
func (b *ScriptedBackend) Complete(_ context.Context, req core.CompletionRequest) (*core.CompletionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.calls)
	b.calls = append(b.calls, req)

	if err, ok := b.errs[n]; ok {
		return nil, err
	}

	text := b.fallback
	if n < len(b.responses) {
		text = b.responses[n]
	}
	return &core.CompletionResult{
		Text:         text,
		Model:        "scripted",
		FinishReason: "stop",
	}, nil
}

// Calls returns a copy of the requests seen so far.
func (b *ScriptedBackend) Calls() []core.CompletionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	calls := make([]core.CompletionRequest, len(b.calls))
	copy(calls, b.calls)
	return calls
}

// CallCount returns how many completions were requested.
func (b *ScriptedBackend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}
