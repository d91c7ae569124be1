package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verity-labs/chorus/internal/core"
)

func newChatServer(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"model": req.Model,
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": reply}, "finish_reason": "stop"},
				},
				"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 20},
			})
		}
	}))
}

func TestOpenAIBackendComplete(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, "synthesized text")
	defer srv.Close()

	backend := NewOpenAIBackend(OpenAIConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	})

	result, err := backend.Complete(context.Background(), core.CompletionRequest{
		System: "You are a researcher.",
		Prompt: "Summarize the findings.",
	})
	require.NoError(t, err)
	assert.Equal(t, "synthesized text", result.Text)
	assert.Equal(t, 10, result.TokensIn)
	assert.Equal(t, 20, result.TokensOut)
	assert.Equal(t, "stop", result.FinishReason)
}

func TestOpenAIBackendErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		category  core.ErrorCategory
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, core.ErrCatRateLimit, true},
		{"server error", http.StatusInternalServerError, core.ErrCatExecution, true},
		{"bad request", http.StatusBadRequest, core.ErrCatExecution, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newChatServer(t, tt.status, "")
			defer srv.Close()

			backend := NewOpenAIBackend(OpenAIConfig{BaseURL: srv.URL, Model: "m"})
			_, err := backend.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
			require.Error(t, err)
			assert.True(t, core.IsCategory(err, tt.category))
			assert.Equal(t, tt.retryable, core.IsRetryable(err))
		})
	}
}

func TestOpenAIBackendTemperatureOverride(t *testing.T) {
	floatPtr := func(v float64) *float64 { return &v }

	tests := []struct {
		name       string
		configured float64
		request    *float64
		want       *float64
	}{
		{"explicit zero is sent on the wire", 0.7, floatPtr(0), floatPtr(0)},
		{"nil falls back to the configured value", 0.7, nil, floatPtr(0.7)},
		{"nothing configured omits the field", 0, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent *float64
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req chatRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				sent = req.Temperature
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"choices": []map[string]interface{}{
						{"message": map[string]string{"content": "ok"}},
					},
				})
			}))
			defer srv.Close()

			backend := NewOpenAIBackend(OpenAIConfig{
				BaseURL:     srv.URL,
				Model:       "m",
				Temperature: tt.configured,
			})
			_, err := backend.Complete(context.Background(), core.CompletionRequest{
				Prompt:      "p",
				Temperature: tt.request,
			})
			require.NoError(t, err)

			if tt.want == nil {
				assert.Nil(t, sent)
			} else {
				require.NotNil(t, sent)
				assert.Equal(t, *tt.want, *sent)
			}
		})
	}
}

func TestOpenAIBackendSendsAuthorization(t *testing.T) {
	var sawAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth.Store(r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	backend := NewOpenAIBackend(OpenAIConfig{BaseURL: srv.URL, APIKey: "secret-key", Model: "m"})
	_, err := backend.Complete(context.Background(), core.CompletionRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", sawAuth.Load())
}

func TestOpenAIBackendPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	backend := NewOpenAIBackend(OpenAIConfig{BaseURL: srv.URL, Model: "m"})
	assert.NoError(t, backend.Ping(context.Background()))

	srv.Close()
	assert.Error(t, backend.Ping(context.Background()))
}
