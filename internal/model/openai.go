// Package model provides ModelBackend adapters and the retry wrapper
// shared by all of them.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/verity-labs/chorus/internal/core"
)

// OpenAIBackend talks to an OpenAI-compatible chat-completions API.
// Any provider exposing that surface (including local servers) works by
// pointing BaseURL at it.
type OpenAIBackend struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// OpenAIConfig configures the backend.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewOpenAIBackend creates a chat-completions backend.
func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &OpenAIBackend{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the backend identifier.
func (b *OpenAIBackend) Name() string {
	return "openai"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Ping checks reachability by listing models.
func (b *OpenAIBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("building ping request: %w", err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return core.ErrExecution(core.CodeBackendFailed, "model backend unreachable").WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return core.ErrExecution(core.CodeBackendFailed,
			fmt.Sprintf("model backend ping returned %d", resp.StatusCode))
	}
	return nil
}

// Complete runs a prompt through the chat-completions endpoint.
func (b *OpenAIBackend) Complete(ctx context.Context, req core.CompletionRequest) (*core.CompletionResult, error) {
	start := time.Now()

	// A nil request temperature falls back to the configured one; an
	// explicit pointer, including to zero, is sent as-is.
	temperature := req.Temperature
	if temperature == nil && b.temperature != 0 {
		configured := b.temperature
		temperature = &configured
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = b.maxTokens
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       b.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	b.authorize(httpReq)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, core.ErrTimeout("completion request timed out").WithCause(err)
		}
		return nil, core.ErrExecution(core.CodeBackendFailed, "completion request failed").WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, core.ErrExecution(core.CodeBackendFailed, "reading completion response").WithCause(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, core.ErrRateLimit("model backend rate limited")
	case resp.StatusCode >= 500:
		return nil, core.ErrExecution(core.CodeBackendFailed,
			fmt.Sprintf("model backend returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, &core.DomainError{
			Category:  core.ErrCatExecution,
			Code:      core.CodeBackendFailed,
			Message:   fmt.Sprintf("model backend rejected request with %d", resp.StatusCode),
			Retryable: false,
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, core.ErrExecution(core.CodeParseFailed, "malformed completion response").WithCause(err)
	}
	if parsed.Error != nil {
		return nil, core.ErrExecution(core.CodeBackendFailed, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, core.ErrExecution(core.CodeBackendFailed, "completion response has no choices")
	}

	return &core.CompletionResult{
		Text:         parsed.Choices[0].Message.Content,
		TokensIn:     parsed.Usage.PromptTokens,
		TokensOut:    parsed.Usage.CompletionTokens,
		Model:        parsed.Model,
		FinishReason: parsed.Choices[0].FinishReason,
		Duration:     time.Since(start),
	}, nil
}

func (b *OpenAIBackend) authorize(req *http.Request) {
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
}
