package core

import (
	"context"
	"io"
	"time"
)

// =============================================================================
// Model backend port
// =============================================================================

// ModelBackend is the opaque text-completion capability the workflow
// consumes. Implementations are stateless per call.
type ModelBackend interface {
	// Name returns the backend identifier (e.g., "openai", "scripted").
	Name() string

	// Ping checks if the backend is reachable and authenticated.
	Ping(ctx context.Context) error

	// Complete runs a prompt through the backend and returns the text.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// CompletionRequest configures a single completion call.
type CompletionRequest struct {
	System string
	Prompt string

	// Temperature overrides the backend's configured sampling
	// temperature when non-nil. Zero is a valid override.
	Temperature *float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultCompletionRequest returns sensible defaults. Temperature is
// left nil so the backend's configured value applies.
func DefaultCompletionRequest() CompletionRequest {
	return CompletionRequest{
		MaxTokens: 4096,
		Timeout:   2 * time.Minute,
	}
}

// CompletionResult contains the output of a completion call.
type CompletionResult struct {
	Text         string
	TokensIn     int
	TokensOut    int
	Model        string
	FinishReason string
	Duration     time.Duration
}

// =============================================================================
// Checkpoint store port
// =============================================================================

// CheckpointStore persists session state keyed by session ID. All
// methods are safe for concurrent use; Update is atomic with respect to
// concurrent Reads of the same session. Implementations hand out deep
// copies, never shared pointers.
//
// Stores are not required to garbage-collect abandoned sessions; a
// session left at the feedback gate stays there indefinitely.
type CheckpointStore interface {
	// Write persists a full session snapshot, creating or replacing it.
	Write(ctx context.Context, session *Session) error

	// Update applies a named-node delta and the accompanying stage
	// transition to an existing session. Returns ErrSessionNotFound if
	// no checkpoint exists, ErrCheckpointCorrupt if the persisted state
	// is unreadable.
	Update(ctx context.Context, id SessionID, delta Delta, stage Stage) error

	// Read returns the current session snapshot. Returns
	// ErrSessionNotFound if no checkpoint exists.
	Read(ctx context.Context, id SessionID) (*Session, error)

	// List returns the IDs of all checkpointed sessions.
	List(ctx context.Context) ([]SessionID, error)

	// Close releases any underlying resources.
	Close() error
}

// =============================================================================
// Renderer port
// =============================================================================

// ReportDocument is the structured report handed to renderers.
type ReportDocument struct {
	Title       string
	Topic       string
	SessionID   SessionID
	Body        string
	GeneratedAt time.Time
}

// Renderer turns a structured report into file bytes for one format.
// Rendering is a pure function of the document.
type Renderer interface {
	// Extension returns the file extension without the dot.
	Extension() string

	// Render writes the document to w.
	Render(doc ReportDocument, w io.Writer) error
}
