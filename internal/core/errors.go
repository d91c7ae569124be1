package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatGeneration ErrorCategory = "generation" // Analyst generation produced nothing usable
	ErrCatExecution  ErrorCategory = "execution"  // Runtime failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatRateLimit  ErrorCategory = "rate_limit" // Backend rate limited
	ErrCatState      ErrorCategory = "state"      // Checkpoint corruption/conflict
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatExport     ErrorCategory = "export"     // Artifact write failure
	ErrCatNetwork    ErrorCategory = "network"    // Network connectivity
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrGenerationFailed signals that the backend produced no usable
// analyst personas after the bounded internal retry.
func ErrGenerationFailed(topic string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatGeneration,
		Code:      CodeGenerationFailed,
		Message:   fmt.Sprintf("no usable analyst personas generated for topic %q", topic),
		Retryable: false,
		Cause:     cause,
		Details: map[string]interface{}{
			"topic": topic,
		},
	}
}

// ErrSessionNotFound signals an unknown session identifier.
func ErrSessionNotFound(id SessionID) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      CodeSessionNotFound,
		Message:   fmt.Sprintf("session not found: %s", id),
		Retryable: false,
		Details: map[string]interface{}{
			"session_id": string(id),
		},
	}
}

// ErrArtifactNotFound signals an unknown exported file name.
func ErrArtifactNotFound(name string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      CodeArtifactNotFound,
		Message:   fmt.Sprintf("artifact not found: %s", name),
		Retryable: false,
		Details: map[string]interface{}{
			"file_name": name,
		},
	}
}

// ErrCheckpointCorrupt signals unreadable or inconsistent persisted
// state. Fatal for the affected session only.
func ErrCheckpointCorrupt(id SessionID, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      CodeCheckpointCorrupt,
		Message:   fmt.Sprintf("checkpoint for session %s is corrupt", id),
		Retryable: false,
		Cause:     cause,
		Details: map[string]interface{}{
			"session_id": string(id),
		},
	}
}

// ErrExportFailed signals that an artifact could not be written. The
// session keeps its final report, so export alone can be retried.
func ErrExportFailed(topic, format string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatExport,
		Code:      CodeExportFailed,
		Message:   fmt.Sprintf("exporting %s artifact for topic %q", format, topic),
		Retryable: true,
		Cause:     cause,
		Details: map[string]interface{}{
			"topic":  topic,
			"format": format,
		},
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatRateLimit,
		Code:      "RATE_LIMITED",
		Message:   message,
		Retryable: true,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeGenerationFailed  = "GENERATION_FAILED"
	CodeSessionNotFound   = "SESSION_NOT_FOUND"
	CodeArtifactNotFound  = "ARTIFACT_NOT_FOUND"
	CodeAnalystDegraded   = "ANALYST_DEGRADED"
	CodeExportFailed      = "EXPORT_FAILED"
	CodeCheckpointCorrupt = "CHECKPOINT_CORRUPT"
	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidDelta      = "INVALID_DELTA"
	CodeBackendFailed     = "BACKEND_FAILED"
	CodeParseFailed       = "PARSE_FAILED"

	// Validation error codes
	CodeEmptyTopic      = "EMPTY_TOPIC"
	CodeTopicTooLong    = "TOPIC_TOO_LONG"
	CodeInvalidAnalyst  = "INVALID_ANALYST"
	CodeInvalidAnalysts = "INVALID_MAX_ANALYSTS"
	CodeInvalidConfig   = "INVALID_CONFIG"
)

// MaxTopicLength is the maximum allowed topic length.
const MaxTopicLength = 10000
