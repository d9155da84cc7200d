// Package errors provides standardized error handling for the conversation core.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Extraction errors: always recovered by falling back to rule-based
	// extraction, never user-visible.
	ErrCodeExtractionFailed        ErrorCode = "EXTRACTION_FAILED"
	ErrCodeExtractionSchemaInvalid ErrorCode = "EXTRACTION_SCHEMA_INVALID"
	ErrCodeGenAITimeout            ErrorCode = "GENAI_TIMEOUT"

	// Reply-generation errors: surfaced as a fixed apologetic message.
	ErrCodeReplyGenerationFailed ErrorCode = "REPLY_GENERATION_FAILED"

	// Persistence errors: logged only, never surfaced, never block a turn.
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"

	// Notification errors: logged only.
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	// Session errors.
	ErrCodeSessionClosed  ErrorCode = "SESSION_CLOSED"
	ErrCodeInvalidStatus  ErrorCode = "INVALID_STATUS"
	ErrCodeUnknownField   ErrorCode = "UNKNOWN_FIELD"
	ErrCodeSessionMissing ErrorCode = "SESSION_MISSING"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewExtractionFailedError marks a failed LLM extraction attempt. Retryable:
// the caller falls back to rule-based extraction instead of retrying, but a
// later turn may succeed.
func NewExtractionFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionFailed,
		Message:   "LLM extraction failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtractionSchemaInvalidError marks an extraction payload that failed
// schema validation.
func NewExtractionSchemaInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionSchemaInvalid,
		Message:   "extraction result failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenAITimeoutError marks a timed-out capability call.
func NewGenAITimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenAITimeout,
		Message:   "GenAI capability timed out",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReplyGenerationFailedError marks a failed reply generation.
func NewReplyGenerationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReplyGenerationFailed,
		Message:   "reply generation failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailedError marks a failed repository sync.
func NewPersistenceFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "profile persistence failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError marks a failed owner notification.
func NewNotificationSendFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "notification delivery failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionMissingError marks an operation against a session the store has
// never seen.
func NewSessionMissingError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionMissing,
		Message:   "unknown session",
		Details:   sessionID,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStatusError marks a status-transition request with an unknown
// target status.
func NewInvalidStatusError(status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidStatus,
		Message:   "invalid tenant status",
		Details:   status,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
