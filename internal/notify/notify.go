// Package notify delivers owner-facing events: new tenant inquiries and
// handoff escalations. Delivery is best-effort; a failed notification is
// logged and counted but never fails the conversational turn that caused it.
package notify

import (
	"context"

	"rental-genie/internal/models"
)

// NewSessionEvent announces the first message of a new inquiry.
type NewSessionEvent struct {
	SessionID       string                 `json:"session_id"`
	FirstMessage    string                 `json:"first_message"`
	ExtractedFields map[string]interface{} `json:"extracted_fields,omitempty"`
}

// HandoffEvent announces that a session left automated handling.
type HandoffEvent struct {
	SessionID       string                   `json:"session_id"`
	Reason          string                   `json:"reason"`
	Confidence      models.HandoffConfidence `json:"confidence_level"`
	Priority        models.HandoffPriority   `json:"escalation_priority"`
	ProfileSnapshot map[string]interface{}   `json:"profile_snapshot,omitempty"`
	Summary         string                   `json:"conversation_summary,omitempty"`
}

// Notifier is implemented by every delivery channel.
type Notifier interface {
	NewSession(ctx context.Context, event NewSessionEvent) error
	Handoff(ctx context.Context, event HandoffEvent) error
}
