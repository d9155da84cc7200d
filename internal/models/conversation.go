package models

import "time"

// ConversationTurn is one exchange within a session. Turns are append-only
// and immutable once recorded.
type ConversationTurn struct {
	Timestamp     time.Time    `json:"timestamp"`
	UserMessage   string       `json:"userMessage"`
	AgentResponse string       `json:"agentResponse"`
	Extracted     FieldUpdates `json:"extracted"`
}

// Session owns one tenant profile and its ordered conversation history.
// Instances are created and mutated only by the profile store.
type Session struct {
	ID               string             `json:"id"`
	Profile          *TenantProfile     `json:"profile"`
	History          []ConversationTurn `json:"history"`
	HandoffCompleted bool               `json:"handoffCompleted"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// HandoffConfidence classifies how certain the detector is about a trigger.
type HandoffConfidence string

const (
	ConfidenceHigh   HandoffConfidence = "high"
	ConfidenceMedium HandoffConfidence = "medium"
	ConfidenceLow    HandoffConfidence = "low"
)

// HandoffPriority is the urgency attached to an escalation.
type HandoffPriority string

const (
	PriorityLow    HandoffPriority = "low"
	PriorityMedium HandoffPriority = "medium"
	PriorityHigh   HandoffPriority = "high"
	PriorityUrgent HandoffPriority = "urgent"
)

// HandoffDecision is the trigger detector's verdict for one message.
type HandoffDecision struct {
	Triggered  bool              `json:"triggered"`
	Reason     string            `json:"reason"`
	Confidence HandoffConfidence `json:"confidenceLevel"`
	Priority   HandoffPriority   `json:"escalationPriority"`
}
