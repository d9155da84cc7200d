// Package genai provides the language-model capabilities the conversation
// core consumes: structured tenant-info extraction and reply generation.
// Implementations exist for the internal GenAI HTTP service and for the
// OpenAI API; both are stateless and safe for concurrent use.
package genai

import (
	"context"
	"encoding/json"
)

// ExtractionRequest carries everything the model needs to extract tenant
// information from one message without re-asking for known facts.
type ExtractionRequest struct {
	Message       string                 `json:"message"`
	KnownFields   map[string]interface{} `json:"known_info"`
	MissingFields []string               `json:"missing_fields"`
	FocusFields   []string               `json:"focus_fields"`
	RecentContext string                 `json:"recent_context,omitempty"`
}

// ExtractedField is one field value with the model's reported confidence.
type ExtractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ExtractionResponse is the structured contract the model must satisfy.
// Raw payloads are schema-validated before being decoded into this type.
type ExtractionResponse struct {
	Fields             map[string]ExtractedField `json:"fields"`
	LanguagePreference string                    `json:"language_preference,omitempty"`
	OverallConfidence  float64                   `json:"overall_confidence"`
	UpdatedFields      []string                  `json:"updated_fields"`
}

// ExtractionCapability returns the model's raw JSON payload for one
// extraction request. Callers validate and gate it; any error means the
// capability could not produce a usable payload.
type ExtractionCapability interface {
	Extract(ctx context.Context, req *ExtractionRequest) (json.RawMessage, error)
}

// ReplyCapability generates the tenant-facing reply text.
type ReplyCapability interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}
