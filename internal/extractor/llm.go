package extractor

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"rental-genie/internal/common/logger"
	"rental-genie/internal/common/metrics"
	"rental-genie/internal/genai"
	"rental-genie/internal/models"
)

// Source labels which strategy produced a Result.
type Source string

const (
	SourceLLM   Source = "llm"
	SourceRules Source = "rules"
)

// Fallback reasons, surfaced only through logs and metrics.
const (
	FallbackUnavailable   = "capability_unavailable"
	FallbackRequestFailed = "request_failed"
	FallbackSchemaInvalid = "schema_invalid"
	FallbackDecodeFailed  = "decode_failed"
)

// Result is the single contract both strategies resolve to. Callers never
// branch on Source for correctness; it exists for logging and metrics.
type Result struct {
	Updates  models.FieldUpdates
	Source   Source
	Fallback string
}

// Config tunes the LLM gate.
type Config struct {
	// ConfidenceThreshold is the minimum per-field confidence an LLM value
	// needs to be accepted. Values below it are dropped silently.
	ConfidenceThreshold float64
	// RecentTurnWindow is how many prior turns are summarized into the
	// extraction prompt.
	RecentTurnWindow int
}

// Extractor prefers the LLM and falls back to the rule engine transparently.
type Extractor struct {
	capability genai.ExtractionCapability
	cfg        Config
	log        logger.Logger
}

func New(capability genai.ExtractionCapability, cfg Config, log logger.Logger) *Extractor {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.70
	}
	if cfg.RecentTurnWindow <= 0 {
		cfg.RecentTurnWindow = 2
	}
	return &Extractor{capability: capability, cfg: cfg, log: log}
}

// Extract runs the LLM strategy against one message and degrades to the
// rule engine on any failure: missing capability, transport error, schema
// violation, or undecodable payload. The caller sees one Result either way.
func (e *Extractor) Extract(ctx context.Context, message string, profile *models.TenantProfile, recent []models.ConversationTurn) Result {
	if e.capability == nil {
		return e.fallback(message, FallbackUnavailable, nil)
	}

	raw, err := e.capability.Extract(ctx, e.buildRequest(message, profile, recent))
	if err != nil {
		return e.fallback(message, FallbackRequestFailed, err)
	}

	if err := ValidateExtractionPayload(raw); err != nil {
		return e.fallback(message, FallbackSchemaInvalid, err)
	}

	var payload genai.ExtractionResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return e.fallback(message, FallbackDecodeFailed, err)
	}

	updates := e.gate(payload)
	metrics.ExtractionResults.WithLabelValues(string(SourceLLM)).Inc()
	e.log.Debug("llm extraction accepted", map[string]interface{}{
		"updated_fields":     updates.Fields(),
		"overall_confidence": payload.OverallConfidence,
	})
	return Result{Updates: updates, Source: SourceLLM}
}

func (e *Extractor) buildRequest(message string, profile *models.TenantProfile, recent []models.ConversationTurn) *genai.ExtractionRequest {
	req := &genai.ExtractionRequest{Message: message}

	if profile != nil {
		req.KnownFields = profile.Snapshot()
		req.MissingFields = profile.MissingFields()
	} else {
		req.MissingFields = append([]string(nil), models.RequiredFields...)
	}
	req.FocusFields = req.MissingFields

	window := e.cfg.RecentTurnWindow
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}
	var lines []string
	for _, turn := range recent {
		lines = append(lines, "User: "+turn.UserMessage, "Agent: "+turn.AgentResponse)
	}
	req.RecentContext = strings.Join(lines, "\n")
	return req
}

// gate applies per-field confidence gating and type checks to a validated
// payload. Unknown field names are dropped, never merged.
func (e *Extractor) gate(payload genai.ExtractionResponse) models.FieldUpdates {
	var updates models.FieldUpdates

	for name, field := range payload.Fields {
		value := strings.TrimSpace(field.Value)
		if value == "" || field.Confidence < e.cfg.ConfidenceThreshold {
			continue
		}

		switch name {
		case "age":
			age, err := strconv.Atoi(value)
			if err != nil || age <= 0 {
				e.log.Debug("dropping non-numeric age from llm payload", map[string]interface{}{
					"value": field.Value,
				})
				continue
			}
			updates.Age = models.Int(age)
		case "sex":
			updates.Sex = models.String(strings.ToLower(value))
		case "occupation":
			updates.Occupation = models.String(value)
		case "move_in_date":
			updates.MoveInDate = models.String(value)
		case "rental_duration":
			updates.RentalDuration = models.String(value)
		case "guarantor_status":
			updates.GuarantorStatus = models.String(strings.ToLower(value))
		case "guarantor_details":
			updates.GuarantorDetails = models.String(value)
		case "availability":
			updates.Availability = models.String(value)
		case "viewing_interest":
			switch strings.ToLower(value) {
			case "true", "yes":
				updates.ViewingInterest = models.Bool(true)
			case "false", "no":
				updates.ViewingInterest = models.Bool(false)
			}
		case "property_interest":
			updates.PropertyInterest = models.String(value)
		default:
			e.log.Debug("ignoring unknown field from llm payload", map[string]interface{}{
				"field": name,
			})
		}
	}

	// Language preference rides outside the fields map and is not gated:
	// it is an interaction hint, not profile data subject to confidence.
	if lang := strings.TrimSpace(payload.LanguagePreference); lang != "" {
		updates.LanguagePreference = models.String(lang)
	}

	return updates
}

func (e *Extractor) fallback(message, reason string, cause error) Result {
	log := e.log
	if cause != nil {
		log = log.WithError(cause)
	}
	log.Warn("llm extraction failed, falling back to rules", map[string]interface{}{
		"reason": reason,
	})
	metrics.ExtractionFallbacks.WithLabelValues(reason).Inc()
	metrics.ExtractionResults.WithLabelValues(string(SourceRules)).Inc()
	return Result{Updates: ExtractRules(message), Source: SourceRules, Fallback: reason}
}
