// Package handoff decides when a conversation must leave automated
// handling and be routed to a human. Detection is a pure function of the
// current message plus an optional profile; missing profile data is never
// a trigger on its own.
package handoff

import (
	"fmt"
	"strings"

	"rental-genie/internal/models"
)

// greetings are excluded outright: a bare salutation carries none of the
// signals below even when it shares words with them.
var greetings = map[string]bool{
	"hello":          true,
	"hello there":    true,
	"hi":             true,
	"hey":            true,
	"good morning":   true,
	"good afternoon": true,
	"good evening":   true,
	"bonjour":        true,
	"bonsoir":        true,
	"salut":          true,
	"coucou":         true,
}

// manualPhrases are explicit requests for a human.
var manualPhrases = []string{
	"speak to someone", "human agent", "real person", "talk to owner",
	"speak to landlord", "talk to human", "speak to manager", "contact owner",
	"speak to property owner", "talk to someone real", "human help",
	"speak with owner", "contact landlord",
}

// emotionalKeywords signal urgency or distress; a single hit is ambiguous,
// two or more escalate.
var emotionalKeywords = []string{
	"frustrated", "angry", "upset", "disappointed", "not happy", "unhappy",
	"urgent", "emergency", "asap", "immediately", "right now", "today",
	"complicated", "complex", "difficult", "problem", "issue", "trouble",
}

// difficultyMarkers indicate a possible language barrier. They are only
// consulted once a language preference is on record; a first contact in an
// unfamiliar language intentionally does not fire this rule.
var difficultyMarkers = []string{
	"sorry", "not understand", "confused", "help",
	"don't understand", "can't understand",
}

const emotionalThreshold = 2

// Detect evaluates the fixed rule order: greeting exclusion, manual
// request, emotional escalation, language barrier. The emotional rule
// overrides the manual rule's priority when both match. The profile may
// be nil.
func Detect(message string, profile *models.TenantProfile) models.HandoffDecision {
	decision := models.HandoffDecision{
		Confidence: models.ConfidenceHigh,
		Priority:   models.PriorityLow,
	}

	lower := strings.ToLower(strings.TrimSpace(message))
	if isBareGreeting(lower) {
		return decision
	}

	for _, phrase := range manualPhrases {
		if strings.Contains(lower, phrase) {
			decision.Triggered = true
			decision.Reason = fmt.Sprintf("Explicit request for human: %q", phrase)
			decision.Priority = models.PriorityMedium
			break
		}
	}

	emotional := 0
	for _, keyword := range emotionalKeywords {
		if strings.Contains(lower, keyword) {
			emotional++
		}
	}
	if emotional >= emotionalThreshold {
		decision.Triggered = true
		decision.Reason = "Emotional situation detected"
		decision.Priority = models.PriorityHigh
	}

	if profile != nil && profile.LanguagePreference != "" && !decision.Triggered {
		for _, marker := range difficultyMarkers {
			if strings.Contains(lower, marker) {
				decision.Triggered = true
				decision.Reason = "Potential language barrier"
				decision.Priority = models.PriorityMedium
				break
			}
		}
	}

	return decision
}

func isBareGreeting(lower string) bool {
	stripped := strings.TrimRight(lower, " !.?,")
	return greetings[stripped]
}
