// Package orchestrator ties the conversation core together: extraction,
// profile merging, reply generation, and handoff detection, one message at
// a time per session.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"rental-genie/internal/common/logger"
	"rental-genie/internal/common/metrics"
	"rental-genie/internal/common/observability"
	"rental-genie/internal/extractor"
	"rental-genie/internal/genai"
	"rental-genie/internal/handoff"
	"rental-genie/internal/models"
	"rental-genie/internal/notify"
	"rental-genie/internal/store"
)

// Fixed user-facing texts. None of them expose internals, and the handoff
// texts never say a machine decided anything.
const (
	closedSessionReply = "I've connected you with the property owner. They will be in touch with you shortly to assist with your inquiry."
	handoffReply       = "Thank you for your inquiry. The property owner will be in touch with you shortly to assist with your specific needs."
	apologyReply       = "I'm having trouble processing your request right now. Please try again in a moment."
)

// embeddedJSON strips machine-readable blocks a model sometimes appends to
// its conversational reply.
var embeddedJSON = regexp.MustCompile(`(?s)\{.*\}`)

// Config tunes orchestration behavior.
type Config struct {
	// RecentTurnWindow is how many prior turns feed the extraction prompt.
	RecentTurnWindow int
	// MissingFieldPromptThreshold is the minimum number of missing required
	// fields before the reply prompt lists them. Below it the model is left
	// alone so a nearly-complete profile doesn't get badgered.
	MissingFieldPromptThreshold int
}

// ProfileStatus is the caller-visible snapshot of one session's progress.
type ProfileStatus struct {
	ProfileComplete  bool     `json:"profile_complete"`
	MissingFields    []string `json:"missing_fields"`
	Turns            int      `json:"turns"`
	HandoffCompleted bool     `json:"handoff_completed"`
	Status           string   `json:"status"`
}

// Orchestrator is safe for concurrent use; per-session serialization is the
// store's job.
type Orchestrator struct {
	store     *store.Store
	extractor *extractor.Extractor
	replier   genai.ReplyCapability
	notifier  notify.Notifier
	obs       *observability.Observability
	log       logger.Logger
	cfg       Config
}

func New(s *store.Store, ex *extractor.Extractor, replier genai.ReplyCapability, notifier notify.Notifier, obs *observability.Observability, log logger.Logger, cfg Config) *Orchestrator {
	if cfg.RecentTurnWindow <= 0 {
		cfg.RecentTurnWindow = 2
	}
	if cfg.MissingFieldPromptThreshold <= 0 {
		cfg.MissingFieldPromptThreshold = 3
	}
	return &Orchestrator{
		store:     s,
		extractor: ex,
		replier:   replier,
		notifier:  notifier,
		obs:       obs,
		log:       log,
		cfg:       cfg,
	}
}

// HandleMessage is the single entry point for one inbound tenant message.
// It always returns user-appropriate text, never an error: every failure
// mode degrades to a fixed reply. The whole turn runs inside the session's
// critical section, so concurrent messages for one session are processed
// strictly one after another and the terminal-flag check cannot interleave
// with another turn's handoff.
func (o *Orchestrator) HandleMessage(ctx context.Context, userMessage, propertyContext, sessionID, promptVariant string) string {
	started := time.Now()
	outcome := "replied"
	defer func() {
		metrics.TurnsProcessed.WithLabelValues(outcome).Inc()
		if o.obs != nil {
			o.obs.RecordTurn(ctx, outcome)
			o.obs.RecordTurnDuration(ctx, time.Since(started), outcome)
		}
	}()

	var reply string
	o.store.WithSession(ctx, sessionID, func(view *store.SessionView) {
		reply, outcome = o.handleTurn(ctx, view, userMessage, propertyContext, sessionID, promptVariant)
	})
	return reply
}

func (o *Orchestrator) handleTurn(ctx context.Context, view *store.SessionView, userMessage, propertyContext, sessionID, promptVariant string) (string, string) {
	if view.HandoffCompleted() {
		return closedSessionReply, "closed_session"
	}

	recent := view.RecentTurns(o.cfg.RecentTurnWindow)
	firstTurn := len(recent) == 0
	result := o.extractor.Extract(ctx, userMessage, view.Profile(), recent)

	if firstTurn {
		o.notifyNewSession(ctx, sessionID, userMessage, result)
	}

	profile := view.MergeUpdate(result.Updates)

	reply, err := o.generateReply(ctx, view, userMessage, propertyContext, promptVariant)
	if err != nil {
		o.log.WithError(err).Error("reply generation failed", map[string]interface{}{
			"session_id": sessionID,
		})
		return apologyReply, "reply_failed"
	}

	decision := handoff.Detect(userMessage, profile)
	if decision.Triggered {
		o.completeHandoff(ctx, view, sessionID, decision)
		return handoffReply, "handoff"
	}

	view.AppendTurn(userMessage, reply, result.Updates)
	return reply, "replied"
}

func (o *Orchestrator) generateReply(ctx context.Context, view *store.SessionView, userMessage, propertyContext, promptVariant string) (string, error) {
	systemPrompt := genai.SystemPrompt(promptVariant, propertyContext)
	if convContext := o.conversationContext(view); convContext != "" {
		systemPrompt += "\n\nCONVERSATION CONTEXT:\n" + convContext +
			"\n\nUse this context to personalize responses and avoid asking for information already provided."
	}

	started := time.Now()
	reply, err := o.replier.Generate(ctx, systemPrompt, userMessage)
	metrics.ReplyDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return "", err
	}

	return stripEmbeddedJSON(reply), nil
}

// conversationContext is the profile summary plus, once enough fields are
// still missing, an explicit list of what to ask for next.
func (o *Orchestrator) conversationContext(view *store.SessionView) string {
	summary := view.Summary()

	missing := view.MissingFields()
	if len(missing) >= o.cfg.MissingFieldPromptThreshold {
		summary += fmt.Sprintf("\nMissing required information: %s", strings.Join(missing, ", "))
	}
	return summary
}

func (o *Orchestrator) notifyNewSession(ctx context.Context, sessionID, userMessage string, result extractor.Result) {
	if o.notifier == nil {
		return
	}
	fields := map[string]interface{}{}
	for _, name := range result.Updates.Fields() {
		fields[name] = true
	}
	if err := o.notifier.NewSession(ctx, notify.NewSessionEvent{
		SessionID:       sessionID,
		FirstMessage:    userMessage,
		ExtractedFields: fields,
	}); err != nil {
		o.log.WithError(err).Warn("new-session notification failed", map[string]interface{}{
			"session_id": sessionID,
		})
	}
}

// completeHandoff closes the session, notifies the owner, and leaves the
// triggering message out of the history: nothing after a handoff is part of
// the automated conversation.
func (o *Orchestrator) completeHandoff(ctx context.Context, view *store.SessionView, sessionID string, decision models.HandoffDecision) {
	view.MarkHandoff()
	metrics.HandoffsTriggered.WithLabelValues(string(decision.Priority)).Inc()
	o.log.Warn("handoff triggered", map[string]interface{}{
		"session_id": sessionID,
		"reason":     decision.Reason,
		"priority":   string(decision.Priority),
	})

	if o.notifier == nil {
		return
	}
	if err := o.notifier.Handoff(ctx, notify.HandoffEvent{
		SessionID:       sessionID,
		Reason:          decision.Reason,
		Confidence:      decision.Confidence,
		Priority:        decision.Priority,
		ProfileSnapshot: view.Profile().Snapshot(),
		Summary:         view.Summary(),
	}); err != nil {
		o.log.WithError(err).Error("handoff notification failed", map[string]interface{}{
			"session_id": sessionID,
		})
	}
}

// GetProfileStatus reports the session's collection progress.
func (o *Orchestrator) GetProfileStatus(ctx context.Context, sessionID string) ProfileStatus {
	var status ProfileStatus
	o.store.WithSession(ctx, sessionID, func(view *store.SessionView) {
		missing := view.MissingFields()
		status = ProfileStatus{
			ProfileComplete:  len(missing) == 0,
			MissingFields:    missing,
			Turns:            view.Profile().ConversationTurns,
			HandoffCompleted: view.HandoffCompleted(),
			Status:           string(view.Profile().Status),
		}
	})
	return status
}

// ClearSession removes the session's in-memory and persisted state.
func (o *Orchestrator) ClearSession(ctx context.Context, sessionID string) error {
	return o.store.Clear(ctx, sessionID)
}

// stripEmbeddedJSON removes a trailing machine-readable block only when it
// actually parses as JSON; braces in ordinary prose are left alone.
func stripEmbeddedJSON(reply string) string {
	match := embeddedJSON.FindString(reply)
	if match == "" {
		return strings.TrimSpace(reply)
	}
	var decoded map[string]interface{}
	if json.Unmarshal([]byte(match), &decoded) != nil {
		return strings.TrimSpace(reply)
	}
	return strings.TrimSpace(strings.Replace(reply, match, "", 1))
}
