package notify

import (
	"context"

	"rental-genie/internal/common/logger"
	"rental-genie/internal/common/metrics"
)

// LogNotifier writes events to the application log. It is the default
// channel when AWS notifications are disabled, and never fails.
type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NewSession(_ context.Context, event NewSessionEvent) error {
	n.log.Info("new tenant inquiry", map[string]interface{}{
		"session_id":       event.SessionID,
		"first_message":    event.FirstMessage,
		"extracted_fields": event.ExtractedFields,
	})
	metrics.NotificationsSent.WithLabelValues("new_session", "success").Inc()
	return nil
}

func (n *LogNotifier) Handoff(_ context.Context, event HandoffEvent) error {
	n.log.Warn("session handed off to human", map[string]interface{}{
		"session_id": event.SessionID,
		"reason":     event.Reason,
		"priority":   string(event.Priority),
	})
	metrics.NotificationsSent.WithLabelValues("handoff", "success").Inc()
	return nil
}
