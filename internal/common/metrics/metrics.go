// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_processed_total",
			Help: "Total number of conversation turns processed, by outcome",
		},
		[]string{"outcome"},
	)

	ExtractionResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_results_total",
			Help: "Total number of extraction passes, by source extractor",
		},
		[]string{"source"},
	)

	ExtractionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_fallbacks_total",
			Help: "Total number of LLM extraction fallbacks, by reason",
		},
		[]string{"reason"},
	)

	HandoffsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handoffs_triggered_total",
			Help: "Total number of handoffs triggered, by escalation priority",
		},
		[]string{"priority"},
	)

	ProfilesQualified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profiles_qualified_total",
			Help: "Total number of profiles auto-qualified",
		},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_persistence_failures_total",
			Help: "Total number of failed repository syncs, by operation",
		},
		[]string{"operation"},
	)

	ReplyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "reply_generation_duration_seconds",
			Help: "Duration of reply generation in seconds",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of owner notifications, by kind and status",
		},
		[]string{"kind", "status"},
	)
)
