// Package observability exposes the auditor's prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RulesAudited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruleaudit_rules_audited_total",
			Help: "Audited rules by outcome",
		},
		[]string{"outcome"},
	)

	AuditDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ruleaudit_audit_duration_seconds",
			Help:    "Wall time of one full rule audit",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	FinalScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ruleaudit_final_score",
			Help:    "Reliability score distribution by phase",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"phase"},
	)

	EventsCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ruleaudit_events_collected_total",
			Help: "Events pulled from the upstream stores",
		},
	)

	SuggestionsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruleaudit_suggestions_generated_total",
			Help: "Generated suggestions by kind",
		},
		[]string{"kind"},
	)
)

// ObserveAudit records one finished audit.
func ObserveAudit(outcome string, seconds float64) {
	RulesAudited.WithLabelValues(outcome).Inc()
	AuditDuration.Observe(seconds)
}

// ObserveScore records a final score for the before or after phase.
func ObserveScore(phase string, score float64) {
	FinalScore.WithLabelValues(phase).Observe(score)
}
