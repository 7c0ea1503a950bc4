// Package metrics exposes prometheus collectors for the citation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redirect resolution outcomes.
const (
	OutcomeResolved  = "resolved"  // followed at least one redirect
	OutcomeUnchanged = "unchanged" // no redirect
	OutcomeHopLimit  = "hop_limit"
	OutcomeFailed    = "failed"
)

var (
	RedirectResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grounding_redirect_resolutions_total",
			Help: "Redirect chain resolutions by outcome",
		},
		[]string{"outcome"},
	)

	RedirectHops = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grounding_redirect_hops",
			Help:    "Redirect hops followed per resolution",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	ThrottleTaskFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grounding_throttle_task_failures_total",
			Help: "Throttled tasks that failed or panicked and received the fallback value",
		},
	)

	ThrottleBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grounding_throttle_batch_duration_seconds",
			Help:    "Wall time of a throttled batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	EditsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grounding_annotation_edits_skipped_total",
			Help: "Citation edits dropped during annotation",
		},
		[]string{"reason"},
	)

	ReportsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grounding_reports_processed_total",
			Help: "Reports passed through the citation engine",
		},
		[]string{"kind", "result"},
	)
)
