package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// METRICS - verdict counters and evaluation latency
// =============================================================================

var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pullpay_evaluations_total",
		Help: "Decision engine verdicts by action tag and outcome.",
	}, []string{"action", "verdict"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pullpay_evaluation_duration_seconds",
		Help:    "Wall time of a single decision evaluation.",
		Buckets: prometheus.DefBuckets,
	})
)

func observeVerdict(action, verdict string, seconds float64) {
	evaluationsTotal.WithLabelValues(action, verdict).Inc()
	evaluationDuration.Observe(seconds)
}
