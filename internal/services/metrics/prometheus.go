// Package metrics implements the collection metrics collaborator using
// Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ternarybob/crossquote/internal/interfaces"
	"github.com/ternarybob/crossquote/internal/models"
)

// Recorder implements interfaces.MetricsRecorder on Prometheus collectors.
// Symbol is deliberately not a label on the counters; symbol sets are
// unbounded and would explode cardinality.
type Recorder struct {
	attempts   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	outcomes   *prometheus.CounterVec
	confidence prometheus.Histogram
	conflicts  prometheus.Counter
}

// New creates a Recorder registered against the default registry.
func New() *Recorder {
	return &Recorder{
		attempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossquote_collect_attempts_total",
				Help: "Collection attempts per source and result",
			},
			[]string{"source", "result"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crossquote_collect_duration_seconds",
				Help:    "Collection duration per source in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"source"},
		),
		outcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crossquote_reconcile_outcomes_total",
				Help: "Reconciliation outcomes by validation status",
			},
			[]string{"status"},
		),
		confidence: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crossquote_reconcile_confidence",
				Help:    "Confidence score distribution of unified records",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		conflicts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crossquote_reconcile_conflict_fields_total",
				Help: "Total conflicting fields seen across reconciliations",
			},
		),
	}
}

// RecordAttempt records one collector attempt.
func (r *Recorder) RecordAttempt(symbol string, source models.Source, success bool, latencyMs int64) {
	result := "success"
	if !success {
		result = "failure"
	}
	r.attempts.WithLabelValues(string(source), result).Inc()
	r.latency.WithLabelValues(string(source)).Observe(float64(latencyMs) / 1000)
}

// RecordOutcome records one reconciliation outcome.
func (r *Recorder) RecordOutcome(symbol string, status models.ValidationStatus, confidence float64, conflicts int) {
	r.outcomes.WithLabelValues(string(status)).Inc()
	r.confidence.Observe(confidence)
	if conflicts > 0 {
		r.conflicts.Add(float64(conflicts))
	}
}

// Noop discards all metrics; tests and metric-less deployments use it.
type Noop struct{}

func (Noop) RecordAttempt(symbol string, source models.Source, success bool, latencyMs int64) {}
func (Noop) RecordOutcome(symbol string, status models.ValidationStatus, confidence float64, conflicts int) {
}

var _ interfaces.MetricsRecorder = (*Recorder)(nil)
var _ interfaces.MetricsRecorder = Noop{}
