// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_analyses_completed_total",
			Help: "Total number of analyses that produced a verdict",
		},
		[]string{"source"},
	)

	AnalysesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_analyses_failed_total",
			Help: "Total number of analyses that ended in an error",
		},
		[]string{"error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	AnalysesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_analyses_active",
			Help: "Number of analyses currently in flight",
		},
	)

	TriageFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_triage_findings_total",
			Help: "Triage findings by source and outcome",
		},
		[]string{"source_tag", "ok"},
	)

	AcquisitionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_acquisition_attempts_total",
			Help: "Media download attempts by outcome",
		},
		[]string{"outcome"},
	)

	AdjudicationRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_adjudication_retries_total",
			Help: "Verdict generations repeated after schema rejection",
		},
	)

	StatusDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_status_updates_dropped_total",
			Help: "Status updates dropped because a stream buffer was full",
		},
	)
)
