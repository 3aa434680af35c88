package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the engine's Prometheus metrics.
type Registry struct {
	AuditsStarted   prometheus.Counter
	AuditsCompleted *prometheus.CounterVec
	AuditsRejected  prometheus.Counter
	AuditDuration   prometheus.Histogram

	RecordsAnalyzed  *prometheus.CounterVec
	AnalysisFailures prometheus.Counter

	SourceRequests *prometheus.CounterVec
}

// NewRegistry registers the engine metrics with the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh
// prometheus.NewRegistry to avoid duplicate registration.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		AuditsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_runs_started_total",
			Help: "Number of audit runs started.",
		}),
		AuditsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_runs_completed_total",
			Help: "Number of audit runs finished, by terminal status.",
		}, []string{"status"}),
		AuditsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_runs_rejected_total",
			Help: "Number of audit start requests rejected because a run was in progress.",
		}),
		AuditDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audit_run_duration_seconds",
			Help:    "Wall clock duration of audit runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		RecordsAnalyzed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "records_analyzed_total",
			Help: "Number of records analyzed, by record kind and analysis type.",
		}, []string{"kind", "analysis_type"}),
		AnalysisFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "analysis_failures_total",
			Help: "Number of analyses that degraded to the default sentinel.",
		}),
		SourceRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_source_requests_total",
			Help: "Number of identity data source requests, by outcome.",
		}, []string{"outcome"}),
	}
}
