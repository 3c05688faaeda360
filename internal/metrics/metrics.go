// Package metrics registers the Prometheus instruments for the event spine
// and the projection engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsAppended     *prometheus.CounterVec
	AppendsRejected    *prometheus.CounterVec
	ProjectionsApplied *prometheus.CounterVec
	ProjectionsSkipped *prometheus.CounterVec
	AppendLatency      prometheus.Histogram
	RebuildReplayed    prometheus.Counter
}

// New creates and registers all metrics on the default registry. Call once
// per process.
func New() *Metrics {
	return &Metrics{
		EventsAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swingsage_events_appended_total",
			Help: "Spine events appended, by event type",
		}, []string{"event_type"}),

		AppendsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swingsage_appends_rejected_total",
			Help: "Append attempts rejected by validation, by reason",
		}, []string{"reason"}),

		ProjectionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swingsage_projections_applied_total",
			Help: "Projection rules applied, by rule",
		}, []string{"rule"}),

		ProjectionsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "swingsage_projections_skipped_total",
			Help: "Projection rules skipped for missing or malformed fields, by rule",
		}, []string{"rule"}),

		AppendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "swingsage_append_latency_seconds",
			Help:    "Wall time of Append including synchronous projection",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		RebuildReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "swingsage_rebuild_events_replayed_total",
			Help: "Spine events replayed by rib rebuilds",
		}),
	}
}

func (m *Metrics) RuleApplied(rule string) {
	if m == nil {
		return
	}
	m.ProjectionsApplied.WithLabelValues(rule).Inc()
}

func (m *Metrics) RuleSkipped(rule string) {
	if m == nil {
		return
	}
	m.ProjectionsSkipped.WithLabelValues(rule).Inc()
}
