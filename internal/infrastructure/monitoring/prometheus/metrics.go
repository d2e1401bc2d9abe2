// Package prometheus exposes the engine's operational metrics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements the orchestrator's Metrics and ExecutorMetrics hooks.
type Metrics struct {
	transitionsTotal *prometheus.CounterVec
	conflictsTotal   prometheus.Counter
	sideEffectsTotal *prometheus.CounterVec
	applyDuration    *prometheus.HistogramVec
}

// NewMetrics registers the engine's collectors on the given registry.  A nil
// registry falls back to the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_transitions_total",
			Help: "Transition attempts by event and outcome.",
		}, []string{"event", "outcome"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "casework_conflicts_total",
			Help: "Optimistic concurrency conflicts rejected.",
		}),
		sideEffectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casework_side_effects_total",
			Help: "Side effect dispatches by kind and outcome.",
		}, []string{"kind", "outcome"}),
		applyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casework_apply_duration_seconds",
			Help:    "Latency of orchestrator apply calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),
	}

	reg.MustRegister(m.transitionsTotal, m.conflictsTotal, m.sideEffectsTotal, m.applyDuration)
	return m
}

// ObserveApply records one apply call.
func (m *Metrics) ObserveApply(event string, outcome string, elapsed time.Duration) {
	m.transitionsTotal.WithLabelValues(event, outcome).Inc()
	m.applyDuration.WithLabelValues(event).Observe(elapsed.Seconds())
}

// IncConflict records one rejected concurrent write.
func (m *Metrics) IncConflict() {
	m.conflictsTotal.Inc()
}

// IncSideEffect records one side-effect dispatch.
func (m *Metrics) IncSideEffect(kind string, outcome string) {
	m.sideEffectsTotal.WithLabelValues(kind, outcome).Inc()
}

// Handler returns the scrape endpoint handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
