// Package metrics holds the prometheus instrumentation for the overlay
// engine. All collectors are registered against an injected registerer so
// tests can use private registries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Default histogram buckets for collaborator fetch latencies.
var fetchDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics bundles every collector the engine emits.
type Metrics struct {
	// FetchDuration observes collaborator request latency per endpoint.
	FetchDuration *prometheus.HistogramVec
	// FetchErrors counts failed collaborator requests per endpoint and code.
	FetchErrors *prometheus.CounterVec

	// AdvisoryChunks counts delivered stream deltas.
	AdvisoryChunks prometheus.Counter
	// AdvisoryTurns counts completed advisory turns per intent and outcome.
	AdvisoryTurns *prometheus.CounterVec

	// CellsRendered reports the polygon count of the last choropleth build.
	CellsRendered prometheus.Gauge
	// CellsSkipped counts cells dropped for unresolvable geometry.
	CellsSkipped prometheus.Counter

	// MarkersActive reports currently held markers per source category.
	MarkersActive *prometheus.GaugeVec

	// EventsCreated counts community events created this session.
	EventsCreated prometheus.Counter
}

// New registers all collectors under the given namespace with reg and
// returns the bundle. Passing prometheus.DefaultRegisterer wires the
// process-wide registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Collaborator fetch latency by endpoint.",
			Buckets:   fetchDurationBuckets,
		}, []string{"endpoint"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed collaborator fetches by endpoint and error code.",
		}, []string{"endpoint", "code"}),
		AdvisoryChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_chunks_total",
			Help:      "Advisory stream text deltas delivered to the consumer.",
		}),
		AdvisoryTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_turns_total",
			Help:      "Completed advisory turns by detected intent and outcome.",
		}, []string{"intent", "outcome"}),
		CellsRendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "choropleth_cells_rendered",
			Help:      "Polygon count of the most recent choropleth build.",
		}),
		CellsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "choropleth_cells_skipped_total",
			Help:      "Cells skipped because their boundary could not be resolved.",
		}),
		MarkersActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "markers_active",
			Help:      "Markers currently held by the coordinator per source.",
		}, []string{"source"}),
		EventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_created_total",
			Help:      "Community events created during this session.",
		}),
	}

	reg.MustRegister(
		m.FetchDuration, m.FetchErrors,
		m.AdvisoryChunks, m.AdvisoryTurns,
		m.CellsRendered, m.CellsSkipped,
		m.MarkersActive, m.EventsCreated,
	)
	return m
}

// NewNop returns a bundle registered against a throwaway registry, for
// tests and for runs with metrics disabled.
func NewNop() *Metrics {
	return New("citypath_test", prometheus.NewRegistry())
}
