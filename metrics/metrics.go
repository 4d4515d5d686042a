// Package metrics holds the Prometheus collectors reported by documents,
// handles, the mutability guard and queries.
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "xmlh"

type Metrics struct {
	Documents       prometheus.Gauge
	Handles         prometheus.Gauge
	Aliases         prometheus.Gauge
	GuardRejections prometheus.Counter
	DeferredFrees   prometheus.Counter
	// Queries counts evaluations by result (ok, error).
	Queries *prometheus.CounterVec
	// Parses counts parser runs by format and result.
	Parses *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when it is not
// nil.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Documents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents_open",
			Help:      "Documents created and not yet torn down.",
		}),
		Handles: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handles_registered",
			Help:      "Positions registered in document registries.",
		}),
		Aliases: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handle_aliases",
			Help:      "Live node handle aliases.",
		}),
		GuardRejections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_rejections_total",
			Help:      "Mutations refused because a node was aliased.",
		}),
		DeferredFrees: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deferred_frees_total",
			Help:      "Detached subtrees freed at document teardown.",
		}),
		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "XPath evaluations by result.",
		}, []string{"result"}),
		Parses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parses_total",
			Help:      "Parser runs by format and result.",
		}, []string{"format", "result"}),
	}
}

func (m *Metrics) DocOpened() {
	if m != nil {
		m.Documents.Inc()
	}
}

func (m *Metrics) DocClosed(handles int) {
	if m != nil {
		m.Documents.Dec()
		m.Handles.Sub(float64(handles))
	}
}

func (m *Metrics) HandleRegistered() {
	if m != nil {
		m.Handles.Inc()
	}
}

func (m *Metrics) HandleDropped() {
	if m != nil {
		m.Handles.Dec()
	}
}

func (m *Metrics) AliasAcquired() {
	if m != nil {
		m.Aliases.Inc()
	}
}

func (m *Metrics) AliasReleased() {
	if m != nil {
		m.Aliases.Dec()
	}
}

func (m *Metrics) GuardRejected() {
	if m != nil {
		m.GuardRejections.Inc()
	}
}

func (m *Metrics) DeferredFree(n int) {
	if m != nil {
		m.DeferredFrees.Add(float64(n))
	}
}

func (m *Metrics) Query(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Queries.WithLabelValues("error").Inc()
		return
	}
	m.Queries.WithLabelValues("ok").Inc()
}

func (m *Metrics) Parse(format string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Parses.WithLabelValues(format, result).Inc()
}

// WriteText writes everything gathered by g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
