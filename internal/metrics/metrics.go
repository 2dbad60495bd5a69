// Package metrics counts what the front end does: macro expansions,
// directives, diagnostics and symbol-table insertions.
//
// Counters live on a private registry so several compilations in one
// process (tests, mostly) never collide on the global one. All recording
// methods are safe to call on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cmm"

// Metrics holds the front-end counters.
type Metrics struct {
	registry *prometheus.Registry

	MacroExpansions  prometheus.Counter
	Directives       *prometheus.CounterVec
	Diagnostics      *prometheus.CounterVec
	SymbolInsertions prometheus.Counter
	BucketCollisions prometheus.Counter
}

// New registers a fresh set of counters on a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		MacroExpansions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preprocessor",
			Name:      "macro_expansions_total",
			Help:      "Macro occurrences replaced in the output.",
		}),
		Directives: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preprocessor",
			Name:      "directives_total",
			Help:      "Directive lines handled, by directive name.",
		}, []string{"directive"}),
		Diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preprocessor",
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported, by severity.",
		}, []string{"severity"}),
		SymbolInsertions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "symtab",
			Name:      "insertions_total",
			Help:      "Items added to symbol tables.",
		}),
		BucketCollisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "symtab",
			Name:      "bucket_collisions_total",
			Help:      "Insertions that landed in a non-empty bucket.",
		}),
	}
}

// Registry returns the registry the counters are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every counter to path in the text exposition format
// read by the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// MacroExpanded counts one replaced macro occurrence.
func (m *Metrics) MacroExpanded() {
	if m == nil {
		return
	}
	m.MacroExpansions.Inc()
}

// DirectiveHandled counts one directive line.
func (m *Metrics) DirectiveHandled(name string) {
	if m == nil {
		return
	}
	m.Directives.WithLabelValues(name).Inc()
}

// DiagnosticReported counts one diagnostic.
func (m *Metrics) DiagnosticReported(severity string) {
	if m == nil {
		return
	}
	m.Diagnostics.WithLabelValues(severity).Inc()
}

// SymbolInserted counts one symbol-table insertion.
func (m *Metrics) SymbolInserted(collided bool) {
	if m == nil {
		return
	}
	m.SymbolInsertions.Inc()
	if collided {
		m.BucketCollisions.Inc()
	}
}
