// Package metrics exposes Prometheus collectors for the substitution engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the engine's collectors on a private registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	scans         *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	substitutions prometheus.Counter
	tooltips      prometheus.Gauge
	batches       *prometheus.CounterVec
}

// New registers every collector, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		scans: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lexicon_scans_total",
			Help: "Substitution passes over the document, by trigger.",
		}, []string{"trigger"}),
		scanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lexicon_scan_duration_seconds",
			Help:    "Duration of substitution passes.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		substitutions: f.NewCounter(prometheus.CounterOpts{
			Name: "lexicon_substitutions_total",
			Help: "Term occurrences replaced in the document.",
		}),
		tooltips: f.NewGauge(prometheus.GaugeOpts{
			Name: "lexicon_tooltips",
			Help: "Tooltips currently attached to the document.",
		}),
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lexicon_mutation_batches_total",
			Help: "Mutation batches seen by the scheduler, by decision.",
		}, []string{"decision"}),
	}
}

// ObserveScan records one completed pass.
func (m *Metrics) ObserveScan(trigger string, replacements, tooltips int, d time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(trigger).Inc()
	m.scanDuration.Observe(d.Seconds())
	m.substitutions.Add(float64(replacements))
	m.tooltips.Set(float64(tooltips))
}

// ObserveBatch records a scheduler decision.
func (m *Metrics) ObserveBatch(decision string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(decision).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
