package observ

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the compile counters. Each Metrics owns its registry so
// parallel test runs and repeated CLI invocations do not collide on the
// default registry.
type Metrics struct {
	Registry    *prometheus.Registry
	files       *prometheus.CounterVec
	nodes       prometheus.Counter
	outputBytes prometheus.Counter
	diagnostics *prometheus.CounterVec
	emitSeconds prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "treecomp",
			Name:      "files_total",
			Help:      "Tree files processed, by result.",
		}, []string{"status"}),
		nodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "treecomp",
			Name:      "nodes_emitted_total",
			Help:      "Tree nodes walked by the emitter.",
		}),
		outputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "treecomp",
			Name:      "output_bytes_total",
			Help:      "Bytes of source text produced.",
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "treecomp",
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported, by code.",
		}, []string{"code"}),
		emitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "treecomp",
			Name:      "emit_seconds",
			Help:      "Time spent lowering and emitting one tree.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	reg.MustRegister(m.files, m.nodes, m.outputBytes, m.diagnostics, m.emitSeconds)
	return m
}

// FileDone records one processed file. status is "ok", "cached", "changed" or "error".
func (m *Metrics) FileDone(status string, nodes, outBytes int, emit time.Duration) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(status).Inc()
	m.nodes.Add(float64(nodes))
	m.outputBytes.Add(float64(outBytes))
	if emit > 0 {
		m.emitSeconds.Observe(emit.Seconds())
	}
}

// Diagnostic counts one diagnostic by its code ID.
func (m *Metrics) Diagnostic(codeID string) {
	if m == nil {
		return
	}
	m.diagnostics.WithLabelValues(codeID).Inc()
}

// WriteTextfile writes the metrics in the Prometheus text format, suitable for
// the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
