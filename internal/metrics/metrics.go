// Package metrics counts what a run processed, on a private Prometheus
// registry that can be dumped in text format when the run ends.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "bbgraph"

// Result labels of processes_total.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the collectors of a run.
type Metrics struct {
	reg *prometheus.Registry

	processes *prometheus.CounterVec
	events    prometheus.Counter
	sentinels prometheus.Counter
	threads   prometheus.Counter
	exported  prometheus.Counter
	links     prometheus.Counter
	occurs    prometheus.Counter
	duration  *prometheus.HistogramVec
}

// New registers the run collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		processes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_total",
			Help:      "Processes handled, by result.",
		}, []string{"result"}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Trace events loaded, sentinels included.",
		}),
		sentinels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentinel_events_total",
			Help:      "Trace events marking an exit from the whitelist.",
		}),
		threads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_total",
			Help:      "Threads built.",
		}),
		exported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_exported_total",
			Help:      "Threads kept by the selector and written.",
		}),
		links: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_total",
			Help:      "Distinct weighted links written.",
		}),
		occurs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edge_occurrences_total",
			Help:      "Edge occurrences behind the links written.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent per pipeline stage and process.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
	}

	reg.MustRegister(
		m.processes,
		m.events,
		m.sentinels,
		m.threads,
		m.exported,
		m.links,
		m.occurs,
		m.duration,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// ObserveProcess records the outcome of one process.
func (m *Metrics) ObserveProcess(err error) {
	if err != nil {
		m.processes.WithLabelValues(ResultError).Inc()
		return
	}
	m.processes.WithLabelValues(ResultOK).Inc()
}

// ObserveGraph records the size of a built graph.
func (m *Metrics) ObserveGraph(events, sentinels, threads int) {
	m.events.Add(float64(events))
	m.sentinels.Add(float64(sentinels))
	m.threads.Add(float64(threads))
}

// ObserveExport records what was written for one process.
func (m *Metrics) ObserveExport(threads, links, occurrences int) {
	m.exported.Add(float64(threads))
	m.links.Add(float64(links))
	m.occurs.Add(float64(occurrences))
}

// ObserveStage records the duration of a pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.duration.WithLabelValues(stage).Observe(d.Seconds())
}

// WriteTextfile dumps every collector to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
