// Package metrics exposes Prometheus instrumentation for the analysis
// pipeline and the HTTP layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all pipeline-related collectors.
type Metrics struct {
	registry *prometheus.Registry

	tasksStarted   prometheus.Counter
	tasksCompleted prometheus.Counter
	tasksFailed    *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	tasksRunning   prometheus.Gauge
	fetchBytes     prometheus.Histogram
}

// New creates the collectors on a dedicated registry so tests can run several
// instances without collisions.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cloneplan_tasks_started_total",
			Help: "Analysis tasks accepted for processing.",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cloneplan_tasks_completed_total",
			Help: "Analysis tasks finished with a persisted result.",
		}),
		tasksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloneplan_tasks_failed_total",
			Help: "Analysis tasks finished in error, labeled by error kind.",
		}, []string{"kind"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloneplan_step_duration_seconds",
			Help:    "Duration of individual pipeline steps.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"step"}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cloneplan_tasks_running",
			Help: "Analysis tasks currently executing.",
		}),
		fetchBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cloneplan_fetch_bytes",
			Help:    "HTML body size of fetched target pages.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}

	registry.MustRegister(
		m.tasksStarted,
		m.tasksCompleted,
		m.tasksFailed,
		m.stepDuration,
		m.tasksRunning,
		m.fetchBytes,
	)

	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TaskStarted records a task entering the pipeline.
func (m *Metrics) TaskStarted() {
	m.tasksStarted.Inc()
	m.tasksRunning.Inc()
}

// TaskCompleted records a successful task.
func (m *Metrics) TaskCompleted() {
	m.tasksCompleted.Inc()
	m.tasksRunning.Dec()
}

// TaskFailed records a failed task by error kind.
func (m *Metrics) TaskFailed(kind string) {
	m.tasksFailed.WithLabelValues(kind).Inc()
	m.tasksRunning.Dec()
}

// ObserveStep records one step's duration.
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// ObserveFetch records the size of a fetched page body.
func (m *Metrics) ObserveFetch(bytes int) {
	m.fetchBytes.Observe(float64(bytes))
}
