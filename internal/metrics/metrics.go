// Package metrics exposes store activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a dedicated registry so tests can create as
// many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	Operations    *prometheus.CounterVec
	PersistErrors prometheus.Counter
	Hydrations    *prometheus.CounterVec
	Tasks         prometheus.Gauge
	HTTPRequests  *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklist_operations_total",
				Help: "Store operations applied, by operation",
			},
			[]string{"op"},
		),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasklist_persist_errors_total",
			Help: "Failed writes to the persistent slot",
		}),
		Hydrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklist_hydrations_total",
				Help: "Startup loads from the persistent slot, by result",
			},
			[]string{"result"},
		),
		Tasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasklist_tasks",
			Help: "Tasks in the list after the last successful write",
		}),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklist_http_requests_total",
				Help: "HTTP API requests, by route and status code",
			},
			[]string{"route", "code"},
		),
	}

	m.Registry.MustRegister(
		m.Operations,
		m.PersistErrors,
		m.Hydrations,
		m.Tasks,
		m.HTTPRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// Operation implements store.Observer.
func (m *Metrics) Operation(op string) {
	m.Operations.WithLabelValues(op).Inc()
}

// Hydrated implements store.Observer.
func (m *Metrics) Hydrated(result string) {
	m.Hydrations.WithLabelValues(result).Inc()
}

// PersistFailed implements store.Observer.
func (m *Metrics) PersistFailed(error) {
	m.PersistErrors.Inc()
}

// TaskCount implements store.Observer.
func (m *Metrics) TaskCount(n int) {
	m.Tasks.Set(float64(n))
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
