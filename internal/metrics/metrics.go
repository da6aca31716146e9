// Package metrics exposes Prometheus metrics for the alert pipeline.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/oshokin/alert-hub/internal/domain/alert"
)

const namespace = "alert_hub"

// PipelineState reports provider internals sampled at scrape time.
type PipelineState interface {
	PendingResponses() int
	LastSeen() time.Time
}

// Metrics owns a registry and the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	changes  *prometheus.CounterVec
	failures prometheus.Counter
}

// New creates metrics on a fresh registry with Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_changes_total",
			Help:      "Alert changes delivered to listeners.",
		}, []string{"level", "state"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_failures_total",
			Help:      "Listener, responder and source failures reported by the pipeline.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.changes,
		m.failures,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Track exports gauges sampled from state.
func (m *Metrics) Track(state PipelineState) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_responses",
			Help:      "Actionable alerts queued for responders.",
		}, func() float64 {
			return float64(state.PendingResponses())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark_timestamp_seconds",
			Help:      "Latest alert change time the pipeline has pulled.",
		}, func() float64 {
			return float64(state.LastSeen().UnixNano()) / float64(time.Second)
		}),
	)
}

// OnAlertChange implements provider.Listener.
func (m *Metrics) OnAlertChange(_ context.Context, a alert.Alert) error {
	m.changes.WithLabelValues(a.Level().String(), alert.CurrentState(a).String()).Inc()

	return nil
}

// ObserveError counts every error combined into err.
func (m *Metrics) ObserveError(err error) {
	if err == nil {
		return
	}

	m.failures.Add(float64(len(multierr.Errors(err))))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
