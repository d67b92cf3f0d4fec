// Package metrics holds the Prometheus collectors of the REST server.
package metrics

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the server
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	propertyReloads   *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a metrics instance on its own registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restws_operations_total",
				Help: "Total number of resource operations by resource, operation and result code",
			},
			[]string{"resource", "operation", "code"},
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "restws_operation_duration_seconds",
				Help:    "Resource operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource", "operation"},
		),

		propertyReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restws_global_property_reloads_total",
				Help: "Total number of global property file reloads by status",
			},
			[]string{"status"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.propertyReloads,
	)

	return m
}

// RecordOperation records one dispatched resource operation. code is "OK"
// on success or the REST error code.
func (m *Metrics) RecordOperation(resource, operation, code string, duration time.Duration) {
	m.operationsTotal.WithLabelValues(resource, operation, code).Inc()
	m.operationDuration.WithLabelValues(resource, operation).Observe(duration.Seconds())
}

// RecordPropertyReload records a global property reload attempt
func (m *Metrics) RecordPropertyReload(status string) {
	m.propertyReloads.WithLabelValues(status).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EchoHandler mounts Handler on an echo route
func (m *Metrics) EchoHandler() echo.HandlerFunc {
	return echo.WrapHandler(m.Handler())
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
