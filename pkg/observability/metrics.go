package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects registry metrics on a private prometheus registry so
// multiple instances (tests included) never fight over the global one.
type Metrics struct {
	registry *prometheus.Registry

	operations     *prometheus.CounterVec
	changeDuration *prometheus.HistogramVec
	components     prometheus.Gauge
	eventsDropped  prometheus.Counter
}

// NewMetrics creates and registers all registry collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_registry_operations_total",
			Help: "Registry operations by name and outcome.",
		}, []string{"operation", "status"}),
		changeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forge_code_change_duration_seconds",
			Help:    "Duration of code change execution by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		components: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forge_components",
			Help: "Number of registered components.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forge_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full.",
		}),
	}

	reg.MustRegister(m.operations, m.changeDuration, m.components, m.eventsDropped)
	return m
}

// Handler exposes the collectors for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOperation counts one registry operation.
func (m *Metrics) RecordOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.operations.WithLabelValues(operation, status).Inc()
}

// ObserveChangeDuration records how long a code change took.
func (m *Metrics) ObserveChangeDuration(outcome string, d time.Duration) {
	m.changeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// SetComponentCount tracks the registered component gauge.
func (m *Metrics) SetComponentCount(n int) {
	m.components.Set(float64(n))
}

// EventDropped counts one dropped event.
func (m *Metrics) EventDropped() {
	m.eventsDropped.Inc()
}
