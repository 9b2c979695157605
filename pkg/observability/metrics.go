// Package observability provides metrics and tracing for autoassist.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsConfig configures the metrics collector.
type MetricsConfig struct {
	Namespace   string
	ServiceName string

	// HistogramBuckets for operation latency, in seconds.
	HistogramBuckets []float64
}

// Metrics records RPC and tool-call activity on a private Prometheus
// registry, so repeated construction in tests never collides with the
// default registry.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	toolCallTotal    *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	loopIterations   prometheus.Histogram
}

// NewMetrics creates a metrics collector.
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "autoassist"
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	}
	constLabels := prometheus.Labels{}
	if config.ServiceName != "" {
		constLabels["service"] = config.ServiceName
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "rpc_requests_total",
			Help:        "RPC requests sent, by method and status.",
			ConstLabels: constLabels,
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "rpc_request_duration_seconds",
			Help:        "RPC request round-trip latency.",
			Buckets:     config.HistogramBuckets,
			ConstLabels: constLabels,
		}, []string{"method"}),
		toolCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "tool_calls_total",
			Help:        "Tool invocations, by tool and status.",
			ConstLabels: constLabels,
		}, []string{"tool", "status"}),
		toolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "tool_call_duration_seconds",
			Help:        "Tool invocation latency.",
			Buckets:     config.HistogramBuckets,
			ConstLabels: constLabels,
		}, []string{"tool"}),
		loopIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "loop_iterations",
			Help:        "Model round-trips consumed per tool-calling run.",
			Buckets:     []float64{1, 2, 3, 4, 5, 6, 7, 8},
			ConstLabels: constLabels,
		}),
	}

	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.toolCallTotal,
		m.toolCallDuration,
		m.loopIterations,
	)
	return m
}

// RecordRequest records one RPC round trip.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.requestTotal.WithLabelValues(method, status).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordToolCall records one tool invocation.
func (m *Metrics) RecordToolCall(tool, status string, duration time.Duration) {
	m.toolCallTotal.WithLabelValues(tool, status).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordLoopRun records the iteration count of one tool-calling run.
func (m *Metrics) RecordLoopRun(iterations int) {
	m.loopIterations.Observe(float64(iterations))
}

// Registry exposes the underlying registry for scraping or inspection.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
