package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics the downstream and admin surfaces
// record.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ActiveSessions     prometheus.Gauge
	ToolCallsTotal     *prometheus.CounterVec
	UpstreamsConnected prometheus.Gauge
}

// NewMetrics creates and registers every metric against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpmux",
				Name:      "downstream_requests_total",
				Help:      "Total number of downstream HTTP requests processed",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mcpmux",
				Name:      "downstream_request_duration_seconds",
				Help:      "Downstream HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpmux",
				Name:      "active_sse_sessions",
				Help:      "Number of currently connected downstream SSE sessions",
			},
		),
		ToolCallsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpmux",
				Name:      "tool_calls_total",
				Help:      "Total tools/call invocations routed to upstreams",
			},
			[]string{"upstream", "status"},
		),
		UpstreamsConnected: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpmux",
				Name:      "upstreams_connected",
				Help:      "Number of upstreams currently in the ready state, across all apps",
			},
		),
	}
}
