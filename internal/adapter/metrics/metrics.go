package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ClientMetrics holds all Prometheus metrics for the dashboard client.
type ClientMetrics struct {
	RequestsTotal         *prometheus.CounterVec
	SessionInvalidations  prometheus.Counter
	StaleResponsesTotal   *prometheus.CounterVec
	OptionFallbacksTotal  *prometheus.CounterVec
	RequestDurationSecond *prometheus.HistogramVec
}

// NewClientMetrics initializes the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them through promhttp.Handler.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	factory := promauto.With(reg)
	return &ClientMetrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watch_tower_console",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}), // outcome: ok, unauthorized, forbidden, error
		SessionInvalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "watch_tower_console",
			Subsystem: "session",
			Name:      "invalidations_total",
			Help:      "Total number of sessions discarded after a rejected credential.",
		}),
		StaleResponsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watch_tower_console",
			Subsystem: "dashboard",
			Name:      "stale_responses_total",
			Help:      "Total number of responses dropped because a newer request superseded them.",
		}, []string{"kind"}), // kind: logs, options
		OptionFallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watch_tower_console",
			Subsystem: "options",
			Name:      "fallbacks_total",
			Help:      "Total number of option resolutions that used global distinct values for projects.",
		}, []string{"reason"}),
		RequestDurationSecond: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "watch_tower_console",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}
