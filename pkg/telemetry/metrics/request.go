package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"estimategenie/edgerelay/pkg/config"
)

// RequestMetrics tracks inbound requests answered by the relay.
//
// Metrics:
//   - edgerelay_requests_total: request count by route, method, status
type RequestMetrics struct {
	requestsTotal *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_total",
				Help:      "Total number of requests answered by the relay",
			},
			[]string{"route", "method", "status"},
		),
	}

	registry.MustRegister(rm.requestsTotal)

	return rm
}

// RecordRequest increments the request counter.
func (rm *RequestMetrics) RecordRequest(route, method, status string) {
	rm.requestsTotal.WithLabelValues(route, method, status).Inc()
}
