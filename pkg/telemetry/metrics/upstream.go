package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"estimategenie/edgerelay/pkg/config"
	"estimategenie/edgerelay/pkg/relay"
)

// UpstreamMetrics tracks forwarded calls and health probes per upstream.
//
// Metrics:
//   - edgerelay_upstream_request_duration_seconds: forwarded call latency
//   - edgerelay_upstream_errors_total: unreachable upstream count by kind
//   - edgerelay_upstream_health: last probe result (1, 0, -1)
//   - edgerelay_health_probes_total: probe count by upstream and state
type UpstreamMetrics struct {
	// Forwarded call latency histogram
	latency *prometheus.HistogramVec

	// Unreachable upstream counter
	errors *prometheus.CounterVec

	// Last probe result (gauge: 1=healthy, 0=unhealthy, -1=unreachable)
	health *prometheus.GaugeVec

	// Probe outcomes
	probes *prometheus.CounterVec
}

// NewUpstreamMetrics creates and registers upstream metrics with the provided registry.
func NewUpstreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *UpstreamMetrics {
	um := &UpstreamMetrics{
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Latency of forwarded upstream calls in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"upstream"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_errors_total",
				Help:      "Total number of forwarded calls that could not reach the upstream",
			},
			[]string{"upstream", "kind"},
		),

		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_health",
				Help:      "Last health probe result (1=healthy, 0=unhealthy, -1=unreachable)",
			},
			[]string{"upstream"},
		),

		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "health_probes_total",
				Help:      "Total number of upstream health probes by result",
			},
			[]string{"upstream", "state"},
		),
	}

	registry.MustRegister(
		um.latency,
		um.errors,
		um.health,
		um.probes,
	)

	return um
}

// RecordLatency observes one forwarded call.
func (um *UpstreamMetrics) RecordLatency(upstream string, d time.Duration) {
	um.latency.WithLabelValues(upstream).Observe(d.Seconds())
}

// RecordError counts one unreachable upstream call.
func (um *UpstreamMetrics) RecordError(upstream, kind string) {
	um.errors.WithLabelValues(upstream, kind).Inc()
}

// RecordProbe counts a probe and sets the health gauge.
func (um *UpstreamMetrics) RecordProbe(upstream string, state relay.State) {
	um.probes.WithLabelValues(upstream, string(state)).Inc()
	um.health.WithLabelValues(upstream).Set(healthValue(state))
}

func healthValue(state relay.State) float64 {
	switch state {
	case relay.StateHealthy:
		return 1
	case relay.StateUnhealthy:
		return 0
	default:
		return -1
	}
}
