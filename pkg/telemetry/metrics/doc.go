// Package metrics provides Prometheus metrics for the edge relay.
//
// # Overview
//
// Collector owns a dedicated prometheus.Registry and implements
// relay.Observer. The relay reports every answered request and every upstream
// call through it; the health prober and the background health monitor
// report probe outcomes.
//
// # Metrics
//
//   - edgerelay_requests_total{route,method,status}
//   - edgerelay_upstream_request_duration_seconds{upstream}
//   - edgerelay_upstream_errors_total{upstream,kind}
//   - edgerelay_upstream_health{upstream}: 1 healthy, 0 unhealthy, -1 unreachable
//   - edgerelay_health_probes_total{upstream,state}
//
// Go runtime and process metrics are registered as well.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	rl, err := relay.New(cfg, client, relay.WithObserver(collector))
//
//	admin := http.NewServeMux()
//	admin.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// The endpoint is served on a separate admin listener so the relay surface
// answers nothing but its configured routes.
//
// # Cardinality
//
// Route names come from configuration and methods outside the standard set are
// folded into "OTHER". A CardinalityLimiter caps the number of distinct request
// label sets; once the cap is reached new routes are reported as "other".
package metrics
