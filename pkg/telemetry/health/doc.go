// Package health provides the relay's background health monitor and the
// admin health endpoints.
//
// # Background Monitor
//
// Monitor runs the relay's Prober on a cron schedule
// (health.background.schedule). Each run updates the
// edgerelay_upstream_health gauge through the prober's observer and logs
// upstream state transitions:
//
//	health:
//	  background:
//	    schedule: "@every 30s"
//
// The monitor is independent of request handling: the inbound health paths
// always probe live.
//
// # Admin Endpoints
//
// RegisterAdmin mounts the following on the admin listener, next to /metrics:
//   - /livez: process liveness, never touches upstreams
//   - /readyz: last monitor report, 503 when degraded
//   - /version: build information
//
// # Usage
//
//	monitor := health.NewMonitor(rl.Prober(), cfg.Health.Background.Schedule, logger)
//	if err := monitor.Start(ctx); err != nil {
//		return err
//	}
//	defer monitor.Stop()
package health
