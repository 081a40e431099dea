// Package telemetry groups the edge relay's observability packages.
//
// # Components
//
//   - logging: slog logger construction, request ID context, header redaction
//   - metrics: Prometheus collector implementing relay.Observer
//   - tracing: OpenTelemetry server and client spans with W3C propagation
//   - health: cron-scheduled upstream monitor and admin /livez, /readyz, /version
//
// # Usage
//
//	logger, _ := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing, version)
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	rl, _ := relay.New(cfg, relay.NewHTTPClient(tracer.Transport(nil)),
//		relay.WithLogger(logger),
//		relay.WithObserver(collector),
//	)
//
//	monitor := health.NewMonitor(rl.Prober(), cfg.Health.Background.Schedule, logger)
//	_ = monitor.Start(ctx)
//
// None of these components changes what the relay answers. With metrics and
// tracing disabled the relay behaves identically, minus the admin listener.
package telemetry
