// Package server runs the edge relay's HTTP listeners.
//
// The relay listener serves the relay behind the middleware chain built by
// Handler:
//
//	Recovery -> Logging -> RequestID -> Tracing -> relay
//
// A separate admin listener serves operational endpoints (/metrics, /livez,
// /readyz, /version) so that the relay surface answers nothing but its
// configured routes.
//
// # Usage
//
//	handler := server.Handler(rl, tracer, logger, cfg.Telemetry.Logging.LogHeaders)
//	srv := server.NewServer(&cfg.Server, handler, server.Options{
//		Admin:        adminMux,
//		AdminAddress: cfg.Telemetry.Metrics.ListenAddress,
//		TLS:          tlsConfig,
//		Logger:       logger,
//	})
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
//
// # Graceful Shutdown
//
// Start returns after a graceful shutdown triggered by context cancellation,
// SIGINT/SIGTERM, or Stop. In-flight requests get server.shutdown_timeout to
// finish.
package server
