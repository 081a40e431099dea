package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"estimategenie/edgerelay/pkg/cli"
	"estimategenie/edgerelay/pkg/config"
	"estimategenie/edgerelay/pkg/relay"
	tlsconf "estimategenie/edgerelay/pkg/security/tls"
	"estimategenie/edgerelay/pkg/server"
	"estimategenie/edgerelay/pkg/telemetry/health"
	"estimategenie/edgerelay/pkg/telemetry/metrics"
	"estimategenie/edgerelay/pkg/telemetry/tracing"
)

// telemetryFlushTimeout bounds span export at shutdown.
const telemetryFlushTimeout = 5 * time.Second

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the edge relay",
	Long: `Start the edge relay with the specified configuration.

The relay listens on server.listen_address. When metrics are enabled, an admin
listener on telemetry.metrics.listen_address serves /metrics, /livez, /readyz
and /version.

Examples:
  # Start with the built-in topology
  edgerelay run

  # Start with a config file
  edgerelay run --config /etc/edgerelay/config.yaml

  # Override listen address
  edgerelay run --listen 0.0.0.0:8080

  # Validate config without starting the relay
  edgerelay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the relay")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := newLogger(cfg.Telemetry.Logging)
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	return serve(cmd.Context(), cfg, logger)
}

// serve wires the relay, its telemetry and listeners, and blocks until
// shutdown.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := tracer.Shutdown(flushCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	var observer relay.Observer = relay.NopObserver{}
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		observer = collector
	}

	client := relay.NewHTTPClient(tracer.Transport(nil))
	rl, err := relay.New(cfg, client,
		relay.WithLogger(logger),
		relay.WithObserver(observer),
	)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	monitor := health.NewMonitor(rl.Prober(), cfg.Health.Background.Schedule, logger)
	if err := monitor.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer monitor.Stop()

	tlsConfig, err := serverTLS(ctx, cfg.Security.TLS, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	opts := server.Options{TLS: tlsConfig, Logger: logger}
	if collector != nil {
		admin := server.AdminMux(map[string]http.Handler{
			cfg.Telemetry.Metrics.Path: collector.Handler(),
		})
		health.RegisterAdmin(admin, monitor, versionInfo())
		opts.Admin = admin
		opts.AdminAddress = cfg.Telemetry.Metrics.ListenAddress
	}

	printBanner(logger, cfg, rl)

	handler := server.Handler(rl, tracer, logger, cfg.Telemetry.Logging.LogHeaders)
	srv := server.NewServer(&cfg.Server, handler, opts)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// serverTLS builds the listener TLS configuration, starting the certificate
// watcher when requested.
func serverTLS(ctx context.Context, cfg config.TLSConfig, logger *slog.Logger) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var reloader *tlsconf.CertificateReloader
	if cfg.WatchCertificates {
		reloader = tlsconf.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, logger)
		if err := reloader.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start certificate watcher: %w", err)
		}
	}

	return tlsconf.ServerConfig(cfg, reloader)
}

func printBanner(logger *slog.Logger, cfg *config.Config, rl *relay.Relay) {
	for _, route := range rl.Routes().Routes() {
		logger.Info("route configured",
			"route", route.Name,
			"prefix", route.Prefix,
			"upstream", route.Upstream.Name,
			"target", route.Upstream.URL(route.Rewrite(route.Prefix), "").String(),
		)
	}
	logger.Info("edge relay ready",
		"version", Version,
		"listen_address", cfg.Server.ListenAddress,
		"health_paths", cfg.Health.Paths,
		"metrics_enabled", cfg.Telemetry.Metrics.Enabled,
		"tracing_enabled", cfg.Telemetry.Tracing.Enabled,
		"tls_enabled", cfg.Security.TLS.Enabled,
	)
}
