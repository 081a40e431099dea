package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Upstream defaults
	DefaultUpstreamBaseURL = "https://quotegenie-api.fly.dev"
	DefaultHealthPath      = "/"
	DefaultBackendName     = "backend"
	DefaultOrchestrator    = "orchestrator"

	// Health defaults
	DefaultProbeTimeout = 5 * time.Second

	// CORS defaults
	DefaultCORSMaxAge = 86400 // 24 hours

	// Forwarding defaults
	HeaderModePassthrough    = "passthrough"
	HeaderModeSafelist       = "safelist"
	DefaultHeaderMode        = HeaderModePassthrough
	DefaultForwardingTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "edgerelay"
	DefaultTracingSampler       = "ratio"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingTimeout       = 10 * time.Second
	DefaultTracingServiceName   = "edgerelay"
	DefaultTLSMinVersion        = "1.2"
)

// DefaultHealthPaths are answered by the health probe when none are configured.
// "/api/health" keeps the path the frontend widgets already call.
var DefaultHealthPaths = []string{"/health", "/api/health"}

// Default returns a fully defaulted configuration equivalent to loading an
// empty file.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Forwarding defaults come first; upstream timeouts inherit them.
	if cfg.Forwarding.HeaderMode == "" {
		cfg.Forwarding.HeaderMode = DefaultHeaderMode
	}
	if len(cfg.Forwarding.HeaderSafelist) == 0 {
		cfg.Forwarding.HeaderSafelist = []string{
			"Accept",
			"Accept-Encoding",
			"Accept-Language",
			"Authorization",
			"Content-Type",
			"Content-Length",
			"User-Agent",
			"X-Request-ID",
		}
	}
	if cfg.Forwarding.Timeout == 0 {
		cfg.Forwarding.Timeout = DefaultForwardingTimeout
	}

	applyTopologyDefaults(cfg)

	// Health defaults
	if len(cfg.Health.Paths) == 0 {
		cfg.Health.Paths = append([]string(nil), DefaultHealthPaths...)
	}
	if cfg.Health.ProbeTimeout == 0 {
		cfg.Health.ProbeTimeout = DefaultProbeTimeout
	}

	applyCORSDefaults(cfg)

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}

	// Security defaults
	if cfg.Security.TLS.MinVersion == "" {
		cfg.Security.TLS.MinVersion = DefaultTLSMinVersion
	}
}

// applyTopologyDefaults fills in the upstreams and route table.
// When neither is configured, the relay reproduces the original deployment:
// /api/orchestrate* to the orchestrator and /api/v1* to the backend, both with
// the /api segment stripped.
func applyTopologyDefaults(cfg *Config) {
	if len(cfg.Upstreams) == 0 && len(cfg.Routes) == 0 {
		cfg.Upstreams = map[string]UpstreamConfig{
			DefaultBackendName: {
				BaseURL:    DefaultUpstreamBaseURL,
				HealthPath: "/health",
			},
			DefaultOrchestrator: {
				BaseURL:    DefaultUpstreamBaseURL,
				HealthPath: "/",
			},
		}
		cfg.Routes = []RouteConfig{
			{Name: "orchestrate", Prefix: "/api/orchestrate", Upstream: DefaultOrchestrator, StripPrefix: "/api"},
			{Name: "v1", Prefix: "/api/v1", Upstream: DefaultBackendName, StripPrefix: "/api"},
		}
	}

	for name, upstream := range cfg.Upstreams {
		if upstream.HealthPath == "" {
			upstream.HealthPath = DefaultHealthPath
		}
		if upstream.Timeout == 0 {
			upstream.Timeout = cfg.Forwarding.Timeout
		}
		cfg.Upstreams[name] = upstream
	}

	for i := range cfg.Routes {
		if cfg.Routes[i].Name == "" {
			cfg.Routes[i].Name = cfg.Routes[i].Prefix
		}
	}
}

// applyCORSDefaults applies default values to CORS configuration.
func applyCORSDefaults(cfg *Config) {
	cors := &cfg.CORS

	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Content-Type", "Authorization"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}
