package config

import "time"

// Config is the root configuration structure for the edge relay.
// It is loaded once at process start and handed to every component by value
// or pointer; nothing in the relay mutates it afterwards.
type Config struct {
	// Server contains listener configuration for the relay surface.
	Server ServerConfig `yaml:"server"`

	// Upstreams contains the backend origins the relay forwards to.
	// Keys are upstream names (e.g., "backend", "orchestrator") and are the
	// names reported in the health response.
	Upstreams map[string]UpstreamConfig `yaml:"upstreams"`

	// Routes is the ordered route table. The longest matching prefix wins;
	// routes with equal prefix length keep their configuration order.
	Routes []RouteConfig `yaml:"routes"`

	// Health contains configuration for the synthetic health endpoint and the
	// optional background probe schedule.
	Health HealthConfig `yaml:"health"`

	// CORS contains the Cross-Origin Resource Sharing headers attached to
	// every relay response.
	CORS CORSConfig `yaml:"cors"`

	// Forwarding contains outbound request settings shared by all upstreams.
	Forwarding ForwardingConfig `yaml:"forwarding"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains TLS settings for the relay listener.
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains configuration for the relay HTTP listener.
type ServerConfig struct {
	// ListenAddress is the address and port for the relay to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It should exceed the upstream timeout so 502s can be written.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// UpstreamConfig describes a single backend origin.
type UpstreamConfig struct {
	// BaseURL is the absolute origin URL, e.g. "https://api.example.com".
	// A path component is kept and the rewritten request path is appended to it.
	BaseURL string `yaml:"base_url"`

	// HealthPath is the path probed by the health endpoint.
	// Default: "/"
	HealthPath string `yaml:"health_path"`

	// Timeout bounds a forwarded request to this upstream.
	// Default: forwarding.timeout
	Timeout time.Duration `yaml:"timeout"`
}

// RouteConfig maps a path prefix to an upstream.
type RouteConfig struct {
	// Name identifies the route in logs and metrics. Defaults to the prefix.
	Name string `yaml:"name"`

	// Prefix is matched against the start of the request path.
	Prefix string `yaml:"prefix"`

	// Upstream is the name of an entry in upstreams.
	Upstream string `yaml:"upstream"`

	// StripPrefix is removed from the front of the path before forwarding.
	StripPrefix string `yaml:"strip_prefix"`

	// AddPrefix is prepended to the path after StripPrefix is removed.
	AddPrefix string `yaml:"add_prefix"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Paths are the request paths answered by the health probe.
	// Default: ["/health", "/api/health"]
	Paths []string `yaml:"paths"`

	// ProbeTimeout bounds each upstream probe.
	// Default: 5s
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// Background configures periodic probes that only feed metrics and logs.
	Background BackgroundProbeConfig `yaml:"background"`
}

// BackgroundProbeConfig configures the scheduled health monitor.
type BackgroundProbeConfig struct {
	// Schedule is a cron expression ("*/1 * * * *") or descriptor ("@every 30s").
	// Empty disables background probing.
	Schedule string `yaml:"schedule"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins. Use ["*"] to allow all
	// origins; otherwise a matching request Origin is echoed back.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Content-Type", "Authorization"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 86400 (24 hours)
	MaxAge int `yaml:"max_age"`
}

// ForwardingConfig contains outbound request settings.
type ForwardingConfig struct {
	// HeaderMode selects which inbound headers reach the upstream.
	// Options: "passthrough" (all but hop-by-hop and Host), "safelist"
	// Default: "passthrough"
	HeaderMode string `yaml:"header_mode"`

	// HeaderSafelist lists the headers forwarded in "safelist" mode.
	// Default: Accept, Accept-Encoding, Accept-Language, Authorization,
	// Content-Type, Content-Length, User-Agent, X-Request-ID
	HeaderSafelist []string `yaml:"header_safelist"`

	// Timeout is the default upstream request timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// LogHeaders logs redacted inbound request headers at debug level.
	LogHeaders bool `yaml:"log_headers"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled starts the admin listener and records relay metrics.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the admin listener address. It is kept separate from
	// the relay listener so unknown relay paths stay 404.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "edgerelay"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for upstream latency (seconds).
	// Default: [0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each OTLP export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "edgerelay"
	ServiceName string `yaml:"service_name"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// TLS contains TLS configuration for the relay listener.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS configuration.
type TLSConfig struct {
	// Enabled serves the relay over HTTPS.
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM certificate path.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM private key path.
	KeyFile string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// WatchCertificates reloads the key pair when the files change on disk.
	WatchCertificates bool `yaml:"watch_certificates"`
}
