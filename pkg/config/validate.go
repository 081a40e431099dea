package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateUpstreams(cfg.Upstreams)...)
	errs = append(errs, validateRoutes(cfg.Routes, cfg.Upstreams)...)
	errs = append(errs, validateHealth(&cfg.Health)...)
	errs = append(errs, validateCORS(&cfg.CORS)...)
	errs = append(errs, validateForwarding(&cfg.Forwarding)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates listener configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	return errs
}

// validateUpstreams validates upstream origins.
func validateUpstreams(upstreams map[string]UpstreamConfig) []FieldError {
	var errs []FieldError

	if len(upstreams) == 0 {
		errs = append(errs, FieldError{
			Field:   "upstreams",
			Message: "at least one upstream must be configured",
		})
		return errs
	}

	for name, upstream := range upstreams {
		prefix := fmt.Sprintf("upstreams.%s", name)

		if upstream.BaseURL == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: "base URL is required",
			})
		} else if msg := checkOriginURL(upstream.BaseURL); msg != "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: msg,
			})
		}

		if !strings.HasPrefix(upstream.HealthPath, "/") {
			errs = append(errs, FieldError{
				Field:   prefix + ".health_path",
				Message: "health path must start with '/'",
			})
		}

		if upstream.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "timeout must be positive",
			})
		}
	}

	return errs
}

// checkOriginURL returns a message describing why raw is not a usable
// upstream origin, or "" when it is.
func checkOriginURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "URL scheme must be http or https"
	}
	if u.Host == "" {
		return "URL must include a host"
	}
	if u.Fragment != "" {
		return "URL must not include a fragment"
	}
	return ""
}

// validateRoutes validates the route table against the configured upstreams.
func validateRoutes(routes []RouteConfig, upstreams map[string]UpstreamConfig) []FieldError {
	var errs []FieldError

	if len(routes) == 0 {
		errs = append(errs, FieldError{
			Field:   "routes",
			Message: "at least one route must be configured",
		})
		return errs
	}

	seen := make(map[string]int, len(routes))
	for i, route := range routes {
		prefix := fmt.Sprintf("routes[%d]", i)

		if !strings.HasPrefix(route.Prefix, "/") {
			errs = append(errs, FieldError{
				Field:   prefix + ".prefix",
				Message: "prefix must start with '/'",
			})
		}
		if first, dup := seen[route.Prefix]; dup {
			errs = append(errs, FieldError{
				Field:   prefix + ".prefix",
				Message: fmt.Sprintf("duplicate prefix %q (already used by routes[%d])", route.Prefix, first),
			})
		} else {
			seen[route.Prefix] = i
		}

		if route.Upstream == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".upstream",
				Message: "upstream is required",
			})
		} else if _, ok := upstreams[route.Upstream]; !ok {
			errs = append(errs, FieldError{
				Field:   prefix + ".upstream",
				Message: fmt.Sprintf("unknown upstream %q", route.Upstream),
			})
		}

		if route.StripPrefix != "" && !strings.HasPrefix(route.StripPrefix, "/") {
			errs = append(errs, FieldError{
				Field:   prefix + ".strip_prefix",
				Message: "strip prefix must start with '/'",
			})
		}
		if route.AddPrefix != "" && !strings.HasPrefix(route.AddPrefix, "/") {
			errs = append(errs, FieldError{
				Field:   prefix + ".add_prefix",
				Message: "add prefix must start with '/'",
			})
		}
	}

	return errs
}

// validateHealth validates the health endpoint configuration.
func validateHealth(cfg *HealthConfig) []FieldError {
	var errs []FieldError

	for i, p := range cfg.Paths {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("health.paths[%d]", i),
				Message: "health path must start with '/'",
			})
		}
	}

	if cfg.ProbeTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "health.probe_timeout",
			Message: "probe timeout must be positive",
		})
	}

	if cfg.Background.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Background.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "health.background.schedule",
				Message: fmt.Sprintf("invalid cron schedule: %v", err),
			})
		}
	}

	return errs
}

// validateCORS validates CORS configuration.
func validateCORS(cfg *CORSConfig) []FieldError {
	var errs []FieldError

	if len(cfg.AllowedOrigins) == 0 {
		errs = append(errs, FieldError{
			Field:   "cors.allowed_origins",
			Message: "at least one allowed origin is required",
		})
	}
	if cfg.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "cors.max_age",
			Message: "max age must be non-negative",
		})
	}

	return errs
}

// validateForwarding validates outbound request settings.
func validateForwarding(cfg *ForwardingConfig) []FieldError {
	var errs []FieldError

	switch cfg.HeaderMode {
	case HeaderModePassthrough, HeaderModeSafelist:
	default:
		errs = append(errs, FieldError{
			Field:   "forwarding.header_mode",
			Message: fmt.Sprintf("invalid header mode %q (must be %q or %q)", cfg.HeaderMode, HeaderModePassthrough, HeaderModeSafelist),
		})
	}

	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "forwarding.timeout",
			Message: "timeout must be positive",
		})
	}

	return errs
}

// validateTelemetry validates logging, metrics, and tracing configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.ListenAddress == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: "listen address is required when metrics are enabled",
			})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with '/'",
			})
		}
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (must be always, never, or ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: "sample ratio must be between 0.0 and 1.0",
			})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
	}

	return errs
}

// validateSecurity validates TLS configuration.
func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	if !cfg.TLS.Enabled {
		return errs
	}

	if cfg.TLS.CertFile == "" {
		errs = append(errs, FieldError{
			Field:   "security.tls.cert_file",
			Message: "cert file is required when TLS is enabled",
		})
	}
	if cfg.TLS.KeyFile == "" {
		errs = append(errs, FieldError{
			Field:   "security.tls.key_file",
			Message: "key file is required when TLS is enabled",
		})
	}
	switch cfg.TLS.MinVersion {
	case "1.2", "1.3":
	default:
		errs = append(errs, FieldError{
			Field:   "security.tls.min_version",
			Message: fmt.Sprintf("invalid TLS min version %q (must be 1.2 or 1.3)", cfg.TLS.MinVersion),
		})
	}

	return errs
}
