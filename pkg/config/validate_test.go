package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate_Default(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config must be valid, got: %v", err)
	}
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "missing listen address",
			mutate:    func(c *Config) { c.Server.ListenAddress = "" },
			wantField: "server.listen_address",
		},
		{
			name:      "negative read timeout",
			mutate:    func(c *Config) { c.Server.ReadTimeout = -time.Second },
			wantField: "server.read_timeout",
		},
		{
			name:      "excessive header bytes",
			mutate:    func(c *Config) { c.Server.MaxHeaderBytes = 11 * 1024 * 1024 },
			wantField: "server.max_header_bytes",
		},
		{
			name:      "no upstreams",
			mutate:    func(c *Config) { c.Upstreams = nil },
			wantField: "upstreams",
		},
		{
			name: "upstream without scheme",
			mutate: func(c *Config) {
				c.Upstreams[DefaultBackendName] = UpstreamConfig{BaseURL: "api.example.com", HealthPath: "/"}
			},
			wantField: "upstreams.backend.base_url",
		},
		{
			name: "upstream with fragment",
			mutate: func(c *Config) {
				c.Upstreams[DefaultBackendName] = UpstreamConfig{BaseURL: "https://api.example.com/#x", HealthPath: "/"}
			},
			wantField: "upstreams.backend.base_url",
		},
		{
			name: "relative health path",
			mutate: func(c *Config) {
				u := c.Upstreams[DefaultOrchestrator]
				u.HealthPath = "health"
				c.Upstreams[DefaultOrchestrator] = u
			},
			wantField: "upstreams.orchestrator.health_path",
		},
		{
			name:      "no routes",
			mutate:    func(c *Config) { c.Routes = nil },
			wantField: "routes",
		},
		{
			name:      "relative route prefix",
			mutate:    func(c *Config) { c.Routes[0].Prefix = "api" },
			wantField: "routes[0].prefix",
		},
		{
			name: "duplicate route prefix",
			mutate: func(c *Config) {
				c.Routes = append(c.Routes, RouteConfig{Name: "dup", Prefix: "/api/v1", Upstream: DefaultBackendName})
			},
			wantField: "routes[2].prefix",
		},
		{
			name:      "route to unknown upstream",
			mutate:    func(c *Config) { c.Routes[1].Upstream = "ghost" },
			wantField: "routes[1].upstream",
		},
		{
			name:      "relative strip prefix",
			mutate:    func(c *Config) { c.Routes[0].StripPrefix = "api" },
			wantField: "routes[0].strip_prefix",
		},
		{
			name:      "relative health endpoint path",
			mutate:    func(c *Config) { c.Health.Paths = []string{"health"} },
			wantField: "health.paths[0]",
		},
		{
			name:      "zero probe timeout",
			mutate:    func(c *Config) { c.Health.ProbeTimeout = 0 },
			wantField: "health.probe_timeout",
		},
		{
			name:      "bad cron schedule",
			mutate:    func(c *Config) { c.Health.Background.Schedule = "every minute" },
			wantField: "health.background.schedule",
		},
		{
			name:      "no allowed origins",
			mutate:    func(c *Config) { c.CORS.AllowedOrigins = nil },
			wantField: "cors.allowed_origins",
		},
		{
			name:      "unknown header mode",
			mutate:    func(c *Config) { c.Forwarding.HeaderMode = "all" },
			wantField: "forwarding.header_mode",
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "unknown log format",
			mutate:    func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantField: "telemetry.logging.format",
		},
		{
			name: "metrics path without slash",
			mutate: func(c *Config) {
				c.Telemetry.Metrics.Enabled = true
				c.Telemetry.Metrics.Path = "metrics"
			},
			wantField: "telemetry.metrics.path",
		},
		{
			name:      "tracing without endpoint",
			mutate:    func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			wantField: "telemetry.tracing.endpoint",
		},
		{
			name: "tracing ratio out of range",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Endpoint = "localhost:4317"
				c.Telemetry.Tracing.SampleRatio = 1.5
			},
			wantField: "telemetry.tracing.sample_ratio",
		},
		{
			name:      "tls without cert",
			mutate:    func(c *Config) { c.Security.TLS.Enabled = true; c.Security.TLS.KeyFile = "key.pem" },
			wantField: "security.tls.cert_file",
		},
		{
			name: "tls 1.0",
			mutate: func(c *Config) {
				c.Security.TLS = TLSConfig{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.0"}
			},
			wantField: "security.tls.min_version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}

			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got: %v", tt.wantField, err)
			}
		})
	}
}

func TestValidate_AcceptedVariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "cron descriptor",
			mutate: func(c *Config) { c.Health.Background.Schedule = "@every 30s" },
		},
		{
			name:   "standard cron expression",
			mutate: func(c *Config) { c.Health.Background.Schedule = "*/5 * * * *" },
		},
		{
			name: "upstream with base path",
			mutate: func(c *Config) {
				c.Upstreams[DefaultBackendName] = UpstreamConfig{BaseURL: "http://10.0.0.5:8000/svc", HealthPath: "/health"}
			},
		},
		{
			name:   "warning alias",
			mutate: func(c *Config) { c.Telemetry.Logging.Level = "WARNING" },
		},
		{
			name: "tls 1.3",
			mutate: func(c *Config) {
				c.Security.TLS = TLSConfig{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.3"}
			},
		},
		{
			name:   "empty health paths disables endpoint",
			mutate: func(c *Config) { c.Health.Paths = nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Validate(cfg); err != nil {
				t.Errorf("expected valid config, got: %v", err)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("unexpected single error message: %q", got)
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}}
	got := multi.Error()
	if !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: worse") {
		t.Errorf("unexpected multi error message: %q", got)
	}
}
