package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "EDGERELAY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// An empty path yields the default configuration.
// The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention EDGERELAY_SECTION_FIELD (e.g., EDGERELAY_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file (skipped when path is empty)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set are left untouched. A missing
// file is not an error when optional is true.
func LoadEnvFile(path string, optional bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %q: %w", path, err)
	}
	return nil
}

// parseFile reads and unmarshals the YAML file without applying defaults.
func parseFile(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format EDGERELAY_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv(EnvPrefix + "SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if d, ok := envDuration("SERVER_READ_TIMEOUT"); ok {
		cfg.Server.ReadTimeout = d
	}
	if d, ok := envDuration("SERVER_WRITE_TIMEOUT"); ok {
		cfg.Server.WriteTimeout = d
	}
	if d, ok := envDuration("SERVER_IDLE_TIMEOUT"); ok {
		cfg.Server.IdleTimeout = d
	}
	if d, ok := envDuration("SERVER_SHUTDOWN_TIMEOUT"); ok {
		cfg.Server.ShutdownTimeout = d
	}
	if val := os.Getenv(EnvPrefix + "SERVER_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.MaxHeaderBytes = i
		}
	}

	// Upstream overrides apply to upstreams that already exist after defaults.
	for name := range cfg.Upstreams {
		applyUpstreamEnvOverrides(cfg, name)
	}

	// Health overrides
	if val := os.Getenv(EnvPrefix + "HEALTH_PATHS"); val != "" {
		cfg.Health.Paths = splitList(val)
	}
	if d, ok := envDuration("HEALTH_PROBE_TIMEOUT"); ok {
		cfg.Health.ProbeTimeout = d
	}
	if val, ok := os.LookupEnv(EnvPrefix + "HEALTH_BACKGROUND_SCHEDULE"); ok {
		cfg.Health.Background.Schedule = val
	}

	// CORS overrides
	if val := os.Getenv(EnvPrefix + "CORS_ALLOWED_ORIGINS"); val != "" {
		cfg.CORS.AllowedOrigins = splitList(val)
	}
	if val := os.Getenv(EnvPrefix + "CORS_MAX_AGE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.CORS.MaxAge = i
		}
	}

	// Forwarding overrides
	if val := os.Getenv(EnvPrefix + "FORWARDING_HEADER_MODE"); val != "" {
		cfg.Forwarding.HeaderMode = val
	}
	if val := os.Getenv(EnvPrefix + "FORWARDING_HEADER_SAFELIST"); val != "" {
		cfg.Forwarding.HeaderSafelist = splitList(val)
	}

	// Telemetry overrides
	if val := os.Getenv(EnvPrefix + "TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if b, ok := envBool("TELEMETRY_METRICS_ENABLED"); ok {
		cfg.Telemetry.Metrics.Enabled = b
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if b, ok := envBool("TELEMETRY_TRACING_ENABLED"); ok {
		cfg.Telemetry.Tracing.Enabled = b
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Security overrides
	if b, ok := envBool("SECURITY_TLS_ENABLED"); ok {
		cfg.Security.TLS.Enabled = b
	}
	if val := os.Getenv(EnvPrefix + "SECURITY_TLS_CERT_FILE"); val != "" {
		cfg.Security.TLS.CertFile = val
	}
	if val := os.Getenv(EnvPrefix + "SECURITY_TLS_KEY_FILE"); val != "" {
		cfg.Security.TLS.KeyFile = val
	}
}

var envNameSanitizer = regexp.MustCompile(`[^A-Z0-9]+`)

// UpstreamEnvPrefix returns the environment variable prefix for an upstream,
// e.g. "EDGERELAY_UPSTREAMS_BACKEND_" for "backend".
func UpstreamEnvPrefix(name string) string {
	return EnvPrefix + "UPSTREAMS_" + envNameSanitizer.ReplaceAllString(strings.ToUpper(name), "_") + "_"
}

// applyUpstreamEnvOverrides applies environment variable overrides for a
// specific upstream. Variables follow EDGERELAY_UPSTREAMS_<NAME>_<FIELD>.
func applyUpstreamEnvOverrides(cfg *Config, name string) {
	upstream := cfg.Upstreams[name]
	prefix := UpstreamEnvPrefix(name)

	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		upstream.BaseURL = val
	}
	if val := os.Getenv(prefix + "HEALTH_PATH"); val != "" {
		upstream.HealthPath = val
	}
	if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			upstream.Timeout = d
		}
	}

	cfg.Upstreams[name] = upstream
}

func envDuration(key string) (time.Duration, bool) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return 0, false
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envBool(key string) (bool, bool) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return false, false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return b, true
}

// splitList splits a comma separated value, trimming blanks.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
