// Package config provides configuration management for the edge relay.
//
// This package handles loading and validating configuration from YAML files,
// an optional dotenv file, and environment variable overrides. The result is a
// plain *Config value that callers pass to constructors; there is no global
// configuration instance.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("edgerelay.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("edgerelay.yaml")
//
// An empty path skips the file and starts from defaults. The defaults
// reproduce the original deployment: /api/orchestrate* goes to the
// "orchestrator" upstream and /api/v1* to the "backend" upstream, both with
// the /api segment stripped.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention EDGERELAY_SECTION_FIELD.
// For example:
//
//   - EDGERELAY_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - EDGERELAY_UPSTREAMS_BACKEND_BASE_URL overrides upstreams.backend.base_url
//   - EDGERELAY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// LoadEnvFile reads a dotenv file into the process environment first;
// variables already present in the environment win.
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//	upstreams:
//	  backend:
//	    base_url: "https://api.example.com"
//	    health_path: "/health"
//	routes:
//	  - name: v1
//	    prefix: /api/v1
//	    upstream: backend
//	    strip_prefix: /api
//	health:
//	  paths: ["/health"]
//	  probe_timeout: 5s
package config
