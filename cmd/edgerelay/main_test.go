package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"estimategenie/edgerelay/pkg/cli"
	"estimategenie/edgerelay/pkg/config"
	"estimategenie/edgerelay/pkg/relay"
	"estimategenie/edgerelay/pkg/telemetry/logging"
)

// executeCommand runs the root command with args and returns its stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		cfgFile = ""
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes a two-upstream configuration pointing at the given
// origins and returns its path.
func writeConfig(t *testing.T, backend, orchestrator string) string {
	t.Helper()
	content := fmt.Sprintf(`upstreams:
  backend:
    base_url: %s
    health_path: /health
  orchestrator:
    base_url: %s
    health_path: /health
routes:
  - name: v1
    prefix: /api/v1
    upstream: backend
    strip_prefix: /api
  - name: orchestrate
    prefix: /api/orchestrate
    upstream: orchestrator
    strip_prefix: /api
telemetry:
  logging:
    level: error
`, backend, orchestrator)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	Version, GitCommit = "1.2.3-test", "abc123"
	defer func() { Version, GitCommit = origVersion, origCommit }()

	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version returned error: %v", err)
	}
	if !strings.Contains(out, "edgerelay 1.2.3-test") {
		t.Errorf("output missing version: %q", out)
	}
	if !strings.Contains(out, "Git Commit: abc123") {
		t.Errorf("output missing commit: %q", out)
	}

	info := versionInfo()
	if info.Version != "1.2.3-test" || info.Commit != "abc123" {
		t.Errorf("versionInfo() = %+v", info)
	}
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, "http://backend.internal", "http://orchestrator.internal:8000")

	out, err := executeCommand(t, "validate", "--config", path, "-o", "text")
	if err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	if !strings.Contains(out, "✓ Configuration valid") {
		t.Errorf("output missing confirmation: %q", out)
	}
	if !strings.Contains(out, "http://orchestrator.internal:8000/orchestrate") {
		t.Errorf("output missing orchestrate target: %q", out)
	}
}

func TestValidateCommand_JSONRouteOrder(t *testing.T) {
	path := writeConfig(t, "http://backend.internal", "http://orchestrator.internal")

	out, err := executeCommand(t, "validate", "--config", path, "-o", "json")
	if err != nil {
		t.Fatalf("validate returned error: %v", err)
	}

	var result validateResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if !result.Valid || len(result.Routes) != 2 {
		t.Fatalf("result = %+v", result)
	}
	// Longest prefix is listed first.
	if result.Routes[0].Prefix != "/api/orchestrate" {
		t.Errorf("first route = %q, want /api/orchestrate", result.Routes[0].Prefix)
	}
}

func TestValidateCommand_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := "routes:\n  - prefix: /api/v1\n    upstream: missing\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := executeCommand(t, "validate", "--config", path, "-o", "text")
	var cfgErr *cli.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
}

func TestRoutesCommand(t *testing.T) {
	path := writeConfig(t, "http://backend.internal", "http://orchestrator.internal")

	tests := []struct {
		name     string
		path     string
		wantKind string
		want     string
	}{
		{
			name:     "backend route with query",
			path:     "/api/v1/quotes?page=2",
			wantKind: "forward",
			want:     "http://backend.internal/v1/quotes?page=2",
		},
		{
			name:     "orchestrator route",
			path:     "/api/orchestrate/jobs",
			wantKind: "forward",
			want:     "http://orchestrator.internal/orchestrate/jobs",
		},
		{
			name:     "health path",
			path:     "/api/health",
			wantKind: relay.RouteHealth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, "routes", "--config", path, "--path", tt.path, "-o", "json")
			if err != nil {
				t.Fatalf("routes returned error: %v", err)
			}
			var res routeResolution
			if err := json.Unmarshal([]byte(out), &res); err != nil {
				t.Fatalf("invalid JSON output: %v\n%s", err, out)
			}
			if res.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", res.Kind, tt.wantKind)
			}
			if res.Target != tt.want {
				t.Errorf("target = %q, want %q", res.Target, tt.want)
			}
		})
	}
}

func TestRoutesCommand_NotFound(t *testing.T) {
	path := writeConfig(t, "http://backend.internal", "http://orchestrator.internal")

	_, err := executeCommand(t, "routes", "--config", path, "--path", "/api/v2/quotes", "-o", "text")
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want ExitError", err)
	}
	if exitErr.Code != 1 || exitErr.Message != "API endpoint not found" {
		t.Errorf("exit error = %+v", exitErr)
	}
}

func healthyOrigin(t *testing.T, status int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestProbeCommand(t *testing.T) {
	path := writeConfig(t, healthyOrigin(t, http.StatusOK), healthyOrigin(t, http.StatusOK))

	out, err := executeCommand(t, "probe", "--config", path, "-o", "json")
	if err != nil {
		t.Fatalf("probe returned error: %v", err)
	}

	var report relay.HealthReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if report.Status != relay.StatusHealthy {
		t.Errorf("status = %q, want healthy", report.Status)
	}
	if len(report.Services) != 2 {
		t.Errorf("services = %v", report.Services)
	}
}

func TestProbeCommand_Degraded(t *testing.T) {
	path := writeConfig(t, healthyOrigin(t, http.StatusOK), healthyOrigin(t, http.StatusInternalServerError))

	out, err := executeCommand(t, "probe", "--config", path, "-o", "text")
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("error = %v, want exit code 1", err)
	}
	if !strings.Contains(out, "Status: degraded") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, string(relay.StateUnhealthy)) {
		t.Errorf("output missing unhealthy state: %q", out)
	}
}

func TestExitCode(t *testing.T) {
	var buf bytes.Buffer
	if code := exitCode(cli.NewExitError(3, "boom"), &buf); code != 3 {
		t.Errorf("exitCode(ExitError) = %d, want 3", code)
	}
	if buf.String() != "boom\n" {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	if code := exitCode(errors.New("plain"), &buf); code != 1 {
		t.Errorf("exitCode(plain) = %d, want 1", code)
	}
	if !strings.HasPrefix(buf.String(), "Error: plain") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Metrics.ListenAddress = "127.0.0.1:0"

	logger, err := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, logger) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}
