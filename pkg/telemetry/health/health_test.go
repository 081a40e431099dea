package health

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"estimategenie/edgerelay/pkg/relay"
)

// scriptedProber returns the queued reports in order, repeating the last one.
type scriptedProber struct {
	mu      sync.Mutex
	reports []relay.HealthReport
	calls   int
}

func (p *scriptedProber) Probe(context.Context) relay.HealthReport {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.calls
	if i >= len(p.reports) {
		i = len(p.reports) - 1
	}
	p.calls++
	return p.reports[i]
}

func (p *scriptedProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func report(services map[string]relay.State) relay.HealthReport {
	status := relay.StatusHealthy
	urls := make(map[string]string, len(services))
	for name, state := range services {
		if state != relay.StateHealthy {
			status = relay.StatusDegraded
		}
		urls[name] = "https://" + name + ".example.com"
	}
	return relay.HealthReport{
		Status:    status,
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Services:  services,
		URLs:      urls,
	}
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestMonitor_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{
			name:        "cron expression",
			schedule:    "*/5 * * * *",
			wantRunning: true,
		},
		{
			name:        "every descriptor",
			schedule:    "@every 30s",
			wantRunning: true,
		},
		{
			name:     "empty schedule - no error, not running",
			schedule: "",
		},
		{
			name:      "invalid schedule",
			schedule:  "invalid cron",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := &scriptedProber{reports: []relay.HealthReport{report(nil)}}
			monitor := NewMonitor(prober, tt.schedule, slog.New(slog.NewTextHandler(io.Discard, nil)))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := monitor.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			defer monitor.Stop()

			if monitor.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", monitor.IsRunning(), tt.wantRunning)
			}

			next := monitor.NextRun()
			if tt.wantRunning && next == nil {
				t.Error("NextRun() returned nil for running monitor")
			}
			if !tt.wantRunning && next != nil {
				t.Errorf("NextRun() = %v for stopped monitor", next)
			}
		})
	}
}

func TestMonitor_RunsOnSchedule(t *testing.T) {
	prober := &scriptedProber{reports: []relay.HealthReport{
		report(map[string]relay.State{"backend": relay.StateHealthy}),
	}}
	monitor := NewMonitor(prober, "@every 1s", slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for prober.Calls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("scheduled probe never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}

	if _, ok := monitor.Last(); !ok {
		t.Error("Last() reported no report after a scheduled run")
	}

	cancel()
	deadline = time.Now().Add(5 * time.Second)
	for monitor.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("monitor still running after context cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMonitor_RunOnce_LogsTransitions(t *testing.T) {
	prober := &scriptedProber{reports: []relay.HealthReport{
		report(map[string]relay.State{"backend": relay.StateHealthy, "orchestrator": relay.StateHealthy}),
		report(map[string]relay.State{"backend": relay.StateUnreachable, "orchestrator": relay.StateHealthy}),
		report(map[string]relay.State{"backend": relay.StateHealthy, "orchestrator": relay.StateHealthy}),
	}}
	logger, buf := bufferLogger()
	monitor := NewMonitor(prober, "", logger)
	ctx := context.Background()

	monitor.RunOnce(ctx)
	if got := strings.Count(buf.String(), "upstream health observed"); got != 2 {
		t.Errorf("first run logged %d observations, want 2", got)
	}

	buf.Reset()
	got := monitor.RunOnce(ctx)
	if got.Status != relay.StatusDegraded {
		t.Errorf("report status = %q, want degraded", got.Status)
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "upstream=backend") || !strings.Contains(out, "to=unreachable") {
		t.Errorf("transition not logged as warning: %s", out)
	}
	if strings.Contains(out, "upstream=orchestrator") {
		t.Errorf("unchanged upstream logged: %s", out)
	}

	buf.Reset()
	monitor.RunOnce(ctx)
	if !strings.Contains(buf.String(), "upstream recovered") {
		t.Errorf("recovery not logged: %s", buf.String())
	}

	last, ok := monitor.Last()
	if !ok || last.Status != relay.StatusHealthy {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		services   map[string]relay.State
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthy",
			services:   map[string]relay.State{"backend": relay.StateHealthy},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
		},
		{
			name:       "degraded",
			services:   map[string]relay.State{"backend": relay.StateUnhealthy},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := &scriptedProber{reports: []relay.HealthReport{report(tt.services)}}
			monitor := NewMonitor(prober, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

			rec := httptest.NewRecorder()
			monitor.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["status"] != tt.wantBody {
				t.Errorf("body status = %v, want %s", body["status"], tt.wantBody)
			}

		})
	}
}

func TestReadinessHandler_UnscheduledProbesEachRequest(t *testing.T) {
	prober := &scriptedProber{reports: []relay.HealthReport{
		report(map[string]relay.State{"backend": relay.StateHealthy}),
		report(map[string]relay.State{"backend": relay.StateUnreachable}),
	}}
	monitor := NewMonitor(prober, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler := monitor.ReadinessHandler()

	wantStatus := []int{http.StatusOK, http.StatusServiceUnavailable, http.StatusServiceUnavailable}
	for i, want := range wantStatus {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rec.Code != want {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, want)
		}
	}
	if prober.Calls() != len(wantStatus) {
		t.Errorf("prober called %d times, want %d", prober.Calls(), len(wantStatus))
	}
}

func TestReadinessHandler_ScheduledReusesLastReport(t *testing.T) {
	prober := &scriptedProber{reports: []relay.HealthReport{
		report(map[string]relay.State{"backend": relay.StateHealthy}),
		report(map[string]relay.State{"backend": relay.StateUnreachable}),
	}}
	monitor := NewMonitor(prober, "@every 1h", slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer monitor.Stop()

	handler := monitor.ReadinessHandler()
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
	if prober.Calls() != 1 {
		t.Errorf("prober called %d times, want 1", prober.Calls())
	}
}

func TestAdminEndpoints(t *testing.T) {
	prober := &scriptedProber{reports: []relay.HealthReport{report(nil)}}
	monitor := NewMonitor(prober, "", nil)

	mux := http.NewServeMux()
	RegisterAdmin(mux, monitor, VersionInfo{Version: "1.2.3", Commit: "abc"})

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"liveness", http.MethodGet, "/livez", http.StatusOK, `"status":"ok"`},
		{"liveness head", http.MethodHead, "/livez", http.StatusOK, ""},
		{"liveness post", http.MethodPost, "/livez", http.StatusMethodNotAllowed, "Method not allowed"},
		{"version", http.MethodGet, "/version", http.StatusOK, `"version":"1.2.3"`},
		{"readiness without upstreams", http.MethodGet, "/readyz", http.StatusOK, `"status":"healthy"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody == "" && rec.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
