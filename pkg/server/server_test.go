package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"estimategenie/edgerelay/pkg/config"
	"estimategenie/edgerelay/pkg/relay"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(upstreamURL string) *config.Config {
	cfg := config.Default()
	for name, u := range cfg.Upstreams {
		u.BaseURL = upstreamURL
		cfg.Upstreams[name] = u
	}
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	return cfg
}

func newRelay(t *testing.T, cfg *config.Config, client relay.Doer) *relay.Relay {
	t.Helper()
	rl, err := relay.New(cfg, client, relay.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("relay.New() error: %v", err)
	}
	return rl
}

func TestHandler_RequestIDForwardedUpstream(t *testing.T) {
	var gotID string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := testConfig(upstream.URL)
	rl := newRelay(t, cfg, relay.NewHTTPClient(nil))
	handler := Handler(rl, nil, quietLogger(), false)

	tests := []struct {
		name     string
		inbound  string
		wantSame bool
	}{
		{name: "client supplied", inbound: "client-abc", wantSame: true},
		{name: "generated", inbound: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
			if tt.inbound != "" {
				req.Header.Set("X-Request-ID", tt.inbound)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			respID := rec.Header().Get("X-Request-ID")
			if respID == "" {
				t.Fatal("response has no X-Request-ID")
			}
			if gotID != respID {
				t.Errorf("upstream saw %q, client got %q", gotID, respID)
			}
			if tt.wantSame && respID != tt.inbound {
				t.Errorf("request id = %q, want %q", respID, tt.inbound)
			}
		})
	}
}

func TestHandler_PanicRecoveredWithCORS(t *testing.T) {
	cfg := testConfig("https://upstream.example.com")
	rl := newRelay(t, cfg, doerFunc(func(*http.Request) (*http.Response, error) {
		panic("boom")
	}))
	handler := Handler(rl, nil, quietLogger(), false)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Internal server error" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestHandler_RelaySurfaceUnchanged(t *testing.T) {
	cfg := testConfig("https://upstream.example.com")
	rl := newRelay(t, cfg, doerFunc(func(*http.Request) (*http.Response, error) {
		t.Error("unexpected upstream call")
		return nil, nil
	}))
	handler := Handler(rl, nil, quietLogger(), false)

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodOptions, "/anything", http.StatusNoContent},
		{http.MethodGet, "/metrics", http.StatusNotFound},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_StartAndStop(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("upstream:" + r.URL.Path))
	}))
	defer upstream.Close()

	cfg := testConfig(upstream.URL)
	rl := newRelay(t, cfg, relay.NewHTTPClient(nil))

	admin := AdminMux(map[string]http.Handler{
		"/livez": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		}),
		"/skipped": nil,
	})

	srv := NewServer(&cfg.Server, Handler(rl, nil, quietLogger(), false), Options{
		Admin:        admin,
		AdminAddress: "127.0.0.1:0",
		Logger:       quietLogger(),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(context.Background()) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("Start() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}

	if !srv.IsRunning() {
		t.Error("IsRunning() = false after Ready")
	}

	body := get(t, "http://"+srv.Addr()+"/api/v1/items")
	if body != "upstream:/v1/items" {
		t.Errorf("relay body = %q", body)
	}
	if body := get(t, "http://"+srv.AdminAddr()+"/livez"); body != "ok" {
		t.Errorf("admin body = %q", body)
	}

	srv.Stop()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	if srv.IsRunning() {
		t.Error("IsRunning() = true after stop")
	}
}

func TestServer_ContextCancel(t *testing.T) {
	cfg := testConfig("https://upstream.example.com")
	rl := newRelay(t, cfg, relay.NewHTTPClient(nil))
	srv := NewServer(&cfg.Server, Handler(rl, nil, quietLogger(), false), Options{Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	<-srv.Ready()
	if srv.AdminAddr() != "" {
		t.Errorf("AdminAddr() = %q without admin handler", srv.AdminAddr())
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop on context cancel")
	}
}

func TestServer_ListenError(t *testing.T) {
	cfg := testConfig("https://upstream.example.com")
	cfg.Server.ListenAddress = "256.0.0.1:bad"
	rl := newRelay(t, cfg, relay.NewHTTPClient(nil))
	srv := NewServer(&cfg.Server, Handler(rl, nil, quietLogger(), false), Options{Logger: quietLogger()})

	err := srv.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to listen") {
		t.Fatalf("Start() error = %v, want listen failure", err)
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after listen failure")
	}
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return string(b)
}
