package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"estimategenie/edgerelay/pkg/config"
	"estimategenie/edgerelay/pkg/relay"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	cfg := config.Default().Telemetry.Metrics
	cfg.Enabled = true
	return NewCollector(&cfg, nil)
}

func TestCollector_ObserveRequest(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveRequest("v1", http.MethodGet, 200)
	c.ObserveRequest("v1", http.MethodGet, 200)
	c.ObserveRequest(relay.RouteUnmatched, http.MethodPost, 404)
	c.ObserveRequest("v1", "PROPFIND", 200)

	counter := c.requestMetrics.requestsTotal
	if got := testutil.ToFloat64(counter.WithLabelValues("v1", "GET", "200")); got != 2 {
		t.Errorf("v1 GET 200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("unmatched", "POST", "404")); got != 1 {
		t.Errorf("unmatched POST 404 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("v1", "OTHER", "200")); got != 1 {
		t.Errorf("v1 OTHER 200 = %v, want 1", got)
	}
}

func TestCollector_ObserveUpstream(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveUpstream("backend", 120*time.Millisecond, nil)
	c.ObserveUpstream("backend", 3*time.Second, &relay.UpstreamError{
		Upstream: "backend",
		Err:      context.DeadlineExceeded,
	})
	c.ObserveUpstream("orchestrator", time.Millisecond, &relay.UpstreamError{
		Upstream: "orchestrator",
		Err:      errors.New("connection refused"),
	})

	if got := testutil.CollectAndCount(c.upstreamMetrics.latency); got != 2 {
		t.Errorf("latency series = %d, want 2", got)
	}
	if got := testutil.ToFloat64(c.upstreamMetrics.errors.WithLabelValues("backend", "timeout")); got != 1 {
		t.Errorf("backend timeout errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.upstreamMetrics.errors.WithLabelValues("orchestrator", "connection")); got != 1 {
		t.Errorf("orchestrator connection errors = %v, want 1", got)
	}
}

func TestCollector_ObserveProbe(t *testing.T) {
	tests := []struct {
		state relay.State
		want  float64
	}{
		{relay.StateHealthy, 1},
		{relay.StateUnhealthy, 0},
		{relay.StateUnreachable, -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			c := newTestCollector(t)
			c.ObserveProbe("backend", tt.state)

			if got := testutil.ToFloat64(c.upstreamMetrics.health.WithLabelValues("backend")); got != tt.want {
				t.Errorf("health gauge = %v, want %v", got, tt.want)
			}
			if got := testutil.ToFloat64(c.upstreamMetrics.probes.WithLabelValues("backend", string(tt.state))); got != 1 {
				t.Errorf("probe counter = %v, want 1", got)
			}
		})
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := config.Default().Telemetry.Metrics
	cfg.Enabled = false
	c := NewCollector(&cfg, nil)

	c.ObserveRequest("v1", http.MethodGet, 200)
	c.ObserveUpstream("backend", time.Second, nil)
	c.ObserveProbe("backend", relay.StateHealthy)

	if got := testutil.CollectAndCount(c.requestMetrics.requestsTotal); got != 0 {
		t.Errorf("request series = %d, want 0", got)
	}
	if got := testutil.CollectAndCount(c.upstreamMetrics.health); got != 0 {
		t.Errorf("health series = %d, want 0", got)
	}
	if c.Enabled() {
		t.Error("Enabled() = true, want false")
	}
}

func TestCollector_CardinalityLimit(t *testing.T) {
	c := newTestCollector(t)
	c.cardinalityLimiter = NewCardinalityLimiter(1)

	c.ObserveRequest("v1", http.MethodGet, 200)
	c.ObserveRequest("orchestrate", http.MethodGet, 200)

	counter := c.requestMetrics.requestsTotal
	if got := testutil.ToFloat64(counter.WithLabelValues("other", "GET", "200")); got != 1 {
		t.Errorf("overflow series = %v, want 1", got)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("first two label sets should be allowed")
	}
	if !cl.Allow("a") {
		t.Error("existing label set should stay allowed")
	}
	if cl.Allow("c") {
		t.Error("third label set should be rejected")
	}
	if got := cl.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveRequest("v1", http.MethodGet, 200)
	c.ObserveProbe("backend", relay.StateUnreachable)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	for _, want := range []string{
		`edgerelay_requests_total{method="GET",route="v1",status="200"} 1`,
		`edgerelay_upstream_health{upstream="backend"} -1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
