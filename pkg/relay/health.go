package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// State is the classification of one upstream health probe.
type State string

const (
	// StateHealthy means the upstream answered with a 2xx status.
	StateHealthy State = "healthy"

	// StateUnhealthy means the upstream answered with any other status.
	StateUnhealthy State = "unhealthy"

	// StateUnreachable means no response was received: connection failure,
	// DNS failure, or probe timeout.
	StateUnreachable State = "unreachable"
)

// Overall report statuses.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// maxProbeDrain caps how much of a probe response body is read before the
// connection is released.
const maxProbeDrain = 64 << 10

// HealthReport is the aggregate result of probing every upstream.
type HealthReport struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]State  `json:"services"`
	URLs      map[string]string `json:"urls"`
}

// Healthy reports whether every upstream is healthy.
func (h HealthReport) Healthy() bool {
	return h.Status == StatusHealthy
}

// HTTPStatus is 200 for a healthy report and 503 otherwise.
func (h HealthReport) HTTPStatus() int {
	if h.Healthy() {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// Prober probes every upstream concurrently and aggregates the results.
type Prober struct {
	client    Doer
	upstreams []*Upstream
	timeout   time.Duration
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time
}

// NewProber creates a Prober for upstreams. Each probe is bounded by timeout.
func NewProber(client Doer, upstreams []*Upstream, timeout time.Duration, logger *slog.Logger, observer Observer) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Prober{
		client:    client,
		upstreams: upstreams,
		timeout:   timeout,
		logger:    logger,
		observer:  observer,
		now:       time.Now,
	}
}

// Probe issues one GET per upstream and joins on all of them. A slow or
// failing upstream delays the report by at most the probe timeout and never
// affects the classification of the others.
func (p *Prober) Probe(ctx context.Context) HealthReport {
	services := make(map[string]State, len(p.upstreams))
	urls := make(map[string]string, len(p.upstreams))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, u := range p.upstreams {
		urls[u.Name] = u.BaseURL

		wg.Add(1)
		go func(u *Upstream) {
			defer wg.Done()

			state := p.probeOne(ctx, u)
			p.observer.ObserveProbe(u.Name, state)

			mu.Lock()
			services[u.Name] = state
			mu.Unlock()
		}(u)
	}

	wg.Wait()

	status := StatusHealthy
	for _, state := range services {
		if state != StateHealthy {
			status = StatusDegraded
		}
	}

	return HealthReport{
		Status:    status,
		Timestamp: p.now().UTC(),
		Services:  services,
		URLs:      urls,
	}
}

// probeOne probes a single upstream. Panics inside the client are reported
// as unreachable so one bad probe cannot take down the join.
func (p *Prober) probeOne(ctx context.Context, u *Upstream) (state State) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("health probe panicked", "upstream", u.Name, "panic", rec)
			state = StateUnreachable
		}
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	target := u.URL(u.HealthPath, "")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		p.logger.Debug("health probe request invalid", "upstream", u.Name, "error", err)
		return StateUnreachable
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("health probe failed", "upstream", u.Name, "url", target.String(), "error", err)
		return StateUnreachable
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeDrain))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return StateHealthy
	}
	p.logger.Debug("health probe returned non-success status", "upstream", u.Name, "status", resp.StatusCode)
	return StateUnhealthy
}
