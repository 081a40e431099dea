package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"estimategenie/edgerelay/pkg/config"
)

// notFoundBody is the plain-text body of the 404 response.
const notFoundBody = "API endpoint not found"

// Relay is the edge relay HTTP handler. It holds no per-request state and is
// safe for concurrent use.
type Relay struct {
	routes      *RouteTable
	cors        *Policy
	forwarder   *Forwarder
	prober      *Prober
	healthPaths map[string]struct{}
	logger      *slog.Logger
	observer    Observer
}

// Option configures a Relay.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	observer Observer
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver sets the metrics observer. Default: NopObserver.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// New creates a Relay from validated configuration. client performs every
// outbound call, forwarded requests and health probes alike.
func New(cfg *config.Config, client Doer, opts ...Option) (*Relay, error) {
	if cfg == nil {
		return nil, errors.New("relay: config is nil")
	}
	if client == nil {
		return nil, errors.New("relay: HTTP client is nil")
	}

	o := options{logger: slog.Default(), observer: NopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}

	routes, err := NewRouteTable(cfg)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}

	cors := NewPolicy(cfg.CORS)

	healthPaths := make(map[string]struct{}, len(cfg.Health.Paths))
	for _, p := range cfg.Health.Paths {
		healthPaths[p] = struct{}{}
	}

	return &Relay{
		routes:      routes,
		cors:        cors,
		forwarder:   NewForwarder(client, cfg.Forwarding, cors, o.logger, o.observer),
		prober:      NewProber(client, routes.Upstreams(), cfg.Health.ProbeTimeout, o.logger, o.observer),
		healthPaths: healthPaths,
		logger:      o.logger,
		observer:    o.observer,
	}, nil
}

// Routes returns the relay's route table.
func (rl *Relay) Routes() *RouteTable {
	return rl.routes
}

// Prober returns the relay's health prober.
func (rl *Relay) Prober() *Prober {
	return rl.prober
}

// CORS returns the relay's CORS policy.
func (rl *Relay) CORS() *Policy {
	return rl.cors
}

// ServeHTTP classifies and answers one request: preflight, health probe,
// forwarded route, or 404. Every response carries the CORS headers.
func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		rl.cors.ApplyRequest(w.Header(), r)
		w.WriteHeader(http.StatusNoContent)
		rl.observer.ObserveRequest(RoutePreflight, r.Method, http.StatusNoContent)
		return
	}

	if _, ok := rl.healthPaths[r.URL.Path]; ok {
		status := rl.serveHealth(w, r)
		rl.observer.ObserveRequest(RouteHealth, r.Method, status)
		return
	}

	route, path, err := rl.routes.Match(r.URL.EscapedPath())
	if err != nil {
		rl.logger.Debug("no route for request", "method", r.Method, "path", r.URL.Path)
		rl.notFound(w, r)
		rl.observer.ObserveRequest(RouteUnmatched, r.Method, http.StatusNotFound)
		return
	}

	res := rl.forwarder.Forward(r, route.Upstream, path)
	status := rl.forwarder.WriteResult(w, r, route.Upstream, res)
	rl.observer.ObserveRequest(route.Name, r.Method, status)
}

func (rl *Relay) serveHealth(w http.ResponseWriter, r *http.Request) int {
	report := rl.prober.Probe(r.Context())
	status := report.HTTPStatus()
	if !report.Healthy() {
		rl.logger.Info("health probe degraded", "services", report.Services)
	}
	writeJSON(w, status, report, rl.cors, r)
	return status
}

func (rl *Relay) notFound(w http.ResponseWriter, r *http.Request) {
	rl.cors.ApplyRequest(w.Header(), r)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(notFoundBody))
}
