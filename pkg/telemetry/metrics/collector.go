package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"estimategenie/edgerelay/pkg/config"
	"estimategenie/edgerelay/pkg/relay"
)

// otherLabel replaces label values once the cardinality limit is reached.
const otherLabel = "other"

// Collector owns the relay's Prometheus registry and implements
// relay.Observer, so the relay and the background health monitor report
// through it without knowing about Prometheus.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Request metrics
	requestMetrics *RequestMetrics

	// Upstream metrics
	upstreamMetrics *UpstreamMetrics

	// Cardinality tracking
	cardinalityLimiter *CardinalityLimiter
}

var _ relay.Observer = (*Collector)(nil)

// NewCollector creates a collector with its own registry. If registry is nil a
// fresh one is created. Go runtime and process collectors are registered
// alongside the relay metrics.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	rl, err := relay.New(cfg, client, relay.WithObserver(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = prometheus.DefBuckets
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.upstreamMetrics = NewUpstreamMetrics(cfg, registry)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// ObserveRequest records a completed inbound request.
//
// Parameters:
//   - route: route name, or one of relay.RoutePreflight, relay.RouteHealth,
//     relay.RouteUnmatched
//   - method: HTTP method; unknown methods are reported as "OTHER"
//   - status: HTTP status code sent to the client
func (c *Collector) ObserveRequest(route, method string, status int) {
	if !c.config.Enabled {
		return
	}

	method = normalizeMethod(method)
	code := strconv.Itoa(status)

	labelSet := fmt.Sprintf("request:%s:%s:%s", route, method, code)
	if !c.cardinalityLimiter.Allow(labelSet) {
		route = otherLabel
	}

	c.requestMetrics.RecordRequest(route, method, code)
}

// ObserveUpstream records the latency of one forwarded call and counts it as
// an error when the upstream was unreachable.
func (c *Collector) ObserveUpstream(upstream string, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}

	c.upstreamMetrics.RecordLatency(upstream, duration)
	if err != nil {
		c.upstreamMetrics.RecordError(upstream, errorKind(err))
	}
}

// ObserveProbe records one health probe outcome and updates the health gauge.
//
// The gauge is 1 for healthy, 0 for unhealthy, and -1 for unreachable.
func (c *Collector) ObserveProbe(upstream string, state relay.State) {
	if !c.config.Enabled {
		return
	}

	c.upstreamMetrics.RecordProbe(upstream, state)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Enabled reports whether metrics are recorded.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

func normalizeMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	default:
		return "OTHER"
	}
}

// errorKind classifies an upstream failure for the error counter.
func errorKind(err error) string {
	var uerr *relay.UpstreamError
	if errors.As(err, &uerr) && uerr.Timeout() {
		return "timeout"
	}
	return "connection"
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
