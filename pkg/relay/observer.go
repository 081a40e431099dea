package relay

import "time"

// Route labels reported for requests that are not forwarded.
const (
	RoutePreflight = "preflight"
	RouteHealth    = "health"
	RouteUnmatched = "unmatched"
)

// Observer receives relay events for metrics. Implementations must be safe
// for concurrent use.
type Observer interface {
	// ObserveRequest records a completed inbound request.
	ObserveRequest(route, method string, status int)

	// ObserveUpstream records one forwarded call. err is non-nil when the
	// upstream was unreachable.
	ObserveUpstream(upstream string, duration time.Duration, err error)

	// ObserveProbe records the outcome of one upstream health probe.
	ObserveProbe(upstream string, state State)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) ObserveRequest(string, string, int) {}
func (NopObserver) ObserveUpstream(string, time.Duration, error) {}
func (NopObserver) ObserveProbe(string, State) {}
