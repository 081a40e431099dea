package relay

import (
	"context"
	"errors"
	"fmt"
)

// ErrRouteNotFound is returned by RouteTable.Match when no route prefix matches
// the request path. It is answered with 404 and is expected steady-state
// traffic, not a failure.
var ErrRouteNotFound = errors.New("API endpoint not found")

// UpstreamError is a connection-level failure contacting an upstream: DNS
// errors, refused connections, resets, and timeouts. A response carrying a
// non-2xx status is not an UpstreamError; it is passed through verbatim.
type UpstreamError struct {
	// Upstream is the configured upstream name.
	Upstream string

	// BaseURL is the upstream origin that was attempted.
	BaseURL string

	// Err is the underlying transport error.
	Err error
}

// Error returns the error message.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s (%s) unreachable: %v", e.Upstream, e.BaseURL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by the request deadline.
func (e *UpstreamError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// Message returns the failure text reported to callers in the 502 body.
func (e *UpstreamError) Message() string {
	if e.Err == nil {
		return "unknown upstream error"
	}
	return e.Err.Error()
}
