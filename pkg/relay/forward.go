package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"estimategenie/edgerelay/pkg/config"
)

// Doer issues outbound HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns the client used for upstream calls. Redirects are
// returned to the caller instead of being followed, and per-request deadlines
// come from the request context, so the client itself has no timeout.
func NewHTTPClient(transport http.RoundTripper) *http.Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Result is the outcome of one forwarded call: exactly one of Response and
// Err is set. The caller must Close a Result carrying a Response.
type Result struct {
	Response *http.Response
	Err      *UpstreamError
	Duration time.Duration

	cancel context.CancelFunc
}

// OK reports whether the upstream answered, whatever the status.
func (r Result) OK() bool {
	return r.Err == nil && r.Response != nil
}

// Close releases the upstream response body and the request deadline.
func (r Result) Close() {
	if r.Response != nil && r.Response.Body != nil {
		r.Response.Body.Close()
	}
	if r.cancel != nil {
		r.cancel()
	}
}

// proxyErrorBody is the 502 body written when an upstream is unreachable.
type proxyErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Backend string `json:"backend"`
}

// Forwarder sends matched requests upstream and writes the upstream answer
// back to the caller.
type Forwarder struct {
	client   Doer
	headers  headerFilter
	timeout  time.Duration
	cors     *Policy
	logger   *slog.Logger
	observer Observer
}

// NewForwarder creates a Forwarder. client is required; a nil logger or
// observer falls back to slog.Default and NopObserver.
func NewForwarder(client Doer, cfg config.ForwardingConfig, cors *Policy, logger *slog.Logger, observer Observer) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Forwarder{
		client:   client,
		headers:  newHeaderFilter(cfg),
		timeout:  cfg.Timeout,
		cors:     cors,
		logger:   logger,
		observer: observer,
	}
}

// Forward issues r to upstream at the rewritten path. The inbound query string
// is carried verbatim. A body is sent for every method except GET and HEAD.
// Forward never panics on transport failure; the failure is returned in
// Result.Err.
func (f *Forwarder) Forward(r *http.Request, upstream *Upstream, path string) Result {
	timeout := upstream.Timeout
	if timeout <= 0 {
		timeout = f.timeout
	}
	ctx := r.Context()
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	target := upstream.URL(path, r.URL.RawQuery)

	var body io.Reader
	sendBody := r.Method != http.MethodGet && r.Method != http.MethodHead
	if sendBody && r.Body != nil && r.Body != http.NoBody {
		body = r.Body
	}

	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), body)
	if err != nil {
		cancel()
		return Result{Err: &UpstreamError{Upstream: upstream.Name, BaseURL: upstream.BaseURL, Err: err}}
	}

	out.Header = f.headers.outbound(r.Header)
	if sendBody {
		out.ContentLength = r.ContentLength
		if body == nil {
			out.ContentLength = 0
		}
	} else {
		out.Header.Del("Content-Length")
	}
	if id := r.Header.Get(RequestIDHeader); id != "" {
		out.Header.Set(RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := f.client.Do(out)
	duration := time.Since(start)

	if err != nil {
		cancel()
		uerr := &UpstreamError{Upstream: upstream.Name, BaseURL: upstream.BaseURL, Err: err}
		f.observer.ObserveUpstream(upstream.Name, duration, uerr)
		return Result{Err: uerr, Duration: duration}
	}

	f.observer.ObserveUpstream(upstream.Name, duration, nil)
	return Result{Response: resp, Duration: duration, cancel: cancel}
}

// WriteResult writes res to w and returns the status code sent. Upstream
// status, headers (minus hop-by-hop), and body are copied verbatim and the
// CORS headers are then set over them. An unreachable upstream yields 502.
func (f *Forwarder) WriteResult(w http.ResponseWriter, r *http.Request, upstream *Upstream, res Result) int {
	defer res.Close()

	if !res.OK() {
		uerr := res.Err
		if uerr == nil {
			uerr = &UpstreamError{Upstream: upstream.Name, BaseURL: upstream.BaseURL}
		}
		f.logger.Warn("upstream unreachable",
			"upstream", upstream.Name,
			"backend", upstream.BaseURL,
			"method", r.Method,
			"path", r.URL.Path,
			"timeout", uerr.Timeout(),
			"error", uerr.Message(),
		)
		writeJSON(w, http.StatusBadGateway, proxyErrorBody{
			Error:   "Backend proxy error",
			Message: uerr.Message(),
			Backend: upstream.BaseURL,
		}, f.cors, r)
		return http.StatusBadGateway
	}

	resp := res.Response
	h := w.Header()
	for name, values := range resp.Header {
		h[name] = append([]string(nil), values...)
	}
	removeHopByHop(h)
	f.cors.ApplyRequest(h, r)

	w.WriteHeader(resp.StatusCode)

	if r.Method == http.MethodHead {
		return resp.StatusCode
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		// Headers are already on the wire; the caller sees a truncated body.
		f.logger.Warn("failed to copy upstream response body",
			"upstream", upstream.Name,
			"path", r.URL.Path,
			"error", err,
		)
	}
	return resp.StatusCode
}

// writeJSON writes v as a JSON response with CORS headers attached.
func writeJSON(w http.ResponseWriter, status int, v any, cors *Policy, r *http.Request) {
	cors.ApplyRequest(w.Header(), r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
