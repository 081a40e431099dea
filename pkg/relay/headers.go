package relay

import (
	"net/http"
	"strings"

	"estimategenie/edgerelay/pkg/config"
)

// RequestIDHeader carries the request ID to upstreams.
const RequestIDHeader = "X-Request-ID"

// hopByHopHeaders are connection-scoped headers that must not be forwarded
// (RFC 7230 section 6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// removeHopByHop deletes hop-by-hop headers from h, including any header
// named in the Connection header.
func removeHopByHop(h http.Header) {
	for _, value := range h.Values("Connection") {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

// headerFilter selects which inbound headers reach an upstream.
type headerFilter struct {
	safelist bool
	allowed  map[string]struct{}
}

func newHeaderFilter(cfg config.ForwardingConfig) headerFilter {
	f := headerFilter{safelist: cfg.HeaderMode == config.HeaderModeSafelist}
	if f.safelist {
		f.allowed = make(map[string]struct{}, len(cfg.HeaderSafelist)+1)
		for _, name := range cfg.HeaderSafelist {
			f.allowed[http.CanonicalHeaderKey(name)] = struct{}{}
		}
		f.allowed[RequestIDHeader] = struct{}{}
	}
	return f
}

// outbound returns the headers to send upstream for an inbound header set.
// Host is never part of the result; the outbound request targets the
// upstream host.
func (f headerFilter) outbound(in http.Header) http.Header {
	if !f.safelist {
		out := in.Clone()
		if out == nil {
			out = make(http.Header)
		}
		removeHopByHop(out)
		out.Del("Host")
		return out
	}

	out := make(http.Header, len(f.allowed))
	for name, values := range in {
		if _, ok := f.allowed[http.CanonicalHeaderKey(name)]; ok {
			out[name] = append([]string(nil), values...)
		}
	}
	return out
}
