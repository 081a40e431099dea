package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Transport wraps base so every upstream call gets a client span and carries
// the W3C trace context. A nil base uses http.DefaultTransport.
//
//	client := relay.NewHTTPClient(tracer.Transport(nil))
func (t *Tracer) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{tracer: t, base: base}
}

type transport struct {
	tracer *Tracer
	base   http.RoundTripper
}

func (rt *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := rt.tracer.Start(req.Context(), "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrHTTPMethod, req.Method),
			attribute.String(AttrHTTPURL, req.URL.Redacted()),
			attribute.String(AttrPeerName, req.URL.Hostname()),
		),
	)
	defer span.End()

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(ctx)
	rt.tracer.Inject(ctx, out.Header)

	resp, err := rt.base.RoundTrip(out)
	if err != nil {
		SetErrorAttributes(span, err)
		return nil, err
	}

	SetStatusCode(span, resp.StatusCode)
	return resp, nil
}
