package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys. HTTP keys follow the OpenTelemetry semantic
// conventions; relay-specific keys use the "edgerelay.*" namespace.
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPTarget     = "http.target"
	AttrHTTPStatusCode = "http.status_code"
	AttrHTTPURL        = "http.url"
	AttrPeerName       = "net.peer.name"

	AttrRequestID    = "edgerelay.request_id"
	AttrErrorMessage = "error.message"
)

// SetStatusCode records the HTTP status on a span and marks 5xx responses as
// errors.
func SetStatusCode(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, status))
	if status >= 500 {
		span.SetStatus(codes.Error, "")
	}
}

// SetErrorAttributes records err on the span and sets the error status.
func SetErrorAttributes(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String(AttrErrorMessage, err.Error()),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
