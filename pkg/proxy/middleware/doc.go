// Package middleware provides HTTP middleware for cross-cutting concerns of
// the relay listener.
//
// # Middleware Chain
//
// The server wraps the relay handler as:
//
//	handler = Recovery(Logging(RequestID(Tracing(relay))))
//
// Order (innermost to outermost):
//  1. Tracing: server span per request (pkg/telemetry/tracing)
//  2. RequestID: accept or generate X-Request-ID
//  3. Logging: access log with status and latency
//  4. Recovery: turn panics into a 500 JSON response
//
// CORS is not a middleware here. The relay sets CORS headers itself on every
// response it produces, and Recovery borrows the same policy through
// HeaderDecorator for the one response the relay cannot produce.
//
// # Request ID
//
// RequestIDMiddleware keeps a client-supplied X-Request-ID when it is short
// printable ASCII, otherwise generates a UUID v4:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The ID is stored with logging.WithRequestID so every log record written with
// the request context includes it, and it is set on the inbound headers so the
// relay forwards it upstream.
//
// # Thread Safety
//
// All middleware functions are safe for concurrent use.
package middleware
