// Package logging builds the relay's structured logger.
//
// # Overview
//
// The logger is a plain *slog.Logger with a JSON or text handler. The handler
// is wrapped so that records logged with a request context carry:
//   - request_id, set by the request ID middleware
//   - trace_id and span_id, when an OpenTelemetry span is active
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	logger.InfoContext(r.Context(), "forwarding", "upstream", "backend")
//
// # Header Redaction
//
// When inbound headers are logged (telemetry.logging.log_headers), they go
// through RedactHeaders first. Authorization, Cookie, Set-Cookie,
// Proxy-Authorization, and X-Api-Key are replaced by "[REDACTED]"; bearer
// tokens and key-like query parameters in other values are masked.
package logging
