package server

import (
	"log/slog"
	"net/http"

	"estimategenie/edgerelay/pkg/proxy/middleware"
	"estimategenie/edgerelay/pkg/relay"
	"estimategenie/edgerelay/pkg/telemetry/tracing"
)

// Handler wraps the relay in the middleware chain, outermost first:
// Recovery, Logging, RequestID, Tracing. A nil tracer skips the tracing
// layer.
func Handler(rl *relay.Relay, tracer *tracing.Tracer, logger *slog.Logger, logHeaders bool) http.Handler {
	var handler http.Handler = rl

	if tracer != nil {
		handler = tracer.Middleware(handler)
	}

	handler = middleware.RequestIDMiddleware(handler)

	handler = middleware.LoggingMiddleware(logger, logHeaders)(handler)

	// Recovery middleware (outermost)
	handler = middleware.RecoveryMiddleware(logger, rl.CORS())(handler)

	return handler
}

// AdminMux builds the admin listener's mux. Each handler is mounted at its
// path; nil handlers are skipped.
func AdminMux(handlers map[string]http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	for path, h := range handlers {
		if h != nil {
			mux.Handle(path, h)
		}
	}
	return mux
}
