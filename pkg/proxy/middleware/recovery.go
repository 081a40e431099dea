package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// HeaderDecorator adds headers to a response before it is written.
// *relay.Policy implements it so panics still produce CORS-readable errors.
type HeaderDecorator interface {
	ApplyRequest(h http.Header, r *http.Request)
}

// internalErrorBody is the 500 body written after a recovered panic.
type internalErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// Internal Server Error JSON response. It logs the panic with stack trace but
// does not expose internal details to clients. decorator may be nil.
//
// http.ErrAbortHandler is re-panicked so the server aborts the connection as
// the handler intended.
//
// Example usage:
//
//	handler = RecoveryMiddleware(logger, rl.CORS())(handler)
func RecoveryMiddleware(logger *slog.Logger, decorator HeaderDecorator) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				if decorator != nil {
					decorator.ApplyRequest(w.Header(), r)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)

				// Encode error response (ignore encoding errors at this point)
				_ = json.NewEncoder(w).Encode(internalErrorBody{
					Error:   "Internal server error",
					Message: "An internal error occurred. Please try again later.",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
