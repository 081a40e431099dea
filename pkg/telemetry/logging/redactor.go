package logging

import (
	"net/http"
	"regexp"
	"strings"
)

// Redacted replaces sensitive header values.
const Redacted = "[REDACTED]"

// sensitiveHeaders are masked entirely when request headers are logged.
var sensitiveHeaders = map[string]struct{}{
	"Authorization":       {},
	"Cookie":              {},
	"Set-Cookie":          {},
	"Proxy-Authorization": {},
	"X-Api-Key":           {},
}

// Patterns for credentials that end up in free-form values such as error
// messages or query strings.
var (
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`)
	apiKeyPattern = regexp.MustCompile(`(?i)((?:api[-_]?key|token|access_token)=)[^&\s]+`)
)

// RedactHeaders returns a flattened copy of h suitable for logging, with the
// values of credential-bearing headers replaced by Redacted. Multiple values
// of one header are joined with ", ".
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		canonical := http.CanonicalHeaderKey(name)
		if _, ok := sensitiveHeaders[canonical]; ok {
			out[canonical] = Redacted
			continue
		}
		out[canonical] = RedactString(strings.Join(values, ", "))
	}
	return out
}

// RedactString masks bearer tokens and key-like query parameters in s.
func RedactString(s string) string {
	if s == "" {
		return s
	}
	s = bearerPattern.ReplaceAllString(s, "Bearer ***")
	s = apiKeyPattern.ReplaceAllString(s, "${1}***")
	return s
}
