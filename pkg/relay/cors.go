package relay

import (
	"net/http"
	"strconv"
	"strings"

	"estimategenie/edgerelay/pkg/config"
)

// Policy holds the CORS headers attached to every relay response, including
// preflights, 404s, 502s, and health reports.
type Policy struct {
	allowAll       bool
	allowedOrigins []string
	methods        string
	headers        string
	maxAge         string
}

// NewPolicy builds a Policy from configuration.
func NewPolicy(cfg config.CORSConfig) *Policy {
	p := &Policy{
		allowedOrigins: cfg.AllowedOrigins,
		methods:        strings.Join(cfg.AllowedMethods, ", "),
		headers:        strings.Join(cfg.AllowedHeaders, ", "),
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			p.allowAll = true
		}
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// Apply sets the CORS headers on h. Each header is set, never appended, so an
// upstream's own CORS headers are replaced rather than duplicated. origin is
// the request's Origin header and only matters for an explicit origin list.
func (p *Policy) Apply(h http.Header, origin string) {
	switch {
	case p.allowAll:
		h.Set("Access-Control-Allow-Origin", "*")
	case origin != "" && p.originAllowed(origin):
		h.Set("Access-Control-Allow-Origin", origin)
		addVary(h, "Origin")
	default:
		h.Del("Access-Control-Allow-Origin")
	}

	if p.methods != "" {
		h.Set("Access-Control-Allow-Methods", p.methods)
	}
	if p.headers != "" {
		h.Set("Access-Control-Allow-Headers", p.headers)
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
}

// ApplyRequest is Apply with the origin taken from r.
func (p *Policy) ApplyRequest(h http.Header, r *http.Request) {
	p.Apply(h, r.Header.Get("Origin"))
}

// addVary adds value to the Vary header unless a listed token already names it.
func addVary(h http.Header, value string) {
	for _, line := range h.Values("Vary") {
		for _, token := range strings.Split(line, ",") {
			if strings.EqualFold(strings.TrimSpace(token), value) {
				return
			}
		}
	}
	h.Add("Vary", value)
}

func (p *Policy) originAllowed(origin string) bool {
	for _, allowed := range p.allowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}
