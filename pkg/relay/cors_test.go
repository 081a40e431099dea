package relay

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"estimategenie/edgerelay/pkg/config"
)

func TestPolicy_Apply(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantOrigin string
		wantVary   bool
	}{
		{name: "wildcard without origin", origins: []string{"*"}, wantOrigin: "*"},
		{name: "wildcard with origin", origins: []string{"*"}, origin: "https://app.example", wantOrigin: "*"},
		{name: "listed origin echoed", origins: []string{"https://app.example"}, origin: "https://app.example", wantOrigin: "https://app.example", wantVary: true},
		{name: "unlisted origin", origins: []string{"https://app.example"}, origin: "https://evil.example", wantOrigin: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().CORS
			cfg.AllowedOrigins = tt.origins
			p := NewPolicy(cfg)

			h := http.Header{}
			p.Apply(h, tt.origin)

			if got := h.Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := h.Get("Vary") == "Origin"; got != tt.wantVary {
				t.Errorf("Vary: Origin = %v, want %v", got, tt.wantVary)
			}
			if got := h.Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE, OPTIONS, PATCH" {
				t.Errorf("Allow-Methods = %q", got)
			}
			if got := h.Get("Access-Control-Max-Age"); got != "86400" {
				t.Errorf("Max-Age = %q", got)
			}
		})
	}
}

func TestPolicy_ApplyReplacesExisting(t *testing.T) {
	p := NewPolicy(config.Default().CORS)

	h := http.Header{}
	h.Add("Access-Control-Allow-Origin", "https://upstream.example")
	h.Add("Access-Control-Allow-Origin", "https://other.example")
	h.Add("Access-Control-Allow-Headers", "X-Upstream")

	p.Apply(h, "")

	if got := h.Values("Access-Control-Allow-Origin"); len(got) != 1 || got[0] != "*" {
		t.Errorf("Allow-Origin = %q, want [*]", got)
	}
	if got := h.Values("Access-Control-Allow-Headers"); len(got) != 1 || got[0] != "Content-Type, Authorization" {
		t.Errorf("Allow-Headers = %q", got)
	}
}

func TestPolicy_VaryOriginNotDuplicated(t *testing.T) {
	cfg := config.Default().CORS
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	p := NewPolicy(cfg)

	tests := []struct {
		name     string
		existing []string
		want     []string
	}{
		{"absent", nil, []string{"Origin"}},
		{"already present", []string{"Origin"}, []string{"Origin"}},
		{"in a list", []string{"Accept-Encoding, origin"}, []string{"Accept-Encoding, origin"}},
		{"other value", []string{"Accept-Encoding"}, []string{"Accept-Encoding", "Origin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for _, v := range tt.existing {
				h.Add("Vary", v)
			}

			p.Apply(h, "https://app.example.com")

			if diff := cmp.Diff(tt.want, h.Values("Vary")); diff != "" {
				t.Errorf("Vary mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPolicy_ZeroMaxAgeOmitted(t *testing.T) {
	cfg := config.Default().CORS
	cfg.MaxAge = 0
	p := NewPolicy(cfg)

	h := http.Header{}
	p.Apply(h, "")
	if _, ok := h["Access-Control-Max-Age"]; ok {
		t.Error("Max-Age should be omitted when zero")
	}
}
