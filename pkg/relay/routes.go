package relay

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"estimategenie/edgerelay/pkg/config"
)

// Upstream is a backend origin the relay forwards to and probes.
type Upstream struct {
	Name       string
	BaseURL    string
	HealthPath string
	Timeout    time.Duration

	base *url.URL
}

// NewUpstream parses an upstream definition.
func NewUpstream(name string, cfg config.UpstreamConfig) (*Upstream, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("upstream %s: invalid base URL: %w", name, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream %s: base URL %q must be absolute", name, cfg.BaseURL)
	}

	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = config.DefaultHealthPath
	}

	return &Upstream{
		Name:       name,
		BaseURL:    cfg.BaseURL,
		HealthPath: healthPath,
		Timeout:    cfg.Timeout,
		base:       base,
	}, nil
}

// URL joins the base URL with an escaped path and appends rawQuery verbatim.
// The base path and path are joined with exactly one slash. A query already
// present on the base URL comes first.
func (u *Upstream) URL(escapedPath, rawQuery string) *url.URL {
	target := *u.base
	joined := joinPath(u.base.EscapedPath(), escapedPath)
	if p, err := url.PathUnescape(joined); err == nil {
		target.Path = p
		target.RawPath = joined
	} else {
		target.Path = joined
		target.RawPath = ""
	}

	switch {
	case rawQuery == "":
	case target.RawQuery == "":
		target.RawQuery = rawQuery
	default:
		target.RawQuery = target.RawQuery + "&" + rawQuery
	}
	return &target
}

func joinPath(base, path string) string {
	if path == "" {
		if base == "" {
			return "/"
		}
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Route maps a path prefix to an upstream.
type Route struct {
	Name        string
	Prefix      string
	StripPrefix string
	AddPrefix   string
	Upstream    *Upstream
}

// Rewrite returns the path sent upstream for a request path matched by r.
func (r Route) Rewrite(path string) string {
	if r.StripPrefix != "" {
		path = strings.TrimPrefix(path, r.StripPrefix)
	}
	if r.AddPrefix != "" {
		path = joinPath(r.AddPrefix, path)
	}
	if path == "" {
		path = "/"
	}
	return path
}

// RouteTable is an immutable list of routes ordered longest prefix first.
// Routes with prefixes of equal length keep their configuration order.
type RouteTable struct {
	routes    []Route
	upstreams map[string]*Upstream
}

// NewRouteTable builds the route table and upstream set from configuration.
func NewRouteTable(cfg *config.Config) (*RouteTable, error) {
	upstreams := make(map[string]*Upstream, len(cfg.Upstreams))
	for name, uc := range cfg.Upstreams {
		u, err := NewUpstream(name, uc)
		if err != nil {
			return nil, err
		}
		upstreams[name] = u
	}

	routes := make([]Route, 0, len(cfg.Routes))
	for i, rc := range cfg.Routes {
		u, ok := upstreams[rc.Upstream]
		if !ok {
			return nil, fmt.Errorf("routes[%d]: unknown upstream %q", i, rc.Upstream)
		}
		name := rc.Name
		if name == "" {
			name = rc.Prefix
		}
		routes = append(routes, Route{
			Name:        name,
			Prefix:      rc.Prefix,
			StripPrefix: rc.StripPrefix,
			AddPrefix:   rc.AddPrefix,
			Upstream:    u,
		})
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return len(routes[i].Prefix) > len(routes[j].Prefix)
	})

	return &RouteTable{routes: routes, upstreams: upstreams}, nil
}

// Match returns the route for path and the rewritten upstream path, or
// ErrRouteNotFound.
func (t *RouteTable) Match(path string) (Route, string, error) {
	for _, route := range t.routes {
		if strings.HasPrefix(path, route.Prefix) {
			return route, route.Rewrite(path), nil
		}
	}
	return Route{}, "", ErrRouteNotFound
}

// Routes returns the routes in match order.
func (t *RouteTable) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Upstreams returns every configured upstream sorted by name.
func (t *RouteTable) Upstreams() []*Upstream {
	out := make([]*Upstream, 0, len(t.upstreams))
	for _, u := range t.upstreams {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Upstream returns the named upstream.
func (t *RouteTable) Upstream(name string) (*Upstream, bool) {
	u, ok := t.upstreams[name]
	return u, ok
}
