package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	// Version is the semantic version (e.g., "1.0.0")
	Version string `json:"version"`

	// Commit is the git commit hash
	Commit string `json:"commit"`

	// BuildTime is when the binary was built
	BuildTime string `json:"build_time"`

	// GoVersion is the Go version used to build
	GoVersion string `json:"go_version"`
}

type liveness struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// LivenessHandler answers the admin liveness probe. It reports only that the
// process is serving and never contacts an upstream.
//
// Example response:
//
//	{"status": "ok", "timestamp": "2025-11-20T10:30:00Z"}
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, liveness{Status: "ok", Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler serves the monitor's last report on the admin listener.
// When the monitor is not scheduled, or no scheduled probe has run yet, each
// request probes on demand.
//
// Returns:
//   - 200 OK: every upstream healthy
//   - 503 Service Unavailable: degraded
func (m *Monitor) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}

		// Without a schedule nothing refreshes the stored report.
		report, ok := m.Last()
		if !ok || !m.IsRunning() {
			report = m.RunOnce(r.Context())
		}

		writeJSON(w, r, report.HTTPStatus(), report)
	}
}

// VersionHandler returns an HTTP handler for the version information endpoint.
//
// Example response:
//
//	{
//	    "version": "1.0.0",
//	    "commit": "abc123def456",
//	    "build_time": "2025-11-20T00:00:00Z",
//	    "go_version": "go1.25.0"
//	}
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, info)
	}
}

// RegisterAdmin mounts the admin endpoints on mux:
//   - /livez: liveness
//   - /readyz: last background health report
//   - /version: build information
func RegisterAdmin(mux *http.ServeMux, monitor *Monitor, info VersionInfo) {
	mux.Handle("/livez", LivenessHandler())
	mux.Handle("/readyz", monitor.ReadinessHandler())
	mux.Handle("/version", VersionHandler(info.Version, info.Commit, info.BuildTime))
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}
