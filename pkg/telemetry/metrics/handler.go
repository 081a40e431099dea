package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler for the Prometheus metrics endpoint. It is
// mounted on the admin listener at telemetry.metrics.path.
//
// Example:
//
//	mux := http.NewServeMux()
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			// Enable OpenMetrics encoding (preferred over Prometheus text format)
			EnableOpenMetrics: true,

			// Limit concurrent scrapes
			MaxRequestsInFlight: 4,

			// Serve partial results rather than failing the scrape
			ErrorHandling: promhttp.ContinueOnError,

			ErrorLog: slogErrorLog{},
		},
	)
}

// slogErrorLog adapts slog to promhttp.Logger.
type slogErrorLog struct{}

func (slogErrorLog) Println(v ...any) {
	slog.Error("metrics scrape error", "detail", v)
}
