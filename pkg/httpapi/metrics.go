package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsHandler returns the standard Prometheus exposition handler over
// the default registry (spec §6.1 GET /metrics), matching promhttp's own
// documented usage. Only series registered with prometheus.DefaultRegisterer
// appear here; cmd/execd registers pkg/metrics' series there.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
