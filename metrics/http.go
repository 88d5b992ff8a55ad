package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler serves /metrics once InitializePrometheusMetrics has run;
// until then every path 404s, matching a process that has not opted into
// metrics collection.
func HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	if _, enabled := current().(*promMetrics); enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}
