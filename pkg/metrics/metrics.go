// Package metrics exposes the Prometheus metrics of the exchange client.
// Metrics are defined in their respective packages (client, cache,
// pagination) and registered via promauto on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the exchange client.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects everything registered on Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves all registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - cbpro_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - cbpro_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - cbpro_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Pagination Metrics (pkg/pagination):
//   - cbpro_pagination_in_flight (Gauge): Page requests currently outstanding
//   - cbpro_pagination_pages_total{endpoint} (Counter): Pages received
//   - cbpro_pagination_errors_total{kind} (Counter): Transport and decode failures
//   - cbpro_pagination_streams_total{outcome} (Counter): Streams finished (complete, failed, closed)
//
// Cache Metrics (pkg/cache):
//   - cbpro_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - cbpro_cache_misses_total (Counter): Cache misses
//   - cbpro_cache_size_bytes{layer="redis"} (Gauge): Size of the last cached entry
//   - cbpro_304_responses_total (Counter): 304 Not Modified responses
//   - cbpro_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - cbpro_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(cbpro_cache_hits_total[5m])) /
//   (sum(rate(cbpro_cache_hits_total[5m])) + sum(rate(cbpro_cache_misses_total[5m])))
//
//   # Failed streams
//   rate(cbpro_pagination_streams_total{outcome="failed"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(cbpro_request_duration_seconds_bucket[5m]))
