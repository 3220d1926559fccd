// Package metrics exposes the Prometheus metrics of streamlist.
// All metrics are defined in their respective packages (paginator, twitch,
// cache, ratelimit, prefetch) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registry all streamlist metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is read by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Paginator Metrics (pkg/paginator):
//   - streamlist_paginator_fetches_total{list, kind} (Counter): Fetches issued by kind (first, next)
//   - streamlist_paginator_results_total{list, outcome} (Counter): Fetch results (applied, stale, failed)
//
// Request Metrics (pkg/twitch):
//   - streamlist_api_requests_total{endpoint, status} (Counter): Requests by route and HTTP status
//   - streamlist_api_request_duration_seconds{endpoint} (Histogram): Request duration by route
//   - streamlist_api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decoding)
//   - streamlist_api_retries_total{error_class} (Counter): Retry attempts by error class
//   - streamlist_api_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - streamlist_api_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//   - streamlist_api_breaker_state (Gauge): 0 closed, 1 half-open, 2 open
//
// Cache Metrics (pkg/cache):
//   - streamlist_cache_lookups_total{route, result} (Counter): Lookups by result (hit, miss, stale)
//   - streamlist_cache_bytes_written_total{route} (Counter): Bytes written to the cache
//   - streamlist_cache_invalidated_total{route} (Counter): Entries dropped by pull to refresh
//   - streamlist_304_responses_total (Counter): 304 Not Modified responses
//   - streamlist_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - streamlist_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - streamlist_rate_limit_remaining (Gauge): Points left in the Twitch bucket
//   - streamlist_rate_limit_blocks_total (Counter): Requests blocked on a nearly empty bucket
//   - streamlist_rate_limit_throttles_total (Counter): Requests delayed on a low bucket
//
// Prefetch Metrics (pkg/prefetch):
//   - streamlist_prefetch_pages_total{list, outcome} (Counter): Pages warmed or failed
//
// Example Prometheus Queries:
//
//   # Stale result ratio (reloads racing slow pages)
//   sum(rate(streamlist_paginator_results_total{outcome="stale"}[5m])) /
//   sum(rate(streamlist_paginator_results_total[5m]))
//
//   # Cache Hit Rate per list
//   sum by (route) (rate(streamlist_cache_lookups_total{result="hit"}[5m])) /
//   sum by (route) (rate(streamlist_cache_lookups_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(streamlist_api_request_duration_seconds_bucket[5m]))
