package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamlist_cache_lookups_total",
			Help: "Response cache lookups by route and result (hit, miss, stale)",
		},
		[]string{"route", "result"},
	)

	cacheBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamlist_cache_bytes_written_total",
			Help: "Bytes written to the response cache by route",
		},
		[]string{"route"},
	)

	cacheInvalidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamlist_cache_invalidated_total",
			Help: "Entries removed by route invalidation",
		},
		[]string{"route"},
	)

	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamlist_cache_errors_total",
			Help: "Response cache errors by operation",
		},
		[]string{"operation"},
	)

	// NotModifiedResponses counts 304 answers to conditional requests.
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamlist_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent counts requests revalidating a cached entry.
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamlist_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)
)
