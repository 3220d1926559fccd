package paginator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// fetchesTotal counts issued page fetches by list and kind ("first", "next").
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlist_paginator_fetches_total",
		Help: "Total page fetches issued by list and kind",
	}, []string{"list", "kind"})

	// resultsTotal counts fetch results by outcome ("applied", "stale", "failed").
	resultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlist_paginator_results_total",
		Help: "Total page fetch results by list and outcome",
	}, []string{"list", "outcome"})
)
