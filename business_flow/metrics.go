package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Shortener calls partitioned by outcome: success, alias_taken, error, fallback
	shortenerAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utm_shortener_attempts_total",
			Help: "Short link provider calls by outcome",
		},
		[]string{"outcome"},
	)

	clicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "utm_clicks_total",
			Help: "Tracked redirects",
		},
	)

	uniqueClicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "utm_unique_clicks_total",
			Help: "Tracked redirects from visitors not seen before for the link",
		},
	)

	// Bookkeeping failures that did not block the redirect, by stage: click_log, counter
	clickBookkeepingFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utm_click_bookkeeping_failures_total",
			Help: "Click log or counter writes that failed during a redirect",
		},
		[]string{"stage"},
	)

	linksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utm_links_created_total",
			Help: "Link records created by source and final provisioning status",
		},
		[]string{"source", "status"},
	)
)
