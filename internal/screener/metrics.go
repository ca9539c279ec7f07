package screener

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal tracks acquisition attempts partitioned by screener and outcome.
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_fetches_total",
		Help: "The total number of fetch attempts by screener and outcome.",
	}, []string{"screener", "outcome"})
	// FetchDuration tracks end-to-end fetch time partitioned by retrieval path.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "screener_fetch_duration_seconds",
		Help:    "End-to-end fetch duration by retrieval path.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"path"})
	// ScrapeFallbacks tracks fetches that fell back from export to on-page scraping.
	ScrapeFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screener_scrape_fallbacks_total",
		Help: "The total number of fetches that fell back to scraping the page.",
	})
	// FilterFailures tracks index selections that did not land.
	FilterFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screener_filter_failures_total",
		Help: "The total number of index filter selections that failed.",
	})
	// DownloadTimeouts tracks export downloads that never stabilized in time.
	DownloadTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screener_download_timeouts_total",
		Help: "The total number of export downloads that timed out.",
	})
)
