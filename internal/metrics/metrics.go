// Package metrics exposes Prometheus collectors for the screener service's
// HTTP surface and session lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	sessionRestartsTotal       *prometheus.CounterVec
	browserAliveGauge          prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30, 60},
			},
			[]string{"method", "route"},
		)

		sessionRestartsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_session_restarts_total",
				Help: "Total browser session restarts, labeled by trigger.",
			},
			[]string{"trigger"},
		)

		browserAliveGauge = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "screener_browser_alive",
				Help: "Whether the last liveness probe of the browser session succeeded.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveSessionRestart increments the restart counter for the given
// trigger ("monitor" or "api").
func ObserveSessionRestart(trigger string) {
	sessionRestartsTotal.WithLabelValues(trigger).Inc()
}

// SetBrowserAlive records the latest liveness probe outcome.
func SetBrowserAlive(alive bool) {
	if alive {
		browserAliveGauge.Set(1)
		return
	}
	browserAliveGauge.Set(0)
}
