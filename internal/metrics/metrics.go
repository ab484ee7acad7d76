// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts requests by method, route and status code.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harmony_http_requests_total",
			Help: "HTTP requests processed, partitioned by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes request latency by route.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harmony_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// MatchesCreated counts successfully created matches.
	MatchesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harmony_matches_created_total",
			Help: "Matches created.",
		},
	)

	// MessagesSent counts persisted chat messages.
	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harmony_chat_messages_total",
			Help: "Chat messages persisted.",
		},
	)

	// WSConnections gauges currently open chat sockets.
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "harmony_ws_connections",
			Help: "Open websocket chat connections.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPDuration,
		MatchesCreated,
		MessagesSent,
		WSConnections,
	)
}

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
