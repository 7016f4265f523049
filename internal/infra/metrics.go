package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for BackendRequests.
const (
	OutcomeOK      = "ok"
	OutcomeHTTP    = "http_error"
	OutcomeNetwork = "network_error"
	OutcomeDecode  = "decode_error"
	OutcomeOpen    = "breaker_open"
)

var (
	// BackendRequests counts outbound backend calls by endpoint and outcome.
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "top10_backend_requests_total",
		Help: "Backend API requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	// BackendRequestDuration tracks backend latency.
	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "top10_backend_request_duration_seconds",
		Help:    "Time taken by backend API requests",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"endpoint"})

	// DashboardLoads counts full load cycles.
	DashboardLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "top10_dashboard_loads_total",
		Help: "Completed dashboard load cycles",
	})

	// WebSocketClients is the number of connected browsers.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "top10_websocket_clients",
		Help: "Connected websocket clients",
	})
)
