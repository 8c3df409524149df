// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordWrites counts successful tracker writes by kind
	RecordWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "milkroad",
		Name:      "record_writes_total",
		Help:      "Tracker writes by kind (feed_add, feed_delete, sleep_start, sleep_end, sleep_delete, clear_all).",
	}, []string{"kind"})

	// ShareRedemptions counts share code redemptions by result
	ShareRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "milkroad",
		Name:      "share_redemptions_total",
		Help:      "Share code redemptions by result (ok, not_found, error).",
	}, []string{"result"})

	// BackendErrors counts failed store calls by operation
	BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "milkroad",
		Name:      "backend_errors_total",
		Help:      "Failed document store calls by operation.",
	}, []string{"op"})

	// HTTPDuration observes request latency by route template and status
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "milkroad",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// SocketConnections tracks connected socket.io clients
	SocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "milkroad",
		Name:      "socket_connections",
		Help:      "Currently connected socket.io clients.",
	})
)
