package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intygscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intygscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	scanRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intygscan_scan_requests_total",
			Help: "Total number of scan, parse and classify requests",
		},
		[]string{"endpoint", "status"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intygscan_scan_duration_seconds",
			Help:    "End to end scan duration in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 25, 50},
		},
		[]string{"endpoint"}, // scan, websocket
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intygscan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"window"},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intygscan_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{64 << 10, 256 << 10, 1 << 20, 2 << 20, 5 << 20, 10 << 20},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intygscan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intygscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"},
	)
)
