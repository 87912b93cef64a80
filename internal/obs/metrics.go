package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Client side.
var (
	ConnectAttemptsTotal      = promauto.NewCounter(prometheus.CounterOpts{Name: "authconn_connect_attempts_total", Help: "Outbound connection attempts"})
	ConnectErrorsTotal        = promauto.NewCounter(prometheus.CounterOpts{Name: "authconn_connect_errors_total", Help: "Outbound connection attempts that failed"})
	DataEventsTotal           = promauto.NewCounter(prometheus.CounterOpts{Name: "authconn_data_events_total", Help: "Inbound data events delivered to the handler"})
	BytesReceivedTotal        = promauto.NewCounter(prometheus.CounterOpts{Name: "authconn_bytes_received_total", Help: "Inbound bytes"})
	ConnectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{Name: "authconn_connection_duration_seconds", Help: "Connection lifetime seconds", Buckets: prometheus.ExponentialBuckets(0.01, 2, 16)})
)

// Server side.
var (
	AcceptedTotal    = promauto.NewCounter(prometheus.CounterOpts{Name: "authconn_server_accepted_total", Help: "Accepted connections"})
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "authconn_server_rate_limited_total", Help: "Connections rejected by the rate limiter"})
	ResponsesTotal   = promauto.NewCounterVec(prometheus.CounterOpts{Name: "authconn_server_responses_total", Help: "Responses by command and code"}, []string{"command", "code"})
	ActiveSessions   = promauto.NewGauge(prometheus.GaugeOpts{Name: "authconn_server_active_sessions", Help: "Authenticated sessions currently open"})
	ErrorsTotal      = promauto.NewCounterVec(prometheus.CounterOpts{Name: "authconn_errors_total", Help: "Errors by type"}, []string{"type"})
)
