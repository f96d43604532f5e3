package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulachat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nebulachat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	ChatroomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nebulachat_chatrooms_created_total",
			Help: "Total chatrooms created",
		},
	)

	ChatroomsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nebulachat_chatrooms_deleted_total",
			Help: "Total chatrooms deleted",
		},
	)

	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulachat_messages_appended_total",
			Help: "Total messages appended to transcripts",
		},
		[]string{"role"}, // "user" or "assistant"
	)

	GenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nebulachat_generation_failures_total",
			Help: "Total generation failures by reason",
		},
		[]string{"reason"},
	)

	StreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nebulachat_stream_duration_seconds",
			Help:    "Duration of one streaming session from send to finalize",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)
