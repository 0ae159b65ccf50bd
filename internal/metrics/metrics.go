// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flashdeck"

var (
	// HTTPRequestsTotal counts handled requests.
	// Labels: method, route (chi route pattern), status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// GenerationsTotal counts card generation attempts.
	// Labels: source (text, pdf, video, job), result (success, empty, completion_error, parse_error)
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Total number of card generation attempts by outcome",
		},
		[]string{"source", "result"},
	)

	GeneratedCardsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "cards_created_total",
			Help:      "Total number of generated cards stored",
		},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "completion",
			Name:      "duration_seconds",
			Help:      "Duration of completion provider calls in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"provider"},
	)

	// JobsProcessed counts finished queue jobs.
	// Labels: result (completed, retried, failed, malformed)
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "jobs_processed_total",
			Help:      "Total number of generation jobs processed by outcome",
		},
		[]string{"result"},
	)

	StudyPassesFinished = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "study",
			Name:      "passes_finished_total",
			Help:      "Total number of study passes run to completion",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections",
			Help:      "Currently open WebSocket connections",
		},
	)
)
