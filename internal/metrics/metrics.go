// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "historymind_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "historymind_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15, 60},
		},
		[]string{"method", "path"},
	)

	// Conversation metrics
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "historymind_turns_total",
			Help: "Total conversation turns",
		},
		[]string{"mode", "outcome"}, // mode: json|stream|identity|none, outcome: ok|error|cleared|rejected
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "historymind_turn_duration_seconds",
			Help:    "Time from sending a question to the final answer",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	StreamDeltas = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "historymind_stream_deltas_total",
			Help: "Total non-empty deltas decoded from streamed answers",
		},
	)

	PayloadKinds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "historymind_payload_kinds_total",
			Help: "Backend responses by detected payload shape",
		},
		[]string{"kind"},
	)

	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "historymind_event_subscribers",
			Help: "Clients currently following /api/events",
		},
	)
)
