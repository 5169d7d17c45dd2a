// SARDIN-AI - Real-Time Fisheries Data Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sardinai

// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Broadcast hub
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Current number of open real-time connections",
		},
	)

	RealtimePublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_published_total",
			Help: "Envelopes accepted by the hub, per topic",
		},
		[]string{"topic"},
	)

	RealtimeDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_delivered_total",
			Help: "Envelopes enqueued on a subscriber connection, per topic",
		},
		[]string{"topic"},
	)

	RealtimeDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_dropped_total",
			Help: "Envelopes dropped because the subscriber queue was full, per topic",
		},
		[]string{"topic"},
	)

	RealtimePublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_publish_errors_total",
			Help: "Publish calls rejected before fan-out",
		},
		[]string{"topic", "reason"}, // reason: unknown_topic, payload_mismatch, validation, encode
	)

	RealtimeSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_subscribers",
			Help: "Current subscribers per topic",
		},
		[]string{"topic"},
	)

	RealtimeConnectionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_connections_closed_total",
			Help: "Connections closed, by reason",
		},
		[]string{"reason"},
	)

	RealtimeMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_messages_received_total",
			Help: "Client messages received, by type",
		},
		[]string{"type"},
	)

	// Feed adapters
	FeedSamples = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_samples_total",
			Help: "Feed adapter ticks, by result",
		},
		[]string{"adapter", "result"}, // result: published, skipped, error
	)

	FeedAdapterRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_adapter_running",
			Help: "1 while the adapter's timer is armed",
		},
		[]string{"adapter"},
	)

	FeedUpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_upstream_request_duration_seconds",
			Help:    "Latency of upstream data source requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	AISReportsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ais_reports_received_total",
			Help: "AIS position reports consumed from the broker",
		},
		[]string{"result"}, // result: accepted, invalid
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Audit sink
	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Audit events discarded because the buffer was full",
		},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordFeedSample records the outcome of one adapter tick.
func RecordFeedSample(adapter, result string) {
	FeedSamples.WithLabelValues(adapter, result).Inc()
}

// SetFeedAdapterRunning flips the running gauge for adapter.
func SetFeedAdapterRunning(adapter string, running bool) {
	v := 0.0
	if running {
		v = 1
	}
	FeedAdapterRunning.WithLabelValues(adapter).Set(v)
}
