// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSRoomSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_room_subscriptions",
			Help: "Current number of client-to-room subscriptions",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Watch Room Metrics
	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchroom_rooms_created_total",
			Help: "Total number of watch rooms created",
		},
	)

	RoomsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchroom_rooms_closed_total",
			Help: "Total number of watch rooms closed",
		},
	)

	ChatMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchroom_chat_messages_total",
			Help: "Total number of chat messages stored",
		},
	)

	PlaybackUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchroom_playback_updates_total",
			Help: "Total number of playback state updates",
		},
	)

	// Room Event Metrics
	RoomEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_events_published_total",
			Help: "Total number of watch room events published",
		},
		[]string{"event_type", "result"},
	)

	RoomEventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_events_consumed_total",
			Help: "Total number of watch room events delivered to the hub",
		},
		[]string{"event_type"},
	)

	// TMDB Proxy Metrics
	TMDBRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_requests_total",
			Help: "Total number of upstream TMDB requests",
		},
		[]string{"status"},
	)

	TMDBRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tmdb_request_duration_seconds",
			Help:    "Upstream TMDB request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	// Circuit Breaker Metrics
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
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Authorization Metrics
	AuthzDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"role", "object", "action", "decision"},
	)

	// Session Metrics
	SessionsCleanedUp = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_expired_cleaned_total",
			Help: "Total number of expired sessions removed",
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit counts a 429 for endpoint.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordAuthzDecision counts a guard outcome.
func RecordAuthzDecision(role, object, action, decision string) {
	AuthzDecisionsTotal.WithLabelValues(role, object, action, decision).Inc()
}

// RecordCacheLookup counts a hit or miss for cacheType.
func RecordCacheLookup(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		CacheMisses.WithLabelValues(cacheType).Inc()
	}
}

// RecordTMDBRequest records one upstream call. status is the HTTP status
// code, or "error" when the request failed before a response.
func RecordTMDBRequest(status string, duration time.Duration) {
	TMDBRequestsTotal.WithLabelValues(status).Inc()
	TMDBRequestDuration.Observe(duration.Seconds())
}

// RecordRoomEventPublished counts a publish attempt.
func RecordRoomEventPublished(eventType string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	RoomEventsPublished.WithLabelValues(eventType, result).Inc()
}

// RecordRoomEventConsumed counts an event handed to the hub.
func RecordRoomEventConsumed(eventType string) {
	RoomEventsConsumed.WithLabelValues(eventType).Inc()
}

// RecordCircuitBreakerTransition updates the state gauge and transition counter.
// States follow gobreaker's String(): "closed", "half-open", "open".
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(circuitStateValue(to))
}

// RecordCircuitBreakerRequest counts a call through breaker name.
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

func circuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// AuditEventsTotal counts audit events by type and write result.
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "audit_events_total",
		Help: "Audit events by type and result (written, dropped, failed)",
	},
	[]string{"type", "result"},
)

// RecordAuditEvent counts one audit event outcome.
func RecordAuditEvent(eventType, result string) {
	AuditEventsTotal.WithLabelValues(eventType, result).Inc()
}
