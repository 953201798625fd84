// ABOUTME: Prometheus collectors for message flow and connection health
// ABOUTME: Registered via promauto; exposed on /metrics by the HTTP server

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesPersisted counts messages accepted by the pipeline, by type.
	MessagesPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnichat_messages_persisted_total",
		Help: "Messages persisted by the pipeline, labeled by message type.",
	}, []string{"type"})

	// EventsDelivered counts events handed to a connection's send queue.
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omnichat_events_delivered_total",
		Help: "Events delivered to connection send queues.",
	})

	// EventsDropped counts events dropped because a connection could not
	// accept them (closed transport or full send queue).
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omnichat_events_dropped_total",
		Help: "Events dropped for unreachable or slow connections.",
	})

	// ActiveConnections tracks currently open websocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "omnichat_active_connections",
		Help: "Currently open websocket connections.",
	})

	// AIRequests counts AI generation calls by outcome (ok or error).
	AIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnichat_ai_requests_total",
		Help: "AI generation requests, labeled by outcome.",
	}, []string{"outcome"})
)
