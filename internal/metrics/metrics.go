// Package metrics holds the Prometheus collectors for the sync core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpenConnections counts currently registered transport connections.
	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "syncstream",
		Name:      "open_connections",
		Help:      "Number of registered WebSocket connections.",
	})

	// Sessions counts sessions held in the in-memory store.
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "syncstream",
		Name:      "sessions",
		Help:      "Number of sessions in the store.",
	})

	// InboundMessages counts inbound protocol messages by type.
	InboundMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "syncstream",
		Name:      "inbound_messages_total",
		Help:      "Inbound protocol messages by type.",
	}, []string{"type"})

	// Broadcasts counts fan-out operations.
	Broadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncstream",
		Name:      "broadcasts_total",
		Help:      "Broadcast fan-out operations.",
	})

	// DroppedMessages counts malformed inbound messages that were dropped.
	DroppedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncstream",
		Name:      "dropped_messages_total",
		Help:      "Malformed inbound messages dropped.",
	})
)
