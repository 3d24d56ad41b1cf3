// Package metrics exposes the server's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upbartr_messages_sent_total",
		Help: "Messages persisted via the conversation API.",
	})

	ConversationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upbartr_conversations_created_total",
		Help: "Conversations created lazily on first message.",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "upbartr_ws_connections",
		Help: "Currently open WebSocket connections.",
	})

	WSEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upbartr_ws_events_total",
		Help: "Client events handled by the WebSocket hub.",
	}, []string{"type"})
)
