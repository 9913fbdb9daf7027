// Package metrics exposes Prometheus instruments for the chat subsystem,
// served by the observability endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesPosted counts messages accepted and persisted.
	MessagesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_posted_total",
		Help: "Number of chat messages persisted to the store",
	})

	// PublishFailures counts publishes whose live delivery failed after a
	// successful append. These messages are durable but some live viewers
	// missed them.
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_publish_failures_total",
		Help: "Number of broker publishes that failed after the message was stored",
	})

	// SessionsCreated counts anonymous session bootstraps.
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_sessions_created_total",
		Help: "Number of anonymous sessions created",
	})

	// LiveSubscribers tracks currently open live feed subscriptions.
	LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_live_subscribers",
		Help: "Number of currently open live feed subscriptions",
	})

	// DroppedEvents counts events discarded because a subscriber's buffer
	// was full.
	DroppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_dropped_events_total",
		Help: "Number of live events dropped on slow subscribers",
	})
)
