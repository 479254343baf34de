// Package metrics holds the Prometheus collectors of the sync client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jta_control"

// Metrics groups every collector the client updates.
type Metrics struct {
	// ConnectionState is 0 disconnected, 1 connecting, 2 connected.
	ConnectionState prometheus.Gauge
	// ConnectAttempts counts dials started.
	ConnectAttempts prometheus.Counter
	// Reconnects counts scheduled retries by cause (close, error).
	Reconnects *prometheus.CounterVec
	// FramesReceived counts inbound frames by kind (text, binary).
	FramesReceived *prometheus.CounterVec
	// FramesSent counts envelopes written to the socket.
	FramesSent prometheus.Counter
	// SendsDropped counts outbound envelopes that were not written, by reason.
	SendsDropped *prometheus.CounterVec
	// MessagesDispatched counts routed inbound messages by tag.
	MessagesDispatched *prometheus.CounterVec
	// WindServerLive is 1 while the wind server liveness signal is fresh.
	WindServerLive prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests and embedded users want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ConnectionState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Upstream connection state (0 disconnected, 1 connecting, 2 connected)",
		}),
		ConnectAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Total upstream dials started",
		}),
		Reconnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Total reconnects scheduled by cause",
		}, []string{"cause"}),
		FramesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total inbound frames by kind",
		}, []string{"kind"}),
		FramesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Total envelopes written upstream",
		}),
		SendsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_dropped_total",
			Help:      "Total outbound envelopes dropped by reason",
		}, []string{"reason"}),
		MessagesDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dispatched_total",
			Help:      "Total inbound messages routed by tag",
		}, []string{"tag"}),
		WindServerLive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wind_server_live",
			Help:      "Whether the wind server polling signal is fresh",
		}),
	}
}
