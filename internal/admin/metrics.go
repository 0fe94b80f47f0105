package admin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks engine-level counters exported via /metrics.
type Metrics struct {
	registry *prometheus.Registry

	Messages           prometheus.Counter
	Replies            prometheus.Counter
	Throttled          prometheus.Counter
	Escalations        prometheus.Counter
	GenerationFailures prometheus.Counter
	SnapshotFailures   prometheus.Counter
}

// NewMetrics creates the counter set on a private registry so tests can
// run multiple instances without collisions.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Messages: factory.NewCounter(prometheus.CounterOpts{
			Name: "porter_messages_total",
			Help: "Inbound chat messages processed.",
		}),
		Replies: factory.NewCounter(prometheus.CounterOpts{
			Name: "porter_replies_total",
			Help: "Replies sent back to the chat platform.",
		}),
		Throttled: factory.NewCounter(prometheus.CounterOpts{
			Name: "porter_throttled_total",
			Help: "Messages dropped by the per-user rate limit.",
		}),
		Escalations: factory.NewCounter(prometheus.CounterOpts{
			Name: "porter_escalations_total",
			Help: "Replies that carried a support-role escalation mention.",
		}),
		GenerationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "porter_generation_failures_total",
			Help: "Generation requests where every provider failed.",
		}),
		SnapshotFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "porter_snapshot_failures_total",
			Help: "Conversation snapshot writes that failed.",
		}),
	}
}

// Registry exposes the private registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
