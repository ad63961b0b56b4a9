package messaging

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// Metrics instruments the event bus with prometheus counters.
type Metrics struct {
	published     *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec
}

// NewMetrics creates and registers the event-bus counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guildhub",
			Subsystem: "eventbus",
			Name:      "events_published_total",
			Help:      "Domain events published, by event type.",
		}, []string{"event_type"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guildhub",
			Subsystem: "eventbus",
			Name:      "handler_errors_total",
			Help:      "Event handler failures, by event type.",
		}, []string{"event_type"}),
	}
	reg.MustRegister(m.published, m.handlerErrors)
	return m
}

// Published counts one published event.
func (m *Metrics) Published(t shared.EventType) {
	m.published.WithLabelValues(string(t)).Inc()
}

// HandlerError counts one failed handler invocation.
func (m *Metrics) HandlerError(t shared.EventType) {
	m.handlerErrors.WithLabelValues(string(t)).Inc()
}
