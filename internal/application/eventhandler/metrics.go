// Package eventhandler contains the subscribers wired onto the event bus:
// leaderboard-cache invalidation, rank audit logging, and accrual metrics.
package eventhandler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the accrual-side prometheus instruments.
type Metrics struct {
	xpGranted      *prometheus.CounterVec
	rankChanges    prometheus.Counter
	sessionsClosed prometheus.Counter
	sessionMinutes prometheus.Counter
}

// NewMetrics creates and registers the accrual counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		xpGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guildhub",
			Subsystem: "accrual",
			Name:      "xp_granted_total",
			Help:      "XP granted, by activity source.",
		}, []string{"source"}),
		rankChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guildhub",
			Subsystem: "accrual",
			Name:      "rank_changes_total",
			Help:      "Ladder tier changes applied.",
		}),
		sessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guildhub",
			Subsystem: "sessions",
			Name:      "closed_total",
			Help:      "Voice sessions drained.",
		}),
		sessionMinutes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guildhub",
			Subsystem: "sessions",
			Name:      "minutes_total",
			Help:      "Whole-minute voice uptime credited.",
		}),
	}
	reg.MustRegister(m.xpGranted, m.rankChanges, m.sessionsClosed, m.sessionMinutes)
	return m
}
