package eventhandler

import (
	"context"
	"log/slog"

	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// OnSessionClosed returns the handler for session.closed: uptime counters
// and a debug log line.
func OnSessionClosed(metrics *Metrics, logger *slog.Logger) shared.EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, event shared.Event) error {
		closed, ok := event.(shared.SessionClosedEvent)
		if !ok {
			return nil
		}

		if metrics != nil {
			metrics.sessionsClosed.Inc()
			metrics.sessionMinutes.Add(float64(closed.Minutes))
		}
		logger.Debug("session closed",
			"community_id", closed.Community,
			"user_id", closed.User,
			"minutes", closed.Minutes,
			"granted", closed.Granted,
		)
		return nil
	}
}
