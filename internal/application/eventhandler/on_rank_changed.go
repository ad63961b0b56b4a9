package eventhandler

import (
	"context"
	"log/slog"

	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// OnRankChanged returns the handler for accrual.rank_changed: an audit log
// line plus a counter. Rank changes are rare enough that operators want each
// one visible.
func OnRankChanged(metrics *Metrics, logger *slog.Logger) shared.EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, event shared.Event) error {
		changed, ok := event.(shared.RankChangedEvent)
		if !ok {
			return nil
		}

		if metrics != nil {
			metrics.rankChanges.Inc()
		}
		logger.Info("rank changed",
			"community_id", changed.Community,
			"user_id", changed.User,
			"role_id", changed.Role,
			"removed", len(changed.Removed),
			"correlation_id", changed.CorrelationID,
		)
		return nil
	}
}
