package eventhandler

import (
	"context"
	"log/slog"

	"github.com/guild-hub/guild-activity-hub/internal/application/query"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// OnXPGranted returns the handler for accrual.xp_granted: it counts the
// grant and drops the community's cached leaderboard so the next read
// re-ranks. lbCache and metrics may each be nil.
func OnXPGranted(lbCache query.LeaderboardCache, metrics *Metrics, logger *slog.Logger) shared.EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, event shared.Event) error {
		granted, ok := event.(shared.XPGrantedEvent)
		if !ok {
			return nil
		}

		if metrics != nil {
			metrics.xpGranted.WithLabelValues(string(granted.Source)).Add(float64(granted.Amount))
		}

		if lbCache != nil {
			if err := lbCache.Invalidate(ctx, granted.Community); err != nil {
				// Stale-until-TTL is acceptable; the cache is advisory.
				logger.Warn("leaderboard invalidation failed",
					"community_id", granted.Community, "error", err)
			}
		}
		return nil
	}
}
