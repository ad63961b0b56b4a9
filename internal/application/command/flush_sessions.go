package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// FlushSessionsResult summarizes a drain pass.
type FlushSessionsResult struct {
	// Flushed is the number of sessions drained and persisted.
	Flushed int

	// Failed is the number of sessions whose persistence failed. Their
	// partial uptime is lost; the drain keeps going regardless.
	Failed int
}

// FlushSessionsHandler drains every live session across every community.
// This is the mandatory shutdown step: without it, partial voice sessions
// would be lost across restarts. Role convergence is deliberately skipped
// here - platform calls during shutdown are unreliable, and RefreshRanks
// heals any divergence after the next start.
type FlushSessionsHandler struct {
	cache   *cache.ActivityCache
	members member.Repository
	bus     shared.EventPublisher
	logger  *slog.Logger
}

// NewFlushSessionsHandler creates a FlushSessionsHandler.
func NewFlushSessionsHandler(
	activityCache *cache.ActivityCache,
	members member.Repository,
	bus shared.EventPublisher,
	logger *slog.Logger,
) *FlushSessionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlushSessionsHandler{cache: activityCache, members: members, bus: bus, logger: logger}
}

// Handle closes all live sessions using at as the shared end time, grants
// voice XP, and persists uptime. Each session is granted exactly once: the
// session entry is deleted before persistence is attempted, so a subsequent
// restart's recovery scan starts fresh instead of double-counting.
func (h *FlushSessionsHandler) Handle(ctx context.Context, at time.Time) *FlushSessionsResult {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	result := &FlushSessionsResult{}
	h.cache.Each(func(id shared.CommunityID, cc *cache.CachedCommunity) {
		_ = cc.Serialize(func(v cache.View) error {
			for _, s := range v.LiveSessions() {
				minutes, live := v.CloseSession(s.User, at)
				if !live {
					continue
				}
				if err := h.credit(ctx, v, id, s.User, minutes, at); err != nil {
					result.Failed++
					h.logger.Error("session flush failed",
						"community_id", id, "user_id", s.User, "minutes", minutes, "error", err)
					continue
				}
				result.Flushed++
			}
			return nil
		})
	})

	h.logger.Info("session flush complete", "flushed", result.Flushed, "failed", result.Failed)
	return result
}

func (h *FlushSessionsHandler) credit(
	ctx context.Context,
	v cache.View,
	communityID shared.CommunityID,
	userID shared.UserID,
	minutes int64,
	at time.Time,
) error {
	m, err := h.members.Get(ctx, communityID, userID)
	if errors.Is(err, shared.ErrNotFound) {
		m = member.New(communityID, userID, "")
		if err := h.members.Upsert(ctx, m); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	granted := m.ApplyVoice(minutes, v.Config.VoiceRatePerMinute)
	if err := h.members.Update(ctx, m); err != nil {
		return err
	}

	_ = h.bus.Publish(ctx, shared.NewSessionClosedEvent(communityID, userID, minutes, granted, at))
	if granted > 0 {
		_ = h.bus.Publish(ctx, shared.NewXPGrantedEvent(
			communityID, userID, granted, m.XP, shared.SourceVoice, at))
	}
	return nil
}
