package query

import (
	"context"
	"errors"
	"log/slog"

	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// DefaultLeaderboardDepth is how many entries a cached leaderboard holds.
const DefaultLeaderboardDepth = 100

// Entry is one row of a community leaderboard.
type Entry struct {
	// User is the member's platform ID.
	User shared.UserID `json:"user_id"`

	// DisplayName is the member's display name.
	DisplayName string `json:"display_name"`

	// XP is the cumulative experience-point total.
	XP shared.XP `json:"xp"`

	// Rank is the 1-based position.
	Rank int `json:"rank"`
}

// LeaderboardCache is the optional read-through cache for leaderboard pages.
// A miss is signalled with shared.ErrNotFound.
type LeaderboardCache interface {
	Get(ctx context.Context, communityID shared.CommunityID, limit int) ([]Entry, error)
	Set(ctx context.Context, communityID shared.CommunityID, entries []Entry) error
	Invalidate(ctx context.Context, communityID shared.CommunityID) error
}

// LeaderboardHandler serves top-N-by-XP, read-through from the cache when
// one is configured and falling back to the store when it is cold or down.
type LeaderboardHandler struct {
	members member.Repository
	lbCache LeaderboardCache // nil when Redis is disabled
	depth   int
	logger  *slog.Logger
}

// NewLeaderboardHandler creates a LeaderboardHandler. lbCache may be nil.
func NewLeaderboardHandler(members member.Repository, lbCache LeaderboardCache, depth int, logger *slog.Logger) *LeaderboardHandler {
	if depth <= 0 {
		depth = DefaultLeaderboardDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardHandler{members: members, lbCache: lbCache, depth: depth, logger: logger}
}

// Handle returns up to limit leaderboard entries.
func (h *LeaderboardHandler) Handle(ctx context.Context, communityID shared.CommunityID, limit int) ([]Entry, error) {
	if !communityID.IsValid() {
		return nil, shared.NewDomainError("leaderboard", "Get", shared.ErrInvalidInput,
			"community id must be positive")
	}
	if limit <= 0 || limit > h.depth {
		limit = h.depth
	}

	if h.lbCache != nil {
		entries, err := h.lbCache.Get(ctx, communityID, limit)
		if err == nil {
			return entries, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			// A sick cache must not take the leaderboard down with it.
			h.logger.Warn("leaderboard cache read failed", "community_id", communityID, "error", err)
		}
	}

	top, err := h.members.TopByXP(ctx, communityID, h.depth)
	if err != nil {
		return nil, shared.WrapError("leaderboard", "Get", shared.ErrStoreUnavailable,
			"read top members", err)
	}

	entries := make([]Entry, 0, len(top))
	for i, m := range top {
		entries = append(entries, Entry{
			User:        m.User,
			DisplayName: m.DisplayName,
			XP:          m.XP,
			Rank:        i + 1,
		})
	}

	if h.lbCache != nil {
		if err := h.lbCache.Set(ctx, communityID, entries); err != nil {
			h.logger.Warn("leaderboard cache write failed", "community_id", communityID, "error", err)
		}
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
