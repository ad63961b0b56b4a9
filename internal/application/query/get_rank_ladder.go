// Package query contains the read-side handlers (CQRS queries): ladder,
// leaderboard, and per-member stats lookups.
package query

import (
	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/community"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// RankLadderHandler serves the live rank ladder of a community.
type RankLadderHandler struct {
	cache *cache.ActivityCache
}

// NewRankLadderHandler creates a RankLadderHandler.
func NewRankLadderHandler(activityCache *cache.ActivityCache) *RankLadderHandler {
	return &RankLadderHandler{cache: activityCache}
}

// Handle returns a copy of the community's current ladder. Reads go through
// the ActivityCache so a configuration upsert is visible to the very next
// lookup.
func (h *RankLadderHandler) Handle(communityID shared.CommunityID) (community.Ladder, error) {
	cc, ok := h.cache.Get(communityID)
	if !ok {
		return nil, shared.NewDomainError("community", "GetRankLadder", shared.ErrNotFound,
			"community is not configured")
	}

	var ladder community.Ladder
	_ = cc.Serialize(func(v cache.View) error {
		ladder = append(community.Ladder(nil), v.Config.Ladder...)
		return nil
	})
	return ladder, nil
}
