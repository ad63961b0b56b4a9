package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// RefreshRanksCommand re-runs rank convergence for every known member of a
// community. This is the idempotent healing operation for XP/role divergence
// left behind by failed role mutations or manual role edits.
type RefreshRanksCommand struct {
	Community shared.CommunityID
}

// RefreshRanksResult summarizes the healing pass.
type RefreshRanksResult struct {
	// Processed is the number of members examined.
	Processed int

	// Changed is the number of members whose roles were mutated.
	Changed int

	// Failed is the number of members whose convergence failed; the pass
	// continues past individual failures.
	Failed int
}

// RefreshRanksHandler handles RefreshRanksCommand.
type RefreshRanksHandler struct {
	cache    *cache.ActivityCache
	members  member.Repository
	assigner *RankAssigner
	logger   *slog.Logger
}

// NewRefreshRanksHandler creates a RefreshRanksHandler.
func NewRefreshRanksHandler(
	activityCache *cache.ActivityCache,
	members member.Repository,
	assigner *RankAssigner,
	logger *slog.Logger,
) *RefreshRanksHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshRanksHandler{cache: activityCache, members: members, assigner: assigner, logger: logger}
}

// Handle converges every member. The whole pass holds the community's
// critical section: accrual events for this community queue up behind the
// heal instead of racing it.
func (h *RefreshRanksHandler) Handle(ctx context.Context, cmd RefreshRanksCommand) (*RefreshRanksResult, error) {
	if !cmd.Community.IsValid() {
		return nil, shared.NewDomainError("rank", "RefreshRanks", shared.ErrInvalidInput,
			"community id must be positive")
	}

	cc, ok := h.cache.Get(cmd.Community)
	if !ok {
		return nil, shared.NewDomainError("rank", "RefreshRanks", shared.ErrNotFound,
			"community is not configured")
	}

	at := time.Now().UTC()
	result := &RefreshRanksResult{}
	err := cc.Serialize(func(v cache.View) error {
		all, err := h.members.ListByCommunity(ctx, cmd.Community)
		if err != nil {
			return shared.WrapError("rank", "RefreshRanks", shared.ErrStoreUnavailable,
				"list members", err)
		}

		for _, m := range all {
			result.Processed++
			delta, err := h.assigner.Apply(ctx, v.Config, m.User, m.XP, at)
			if err != nil {
				result.Failed++
				h.logger.Warn("rank refresh failed for member",
					"community_id", cmd.Community, "user_id", m.User, "error", err)
				continue
			}
			if !delta.Empty() {
				result.Changed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
