// Package command contains the write-side handlers (CQRS commands): activity
// accrual, session draining, rank convergence, and administrative overrides.
package command

import (
	"log/slog"
	"time"

	"context"

	"github.com/guild-hub/guild-activity-hub/internal/domain/community"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// RankAssigner converges a member's platform roles to the ladder tier for
// their current XP. It is idempotent: reapplying with unchanged XP performs
// no mutation, which makes it the healing path after a partial failure.
type RankAssigner struct {
	roles  community.RoleService
	bus    shared.EventPublisher
	logger *slog.Logger
}

// NewRankAssigner creates a RankAssigner.
func NewRankAssigner(roles community.RoleService, bus shared.EventPublisher, logger *slog.Logger) *RankAssigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &RankAssigner{roles: roles, bus: bus, logger: logger}
}

// Apply looks up the member's held roles, plans the convergence delta, and
// executes it through the role service. The returned delta reflects what was
// planned; a non-nil error means some part of the mutation did not land.
// Already-persisted XP is never rolled back on failure - RefreshRanks heals
// the divergence later.
func (a *RankAssigner) Apply(ctx context.Context, cfg *community.Config, userID shared.UserID, xp shared.XP, at time.Time) (community.RoleDelta, error) {
	if len(cfg.Ladder) == 0 {
		return community.RoleDelta{}, nil
	}

	held, err := a.roles.MemberRoles(ctx, cfg.ID, userID)
	if err != nil {
		return community.RoleDelta{}, shared.WrapError("rank", "Apply", shared.ErrRoleMutation,
			"could not read held roles", err)
	}

	delta, err := cfg.Ladder.PlanConvergence(xp, held)
	if err != nil {
		return community.RoleDelta{}, err
	}
	if delta.Empty() {
		return delta, nil
	}

	for _, role := range delta.Remove {
		if err := a.roles.RemoveRole(ctx, cfg.ID, userID, role); err != nil {
			return delta, shared.WrapError("rank", "Apply", shared.ErrRoleMutation,
				"remove role", err)
		}
	}
	for _, role := range delta.Add {
		if err := a.roles.AddRole(ctx, cfg.ID, userID, role); err != nil {
			return delta, shared.WrapError("rank", "Apply", shared.ErrRoleMutation,
				"add role", err)
		}
	}

	if len(delta.Add) > 0 {
		_ = a.bus.Publish(ctx, shared.NewRankChangedEvent(cfg.ID, userID, delta.Add[0], delta.Remove, at))
	}
	return delta, nil
}
