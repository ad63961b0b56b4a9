package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/community"
	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// SetXPOverrideCommand writes a member's XP directly, bypassing all cooldown
// and curve math. Administrative path; failures are surfaced, never silent.
type SetXPOverrideCommand struct {
	Community shared.CommunityID
	User      shared.UserID
	XP        shared.XP
}

// Validate validates the command.
func (c SetXPOverrideCommand) Validate() error {
	if !c.Community.IsValid() || !c.User.IsValid() {
		return shared.NewDomainError("accrual", "SetXPOverride", shared.ErrInvalidInput,
			"community and user ids must be positive")
	}
	if !c.XP.IsValid() {
		return shared.NewDomainError("accrual", "SetXPOverride", shared.ErrNegativeValue,
			"xp cannot be negative")
	}
	return nil
}

// SetXPOverrideResult describes the override outcome.
type SetXPOverrideResult struct {
	// TotalXP is the written total.
	TotalXP shared.XP

	// RoleDelta and RoleErr mirror the accrual handlers.
	RoleDelta community.RoleDelta
	RoleErr   error
}

// SetXPOverrideHandler handles the administrative XP overwrite.
type SetXPOverrideHandler struct {
	cache    *cache.ActivityCache
	members  member.Repository
	assigner *RankAssigner
	bus      shared.EventPublisher
	logger   *slog.Logger
}

// NewSetXPOverrideHandler creates a SetXPOverrideHandler.
func NewSetXPOverrideHandler(
	activityCache *cache.ActivityCache,
	members member.Repository,
	assigner *RankAssigner,
	bus shared.EventPublisher,
	logger *slog.Logger,
) *SetXPOverrideHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SetXPOverrideHandler{
		cache:    activityCache,
		members:  members,
		assigner: assigner,
		bus:      bus,
		logger:   logger,
	}
}

// Handle executes the override and still runs rank convergence afterwards.
// Unknown community or member is a surfaced failure here, not a no-op - the
// operator asked for an explicit write.
func (h *SetXPOverrideHandler) Handle(ctx context.Context, cmd SetXPOverrideCommand) (*SetXPOverrideResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	at := time.Now().UTC()

	cc, ok := h.cache.Get(cmd.Community)
	if !ok {
		return nil, shared.NewDomainError("accrual", "SetXPOverride", shared.ErrNotFound,
			"community is not configured")
	}

	result := &SetXPOverrideResult{}
	err := cc.Serialize(func(v cache.View) error {
		m, err := h.members.Get(ctx, cmd.Community, cmd.User)
		if err != nil {
			return shared.WrapError("accrual", "SetXPOverride", shared.ErrStoreUnavailable,
				"read member", err)
		}

		previous := m.XP
		if err := m.SetXP(cmd.XP); err != nil {
			return err
		}
		if err := h.members.Update(ctx, m); err != nil {
			return shared.WrapError("accrual", "SetXPOverride", shared.ErrStoreUnavailable,
				"persist override", err)
		}

		result.TotalXP = m.XP
		_ = h.bus.Publish(ctx, shared.NewXPGrantedEvent(
			cmd.Community, cmd.User, m.XP-previous, m.XP, shared.SourceOverride, at))

		delta, roleErr := h.assigner.Apply(ctx, v.Config, cmd.User, m.XP, at)
		result.RoleDelta = delta
		result.RoleErr = roleErr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
