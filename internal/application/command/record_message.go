package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/community"
	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// RecordMessageCommand carries one observed text message.
type RecordMessageCommand struct {
	// Community is the community the message was sent in.
	Community shared.CommunityID

	// User is the message author.
	User shared.UserID

	// Channel is where the message was sent.
	Channel shared.ChannelID

	// DisplayName is the author's current display name, used when the
	// membership record has to be provisioned on the fly.
	DisplayName string

	// At is the message timestamp (defaults to now if zero).
	At time.Time
}

// Validate validates the command.
func (c RecordMessageCommand) Validate() error {
	if !c.Community.IsValid() || !c.User.IsValid() || !c.Channel.IsValid() {
		return shared.NewDomainError("accrual", "RecordMessage", shared.ErrInvalidInput,
			"community, user and channel ids must be positive")
	}
	return nil
}

// RecordMessageResult describes what the message accrued.
type RecordMessageResult struct {
	// Ignored is true when the event was a no-op: unconfigured community or
	// untracked channel.
	Ignored bool

	// Granted is the XP granted for this message (zero inside cooldown).
	Granted shared.XP

	// TotalXP is the member's cumulative XP after the grant.
	TotalXP shared.XP

	// MessageCount is the member's message count after the event.
	MessageCount int64

	// RoleDelta is the rank convergence that was planned.
	RoleDelta community.RoleDelta

	// RoleErr reports a failed role mutation. Non-fatal: the persisted XP
	// stands and RefreshRanks heals the divergence.
	RoleErr error
}

// RecordMessageHandler applies text-message accrual.
type RecordMessageHandler struct {
	cache    *cache.ActivityCache
	members  member.Repository
	assigner *RankAssigner
	bus      shared.EventPublisher
	logger   *slog.Logger
	loc      *time.Location
}

// NewRecordMessageHandler creates a RecordMessageHandler.
func NewRecordMessageHandler(
	activityCache *cache.ActivityCache,
	members member.Repository,
	assigner *RankAssigner,
	bus shared.EventPublisher,
	logger *slog.Logger,
	loc *time.Location,
) *RecordMessageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RecordMessageHandler{
		cache:    activityCache,
		members:  members,
		assigner: assigner,
		bus:      bus,
		logger:   logger,
		loc:      loc,
	}
}

// Handle executes the command. The whole read-modify-write runs inside the
// community's critical section so two rapid messages can never both read the
// pre-update XP. On a store failure the grant is dropped and the error
// surfaced; nothing is retried here.
func (h *RecordMessageHandler) Handle(ctx context.Context, cmd RecordMessageCommand) (*RecordMessageResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	at := cmd.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	cc, ok := h.cache.Get(cmd.Community)
	if !ok {
		// Unconfigured community: the event is a no-op, never a crash.
		return &RecordMessageResult{Ignored: true}, nil
	}

	result := &RecordMessageResult{}
	err := cc.Serialize(func(v cache.View) error {
		if !v.Config.TracksText(cmd.Channel) {
			result.Ignored = true
			return nil
		}

		m, err := h.members.Get(ctx, cmd.Community, cmd.User)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			m = member.New(cmd.Community, cmd.User, cmd.DisplayName)
			if err := h.members.Upsert(ctx, m); err != nil {
				return shared.WrapError("accrual", "RecordMessage", shared.ErrStoreUnavailable,
					"provision member", err)
			}
		case err != nil:
			return shared.WrapError("accrual", "RecordMessage", shared.ErrStoreUnavailable,
				"read member", err)
		}

		granted := m.ApplyMessage(v.Config.Text, at, h.loc)
		if err := h.members.Update(ctx, m); err != nil {
			return shared.WrapError("accrual", "RecordMessage", shared.ErrStoreUnavailable,
				"persist accrual", err)
		}

		result.Granted = granted
		result.TotalXP = m.XP
		result.MessageCount = m.MessageCount

		if granted > 0 {
			_ = h.bus.Publish(ctx, shared.NewXPGrantedEvent(
				cmd.Community, cmd.User, granted, m.XP, shared.SourceMessage, at))
		}

		delta, roleErr := h.assigner.Apply(ctx, v.Config, cmd.User, m.XP, at)
		result.RoleDelta = delta
		result.RoleErr = roleErr
		if roleErr != nil {
			h.logger.Warn("rank convergence failed after message accrual",
				"community_id", cmd.Community, "user_id", cmd.User, "error", roleErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
