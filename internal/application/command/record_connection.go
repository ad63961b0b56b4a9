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

// RecordConnectionCommand carries one connection-state change: the user moved
// from channel From to channel To. Zero means "not connected" on that side.
type RecordConnectionCommand struct {
	Community shared.CommunityID
	User      shared.UserID

	// From is the previous location (0 when the user was not connected).
	From shared.ChannelID

	// To is the new location (0 when the user disconnected).
	To shared.ChannelID

	// DisplayName is used when the membership record has to be provisioned.
	DisplayName string

	// At is the transition timestamp (defaults to now if zero).
	At time.Time
}

// Validate validates the command.
func (c RecordConnectionCommand) Validate() error {
	if !c.Community.IsValid() || !c.User.IsValid() {
		return shared.NewDomainError("session", "RecordConnection", shared.ErrInvalidInput,
			"community and user ids must be positive")
	}
	if c.From == 0 && c.To == 0 {
		return shared.NewDomainError("session", "RecordConnection", shared.ErrInvalidInput,
			"transition has neither a previous nor a new location")
	}
	return nil
}

// RecordConnectionResult describes the session transition that happened.
type RecordConnectionResult struct {
	// Ignored is true when the event was a no-op.
	Ignored bool

	// SessionStarted is true when a new session was created.
	SessionStarted bool

	// SessionClosed is true when a live session was drained.
	SessionClosed bool

	// Minutes is the whole-minute uptime of the closed session.
	Minutes int64

	// Granted is the voice XP granted for the closed session.
	Granted shared.XP

	// TotalXP is the member's cumulative XP after the grant.
	TotalXP shared.XP

	// RoleDelta and RoleErr mirror RecordMessageResult semantics.
	RoleDelta community.RoleDelta
	RoleErr   error
}

// RecordConnectionHandler tracks voice sessions and applies voice accrual
// when a session closes.
type RecordConnectionHandler struct {
	cache    *cache.ActivityCache
	members  member.Repository
	assigner *RankAssigner
	bus      shared.EventPublisher
	logger   *slog.Logger
}

// NewRecordConnectionHandler creates a RecordConnectionHandler.
func NewRecordConnectionHandler(
	activityCache *cache.ActivityCache,
	members member.Repository,
	assigner *RankAssigner,
	bus shared.EventPublisher,
	logger *slog.Logger,
) *RecordConnectionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordConnectionHandler{
		cache:    activityCache,
		members:  members,
		assigner: assigner,
		bus:      bus,
		logger:   logger,
	}
}

// Handle executes the command. Only transitions into or out of the
// community's tracked voice set start or stop sessions; moving between two
// tracked channels keeps the session running - uptime measures presence, not
// channel affinity. A duplicate connection-start is a no-op.
func (h *RecordConnectionHandler) Handle(ctx context.Context, cmd RecordConnectionCommand) (*RecordConnectionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	at := cmd.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	cc, ok := h.cache.Get(cmd.Community)
	if !ok {
		return &RecordConnectionResult{Ignored: true}, nil
	}

	result := &RecordConnectionResult{}
	err := cc.Serialize(func(v cache.View) error {
		wasTracked := cmd.From.IsValid() && v.Config.TracksVoice(cmd.From)
		isTracked := cmd.To.IsValid() && v.Config.TracksVoice(cmd.To)

		switch {
		case isTracked && !wasTracked:
			result.SessionStarted = v.StartSession(cmd.User, at)
			if !result.SessionStarted {
				// Duplicate start event from the platform; the live
				// session keeps its original connect time.
				result.Ignored = true
				return nil
			}
			_ = h.bus.Publish(ctx, shared.NewSessionStartedEvent(cmd.Community, cmd.User, cmd.To, at))
			return nil

		case wasTracked && !isTracked:
			minutes, live := v.CloseSession(cmd.User, at)
			if !live {
				result.Ignored = true
				return nil
			}
			result.SessionClosed = true
			result.Minutes = minutes
			return h.creditSession(ctx, v, cmd, minutes, at, result)

		default:
			// Tracked-to-tracked keeps the session; untracked moves are
			// not activity.
			result.Ignored = true
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *RecordConnectionHandler) creditSession(
	ctx context.Context,
	v cache.View,
	cmd RecordConnectionCommand,
	minutes int64,
	at time.Time,
	result *RecordConnectionResult,
) error {
	m, err := h.members.Get(ctx, cmd.Community, cmd.User)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		m = member.New(cmd.Community, cmd.User, cmd.DisplayName)
		if err := h.members.Upsert(ctx, m); err != nil {
			return shared.WrapError("session", "RecordConnection", shared.ErrStoreUnavailable,
				"provision member", err)
		}
	case err != nil:
		return shared.WrapError("session", "RecordConnection", shared.ErrStoreUnavailable,
			"read member", err)
	}

	granted := m.ApplyVoice(minutes, v.Config.VoiceRatePerMinute)
	if err := h.members.Update(ctx, m); err != nil {
		return shared.WrapError("session", "RecordConnection", shared.ErrStoreUnavailable,
			"persist session uptime", err)
	}

	result.Granted = granted
	result.TotalXP = m.XP

	_ = h.bus.Publish(ctx, shared.NewSessionClosedEvent(cmd.Community, cmd.User, minutes, granted, at))
	if granted > 0 {
		_ = h.bus.Publish(ctx, shared.NewXPGrantedEvent(
			cmd.Community, cmd.User, granted, m.XP, shared.SourceVoice, at))
	}

	delta, roleErr := h.assigner.Apply(ctx, v.Config, cmd.User, m.XP, at)
	result.RoleDelta = delta
	result.RoleErr = roleErr
	if roleErr != nil {
		h.logger.Warn("rank convergence failed after session close",
			"community_id", cmd.Community, "user_id", cmd.User, "error", roleErr)
	}
	return nil
}
