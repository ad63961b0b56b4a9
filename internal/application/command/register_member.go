package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// RegisterMemberHandler provisions a zeroed activity record when a
// membership is first observed. Joining an unconfigured community is a
// no-op, like every other passive event.
type RegisterMemberHandler struct {
	cache   *cache.ActivityCache
	members member.Repository
	bus     shared.EventPublisher
	logger  *slog.Logger
}

// NewRegisterMemberHandler creates a RegisterMemberHandler.
func NewRegisterMemberHandler(
	activityCache *cache.ActivityCache,
	members member.Repository,
	bus shared.EventPublisher,
	logger *slog.Logger,
) *RegisterMemberHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegisterMemberHandler{cache: activityCache, members: members, bus: bus, logger: logger}
}

// Handle upserts the membership record. An existing record keeps its
// counters; only the display name is refreshed.
func (h *RegisterMemberHandler) Handle(ctx context.Context, communityID shared.CommunityID, userID shared.UserID, displayName string) error {
	if !communityID.IsValid() || !userID.IsValid() {
		return shared.NewDomainError("member", "Register", shared.ErrInvalidInput,
			"community and user ids must be positive")
	}

	if _, ok := h.cache.Get(communityID); !ok {
		return nil
	}

	if err := h.members.Upsert(ctx, member.New(communityID, userID, displayName)); err != nil {
		return shared.WrapError("member", "Register", shared.ErrStoreUnavailable,
			"provision member", err)
	}

	_ = h.bus.Publish(ctx, shared.NewMemberJoinedEvent(communityID, userID, time.Now().UTC()))
	return nil
}
