package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/community"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// ProvisionCommunityHandler reacts to the bot joining or leaving a community:
// on join a configuration row with default rates is created and cached, on
// leave everything is deleted and evicted.
type ProvisionCommunityHandler struct {
	cache       *cache.ActivityCache
	communities community.Repository
	bus         shared.EventPublisher
	logger      *slog.Logger
}

// NewProvisionCommunityHandler creates a ProvisionCommunityHandler.
func NewProvisionCommunityHandler(
	activityCache *cache.ActivityCache,
	communities community.Repository,
	bus shared.EventPublisher,
	logger *slog.Logger,
) *ProvisionCommunityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProvisionCommunityHandler{
		cache:       activityCache,
		communities: communities,
		bus:         bus,
		logger:      logger,
	}
}

// Join provisions the community. Rejoining a community whose rows survived
// an earlier leave reuses the stored configuration instead of resetting it.
func (h *ProvisionCommunityHandler) Join(ctx context.Context, id shared.CommunityID, name string) error {
	if !id.IsValid() {
		return shared.NewDomainError("community", "Join", shared.ErrInvalidInput,
			"community id must be positive")
	}

	cfg := community.DefaultConfig(id, name)
	err := h.communities.Create(ctx, cfg)
	switch {
	case errors.Is(err, shared.ErrAlreadyExists):
		existing, err := h.communities.GetConfig(ctx, id)
		if err != nil {
			return shared.WrapError("community", "Join", shared.ErrStoreUnavailable,
				"read surviving configuration", err)
		}
		cfg = existing
	case err != nil:
		return shared.WrapError("community", "Join", shared.ErrStoreUnavailable,
			"provision community", err)
	}

	h.cache.Upsert(cfg)
	_ = h.bus.Publish(ctx, shared.NewCommunityAddedEvent(id, time.Now().UTC()))
	h.logger.Info("community provisioned", "community_id", id, "name", name)
	return nil
}

// Leave deletes the community's rows and evicts it - sessions included -
// from the cache.
func (h *ProvisionCommunityHandler) Leave(ctx context.Context, id shared.CommunityID) error {
	if !id.IsValid() {
		return shared.NewDomainError("community", "Leave", shared.ErrInvalidInput,
			"community id must be positive")
	}

	if err := h.communities.Delete(ctx, id); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return shared.WrapError("community", "Leave", shared.ErrStoreUnavailable,
			"delete community", err)
	}

	h.cache.Remove(id)
	_ = h.bus.Publish(ctx, shared.NewCommunityRemovedEvent(id, time.Now().UTC()))
	h.logger.Info("community removed", "community_id", id)
	return nil
}

// UpdateConfig validates and persists a mutated configuration, then upserts
// the cache so the very next read observes it. Invalid ladders never reach
// either the store or the cache.
func (h *ProvisionCommunityHandler) UpdateConfig(ctx context.Context, cfg *community.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := h.communities.WriteConfig(ctx, cfg); err != nil {
		return shared.WrapError("community", "UpdateConfig", shared.ErrStoreUnavailable,
			"persist configuration", err)
	}
	h.cache.Upsert(cfg)
	return nil
}
