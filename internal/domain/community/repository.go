package community

import (
	"context"

	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// Repository is the durable store contract for community configuration.
// Implementations must validate configurations before persisting and map
// store-level "no rows" conditions to shared.ErrNotFound.
type Repository interface {
	// Create provisions a new community with the given configuration.
	Create(ctx context.Context, cfg *Config) error

	// Delete removes the community and all its dependent rows (members,
	// roles, channels).
	Delete(ctx context.Context, id shared.CommunityID) error

	// ListIDs returns the IDs of every known community.
	ListIDs(ctx context.Context) ([]shared.CommunityID, error)

	// GetConfig reads the full configuration of one community.
	GetConfig(ctx context.Context, id shared.CommunityID) (*Config, error)

	// WriteConfig persists a full configuration (rates, ladder, channels).
	WriteConfig(ctx context.Context, cfg *Config) error
}
