package community

import (
	"context"

	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// RoleService is the platform capability for reading and mutating a member's
// roles. Each call may fail independently; a failed mutation is reported to
// the caller but never rolls back already-persisted XP.
type RoleService interface {
	// MemberRoles returns the roles the user currently holds in the
	// community.
	MemberRoles(ctx context.Context, communityID shared.CommunityID, userID shared.UserID) ([]shared.RoleID, error)

	// AddRole grants a role to the user.
	AddRole(ctx context.Context, communityID shared.CommunityID, userID shared.UserID, roleID shared.RoleID) error

	// RemoveRole revokes a role from the user.
	RemoveRole(ctx context.Context, communityID shared.CommunityID, userID shared.UserID, roleID shared.RoleID) error
}

// PresenceSource enumerates users currently connected to a voice channel.
// Used by the startup recovery scan to re-seed sessions after a restart.
type PresenceSource interface {
	ConnectedUsers(ctx context.Context, communityID shared.CommunityID, channelID shared.ChannelID) ([]shared.UserID, error)
}
