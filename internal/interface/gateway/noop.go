// Package gateway holds the binding surface between the engine and the
// external platform. The real adapter - the process that receives message,
// presence and membership events and forwards them to the engine's entry
// points - lives with the platform integration, outside this module. Noop
// stands in wherever no adapter is attached: headless operation and tests.
package gateway

import (
	"context"
	"log/slog"

	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// Noop implements community.RoleService and community.PresenceSource with
// no-ops: no users are reported connected and role mutations succeed without
// touching anything.
type Noop struct {
	Logger *slog.Logger
}

func (n Noop) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// MemberRoles reports no held roles.
func (n Noop) MemberRoles(_ context.Context, _ shared.CommunityID, _ shared.UserID) ([]shared.RoleID, error) {
	return nil, nil
}

// AddRole logs and succeeds.
func (n Noop) AddRole(_ context.Context, communityID shared.CommunityID, userID shared.UserID, roleID shared.RoleID) error {
	n.logger().Debug("noop gateway: add role",
		"community_id", communityID, "user_id", userID, "role_id", roleID)
	return nil
}

// RemoveRole logs and succeeds.
func (n Noop) RemoveRole(_ context.Context, communityID shared.CommunityID, userID shared.UserID, roleID shared.RoleID) error {
	n.logger().Debug("noop gateway: remove role",
		"community_id", communityID, "user_id", userID, "role_id", roleID)
	return nil
}

// ConnectedUsers reports no connected users.
func (n Noop) ConnectedUsers(_ context.Context, _ shared.CommunityID, _ shared.ChannelID) ([]shared.UserID, error) {
	return nil, nil
}
