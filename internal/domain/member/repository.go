package member

import (
	"context"

	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// Repository is the durable store contract for member records. Writes must be
// durable before returning; the engine reports success to its caller only
// after the store call came back. "No rows" maps to shared.ErrNotFound.
type Repository interface {
	// Upsert creates the record on first observed membership, or refreshes
	// the display name of an existing one. Counters are never reset.
	Upsert(ctx context.Context, m *Member) error

	// Get reads one member record.
	Get(ctx context.Context, communityID shared.CommunityID, userID shared.UserID) (*Member, error)

	// Update persists xp, message count, voice uptime and the last-message
	// bookkeeping in a single atomic write.
	Update(ctx context.Context, m *Member) error

	// TopByXP returns up to limit members ordered by descending XP.
	TopByXP(ctx context.Context, communityID shared.CommunityID, limit int) ([]*Member, error)

	// ListByCommunity returns every member of a community.
	ListByCommunity(ctx context.Context, communityID shared.CommunityID) ([]*Member, error)

	// RankOf returns the 1-based leaderboard position of a member.
	RankOf(ctx context.Context, communityID shared.CommunityID, userID shared.UserID) (int64, error)
}
