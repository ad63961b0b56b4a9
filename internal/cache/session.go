package cache

import (
	"time"

	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
	"github.com/guild-hub/guild-activity-hub/pkg/timeutil"
)

// Session is the ephemeral record of one currently-connected (community,
// user) pair. It exists only inside the ActivityCache and is never persisted;
// durable uptime is written when the session closes.
type Session struct {
	// User is the connected user.
	User shared.UserID

	// ConnectedAt is when the connection was observed (or process start,
	// for sessions recovered after a restart).
	ConnectedAt time.Time
}

// Minutes returns the whole-minute uptime of the session at the given end
// time, clamped at zero.
func (s *Session) Minutes(end time.Time) int64 {
	return timeutil.MinutesBetween(s.ConnectedAt, end)
}
