package query

import (
	"context"

	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// MemberStats is the per-member activity summary.
type MemberStats struct {
	DisplayName        string
	XP                 shared.XP
	Rank               int64
	MessageCount       int64
	VoiceUptimeMinutes int64
}

// MemberStatsHandler serves one member's running counters and leaderboard
// position.
type MemberStatsHandler struct {
	members member.Repository
}

// NewMemberStatsHandler creates a MemberStatsHandler.
func NewMemberStatsHandler(members member.Repository) *MemberStatsHandler {
	return &MemberStatsHandler{members: members}
}

// Handle reads the stats. Unknown members surface shared.ErrNotFound.
func (h *MemberStatsHandler) Handle(ctx context.Context, communityID shared.CommunityID, userID shared.UserID) (*MemberStats, error) {
	m, err := h.members.Get(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	rank, err := h.members.RankOf(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	return &MemberStats{
		DisplayName:        m.DisplayName,
		XP:                 m.XP,
		Rank:               rank,
		MessageCount:       m.MessageCount,
		VoiceUptimeMinutes: m.VoiceUptimeMinutes,
	}, nil
}
