// Package member contains the per-(community, user) activity record and the
// pure XP accrual rules applied to it. Accrual never touches collaborators;
// handlers persist the mutated record afterwards.
package member

import (
	"math"
	"time"

	"github.com/guild-hub/guild-activity-hub/internal/domain/community"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
	"github.com/guild-hub/guild-activity-hub/pkg/timeutil"
)

// Member is the running activity record of one user in one community.
// Created on first observed membership, never implicitly deleted while the
// user remains a member. XP is monotonically non-decreasing except for
// explicit administrative overrides.
type Member struct {
	Community   shared.CommunityID
	User        shared.UserID
	DisplayName string

	// XP is the cumulative experience-point total.
	XP shared.XP

	// MessageCount counts every observed message, rewarded or not.
	MessageCount int64

	// VoiceUptimeMinutes is the accumulated whole-minute voice presence.
	VoiceUptimeMinutes int64

	// LastMessageAt is when the last rewarded message was observed.
	// Zero means no message has been rewarded yet.
	LastMessageAt time.Time

	// LastMessageXP is the amount granted for that last message; the next
	// diminishing step is computed from it.
	LastMessageXP shared.XP
}

// New returns a zeroed record for a freshly observed membership.
func New(communityID shared.CommunityID, userID shared.UserID, displayName string) *Member {
	return &Member{
		Community:   communityID,
		User:        userID,
		DisplayName: displayName,
	}
}

// ApplyMessage applies one observed message at now against the community's
// text-reward parameters and returns the granted amount.
//
// Inside the cooldown window only the message count moves. Outside it, the
// diminishing curve applies unless bypassed: curve disabled, member still
// below the new-user threshold, first rewarded message ever, or the previous
// rewarded message was on a different calendar day (the curve resets daily so
// it never permanently flatlines a member's reward).
func (m *Member) ApplyMessage(p community.TextReward, now time.Time, loc *time.Location) shared.XP {
	m.MessageCount++

	if !m.LastMessageAt.IsZero() {
		if now.Sub(m.LastMessageAt) < time.Duration(p.CooldownSeconds)*time.Second {
			return 0
		}
	}

	var grant shared.XP
	switch {
	case p.NewUserThreshold == community.CurveDisabled,
		m.XP < p.NewUserThreshold,
		m.LastMessageAt.IsZero(),
		!timeutil.SameDay(m.LastMessageAt, now, loc):
		grant = p.BasePerMessage
	default:
		grant = shared.XP(math.Floor(float64(m.LastMessageXP) * p.DiminishFactor))
		if grant < p.MinReward {
			grant = p.MinReward
		}
	}

	m.XP = m.XP.Add(grant)
	m.LastMessageXP = grant
	m.LastMessageAt = now
	return grant
}

// ApplyVoice credits a closed voice session of the given whole-minute length.
// Zero minutes grant zero XP; that is a valid short session, not an error.
func (m *Member) ApplyVoice(minutes int64, ratePerMinute shared.XP) shared.XP {
	if minutes <= 0 {
		return 0
	}
	grant := shared.XP(minutes) * ratePerMinute
	m.XP = m.XP.Add(grant)
	m.VoiceUptimeMinutes += minutes
	return grant
}

// SetXP overwrites the cumulative total. Administrative path only; bypasses
// all cooldown and curve bookkeeping.
func (m *Member) SetXP(xp shared.XP) error {
	if !xp.IsValid() {
		return shared.NewDomainError("member", "SetXP", shared.ErrNegativeValue, "xp cannot be negative")
	}
	m.XP = xp
	return nil
}
