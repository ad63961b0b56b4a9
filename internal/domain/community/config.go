// Package community contains the per-community configuration model: reward
// parameters, tracked channels, and the role ladder that maps XP to tiers.
// This is the core of the business logic - no external dependencies here.
package community

import (
	"fmt"

	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// CurveDisabled is the NewUserThreshold sentinel that switches the
// cooldown/diminishing curve off entirely: every message grants the base
// reward.
const CurveDisabled shared.XP = -1

// Default reward parameters applied when the bot joins a community that has
// never been configured.
const (
	DefaultBaseReward       shared.XP = 10
	DefaultCooldownSeconds  int64     = 60
	DefaultDiminishFactor   float64   = 0.5
	DefaultMinReward        shared.XP = 1
	DefaultNewUserThreshold shared.XP = 500
	DefaultVoiceRate        shared.XP = 2
)

// TextReward holds the reward parameters applied to text-message activity.
type TextReward struct {
	// BasePerMessage is the reward for an undiminished message.
	BasePerMessage shared.XP

	// CooldownSeconds is the window after a rewarded message during which
	// further messages count but grant no XP.
	CooldownSeconds int64

	// DiminishFactor shrinks consecutive same-day rewards, in (0,1].
	DiminishFactor float64

	// MinReward is the floor of the diminishing curve.
	MinReward shared.XP

	// NewUserThreshold is the XP below which the curve is bypassed so early
	// engagement stays rewarding. CurveDisabled (-1) disables the curve for
	// everyone.
	NewUserThreshold shared.XP
}

// Validate checks the reward parameters.
func (t TextReward) Validate() error {
	if t.BasePerMessage < 0 || t.MinReward < 0 {
		return shared.NewDomainError("community", "Validate", shared.ErrNegativeValue, "rewards cannot be negative")
	}
	if t.CooldownSeconds < 0 {
		return shared.NewDomainError("community", "Validate", shared.ErrNegativeValue, "cooldown cannot be negative")
	}
	if t.DiminishFactor <= 0 || t.DiminishFactor > 1 {
		return shared.NewDomainError("community", "Validate", shared.ErrInvalidInput,
			fmt.Sprintf("diminish factor %v outside (0,1]", t.DiminishFactor))
	}
	if t.NewUserThreshold < CurveDisabled {
		return shared.NewDomainError("community", "Validate", shared.ErrInvalidInput, "new-user threshold below -1")
	}
	return nil
}

// Config is the live configuration of one community. It is owned by the
// ActivityCache; callers receive a borrowed view valid for the duration of a
// single event-processing unit.
type Config struct {
	// ID is the community (guild) identifier.
	ID shared.CommunityID

	// Name is the community display name.
	Name string

	// ModRole is the moderator role allowed to run administrative commands.
	ModRole shared.RoleID

	// Ladder is the ascending (role, threshold) tier ladder.
	Ladder Ladder

	// TextChannels is the set of channels whose messages accrue XP.
	TextChannels map[shared.ChannelID]struct{}

	// VoiceChannels is the set of channels whose presence accrues XP.
	VoiceChannels map[shared.ChannelID]struct{}

	// Text holds the text-message reward parameters.
	Text TextReward

	// VoiceRatePerMinute is the XP granted per whole minute of voice uptime.
	VoiceRatePerMinute shared.XP
}

// DefaultConfig returns the configuration provisioned when the bot joins a
// community: default rates, no ladder, no tracked channels.
func DefaultConfig(id shared.CommunityID, name string) *Config {
	return &Config{
		ID:            id,
		Name:          name,
		TextChannels:  make(map[shared.ChannelID]struct{}),
		VoiceChannels: make(map[shared.ChannelID]struct{}),
		Text: TextReward{
			BasePerMessage:   DefaultBaseReward,
			CooldownSeconds:  DefaultCooldownSeconds,
			DiminishFactor:   DefaultDiminishFactor,
			MinReward:        DefaultMinReward,
			NewUserThreshold: DefaultNewUserThreshold,
		},
		VoiceRatePerMinute: DefaultVoiceRate,
	}
}

// Validate checks all configuration invariants. Invalid configurations are
// rejected at write time and never reach the cache.
func (c *Config) Validate() error {
	if !c.ID.IsValid() {
		return shared.NewDomainError("community", "Validate", shared.ErrInvalidInput, "community id must be positive")
	}
	if err := c.Ladder.Validate(); err != nil {
		return err
	}
	if c.VoiceRatePerMinute < 0 {
		return shared.NewDomainError("community", "Validate", shared.ErrNegativeValue, "voice rate cannot be negative")
	}
	return c.Text.Validate()
}

// TracksText reports whether messages in ch accrue XP.
func (c *Config) TracksText(ch shared.ChannelID) bool {
	_, ok := c.TextChannels[ch]
	return ok
}

// TracksVoice reports whether presence in ch accrues XP.
func (c *Config) TracksVoice(ch shared.ChannelID) bool {
	_, ok := c.VoiceChannels[ch]
	return ok
}
