// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies
// beyond event correlation IDs.
package shared

import "fmt"

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// CommunityID represents a unique identifier of a served community (guild).
type CommunityID int64

// IsValid checks if the community ID is valid (positive snowflake).
func (c CommunityID) IsValid() bool {
	return c > 0
}

// Int64 returns the underlying int64 value.
func (c CommunityID) Int64() int64 {
	return int64(c)
}

// String returns the string representation.
func (c CommunityID) String() string {
	return fmt.Sprintf("%d", c)
}

// UserID represents a unique platform user identifier.
type UserID int64

// IsValid checks if the user ID is valid (positive snowflake).
func (u UserID) IsValid() bool {
	return u > 0
}

// Int64 returns the underlying int64 value.
func (u UserID) Int64() int64 {
	return int64(u)
}

// String returns the string representation.
func (u UserID) String() string {
	return fmt.Sprintf("%d", u)
}

// RoleID represents a platform role identifier within a community.
type RoleID int64

// IsValid checks if the role ID is valid.
func (r RoleID) IsValid() bool {
	return r > 0
}

// Int64 returns the underlying int64 value.
func (r RoleID) Int64() int64 {
	return int64(r)
}

// ChannelID represents a platform channel identifier within a community.
type ChannelID int64

// IsValid checks if the channel ID is valid.
func (c ChannelID) IsValid() bool {
	return c > 0
}

// Int64 returns the underlying int64 value.
func (c ChannelID) Int64() int64 {
	return int64(c)
}

// ═══════════════════════════════════════════════════════════════════════════
// XP
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points accrued by a member.
type XP int64

// IsValid checks that the XP value is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add returns the sum of two XP values.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Int64 returns the underlying int64 value.
func (x XP) Int64() int64 {
	return int64(x)
}
