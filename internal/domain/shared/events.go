package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the domain and is published after the change was persisted.
const (
	// Accrual events
	EventXPGranted   EventType = "accrual.xp_granted"
	EventRankChanged EventType = "accrual.rank_changed"

	// Session events
	EventSessionStarted EventType = "session.started"
	EventSessionClosed  EventType = "session.closed"

	// Membership events
	EventMemberJoined     EventType = "membership.member_joined"
	EventCommunityAdded   EventType = "membership.community_added"
	EventCommunityRemoved EventType = "membership.community_removed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string
}

// EventHandler processes a single published event.
type EventHandler func(ctx context.Context, event Event) error

// EventPublisher publishes domain events to interested subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventSubscriber registers handlers for event types.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// NewBaseEvent creates a BaseEvent with a fresh correlation ID.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:          eventType,
		Timestamp:     at,
		AggregateId:   aggregateID,
		CorrelationID: uuid.NewString(),
	}
}

// EventType implements Event.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// ═══════════════════════════════════════════════════════════════════════════
// Concrete events
// ═══════════════════════════════════════════════════════════════════════════

// XPSource identifies which kind of activity produced an XP grant.
type XPSource string

const (
	// SourceMessage - XP granted for a text message.
	SourceMessage XPSource = "message"
	// SourceVoice - XP granted for closed voice-session minutes.
	SourceVoice XPSource = "voice"
	// SourceOverride - XP written directly by an administrator.
	SourceOverride XPSource = "override"
)

// XPGrantedEvent is published after an XP delta was persisted.
type XPGrantedEvent struct {
	BaseEvent
	Community CommunityID `json:"community_id"`
	User      UserID      `json:"user_id"`
	Amount    XP          `json:"amount"`
	Total     XP          `json:"total"`
	Source    XPSource    `json:"source"`
}

// NewXPGrantedEvent creates an XPGrantedEvent.
func NewXPGrantedEvent(community CommunityID, user UserID, amount, total XP, source XPSource, at time.Time) XPGrantedEvent {
	return XPGrantedEvent{
		BaseEvent: NewBaseEvent(EventXPGranted, community.String(), at),
		Community: community,
		User:      user,
		Amount:    amount,
		Total:     total,
		Source:    source,
	}
}

// RankChangedEvent is published after a member converged to a new ladder tier.
type RankChangedEvent struct {
	BaseEvent
	Community CommunityID `json:"community_id"`
	User      UserID      `json:"user_id"`
	Role      RoleID      `json:"role_id"`
	Removed   []RoleID    `json:"removed_role_ids,omitempty"`
}

// NewRankChangedEvent creates a RankChangedEvent.
func NewRankChangedEvent(community CommunityID, user UserID, role RoleID, removed []RoleID, at time.Time) RankChangedEvent {
	return RankChangedEvent{
		BaseEvent: NewBaseEvent(EventRankChanged, community.String(), at),
		Community: community,
		User:      user,
		Role:      role,
		Removed:   removed,
	}
}

// SessionStartedEvent is published when a connection-based session begins.
type SessionStartedEvent struct {
	BaseEvent
	Community CommunityID `json:"community_id"`
	User      UserID      `json:"user_id"`
	Channel   ChannelID   `json:"channel_id"`
}

// NewSessionStartedEvent creates a SessionStartedEvent.
func NewSessionStartedEvent(community CommunityID, user UserID, channel ChannelID, at time.Time) SessionStartedEvent {
	return SessionStartedEvent{
		BaseEvent: NewBaseEvent(EventSessionStarted, community.String(), at),
		Community: community,
		User:      user,
		Channel:   channel,
	}
}

// SessionClosedEvent is published after a voice session was drained and its
// uptime persisted.
type SessionClosedEvent struct {
	BaseEvent
	Community CommunityID `json:"community_id"`
	User      UserID      `json:"user_id"`
	Minutes   int64       `json:"minutes"`
	Granted   XP          `json:"granted"`
}

// NewSessionClosedEvent creates a SessionClosedEvent.
func NewSessionClosedEvent(community CommunityID, user UserID, minutes int64, granted XP, at time.Time) SessionClosedEvent {
	return SessionClosedEvent{
		BaseEvent: NewBaseEvent(EventSessionClosed, community.String(), at),
		Community: community,
		User:      user,
		Minutes:   minutes,
		Granted:   granted,
	}
}

// MemberJoinedEvent is published when a membership is first observed and a
// zeroed record was provisioned.
type MemberJoinedEvent struct {
	BaseEvent
	Community CommunityID `json:"community_id"`
	User      UserID      `json:"user_id"`
}

// NewMemberJoinedEvent creates a MemberJoinedEvent.
func NewMemberJoinedEvent(community CommunityID, user UserID, at time.Time) MemberJoinedEvent {
	return MemberJoinedEvent{
		BaseEvent: NewBaseEvent(EventMemberJoined, community.String(), at),
		Community: community,
		User:      user,
	}
}

// CommunityAddedEvent is published after a community was provisioned.
type CommunityAddedEvent struct {
	BaseEvent
	Community CommunityID `json:"community_id"`
}

// NewCommunityAddedEvent creates a CommunityAddedEvent.
func NewCommunityAddedEvent(community CommunityID, at time.Time) CommunityAddedEvent {
	return CommunityAddedEvent{
		BaseEvent: NewBaseEvent(EventCommunityAdded, community.String(), at),
		Community: community,
	}
}

// CommunityRemovedEvent is published after a community was deleted and
// evicted from the cache.
type CommunityRemovedEvent struct {
	BaseEvent
	Community CommunityID `json:"community_id"`
}

// NewCommunityRemovedEvent creates a CommunityRemovedEvent.
func NewCommunityRemovedEvent(community CommunityID, at time.Time) CommunityRemovedEvent {
	return CommunityRemovedEvent{
		BaseEvent: NewBaseEvent(EventCommunityRemoved, community.String(), at),
		Community: community,
	}
}
