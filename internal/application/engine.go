// Package application wires the command and query handlers into the Engine,
// the explicit set of entry points the platform adapter invokes per event
// kind. The engine has no awareness of the delivery mechanism: adapters call
// these methods synchronously and execute whatever role deltas come back.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/guild-hub/guild-activity-hub/internal/application/command"
	"github.com/guild-hub/guild-activity-hub/internal/application/query"
	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/community"
	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// Deps carries everything the engine needs. Cache, Communities, Members,
// Roles, Presence and Bus are required; LeaderboardCache may be nil.
type Deps struct {
	Cache       *cache.ActivityCache
	Communities community.Repository
	Members     member.Repository
	Roles       community.RoleService
	Presence    community.PresenceSource
	Bus         shared.EventPublisher
	Leaderboard query.LeaderboardCache
	Logger      *slog.Logger

	// Location is the timezone for calendar-day boundaries.
	Location *time.Location

	// LeaderboardDepth is how many entries leaderboards hold.
	LeaderboardDepth int
}

// Engine is the activity-accrual core. One engine per process; all entry
// points are safe for concurrent use, serialized per community internally.
type Engine struct {
	cache       *cache.ActivityCache
	communities community.Repository
	presence    community.PresenceSource
	logger      *slog.Logger

	recordMessage    *command.RecordMessageHandler
	recordConnection *command.RecordConnectionHandler
	flushSessions    *command.FlushSessionsHandler
	setOverride      *command.SetXPOverrideHandler
	refreshRanks     *command.RefreshRanksHandler
	provision        *command.ProvisionCommunityHandler
	registerMember   *command.RegisterMemberHandler

	rankLadder  *query.RankLadderHandler
	leaderboard *query.LeaderboardHandler
	memberStats *query.MemberStatsHandler
}

// New builds an Engine from its dependencies.
func New(deps Deps) *Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	assigner := command.NewRankAssigner(deps.Roles, deps.Bus, deps.Logger)

	return &Engine{
		cache:       deps.Cache,
		communities: deps.Communities,
		presence:    deps.Presence,
		logger:      deps.Logger,

		recordMessage: command.NewRecordMessageHandler(
			deps.Cache, deps.Members, assigner, deps.Bus, deps.Logger, deps.Location),
		recordConnection: command.NewRecordConnectionHandler(
			deps.Cache, deps.Members, assigner, deps.Bus, deps.Logger),
		flushSessions: command.NewFlushSessionsHandler(
			deps.Cache, deps.Members, deps.Bus, deps.Logger),
		setOverride: command.NewSetXPOverrideHandler(
			deps.Cache, deps.Members, assigner, deps.Bus, deps.Logger),
		refreshRanks: command.NewRefreshRanksHandler(
			deps.Cache, deps.Members, assigner, deps.Logger),
		provision: command.NewProvisionCommunityHandler(
			deps.Cache, deps.Communities, deps.Bus, deps.Logger),
		registerMember: command.NewRegisterMemberHandler(
			deps.Cache, deps.Members, deps.Bus, deps.Logger),

		rankLadder:  query.NewRankLadderHandler(deps.Cache),
		leaderboard: query.NewLeaderboardHandler(deps.Members, deps.Leaderboard, deps.LeaderboardDepth, deps.Logger),
		memberStats: query.NewMemberStatsHandler(deps.Members),
	}
}

// Load populates the cache from the store and re-seeds sessions for users
// already connected to tracked voice channels. One community's load error is
// logged and skipped without aborting the rest. Recovered sessions measure
// uptime from process start; the true original join time is unrecoverable
// after a restart and that loss is accepted.
func (e *Engine) Load(ctx context.Context, startedAt time.Time) error {
	ids, err := e.communities.ListIDs(ctx)
	if err != nil {
		return shared.WrapError("engine", "Load", shared.ErrStoreUnavailable,
			"list communities", err)
	}

	configs := make([]*community.Config, 0, len(ids))
	for _, id := range ids {
		cfg, err := e.communities.GetConfig(ctx, id)
		if err != nil {
			e.logger.Error("skipping community with unreadable configuration",
				"community_id", id, "error", err)
			continue
		}
		configs = append(configs, cfg)
	}
	e.cache.Load(configs)

	for _, cfg := range configs {
		e.recoverSessions(ctx, cfg, startedAt)
	}
	return nil
}

func (e *Engine) recoverSessions(ctx context.Context, cfg *community.Config, startedAt time.Time) {
	cc, ok := e.cache.Get(cfg.ID)
	if !ok {
		return
	}

	for channel := range cfg.VoiceChannels {
		users, err := e.presence.ConnectedUsers(ctx, cfg.ID, channel)
		if err != nil {
			e.logger.Warn("presence scan failed",
				"community_id", cfg.ID, "channel_id", channel, "error", err)
			continue
		}
		_ = cc.Serialize(func(v cache.View) error {
			for _, user := range users {
				v.StartSession(user, startedAt)
			}
			return nil
		})
	}
}

// Flush drains every live session before the process exits. Mandatory, not
// best-effort: callers must wait for it during shutdown.
func (e *Engine) Flush(ctx context.Context, at time.Time) *command.FlushSessionsResult {
	return e.flushSessions.Handle(ctx, at)
}

// ─────────────────────────────────────────────────────────────────────────────
// Event entry points
// ─────────────────────────────────────────────────────────────────────────────

// OnMessage records one observed text message.
func (e *Engine) OnMessage(ctx context.Context, cmd command.RecordMessageCommand) (*command.RecordMessageResult, error) {
	return e.recordMessage.Handle(ctx, cmd)
}

// OnConnectionChange records one connection-state transition.
func (e *Engine) OnConnectionChange(ctx context.Context, cmd command.RecordConnectionCommand) (*command.RecordConnectionResult, error) {
	return e.recordConnection.Handle(ctx, cmd)
}

// OnMemberJoin provisions a zeroed record for a newly observed membership.
func (e *Engine) OnMemberJoin(ctx context.Context, communityID shared.CommunityID, userID shared.UserID, displayName string) error {
	return e.registerMember.Handle(ctx, communityID, userID, displayName)
}

// OnCommunityJoin provisions a community when the bot is added to it.
func (e *Engine) OnCommunityJoin(ctx context.Context, id shared.CommunityID, name string) error {
	return e.provision.Join(ctx, id, name)
}

// OnCommunityLeave deletes and evicts a community when the bot is removed.
func (e *Engine) OnCommunityLeave(ctx context.Context, id shared.CommunityID) error {
	return e.provision.Leave(ctx, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Command/presentation surface
// ─────────────────────────────────────────────────────────────────────────────

// UpdateConfig persists a configuration mutation and refreshes the cache.
func (e *Engine) UpdateConfig(ctx context.Context, cfg *community.Config) error {
	return e.provision.UpdateConfig(ctx, cfg)
}

// GetRankLadder returns the community's live ladder.
func (e *Engine) GetRankLadder(communityID shared.CommunityID) (community.Ladder, error) {
	return e.rankLadder.Handle(communityID)
}

// SetXPOverride writes a member's XP directly and re-runs rank convergence.
func (e *Engine) SetXPOverride(ctx context.Context, cmd command.SetXPOverrideCommand) (*command.SetXPOverrideResult, error) {
	return e.setOverride.Handle(ctx, cmd)
}

// RefreshAllRanks re-converges every member of a community.
func (e *Engine) RefreshAllRanks(ctx context.Context, communityID shared.CommunityID) (*command.RefreshRanksResult, error) {
	return e.refreshRanks.Handle(ctx, command.RefreshRanksCommand{Community: communityID})
}

// Leaderboard returns up to limit members ordered by XP.
func (e *Engine) Leaderboard(ctx context.Context, communityID shared.CommunityID, limit int) ([]query.Entry, error) {
	return e.leaderboard.Handle(ctx, communityID, limit)
}

// MemberStats returns one member's activity summary.
func (e *Engine) MemberStats(ctx context.Context, communityID shared.CommunityID, userID shared.UserID) (*query.MemberStats, error) {
	return e.memberStats.Handle(ctx, communityID, userID)
}
