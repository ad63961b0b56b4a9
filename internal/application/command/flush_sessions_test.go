package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/community"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

func startSession(t *testing.T, c *cache.ActivityCache, id shared.CommunityID, user shared.UserID, at time.Time) {
	t.Helper()
	cc, ok := c.Get(id)
	require.True(t, ok)
	require.NoError(t, cc.Serialize(func(v cache.View) error {
		require.True(t, v.StartSession(user, at))
		return nil
	}))
}

func TestFlushSessionsDrainsEveryCommunity(t *testing.T) {
	cfgA := testCommunityConfig()
	cfgB := community.DefaultConfig(2, "other guild")
	cfgB.VoiceChannels[300] = struct{}{}
	cfgB.VoiceRatePerMinute = 5

	activityCache := newTestCache(cfgA, cfgB)
	repo := newFakeMemberRepo()
	bus := &fakePublisher{}
	handler := NewFlushSessionsHandler(activityCache, repo, bus, nil)

	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	startSession(t, activityCache, 1, 10, start)
	startSession(t, activityCache, 1, 11, start)
	startSession(t, activityCache, 2, 12, start)

	result := handler.Handle(context.Background(), start.Add(4*time.Minute))
	assert.Equal(t, 3, result.Flushed)
	assert.Equal(t, 0, result.Failed)

	// Rates are per community: cfgA grants 4*2, cfgB grants 4*5.
	m, ok := repo.stored(1, 10)
	require.True(t, ok)
	assert.Equal(t, shared.XP(8), m.XP)
	assert.Equal(t, int64(4), m.VoiceUptimeMinutes)

	m, ok = repo.stored(2, 12)
	require.True(t, ok)
	assert.Equal(t, shared.XP(20), m.XP)

	assert.Len(t, bus.ofType(shared.EventSessionClosed), 3)
}

func TestFlushSessionsGrantsExactlyOnce(t *testing.T) {
	activityCache := newTestCache(testCommunityConfig())
	repo := newFakeMemberRepo()
	handler := NewFlushSessionsHandler(activityCache, repo, &fakePublisher{}, nil)

	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	startSession(t, activityCache, 1, 10, start)

	first := handler.Handle(context.Background(), start.Add(185*time.Second))
	assert.Equal(t, 1, first.Flushed)

	// The session is gone; a second drain finds nothing to do.
	second := handler.Handle(context.Background(), start.Add(4*time.Minute))
	assert.Equal(t, 0, second.Flushed)

	m, _ := repo.stored(1, 10)
	assert.Equal(t, int64(3), m.VoiceUptimeMinutes, "uptime credited once, not per drain pass")
	assert.Equal(t, shared.XP(6), m.XP, "3 minutes at rate 2, granted exactly once")
}

func TestFlushSessionsSkipsRoleMutations(t *testing.T) {
	// The drain must stay self-contained: the flush handler is constructed
	// without any role service, so this pins that it never converges ranks.
	activityCache := newTestCache(testCommunityConfig())
	repo := newFakeMemberRepo()
	bus := &fakePublisher{}
	handler := NewFlushSessionsHandler(activityCache, repo, bus, nil)

	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	startSession(t, activityCache, 1, 10, start)

	result := handler.Handle(context.Background(), start.Add(time.Minute))
	assert.Equal(t, 1, result.Flushed)
	assert.Empty(t, bus.ofType(shared.EventRankChanged))
}

func TestFlushSessionsContinuesPastFailures(t *testing.T) {
	activityCache := newTestCache(testCommunityConfig())
	repo := newFakeMemberRepo()
	repo.upsertErr = errors.New("connection refused")
	handler := NewFlushSessionsHandler(activityCache, repo, &fakePublisher{}, nil)

	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	startSession(t, activityCache, 1, 10, start)
	startSession(t, activityCache, 1, 11, start)

	result := handler.Handle(context.Background(), start.Add(time.Minute))
	assert.Equal(t, 0, result.Flushed)
	assert.Equal(t, 2, result.Failed, "one failed session does not stop the drain")
}
