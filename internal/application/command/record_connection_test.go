package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

type connectionFixture struct {
	cache   *cache.ActivityCache
	repo    *fakeMemberRepo
	roles   *fakeRoleService
	bus     *fakePublisher
	handler *RecordConnectionHandler
}

func newConnectionFixture() *connectionFixture {
	repo := newFakeMemberRepo()
	roles := newFakeRoleService()
	bus := &fakePublisher{}
	activityCache := newTestCache(testCommunityConfig())
	assigner := NewRankAssigner(roles, bus, nil)
	return &connectionFixture{
		cache:   activityCache,
		repo:    repo,
		roles:   roles,
		bus:     bus,
		handler: NewRecordConnectionHandler(activityCache, repo, assigner, bus, nil),
	}
}

func TestRecordConnectionValidate(t *testing.T) {
	err := RecordConnectionCommand{Community: 1, User: 2, From: 0, To: 0}.Validate()
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	err = RecordConnectionCommand{Community: 1, User: 2, From: 0, To: 200}.Validate()
	assert.NoError(t, err)
}

func TestRecordConnectionFullSession(t *testing.T) {
	f := newConnectionFixture()
	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	connect, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 0, To: 200, DisplayName: "alice", At: start,
	})
	require.NoError(t, err)
	assert.True(t, connect.SessionStarted)
	assert.Len(t, f.bus.ofType(shared.EventSessionStarted), 1)

	disconnect, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 200, To: 0, DisplayName: "alice", At: start.Add(185 * time.Second),
	})
	require.NoError(t, err)

	assert.True(t, disconnect.SessionClosed)
	assert.Equal(t, int64(3), disconnect.Minutes)
	assert.Equal(t, shared.XP(6), disconnect.Granted, "3 minutes at rate 2")
	assert.Equal(t, shared.XP(6), disconnect.TotalXP)

	stored, ok := f.repo.stored(1, 2)
	require.True(t, ok)
	assert.Equal(t, int64(3), stored.VoiceUptimeMinutes)

	closed := f.bus.ofType(shared.EventSessionClosed)
	require.Len(t, closed, 1)
	assert.Equal(t, int64(3), closed[0].(shared.SessionClosedEvent).Minutes)

	granted := f.bus.ofType(shared.EventXPGranted)
	require.Len(t, granted, 1, "a session grants exactly once")
	assert.Equal(t, shared.SourceVoice, granted[0].(shared.XPGrantedEvent).Source)
}

func TestRecordConnectionSubMinuteSession(t *testing.T) {
	f := newConnectionFixture()
	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	_, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 0, To: 200, At: start,
	})
	require.NoError(t, err)

	disconnect, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 200, To: 0, At: start.Add(30 * time.Second),
	})
	require.NoError(t, err)

	assert.True(t, disconnect.SessionClosed)
	assert.Equal(t, int64(0), disconnect.Minutes)
	assert.Equal(t, shared.XP(0), disconnect.Granted)

	// The close is still reported even when nothing was granted.
	assert.Len(t, f.bus.ofType(shared.EventSessionClosed), 1)
	assert.Empty(t, f.bus.ofType(shared.EventXPGranted))
}

func TestRecordConnectionDuplicateStartIsNoOp(t *testing.T) {
	f := newConnectionFixture()
	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	first, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 0, To: 200, At: start,
	})
	require.NoError(t, err)
	assert.True(t, first.SessionStarted)

	second, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 0, To: 200, At: start.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, second.Ignored)
	assert.False(t, second.SessionStarted)

	// The original connect time survives the duplicate.
	disconnect, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 200, To: 0, At: start.Add(2 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), disconnect.Minutes)
}

func TestRecordConnectionTrackedToTrackedKeepsSession(t *testing.T) {
	f := newConnectionFixture()
	cfg := testCommunityConfig()
	cfg.VoiceChannels[201] = struct{}{}
	f.cache.Upsert(cfg)
	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	_, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 0, To: 200, At: start,
	})
	require.NoError(t, err)

	move, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 200, To: 201, At: start.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, move.Ignored, "moving between tracked channels keeps the session running")

	disconnect, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 201, To: 0, At: start.Add(3 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), disconnect.Minutes, "uptime spans the whole presence, not one channel")
}

func TestRecordConnectionUntrackedChannelIsNoOp(t *testing.T) {
	f := newConnectionFixture()

	result, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 0, To: 555,
	})
	require.NoError(t, err)
	assert.True(t, result.Ignored)

	// Disconnecting from an untracked channel finds no session either.
	result, err = f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 555, To: 0,
	})
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Empty(t, f.bus.published())
}

func TestRecordConnectionDisconnectWithoutSessionIsNoOp(t *testing.T) {
	f := newConnectionFixture()

	result, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 200, To: 0,
	})
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.False(t, result.SessionClosed)
}

func TestRecordConnectionStoreFailureSurfaces(t *testing.T) {
	f := newConnectionFixture()
	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	_, err := f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 0, To: 200, At: start,
	})
	require.NoError(t, err)

	f.repo.upsertErr = errors.New("connection refused")
	_, err = f.handler.Handle(context.Background(), RecordConnectionCommand{
		Community: 1, User: 2, From: 200, To: 0, At: start.Add(5 * time.Minute),
	})
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}
