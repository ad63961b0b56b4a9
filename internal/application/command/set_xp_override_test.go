package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

type overrideFixture struct {
	repo    *fakeMemberRepo
	roles   *fakeRoleService
	bus     *fakePublisher
	handler *SetXPOverrideHandler
}

func newOverrideFixture() *overrideFixture {
	repo := newFakeMemberRepo()
	roles := newFakeRoleService()
	bus := &fakePublisher{}
	activityCache := newTestCache(testCommunityConfig())
	assigner := NewRankAssigner(roles, bus, nil)
	return &overrideFixture{
		repo:    repo,
		roles:   roles,
		bus:     bus,
		handler: NewSetXPOverrideHandler(activityCache, repo, assigner, bus, nil),
	}
}

func TestSetXPOverride(t *testing.T) {
	f := newOverrideFixture()
	seeded := member.New(1, 2, "alice")
	seeded.XP = 40
	f.repo.seed(*seeded)
	f.roles.held[2] = []shared.RoleID{10}

	result, err := f.handler.Handle(context.Background(), SetXPOverrideCommand{
		Community: 1, User: 2, XP: 150,
	})
	require.NoError(t, err)
	require.NoError(t, result.RoleErr)

	assert.Equal(t, shared.XP(150), result.TotalXP)
	stored, _ := f.repo.stored(1, 2)
	assert.Equal(t, shared.XP(150), stored.XP)

	// Convergence runs on the overridden value.
	assert.Equal(t, []shared.RoleID{20}, f.roles.rolesOf(2))

	granted := f.bus.ofType(shared.EventXPGranted)
	require.Len(t, granted, 1)
	event := granted[0].(shared.XPGrantedEvent)
	assert.Equal(t, shared.SourceOverride, event.Source)
	assert.Equal(t, shared.XP(110), event.Amount, "amount is the delta from the previous total")
}

func TestSetXPOverrideRejectsNegative(t *testing.T) {
	f := newOverrideFixture()
	f.repo.seed(*member.New(1, 2, "alice"))

	_, err := f.handler.Handle(context.Background(), SetXPOverrideCommand{
		Community: 1, User: 2, XP: -5,
	})
	assert.ErrorIs(t, err, shared.ErrNegativeValue)

	stored, _ := f.repo.stored(1, 2)
	assert.Equal(t, shared.XP(0), stored.XP)
}

func TestSetXPOverrideUnknownCommunityFails(t *testing.T) {
	f := newOverrideFixture()

	_, err := f.handler.Handle(context.Background(), SetXPOverrideCommand{
		Community: 99, User: 2, XP: 100,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound, "an explicit admin write surfaces its failure")
}

func TestSetXPOverrideUnknownMemberFails(t *testing.T) {
	f := newOverrideFixture()

	_, err := f.handler.Handle(context.Background(), SetXPOverrideCommand{
		Community: 1, User: 2, XP: 100,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
