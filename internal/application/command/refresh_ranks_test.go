package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

type refreshFixture struct {
	repo    *fakeMemberRepo
	roles   *fakeRoleService
	handler *RefreshRanksHandler
}

func newRefreshFixture() *refreshFixture {
	repo := newFakeMemberRepo()
	roles := newFakeRoleService()
	bus := &fakePublisher{}
	activityCache := newTestCache(testCommunityConfig())
	assigner := NewRankAssigner(roles, bus, nil)
	return &refreshFixture{
		repo:    repo,
		roles:   roles,
		handler: NewRefreshRanksHandler(activityCache, repo, assigner, nil),
	}
}

func seedMember(repo *fakeMemberRepo, user shared.UserID, xp shared.XP) {
	m := member.New(1, user, "")
	m.XP = xp
	repo.seed(*m)
}

func TestRefreshRanksHealsDivergence(t *testing.T) {
	f := newRefreshFixture()
	seedMember(f.repo, 10, 50)  // belongs on role 10
	seedMember(f.repo, 11, 150) // belongs on role 20

	// Manual edits left both members wrong: one holds both ladder roles,
	// the other holds the stale lower tier.
	f.roles.held[10] = []shared.RoleID{10, 20}
	f.roles.held[11] = []shared.RoleID{10}

	result, err := f.handler.Handle(context.Background(), RefreshRanksCommand{Community: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Changed)
	assert.Equal(t, 0, result.Failed)

	assert.Equal(t, []shared.RoleID{10}, f.roles.rolesOf(10))
	assert.Equal(t, []shared.RoleID{20}, f.roles.rolesOf(11))
}

func TestRefreshRanksIsIdempotent(t *testing.T) {
	f := newRefreshFixture()
	seedMember(f.repo, 10, 50)
	f.roles.held[10] = []shared.RoleID{10}

	result, err := f.handler.Handle(context.Background(), RefreshRanksCommand{Community: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Changed, "already-converged members are untouched")
	assert.Equal(t, 0, f.roles.adds+f.roles.removes)
}

func TestRefreshRanksContinuesPastMemberFailures(t *testing.T) {
	f := newRefreshFixture()
	seedMember(f.repo, 10, 50)
	seedMember(f.repo, 11, 150)
	f.roles.addErr = errors.New("permission denied")

	result, err := f.handler.Handle(context.Background(), RefreshRanksCommand{Community: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Failed, "per-member failures do not stop the pass")
}

func TestRefreshRanksUnknownCommunityFails(t *testing.T) {
	f := newRefreshFixture()

	_, err := f.handler.Handle(context.Background(), RefreshRanksCommand{Community: 99})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
