package command

import (
	"context"
	"sync"

	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/community"
	"github.com/guild-hub/guild-activity-hub/internal/domain/member"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

type memberKey struct {
	community shared.CommunityID
	user      shared.UserID
}

// fakeMemberRepo is an in-memory member.Repository with per-method error
// injection. It stores copies so handler-side mutations only become visible
// through Update, matching the durable-store contract.
type fakeMemberRepo struct {
	mu      sync.Mutex
	records map[memberKey]member.Member

	getErr    error
	upsertErr error
	updateErr error
	listErr   error

	updates int
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{records: make(map[memberKey]member.Member)}
}

func (r *fakeMemberRepo) Upsert(_ context.Context, m *member.Member) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memberKey{m.Community, m.User}
	if existing, ok := r.records[key]; ok {
		existing.DisplayName = m.DisplayName
		r.records[key] = existing
		return nil
	}
	r.records[key] = *m
	return nil
}

func (r *fakeMemberRepo) Get(_ context.Context, communityID shared.CommunityID, userID shared.UserID) (*member.Member, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.records[memberKey{communityID, userID}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := m
	return &copied, nil
}

func (r *fakeMemberRepo) Update(_ context.Context, m *member.Member) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memberKey{m.Community, m.User}
	if _, ok := r.records[key]; !ok {
		return shared.ErrNotFound
	}
	r.records[key] = *m
	r.updates++
	return nil
}

func (r *fakeMemberRepo) TopByXP(_ context.Context, communityID shared.CommunityID, limit int) ([]*member.Member, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	all, _ := r.ListByCommunity(context.Background(), communityID)
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].XP > all[j-1].XP; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeMemberRepo) ListByCommunity(_ context.Context, communityID shared.CommunityID) ([]*member.Member, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*member.Member
	for key, m := range r.records {
		if key.community != communityID {
			continue
		}
		copied := m
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeMemberRepo) RankOf(_ context.Context, communityID shared.CommunityID, userID shared.UserID) (int64, error) {
	target, err := r.Get(context.Background(), communityID, userID)
	if err != nil {
		return 0, err
	}
	all, err := r.ListByCommunity(context.Background(), communityID)
	if err != nil {
		return 0, err
	}
	rank := int64(1)
	for _, m := range all {
		if m.XP > target.XP {
			rank++
		}
	}
	return rank, nil
}

func (r *fakeMemberRepo) stored(communityID shared.CommunityID, userID shared.UserID) (member.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.records[memberKey{communityID, userID}]
	return m, ok
}

func (r *fakeMemberRepo) seed(m member.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[memberKey{m.Community, m.User}] = m
}

// fakeRoleService records role mutations against an in-memory held set.
type fakeRoleService struct {
	mu   sync.Mutex
	held map[shared.UserID][]shared.RoleID

	rolesErr  error
	addErr    error
	removeErr error

	adds    int
	removes int
}

func newFakeRoleService() *fakeRoleService {
	return &fakeRoleService{held: make(map[shared.UserID][]shared.RoleID)}
}

func (s *fakeRoleService) MemberRoles(_ context.Context, _ shared.CommunityID, userID shared.UserID) ([]shared.RoleID, error) {
	if s.rolesErr != nil {
		return nil, s.rolesErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.RoleID(nil), s.held[userID]...), nil
}

func (s *fakeRoleService) AddRole(_ context.Context, _ shared.CommunityID, userID shared.UserID, roleID shared.RoleID) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held[userID] = append(s.held[userID], roleID)
	s.adds++
	return nil
}

func (s *fakeRoleService) RemoveRole(_ context.Context, _ shared.CommunityID, userID shared.UserID, roleID shared.RoleID) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.held[userID][:0]
	for _, held := range s.held[userID] {
		if held != roleID {
			kept = append(kept, held)
		}
	}
	s.held[userID] = kept
	s.removes++
	return nil
}

func (s *fakeRoleService) rolesOf(userID shared.UserID) []shared.RoleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.RoleID(nil), s.held[userID]...)
}

// fakePublisher records published events in order.
type fakePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *fakePublisher) Publish(_ context.Context, event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.Event(nil), p.events...)
}

func (p *fakePublisher) ofType(t shared.EventType) []shared.Event {
	var out []shared.Event
	for _, e := range p.published() {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// testCommunityConfig is the standard fixture: text channel 100, voice
// channel 200, a two-step ladder and a curve without cooldown so grants are
// easy to predict.
func testCommunityConfig() *community.Config {
	cfg := community.DefaultConfig(1, "test guild")
	cfg.TextChannels[100] = struct{}{}
	cfg.VoiceChannels[200] = struct{}{}
	cfg.Ladder = community.Ladder{
		{Role: 10, Threshold: 0},
		{Role: 20, Threshold: 100},
	}
	cfg.Text = community.TextReward{
		BasePerMessage:   10,
		CooldownSeconds:  0,
		DiminishFactor:   0.5,
		MinReward:        1,
		NewUserThreshold: 0,
	}
	cfg.VoiceRatePerMinute = 2
	return cfg
}

func newTestCache(cfgs ...*community.Config) *cache.ActivityCache {
	c := cache.New(nil)
	c.Load(cfgs)
	return c
}
