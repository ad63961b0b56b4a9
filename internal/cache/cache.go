// Package cache implements the process-wide in-memory mirror of community
// configuration and the ephemeral session tables. It is the single source of
// truth for "what counts as activity right now": every XP and rank decision
// reads configuration through this cache, never from a stale snapshot.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/guild-hub/guild-activity-hub/internal/domain/community"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
)

// CachedCommunity pairs a community's live configuration with its session
// table. All read-modify-write against either goes through Serialize, the
// per-community critical section; two concurrent events for the same
// community can therefore never interleave a stale read with a write.
type CachedCommunity struct {
	mu       sync.Mutex
	cfg      *community.Config
	sessions map[shared.UserID]*Session
}

func newCachedCommunity(cfg *community.Config) *CachedCommunity {
	return &CachedCommunity{
		cfg:      cfg,
		sessions: make(map[shared.UserID]*Session),
	}
}

// View is the borrowed view handed into a critical section. It is valid only
// for the duration of the Serialize call that produced it.
type View struct {
	// Config is the community's live configuration.
	Config *community.Config

	c *CachedCommunity
}

// Serialize runs fn inside the community's critical section with a borrowed
// view of the live configuration. Cross-community calls never contend.
func (c *CachedCommunity) Serialize(fn func(v View) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(View{Config: c.cfg, c: c})
}

// StartSession creates a session for user unless one is already live.
// Returns false on a duplicate connection-start; a second concurrent session
// is never created.
func (v View) StartSession(user shared.UserID, at time.Time) bool {
	if _, live := v.c.sessions[user]; live {
		return false
	}
	v.c.sessions[user] = &Session{User: user, ConnectedAt: at}
	return true
}

// CloseSession removes the user's session and returns its whole-minute
// uptime at end. ok is false when no session was live.
func (v View) CloseSession(user shared.UserID, end time.Time) (minutes int64, ok bool) {
	s, live := v.c.sessions[user]
	if !live {
		return 0, false
	}
	delete(v.c.sessions, user)
	return s.Minutes(end), true
}

// LiveSessions returns a snapshot of the currently live sessions.
func (v View) LiveSessions() []Session {
	out := make([]Session, 0, len(v.c.sessions))
	for _, s := range v.c.sessions {
		out = append(out, *s)
	}
	return out
}

// ActivityCache is the process-wide mapping from community ID to its cached
// state. It is constructed at startup, torn down at shutdown, and injected
// into every component that needs it - never referenced as ambient state.
type ActivityCache struct {
	mu          sync.RWMutex
	communities map[shared.CommunityID]*CachedCommunity
	logger      *slog.Logger
}

// New creates an empty ActivityCache.
func New(logger *slog.Logger) *ActivityCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityCache{
		communities: make(map[shared.CommunityID]*CachedCommunity),
		logger:      logger,
	}
}

// Load populates the cache at startup. Session seeding for users already
// connected is done by the engine's recovery scan once configurations are in
// place.
func (a *ActivityCache) Load(configs []*community.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, cfg := range configs {
		a.communities[cfg.ID] = newCachedCommunity(cfg)
	}
	a.logger.Info("activity cache loaded", "communities", len(a.communities))
}

// Get returns the cached state of one community. ok is false when the
// community is unconfigured; callers treat the triggering event as a no-op.
func (a *ActivityCache) Get(id shared.CommunityID) (*CachedCommunity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c, ok := a.communities[id]
	return c, ok
}

// Upsert replaces a community's configuration while preserving its session
// table, so cache and store never diverge past the duration of the mutating
// call. A get immediately after observes the new configuration.
func (a *ActivityCache) Upsert(cfg *community.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.communities[cfg.ID]
	if !ok {
		a.communities[cfg.ID] = newCachedCommunity(cfg)
		return
	}

	// Lock order is always cache.mu before community.mu, so taking the
	// community lock here cannot deadlock against Serialize.
	existing.mu.Lock()
	existing.cfg = cfg
	existing.mu.Unlock()
}

// Remove evicts a community and all its sessions.
func (a *ActivityCache) Remove(id shared.CommunityID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.communities, id)
}

// Each calls fn for every cached community. Used by the shutdown flush; fn
// must not call back into the ActivityCache.
func (a *ActivityCache) Each(fn func(id shared.CommunityID, c *CachedCommunity)) {
	a.mu.RLock()
	snapshot := make(map[shared.CommunityID]*CachedCommunity, len(a.communities))
	for id, c := range a.communities {
		snapshot[id] = c
	}
	a.mu.RUnlock()

	for id, c := range snapshot {
		fn(id, c)
	}
}

// Len returns the number of cached communities.
func (a *ActivityCache) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.communities)
}
