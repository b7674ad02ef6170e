package access

import (
	"context"
	"sync"
	"time"
)

// Manager caches one Session per authenticated principal for the HTTP
// layer, so repeated requests reuse the resolved profile instead of
// re-fetching grants on every call. Grant mutations evict the affected
// user's entry; the TTL bounds staleness for everything else.
type Manager struct {
	deps Deps
	ttl  time.Duration

	mu       sync.Mutex
	sessions map[string]*managedSession
}

type managedSession struct {
	session   *Session
	expiresAt time.Time
}

// NewManager creates a session cache. The manager installs itself as the
// invalidation sink for every session it creates.
func NewManager(deps Deps, ttl time.Duration) *Manager {
	m := &Manager{
		deps:     deps,
		ttl:      ttl,
		sessions: make(map[string]*managedSession),
	}
	m.deps.OnProfileInvalidated = m.Invalidate
	return m
}

// Session returns an authenticated session for the user, creating and
// initializing one if the cache has no live entry. Initialization failures
// are not cached; the next request retries against the store.
func (m *Manager) Session(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	entry, ok := m.sessions[userID]
	if ok && time.Now().Before(entry.expiresAt) {
		m.mu.Unlock()
		return entry.session, nil
	}

	sess := NewSession(userID, m.deps)
	m.sessions[userID] = &managedSession{
		session:   sess,
		expiresAt: time.Now().Add(m.ttl),
	}
	m.mu.Unlock()

	if err := sess.Initialize(ctx); err != nil {
		m.mu.Lock()
		if cur, ok := m.sessions[userID]; ok && cur.session == sess {
			delete(m.sessions, userID)
		}
		m.mu.Unlock()
		return nil, err
	}
	return sess, nil
}

// Invalidate drops the cached session for a user. The next request builds
// a fresh one, which is what turns a grant mutation into a full profile
// reload rather than a local patch.
func (m *Manager) Invalidate(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
