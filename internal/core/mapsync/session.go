package mapsync

import (
	"container/list"
	"sync"
	"time"

	"github.com/samirrijal/terramind/internal/core/domain"
)

// SessionLimits bounds a SessionStore. Zero values mean unlimited.
type SessionLimits struct {
	// MaxSessions caps the number of live sessions; the least recently
	// used one is evicted to make room for a new session.
	MaxSessions int
	// IdleTTL forgets sessions that have not been used for this long.
	IdleTTL time.Duration
}

type session struct {
	id       string
	surface  *StyleSurface
	lastUsed time.Time
}

// SessionStore holds one StyleSurface per browser session.
type SessionStore struct {
	mu       sync.Mutex
	sync     *Synchronizer
	limits   SessionLimits
	now      func() time.Time
	lru      *list.List // front is most recently used
	sessions map[string]*list.Element
}

// NewSessionStore creates an empty store.
func NewSessionStore(s *Synchronizer, limits SessionLimits) *SessionStore {
	return &SessionStore{
		sync:     s,
		limits:   limits,
		now:      time.Now,
		lru:      list.New(),
		sessions: make(map[string]*list.Element),
	}
}

// Apply syncs p onto the session's surface, creating the session if
// needed, and returns the commands it produced together with the
// resulting state.
func (st *SessionStore) Apply(sessionID string, p domain.Payload) ([]domain.MapCommand, domain.MapState, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.expire()
	s, ok := st.touch(sessionID)
	if !ok {
		s = st.insert(sessionID)
	}
	return st.apply(s, p)
}

// Clear syncs an empty payload onto an existing session. It reports false
// and leaves the store untouched when the session is unknown.
func (st *SessionStore) Clear(sessionID string) ([]domain.MapCommand, domain.MapState, bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.expire()
	s, ok := st.touch(sessionID)
	if !ok {
		return nil, emptyState(), false, nil
	}
	cmds, state, err := st.apply(s, domain.NonePayload())
	return cmds, state, true, err
}

// State returns the session's current map state.
func (st *SessionStore) State(sessionID string) (domain.MapState, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.expire()
	s, ok := st.touch(sessionID)
	if !ok {
		return emptyState(), false
	}
	return s.surface.Snapshot(), true
}

// Drop forgets a session.
func (st *SessionStore) Drop(sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if el, ok := st.sessions[sessionID]; ok {
		st.remove(el)
	}
}

// Len returns the number of tracked sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.expire()
	return len(st.sessions)
}

func (st *SessionStore) apply(s *session, p domain.Payload) ([]domain.MapCommand, domain.MapState, error) {
	_, err := st.sync.Sync(s.surface, p)
	cmds := s.surface.Flush()
	return cmds, s.surface.Snapshot(), err
}

func (st *SessionStore) touch(id string) (*session, bool) {
	el, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	s := el.Value.(*session)
	s.lastUsed = st.now()
	st.lru.MoveToFront(el)
	return s, true
}

func (st *SessionStore) insert(id string) *session {
	if st.limits.MaxSessions > 0 {
		for len(st.sessions) >= st.limits.MaxSessions {
			st.remove(st.lru.Back())
		}
	}
	s := &session{id: id, surface: NewStyleSurface(), lastUsed: st.now()}
	st.sessions[id] = st.lru.PushFront(s)
	return s
}

// expire walks from the least recently used end and drops idle sessions.
func (st *SessionStore) expire() {
	if st.limits.IdleTTL <= 0 {
		return
	}
	cutoff := st.now().Add(-st.limits.IdleTTL)
	for el := st.lru.Back(); el != nil; el = st.lru.Back() {
		if el.Value.(*session).lastUsed.After(cutoff) {
			return
		}
		st.remove(el)
	}
}

func (st *SessionStore) remove(el *list.Element) {
	s := st.lru.Remove(el).(*session)
	delete(st.sessions, s.id)
}

func emptyState() domain.MapState {
	return domain.MapState{Sources: map[string]any{}, Layers: []any{}}
}
