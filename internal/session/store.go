package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/WIlski54/dialoglab-english-coach/internal/scenario"
)

// Store is the single source of truth for live sessions. It exposes only
// atomic operations; the map is never handed out for direct mutation.
// Mutations to the same session are serialized by the write lock, and every
// update function runs briefly with no remote calls inside.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create allocates a fresh session with default scenario and level and
// returns its id. Ids are unique among all currently-live sessions.
func (s *Store) Create() string {
	sess := &Session{
		ID:        uuid.New().String(),
		Scenario:  scenario.DefaultScenario,
		Level:     scenario.DefaultLevel,
		Status:    StatusAwaitingScenario,
		StartedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess.ID
}

// Get returns a copy of the session, or ErrSessionNotFound. Callers treat a
// miss as "connection already closed" and no-op.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return sess.clone(), nil
}

// Mutate applies fn to the session in place under the write lock and returns
// a copy of the result. A miss returns ErrSessionNotFound without calling fn.
func (s *Store) Mutate(id string, fn func(*Session)) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	fn(sess)
	return sess.clone(), nil
}

// Remove deletes the session and returns it, or nil if already gone. The
// caller is responsible for notifying observers.
func (s *Store) Remove(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil
	}
	delete(s.sessions, id)
	return sess
}

// Snapshot returns the observer views of all active sessions, used to seed a
// newly connected observer. Sessions still awaiting a scenario are invisible.
func (s *Store) Snapshot() []*View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]*View, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.Status == StatusActive {
			views = append(views, sess.View())
		}
	}
	return views
}

// List returns copies of all live sessions regardless of status, for the
// dashboard HTTP API.
func (s *Store) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess.clone())
	}
	return sessions
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
