package session

import (
	"context"
	"sync"
	"time"
)

// Store keeps sessions in memory and is safe for concurrent use.
// Data is lost on restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Save stores a copy of s.
func (st *Store) Save(ctx context.Context, s *Session) error {
	if s.ID == "" {
		return ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	sessionCopy := *s
	st.sessions[s.ID] = &sessionCopy
	return nil
}

// Get returns a copy of the session with the given ID.
func (st *Store) Get(ctx context.Context, id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	sessionCopy := *s
	return &sessionCopy, nil
}

// Update applies fn to the stored session under the write lock. When two
// updates race, the one that resolves last wins.
func (st *Store) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	working := *s
	if err := fn(&working); err != nil {
		return nil, err
	}
	st.sessions[id] = &working

	out := working
	return &out, nil
}

// Prune removes sessions not updated since before cutoff and returns how many were removed.
func (st *Store) Prune(cutoff time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
