package session

import (
	"errors"
	"sync"
)

// Sentinel errors for session table operations.
var (
	// ErrSessionNotFound is returned when a session with the given ID does
	// not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is returned when writing to a session whose
	// connection has already gone away.
	ErrSessionClosed = errors.New("session closed")
)

// Table is the in-memory session registry: exactly one Session per live
// SSE subscriber, keyed by session ID. Thread-safe for concurrent access.
type Table struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewTable creates an empty session table.
func NewTable() *Table {
	return &Table{sessions: make(map[string]*Session)}
}

// Put registers a session, replacing any prior entry under the same ID.
func (t *Table) Put(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[s.ID] = s
}

// Get looks up a session by ID.
func (t *Table) Get(id string) (*Session, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove deletes a session from the table. Safe to call even if the
// session is already gone.
func (t *Table) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}

// Len returns the number of live sessions.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
