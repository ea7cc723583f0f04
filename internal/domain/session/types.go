// Package session models the downstream side of the proxy: one SSE
// subscriber per connected MCP client.
package session

import "sync"

// Session is one connected SSE subscriber. While alive, exactly one Session
// exists in the session table keyed by ID. It is created on SSE GET and
// destroyed on client disconnect or server shutdown.
type Session struct {
	// ID is a cryptographically random identifier, 16 bytes hex-encoded
	// (32 hex characters).
	ID string

	mu    sync.Mutex
	alive bool
	frame func(event, data string) error
}

// New creates a Session bound to a frame sink. frame is called to emit one
// SSE event; it is expected to write in the wire's exact framing and flush.
func New(id string, frame func(event, data string) error) *Session {
	return &Session{ID: id, alive: true, frame: frame}
}

// Send writes one SSE event to the subscriber. Returns an error, and marks
// the session dead, if the write fails (client gone).
func (s *Session) Send(event, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return ErrSessionClosed
	}
	if err := s.frame(event, data); err != nil {
		s.alive = false
		return err
	}
	return nil
}

// Alive reports whether the session's connection is still considered open.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Close marks the session dead. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
}
