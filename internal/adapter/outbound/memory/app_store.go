// Package memory provides an in-memory app.Store, used in tests and when
// the store driver is "memory" (as in dev mode).
package memory

import (
	"context"
	"sync"

	"github.com/mcpmux/mcpmux/internal/domain/app"
)

// AppStore is an in-memory, concurrency-safe app.Store. Every method
// returns or stores deep copies, so callers can never mutate state behind
// the store's back.
type AppStore struct {
	mu   sync.RWMutex
	apps map[string]*app.App
}

// NewAppStore creates an empty store.
func NewAppStore() *AppStore {
	return &AppStore{apps: make(map[string]*app.App)}
}

// Create adds a new app. Returns app.ErrNameTaken if the name is already
// registered.
func (s *AppStore) Create(_ context.Context, a *app.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apps[a.Name]; exists {
		return app.ErrNameTaken
	}
	s.apps[a.Name] = a.Clone()
	return nil
}

// Get returns a deep copy of the named app, or app.ErrNotFound.
func (s *AppStore) Get(_ context.Context, name string) (*app.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.apps[name]
	if !ok {
		return nil, app.ErrNotFound
	}
	return a.Clone(), nil
}

// List returns deep copies of every registered app.
func (s *AppStore) List(_ context.Context) ([]*app.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*app.App, 0, len(s.apps))
	for _, a := range s.apps {
		out = append(out, a.Clone())
	}
	return out, nil
}

// Update replaces the stored app with a's contents. Returns app.ErrNotFound
// if no app with that name exists yet.
func (s *AppStore) Update(_ context.Context, a *app.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apps[a.Name]; !exists {
		return app.ErrNotFound
	}
	s.apps[a.Name] = a.Clone()
	return nil
}

// Delete removes the named app. Returns app.ErrNotFound if it did not
// exist.
func (s *AppStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apps[name]; !exists {
		return app.ErrNotFound
	}
	delete(s.apps, name)
	return nil
}

var _ app.Store = (*AppStore)(nil)
