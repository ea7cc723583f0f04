package app

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an app with the given name does not exist
// in the store.
var ErrNotFound = errors.New("app not found")

// ErrNameTaken is returned by Create when an app with the given name
// already exists.
var ErrNameTaken = errors.New("app name already in use")

// Store is the admin registry's persistence port: CRUD over configured
// apps. Implementations must return deep copies from Get/List so that
// callers can never mutate stored state without going through Update.
type Store interface {
	Create(ctx context.Context, a *App) error
	Get(ctx context.Context, name string) (*App, error)
	List(ctx context.Context) ([]*App, error)
	Update(ctx context.Context, a *App) error
	Delete(ctx context.Context, name string) error
}

// NewID generates a fresh app identifier.
func NewID() uuid.UUID {
	return uuid.New()
}
