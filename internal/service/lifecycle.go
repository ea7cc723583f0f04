package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcpmux/mcpmux/internal/domain/app"
)

// Lifecycle brings up a Supervisor (and therefore an Aggregator) per app in
// the registry at startup, and wires new app registrations at runtime via
// OnAppAdded. It owns the orderly shutdown of every supervised app.
type Lifecycle struct {
	store  app.Store
	logger *slog.Logger

	mu          sync.Mutex
	supervisors map[string]*Supervisor
}

// NewLifecycle creates a lifecycle manager backed by the given app store.
func NewLifecycle(store app.Store, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		store:       store,
		logger:      logger,
		supervisors: make(map[string]*Supervisor),
	}
}

// StartAll brings up a supervisor for every app currently in the registry.
// Individual app startup failures are logged and do not prevent other apps
// from starting — per the proxy's no-retry invariant, an app whose
// upstreams fail to connect simply serves an empty or partial tool catalog
// rather than blocking the whole process.
func (l *Lifecycle) StartAll(ctx context.Context) ([]*app.App, []*Aggregator, error) {
	apps, err := l.store.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	aggregators := make([]*Aggregator, 0, len(apps))
	for _, a := range apps {
		aggregator := l.startOne(ctx, a)
		aggregators = append(aggregators, aggregator)
	}
	return apps, aggregators, nil
}

// OnAppAdded brings up a newly registered app's supervisor. Intended as
// the Admin API's onAdded callback.
func (l *Lifecycle) OnAppAdded(ctx context.Context, a *app.App) *Aggregator {
	return l.startOne(ctx, a)
}

func (l *Lifecycle) startOne(ctx context.Context, a *app.App) *Aggregator {
	supervisor := NewSupervisor(l.logger)

	l.mu.Lock()
	l.supervisors[a.Name] = supervisor
	l.mu.Unlock()

	aggregator, err := supervisor.Start(ctx, a)
	if err != nil {
		l.logger.Error("app startup failed", "app", a.Name, "error", err)
		return NewAggregator(l.logger.With("app", a.Name))
	}
	return aggregator
}

// Supervisor returns the supervisor for a named app, if one has been
// started.
func (l *Lifecycle) Supervisor(name string) (*Supervisor, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.supervisors[name]
	return s, ok
}

// Shutdown stops every supervised app's aggregator.
func (l *Lifecycle) Shutdown() {
	l.mu.Lock()
	supervisors := make([]*Supervisor, 0, len(l.supervisors))
	for _, s := range l.supervisors {
		supervisors = append(supervisors, s)
	}
	l.mu.Unlock()

	for _, s := range supervisors {
		if err := s.Stop(); err != nil {
			l.logger.Error("app shutdown failed", "error", err)
		}
	}
}
