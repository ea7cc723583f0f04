package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/mcpmux/mcpmux/internal/adapter/outbound/mcp"
	"github.com/mcpmux/mcpmux/internal/domain/app"
	"github.com/mcpmux/mcpmux/internal/domain/upstream"
)

// Backoff bounds for Supervisor.Restart, applied at the app level: a failed
// upstream is never retried (spec invariant), but a whole app can be
// restarted a few bounded times. Nothing in the server calls Restart
// automatically; it runs only when a caller invokes it.
const (
	supervisorMaxRetries  = 5
	supervisorBackoffBase = 1 * time.Second
	supervisorBackoffCap  = 30 * time.Second
)

// Supervisor brings one app's Aggregator up from its stored upstream specs
// and tracks restart attempts if bringing it up fails outright.
type Supervisor struct {
	logger *slog.Logger

	mu         sync.Mutex
	aggregator *Aggregator
	attempts   int
}

// NewSupervisor creates a supervisor for a single app.
func NewSupervisor(logger *slog.Logger) *Supervisor {
	return &Supervisor{logger: logger}
}

// Start builds the app's Aggregator from its upstream specs and connects
// every upstream. It does not retry internally on repeated Start calls
// from outside the configured bound — Restart does that.
func (s *Supervisor) Start(ctx context.Context, a *app.App) (*Aggregator, error) {
	aggregator := NewAggregator(s.logger.With("app", a.Name))

	for _, spec := range a.Upstreams {
		client, err := newUpstreamClient(spec, s.logger)
		if err != nil {
			return nil, fmt.Errorf("app %q: upstream %q: %w", a.Name, spec.Name, err)
		}
		aggregator.AddUpstream(spec, client)
	}

	aggregator.Connect(ctx)

	s.mu.Lock()
	s.aggregator = aggregator
	s.mu.Unlock()

	return aggregator, nil
}

// Restart tears down the current aggregator (if any) and starts a fresh
// one, applying exponential backoff across repeated failures. Returns an
// error once supervisorMaxRetries is exceeded, at which point the app is
// considered permanently failed until an operator intervenes.
func (s *Supervisor) Restart(ctx context.Context, a *app.App) (*Aggregator, error) {
	s.mu.Lock()
	if s.aggregator != nil {
		_ = s.aggregator.Close()
		s.aggregator = nil
	}
	attempt := s.attempts
	s.attempts++
	s.mu.Unlock()

	if attempt >= supervisorMaxRetries {
		return nil, fmt.Errorf("app %q: exceeded %d restart attempts", a.Name, supervisorMaxRetries)
	}

	delay := backoffDelay(attempt)
	s.logger.Warn("restarting app after delay", "app", a.Name, "attempt", attempt+1, "delay", delay)

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return s.Start(ctx, a)
}

// Aggregator returns the currently running aggregator, or nil if the
// supervisor has not started one (or has torn it down).
func (s *Supervisor) Aggregator() *Aggregator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregator
}

// Stop closes the supervised aggregator, if any.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aggregator == nil {
		return nil
	}
	err := s.aggregator.Close()
	s.aggregator = nil
	return err
}

// backoffDelay computes an exponential backoff capped at
// supervisorBackoffCap, doubling from supervisorBackoffBase per attempt.
func backoffDelay(attempt int) time.Duration {
	delay := float64(supervisorBackoffBase) * math.Pow(2, float64(attempt))
	if delay > float64(supervisorBackoffCap) {
		return supervisorBackoffCap
	}
	return time.Duration(delay)
}

// newUpstreamClient builds the outbound MCP client for one upstream spec,
// selecting the transport adapter by Kind.
func newUpstreamClient(spec upstream.Spec, logger *slog.Logger) (*UpstreamClient, error) {
	switch spec.Kind {
	case upstream.KindStdio:
		client := mcp.NewStdioClient(spec.Command, spec.Args...).WithEnv(spec.Env)
		return NewUpstreamClient(spec.Name, client, logger), nil
	case upstream.KindSSE:
		client := mcp.NewSSEClient(spec.URL, spec.Headers)
		return NewUpstreamClient(spec.Name, client, logger), nil
	default:
		return nil, fmt.Errorf("unsupported upstream kind %q", spec.Kind)
	}
}
