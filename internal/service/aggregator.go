package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcpmux/mcpmux/internal/domain/alias"
	"github.com/mcpmux/mcpmux/internal/domain/tool"
	"github.com/mcpmux/mcpmux/internal/domain/upstream"
)

// JSON-RPC error codes used in responses the aggregator builds itself.
const (
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// Aggregator bundles a set of upstream MCP servers for one app behind a
// single merged tool catalog. It owns the alias registry that maps opaque,
// per-build aliases back to (upstream, original tool name) pairs.
type Aggregator struct {
	logger *slog.Logger

	mu        sync.RWMutex
	upstreams map[string]*UpstreamClient
	states    map[string]*upstream.State
	registry  alias.Active
}

// NewAggregator creates an empty aggregator. Upstreams are added via
// AddUpstream and brought up with Connect.
func NewAggregator(logger *slog.Logger) *Aggregator {
	return &Aggregator{
		logger:    logger,
		upstreams: make(map[string]*UpstreamClient),
		states:    make(map[string]*upstream.State),
	}
}

// AddUpstream registers an upstream client under its configured spec. It
// does not connect; call Connect to bring all registered upstreams up.
func (a *Aggregator) AddUpstream(spec upstream.Spec, client *UpstreamClient) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.upstreams[spec.Name] = client
	a.states[spec.Name] = &upstream.State{Spec: spec, Status: upstream.StatusPending}
}

// Connect starts every registered upstream concurrently. An upstream whose
// handshake fails is marked failed and excluded from the tool catalog; it
// is never retried automatically. Connect itself never fails: a deployment
// with zero healthy upstreams simply serves an empty tool catalog.
func (a *Aggregator) Connect(ctx context.Context) {
	a.mu.RLock()
	names := make([]string, 0, len(a.upstreams))
	for name := range a.upstreams {
		names = append(names, name)
	}
	a.mu.RUnlock()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			a.connectOne(ctx, name)
		}(name)
	}
	wg.Wait()

	a.rebuild()
}

func (a *Aggregator) connectOne(ctx context.Context, name string) {
	a.mu.RLock()
	client := a.upstreams[name]
	a.mu.RUnlock()

	err := client.Connect(ctx)

	a.mu.Lock()
	state := a.states[name]
	if err != nil {
		state.Status = upstream.StatusFailed
		state.LastError = err.Error()
		a.logger.Error("upstream connect failed", "upstream", name, "error", err)
	} else {
		state.Status = upstream.StatusReady
		state.LastError = ""
		state.ToolCount = len(client.Tools())
		a.logger.Info("upstream ready", "upstream", name, "tools", state.ToolCount)
	}
	a.mu.Unlock()
}

// rebuild regenerates the alias registry from the current tool catalogs of
// every ready upstream, atomically swaps it in, and returns the aliased
// catalog entries the new registry was built from. Aliases are not stable
// across rebuilds: a client must always re-fetch tools/list before calling
// a tool whose alias it cached from an earlier listing.
func (a *Aggregator) rebuild() []alias.Entry {
	a.mu.RLock()
	byUpstream := make(map[string][]tool.Tool, len(a.upstreams))
	for name, client := range a.upstreams {
		if a.states[name].Status == upstream.StatusReady {
			byUpstream[name] = client.Tools()
		}
	}
	a.mu.RUnlock()

	registry, entries, err := alias.Build(byUpstream)
	if err != nil {
		a.logger.Error("rebuilding alias registry failed", "error", err)
		return nil
	}
	a.registry.Store(registry)
	return entries
}

// ToolsCatalog rebuilds the alias registry and returns the merged,
// alias-rewritten tool catalog as a plain list, for callers (like the
// server_status endpoint) that want the freshly built catalog itself
// rather than a tools/list envelope.
func (a *Aggregator) ToolsCatalog() []json.RawMessage {
	entries := a.rebuild()

	tools := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		tools[i] = e.Raw
	}
	return tools
}

// ToolsList rebuilds the alias registry and returns the merged,
// alias-rewritten tool catalog as a tools/list result payload.
func (a *Aggregator) ToolsList() json.RawMessage {
	return mustMarshal(map[string]any{"tools": a.ToolsCatalog()})
}

// Call resolves an alias to its (upstream, tool name) binding and invokes
// tools/call on that upstream. The proxy's error-envelope quirk wraps a
// failure inside the JSON-RPC "result" object rather than the top-level
// "error" field, matching what downstream clients expect from this proxy.
func (a *Aggregator) Call(ctx context.Context, aliasName string, arguments json.RawMessage) json.RawMessage {
	registry := a.registry.Load()
	if registry == nil {
		return errorResult(codeMethodNotFound, fmt.Sprintf("Method %s not found", aliasName))
	}

	binding, ok := registry.Resolve(aliasName)
	if !ok {
		return errorResult(codeMethodNotFound, fmt.Sprintf("Method %s not found", aliasName))
	}

	a.mu.RLock()
	client, ok := a.upstreams[binding.UpstreamName]
	a.mu.RUnlock()
	if !ok {
		return errorResult(codeInternalError, fmt.Sprintf("upstream %q is no longer registered", binding.UpstreamName))
	}

	raw, err := client.Call(ctx, binding.ToolName, arguments)
	if err != nil {
		return errorResult(codeInternalError, err.Error())
	}
	return successResult(raw)
}

// Statuses returns a snapshot of every registered upstream's live state.
func (a *Aggregator) Statuses() map[string]upstream.State {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]upstream.State, len(a.states))
	for name, state := range a.states {
		out[name] = *state
	}
	return out
}

// Close shuts down every upstream client.
func (a *Aggregator) Close() error {
	a.mu.RLock()
	clients := make([]*UpstreamClient, 0, len(a.upstreams))
	for _, c := range a.upstreams {
		clients = append(clients, c)
	}
	a.mu.RUnlock()

	var err error
	for _, c := range clients {
		if cerr := c.Close(); cerr != nil {
			err = cerr
		}
	}
	return err
}

// errorResult builds the "result" payload the proxy sends back in place of
// a top-level JSON-RPC error, per the aggregator's wrap-in-result quirk.
func errorResult(code int, message string) json.RawMessage {
	return mustMarshal(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// successResult wraps a successful upstream tools/call result the same way
// errorResult wraps a failure, so both land under the JSON-RPC "result"
// field as {"result": {...}} rather than the bare upstream payload.
func successResult(raw json.RawMessage) json.RawMessage {
	return mustMarshal(map[string]json.RawMessage{"result": raw})
}
