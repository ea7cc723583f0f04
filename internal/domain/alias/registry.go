// Package alias implements the aggregator's alias registry: the mapping
// from an opaque, per-build alias to the (upstream, original tool name)
// pair it stands in for.
package alias

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mcpmux/mcpmux/internal/domain/tool"
)

const (
	// aliasBytes is the number of random bytes hex-encoded into an alias,
	// giving 10 hex characters (~40 bits of entropy) per alias.
	aliasBytes = 5

	// maxGenerationAttempts bounds the collision-retry loop. A collision
	// at 40 bits of entropy across a realistic tool count is vanishingly
	// unlikely; this purely guards against a pathological caller feeding
	// in far more tools than any real deployment would.
	maxGenerationAttempts = 1000

	// MaxToolsPerUpstream bounds how many tools a single upstream may
	// contribute to one registry build.
	MaxToolsPerUpstream = 1000

	// MaxTotalTools bounds the total number of aliased tools in one
	// registry build, across all upstreams.
	MaxTotalTools = 10000
)

// Binding is what an alias resolves to: the upstream that owns the tool,
// and the tool's original name as known to that upstream.
type Binding struct {
	UpstreamName string
	ToolName     string
}

// Entry is one row of the aggregated, aliased tool catalog: the tool's
// exported (aliased) JSON object alongside the alias itself.
type Entry struct {
	Alias string
	Raw   json.RawMessage
}

// Registry maps aliases to their upstream bindings. A Registry is built
// once via Build and is immutable thereafter — rebuilding produces a new
// Registry rather than mutating an existing one, so the Aggregator can
// swap its active registry by replacing a single pointer.
type Registry struct {
	bindings map[string]Binding
}

// Build assigns a fresh, collision-free alias to every tool supplied,
// grouped by owning upstream. Within one upstream the catalog keeps the
// order its tools were supplied in; the order of the upstreams relative to
// each other follows map iteration and is not defined.
func Build(toolsByUpstream map[string][]tool.Tool) (*Registry, []Entry, error) {
	r := &Registry{bindings: make(map[string]Binding)}
	var catalog []Entry

	total := 0
	for upstreamName, tools := range toolsByUpstream {
		if len(tools) > MaxToolsPerUpstream {
			tools = tools[:MaxToolsPerUpstream]
		}
		for _, t := range tools {
			if total >= MaxTotalTools {
				break
			}
			aliasStr, err := r.generate()
			if err != nil {
				return nil, nil, fmt.Errorf("generating alias: %w", err)
			}
			raw, err := t.WithName(aliasStr)
			if err != nil {
				return nil, nil, fmt.Errorf("rewriting tool %q: %w", t.Name, err)
			}

			r.bindings[aliasStr] = Binding{UpstreamName: upstreamName, ToolName: t.Name}
			catalog = append(catalog, Entry{Alias: aliasStr, Raw: raw})
			total++
		}
	}

	return r, catalog, nil
}

// generate produces a fresh alias, rejecting and regenerating on collision
// with any alias already present in this registry build.
func (r *Registry) generate() (string, error) {
	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		b := make([]byte, aliasBytes)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		candidate := hex.EncodeToString(b)
		if _, exists := r.bindings[candidate]; !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not generate a collision-free alias after %d attempts", maxGenerationAttempts)
}

// Resolve looks up an alias, returning its binding and whether it was
// found. Safe for concurrent use — a Registry is never mutated after
// Build returns it.
func (r *Registry) Resolve(aliasStr string) (Binding, bool) {
	b, ok := r.bindings[aliasStr]
	return b, ok
}

// Len returns the number of aliases in the registry.
func (r *Registry) Len() int {
	return len(r.bindings)
}

// Active holds the currently live Registry for an aggregator, supporting
// atomic swap-on-rebuild: readers either see the previous registry in its
// entirety or the new one, never a partially built one.
type Active struct {
	mu  sync.RWMutex
	reg *Registry
}

// Load returns the current Registry. Returns nil if none has been built yet.
func (a *Active) Load() *Registry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.reg
}

// Store replaces the current Registry with a newly built one.
func (a *Active) Store(reg *Registry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reg = reg
}
