// Package app models a configured bundle of upstream MCP servers exposed
// behind one aggregating proxy endpoint.
package app

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/mcpmux/mcpmux/internal/domain/upstream"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const nameMaxLength = 64

// App is a named bundle of upstream MCP servers, aggregated behind one
// downstream endpoint at /{name}/sse.
type App struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	Upstreams []upstream.Spec
}

// Validate checks the app's own fields and every upstream spec it carries.
func (a *App) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(a.Name) > nameMaxLength {
		return fmt.Errorf("name must be %d characters or less", nameMaxLength)
	}
	if !namePattern.MatchString(a.Name) {
		return fmt.Errorf("name contains invalid characters (allowed: alphanumeric, hyphens, underscores)")
	}

	seen := make(map[string]struct{}, len(a.Upstreams))
	for i := range a.Upstreams {
		u := &a.Upstreams[i]
		if err := u.Validate(); err != nil {
			return fmt.Errorf("upstream %d: %w", i, err)
		}
		if _, dup := seen[u.Name]; dup {
			return fmt.Errorf("duplicate upstream name %q", u.Name)
		}
		seen[u.Name] = struct{}{}
	}

	return nil
}

// Clone returns a deep copy, so callers holding a pointer into a Store's
// internal state can never mutate it out from under a concurrent reader.
func (a *App) Clone() *App {
	clone := *a
	clone.Upstreams = make([]upstream.Spec, len(a.Upstreams))
	for i, u := range a.Upstreams {
		clone.Upstreams[i] = u
		if u.Args != nil {
			clone.Upstreams[i].Args = append([]string(nil), u.Args...)
		}
		if u.Env != nil {
			clone.Upstreams[i].Env = cloneStringMap(u.Env)
		}
		if u.Headers != nil {
			clone.Upstreams[i].Headers = cloneStringMap(u.Headers)
		}
	}
	return &clone
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
