// Package upstream contains domain types describing a configured upstream
// MCP server: how to reach it, and its live connection state.
package upstream

import (
	"fmt"
	"net/url"
	"regexp"
)

// Kind identifies the transport used to reach an upstream MCP server.
type Kind string

const (
	// KindStdio launches the upstream as a child process and speaks
	// newline-delimited JSON-RPC over its stdin/stdout.
	KindStdio Kind = "stdio"
	// KindSSE connects to the upstream over HTTP, subscribing to a
	// Server-Sent Events stream and POSTing requests to the endpoint it
	// advertises.
	KindSSE Kind = "sse"
)

// Status is the runtime connection state of an upstream within a running
// aggregator.
type Status string

const (
	// StatusPending has not yet completed its initialize handshake.
	StatusPending Status = "pending"
	// StatusReady completed the handshake and has a tool catalog.
	StatusReady Status = "ready"
	// StatusFailed could not be started or its handshake failed; per the
	// proxy's no-retry invariant, a failed upstream stays failed and is
	// excluded from the aggregate tool catalog.
	StatusFailed Status = "failed"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

const nameMaxLength = 100

// Spec describes how to reach one upstream MCP server, as configured by an
// app's owner.
type Spec struct {
	// Name identifies the upstream within its app (unique per app, not
	// globally). Used only for diagnostics and the admin API — it never
	// appears in an alias.
	Name string `json:"name" yaml:"name"`
	// Kind selects the transport: stdio or sse.
	Kind Kind `json:"kind" yaml:"kind"`

	// Command is the executable to launch (stdio only).
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	// Args are the command-line arguments (stdio only).
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	// Env holds additional environment variables for the child process
	// (stdio only).
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// URL is the SSE endpoint to subscribe to (sse only).
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// Headers are sent with every HTTP request to the upstream (sse only).
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Validate checks that the spec is well-formed for its declared Kind.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Name) > nameMaxLength {
		return fmt.Errorf("name must be %d characters or less", nameMaxLength)
	}
	if !namePattern.MatchString(s.Name) {
		return fmt.Errorf("name contains invalid characters (allowed: alphanumeric, spaces, hyphens, underscores)")
	}

	switch s.Kind {
	case KindStdio:
		if s.Command == "" {
			return fmt.Errorf("command is required for stdio upstream")
		}
	case KindSSE:
		if s.URL == "" {
			return fmt.Errorf("url is required for sse upstream")
		}
		parsed, err := url.Parse(s.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("url is not a valid URL")
		}
	default:
		return fmt.Errorf("kind must be %q or %q", KindStdio, KindSSE)
	}

	return nil
}

// State is the live state of one running upstream within an aggregator: its
// spec plus whatever the handshake/discovery pass produced.
type State struct {
	Spec      Spec
	Status    Status
	LastError string
	ToolCount int
}
