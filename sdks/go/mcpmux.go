// Package mcpmux provides a Go SDK for the mcpmux admin REST API.
//
// mcpmux aggregates multiple upstream MCP servers behind one downstream
// endpoint per app. This SDK manages the app registry: it does not speak
// MCP itself, only the control-plane API that creates, lists, and removes
// apps and their upstreams. It uses only the Go standard library
// (net/http) with zero external dependencies.
//
// Quick start:
//
//	// Set MCPMUX_SERVER_ADDR env var, then:
//	client := mcpmux.NewClient()
//
//	a, err := client.CreateApp(ctx, mcpmux.CreateAppRequest{
//	    Name: "my-tools",
//	    Upstreams: []mcpmux.UpstreamSpec{
//	        {Name: "fs", Kind: mcpmux.KindStdio, Command: "mcp-server-filesystem"},
//	    },
//	})
package mcpmux

import "time"

// UpstreamKind selects the transport used to reach an upstream MCP server.
type UpstreamKind string

const (
	// KindStdio launches the upstream as a child process.
	KindStdio UpstreamKind = "stdio"
	// KindSSE connects to the upstream over HTTP Server-Sent Events.
	KindSSE UpstreamKind = "sse"
)

// UpstreamSpec describes one upstream MCP server bundled into an app.
type UpstreamSpec struct {
	// Name identifies the upstream within its app.
	Name string `json:"name" yaml:"name"`
	// Kind selects the transport: stdio or sse.
	Kind UpstreamKind `json:"kind" yaml:"kind"`

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

// App is a registered bundle of upstreams exposed at one downstream MCP
// endpoint.
type App struct {
	// ID is the app's unique identifier, assigned by the server.
	ID string `json:"ID"`
	// Name is the unique, user-facing app name; it is also the path
	// segment the downstream MCP endpoint is mounted under.
	Name string `json:"Name"`
	// CreatedAt is when the app was registered.
	CreatedAt time.Time `json:"CreatedAt"`
	// Upstreams lists the upstream MCP servers this app bundles.
	Upstreams []UpstreamSpec `json:"Upstreams"`
}

// CreateAppRequest is the input to CreateApp.
type CreateAppRequest struct {
	Name      string         `json:"name"`
	Upstreams []UpstreamSpec `json:"upstreams"`
}
