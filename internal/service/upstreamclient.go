package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mcpmux/mcpmux/internal/domain/rpc"
	"github.com/mcpmux/mcpmux/internal/domain/tool"
	"github.com/mcpmux/mcpmux/internal/port/outbound"
	"github.com/mcpmux/mcpmux/pkg/mcp"
)

// discoveryTimeout bounds how long a single upstream gets to complete its
// initialize handshake and answer tools/list before it is marked failed.
const discoveryTimeout = 15 * time.Second

// UpstreamClient is the Upstream Client described by the aggregator: it
// owns one transport connection to a single upstream MCP server, performs
// the initialize handshake, and multiplexes JSON-RPC requests over the
// connection by id.
type UpstreamClient struct {
	Name string

	client outbound.MCPClient
	logger *slog.Logger

	stdin  io.WriteCloser
	stdout io.ReadCloser

	pending *rpc.Pending
	nextID  atomic.Int64

	tools []tool.Tool
}

// NewUpstreamClient wraps a transport adapter for the named upstream.
func NewUpstreamClient(name string, client outbound.MCPClient, logger *slog.Logger) *UpstreamClient {
	return &UpstreamClient{
		Name:    name,
		client:  client,
		logger:  logger,
		pending: rpc.NewPending(),
	}
}

// Connect starts the transport, performs the initialize/initialized
// handshake, and fetches the tool catalog. On any failure the connection
// is torn down and an error is returned; per the proxy's no-retry
// invariant, the caller marks the upstream failed rather than retrying.
func (c *UpstreamClient) Connect(ctx context.Context) error {
	stdin, stdout, err := c.client.Start(ctx)
	if err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	c.stdin = stdin
	c.stdout = stdout

	go c.readLoop()

	handshakeCtx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	// initialize is sent as a fire-and-forget notification: the proxy does
	// not wait for (or need) the upstream's capabilities response.
	if err := c.notify("initialize", initializeParams()); err != nil {
		_ = c.Close()
		return fmt.Errorf("send initialize: %w", err)
	}
	if err := c.notify("notifications/initialized", nil); err != nil {
		_ = c.Close()
		return fmt.Errorf("send notifications/initialized: %w", err)
	}

	raw, err := c.request(handshakeCtx, "tools/list", nil)
	if err != nil {
		_ = c.Close()
		return fmt.Errorf("tools/list: %w", err)
	}

	tools, err := tool.ParseList(raw)
	if err != nil {
		_ = c.Close()
		return fmt.Errorf("parse tools/list result: %w", err)
	}
	c.tools = tools

	return nil
}

// Tools returns the tool catalog discovered at connect time.
func (c *UpstreamClient) Tools() []tool.Tool {
	return c.tools
}

// Call issues a tools/call for origName (the upstream's own tool name, not
// the alias a downstream client sees) and returns the raw "result" payload
// from the upstream's response.
func (c *UpstreamClient) Call(ctx context.Context, origName string, arguments json.RawMessage) (json.RawMessage, error) {
	params, err := json.Marshal(map[string]json.RawMessage{
		"name":      mustMarshal(origName),
		"arguments": arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("build tools/call params: %w", err)
	}
	return c.request(ctx, "tools/call", params)
}

// Close tears down the transport and releases any waiters still blocked on
// a reply that will now never arrive.
func (c *UpstreamClient) Close() error {
	c.pending.DrainAll()
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// request sends a JSON-RPC request and blocks for its response.
func (c *UpstreamClient) request(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	id := fmt.Sprintf("%d", c.nextID.Add(1))
	waiter := c.pending.Register(id)

	if err := c.write(method, params, id); err != nil {
		c.pending.Cancel(id)
		return nil, err
	}

	select {
	case raw, ok := <-waiter:
		if !ok {
			return nil, fmt.Errorf("upstream %q connection closed before replying to %s", c.Name, method)
		}
		return raw, nil
	case <-ctx.Done():
		c.pending.Cancel(id)
		return nil, ctx.Err()
	}
}

// notify sends a JSON-RPC notification (no id, no reply expected).
func (c *UpstreamClient) notify(method string, params json.RawMessage) error {
	return c.write(method, params, "")
}

func (c *UpstreamClient) write(method string, params json.RawMessage, id string) error {
	fields := map[string]json.RawMessage{
		"jsonrpc": mustMarshal("2.0"),
		"method":  mustMarshal(method),
	}
	if id != "" {
		fields["id"] = mustMarshal(id)
	}
	if params != nil {
		fields["params"] = params
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	if wrapped, werr := mcp.WrapMessage(raw, mcp.ClientToServer); werr == nil {
		c.logger.Debug("sending to upstream", "upstream", c.Name, "direction", wrapped.Direction, "method", wrapped.Method(), "tool_call", wrapped.IsToolCall())
	}

	if _, err := c.stdin.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", method, err)
	}
	return nil
}

// readLoop reads newline-delimited JSON-RPC messages from the upstream and
// dispatches responses to their waiters by id. Requests and notifications
// sent by the upstream (outside the handshake) are logged and dropped: an
// upstream MCP server has no standing to call back into the proxy.
func (c *UpstreamClient) readLoop() {
	defer c.pending.DrainAll()

	scanner := bufio.NewScanner(c.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var envelope struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Result json.RawMessage `json:"result"`
			Error  json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(line, &envelope); err != nil {
			c.logger.Warn("upstream sent malformed message", "upstream", c.Name, "error", err)
			continue
		}
		if wrapped, werr := mcp.WrapMessage(line, mcp.ServerToClient); werr == nil {
			c.logger.Debug("received from upstream", "upstream", c.Name, "direction", wrapped.Direction, "is_response", wrapped.IsResponse())
		}
		if envelope.ID == nil || string(envelope.ID) == "null" {
			continue
		}
		if envelope.Method != "" {
			// A request from the upstream, not a reply to one of ours.
			continue
		}

		id := string(envelope.ID)
		if len(id) >= 2 && id[0] == '"' {
			var s string
			_ = json.Unmarshal(envelope.ID, &s)
			id = s
		}

		payload := envelope.Result
		if envelope.Error != nil {
			payload = envelope.Error
		}
		c.pending.Deliver(id, payload)
	}

	if err := scanner.Err(); err != nil {
		c.logger.Warn("upstream read loop ended with error", "upstream", c.Name, "error", err)
	}
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

// initializeParams builds the params the proxy advertises to an upstream
// during the handshake. clientInfo is a pinned protocol descriptor, not a
// build version: it must stay "EzMCPCli"/"0.1.2" for upstreams that key
// behavior off the connecting client identity.
func initializeParams() json.RawMessage {
	return mustMarshal(map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "EzMCPCli",
			"version": "0.1.2",
		},
	})
}
