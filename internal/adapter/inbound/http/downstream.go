// Package http provides the downstream MCP surface (SSE transport) and the
// admin REST API for the app registry.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcpmux/mcpmux/internal/domain/session"
	"github.com/mcpmux/mcpmux/internal/service"
)

// serverInfo is advertised in the initialize response. Unlike the alias
// registry, this never changes across a build.
var serverInfo = map[string]any{
	"protocolVersion": "2024-11-05",
	"capabilities": map[string]any{
		"experimental": map[string]any{},
		"prompts":      map[string]any{"listChanged": false},
		"resources":    map[string]any{"subscribe": false, "listChanged": false},
		"tools":        map[string]any{"listChanged": false},
	},
	"serverInfo": map[string]any{
		"name":    "mcpsrv",
		"version": "1.3.0",
	},
}

// Downstream is the MCP-facing HTTP+SSE surface for a single app: it holds
// one SSE subscriber per connected client and routes their requests into
// the app's Aggregator.
type Downstream struct {
	Name        string
	Description string

	aggregator *service.Aggregator
	sessions   *session.Table
	logger     *slog.Logger
	startedAt  time.Time
}

// NewDownstream creates the downstream surface for one app.
func NewDownstream(name, description string, aggregator *service.Aggregator, logger *slog.Logger) *Downstream {
	return &Downstream{
		Name:        name,
		Description: description,
		aggregator:  aggregator,
		sessions:    session.NewTable(),
		logger:      logger,
		startedAt:   time.Now(),
	}
}

// RegisterRoutes mounts this app's routes under prefix (e.g. "/myapp"):
// {prefix}/sse, {prefix}/messages/, {prefix}/server_status.
func (d *Downstream) RegisterRoutes(mux *http.ServeMux, prefix string) {
	mux.HandleFunc(prefix+"/sse", d.handleSSE)
	mux.HandleFunc(prefix+"/messages/", d.handleMessages)
	mux.HandleFunc(prefix+"/server_status", d.handleServerStatus)
}

// setCORSHeaders applies the permissive CORS policy the downstream MCP
// surface uses for every route: this proxy authenticates upstream
// connections itself, not individual downstream browser origins.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// handlePreflight answers a CORS preflight OPTIONS request with a bare 204
// and reports whether it did, so callers can stop processing the request.
func handlePreflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	w.WriteHeader(http.StatusNoContent)
	return true
}

// handleSSE opens a long-lived Server-Sent Events stream for one
// downstream client, assigns it a session id, and immediately advertises
// the "endpoint" URL to POST requests to.
func (d *Downstream) handleSSE(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if handlePreflight(w, r) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	id, err := session.GenerateID()
	if err != nil {
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sess := session.New(id, func(event, data string) error {
		if _, err := fmt.Fprintf(w, "event: %s\r\ndata: %s\r\n\r\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	d.sessions.Put(sess)
	defer d.sessions.Remove(id)
	defer sess.Close()

	endpoint := fmt.Sprintf("%s/messages/?session_id=%s", routePrefix(r), id)
	if err := sess.Send("endpoint", endpoint); err != nil {
		return
	}

	<-r.Context().Done()
}

// routePrefix recovers the app's mount prefix from the SSE request path,
// e.g. "/myapp/sse" -> "/myapp", matching what RegisterRoutes was given.
func routePrefix(r *http.Request) string {
	path := r.URL.Path
	const suffix = "/sse"
	if len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix {
		return path[:len(path)-len(suffix)]
	}
	return ""
}

// rpcRequest is the subset of a JSON-RPC request the downstream dispatcher
// needs; params are kept raw and decoded per-method.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// handleMessages accepts one JSON-RPC message for an existing SSE session.
// Per the proxy's transport contract, this endpoint always answers 202
// Accepted: the actual JSON-RPC reply (if any) is delivered asynchronously
// over the session's SSE stream, not in this response body.
func (d *Downstream) handleMessages(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if handlePreflight(w, r) {
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reqLogger := LoggerFromContext(r.Context(), d.logger)

	sessionID := r.URL.Query().Get("session_id")
	sess, err := d.sessions.Get(sessionID)
	if err != nil {
		reqLogger.Debug("message posted for unknown session", "app", d.Name, "session_id", sessionID)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("Accepted"))
		return
	}

	var req rpcRequest
	if jsonErr := json.NewDecoder(r.Body).Decode(&req); jsonErr != nil {
		reqLogger.Debug("invalid JSON-RPC request body", "app", d.Name, "session_id", sessionID, "error", jsonErr)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("Accepted"))
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("Accepted"))

	// The POST's request context is cancelled the instant this handler
	// returns, but tool calls dispatched here must keep running and reply
	// later over the session's independent SSE stream.
	go d.dispatch(context.Background(), sess, req)
}

// dispatch handles one JSON-RPC request for a session and, unless it was a
// notification (no id), pushes the reply over the session's SSE stream.
func (d *Downstream) dispatch(ctx context.Context, sess *session.Session, req rpcRequest) {
	if req.ID == nil || string(req.ID) == "null" {
		// Notification: no reply expected. notifications/initialized is the
		// only one a downstream client sends us; there is nothing to do.
		return
	}

	var result json.RawMessage
	switch req.Method {
	case "initialize":
		result = mustMarshalHTTP(serverInfo)
	case "ping":
		result = mustMarshalHTTP(map[string]any{})
	case "tools/list":
		result = d.aggregator.ToolsList()
	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			d.sendError(sess, req.ID, -32602, "invalid params")
			return
		}
		result = d.aggregator.Call(ctx, params.Name, params.Arguments)
	default:
		d.sendError(sess, req.ID, -32601, fmt.Sprintf("method not found: %s", req.Method))
		return
	}

	d.sendResult(sess, req.ID, result)
}

func (d *Downstream) sendResult(sess *session.Session, id json.RawMessage, result json.RawMessage) {
	payload := mustMarshalHTTP(map[string]json.RawMessage{
		"jsonrpc": mustMarshalHTTP("2.0"),
		"id":      id,
		"result":  result,
	})
	if err := sess.Send("message", string(payload)); err != nil {
		d.logger.Debug("failed to deliver response, client likely disconnected", "app", d.Name, "error", err)
	}
}

func (d *Downstream) sendError(sess *session.Session, id json.RawMessage, code int, message string) {
	payload := mustMarshalHTTP(map[string]json.RawMessage{
		"jsonrpc": mustMarshalHTTP("2.0"),
		"id":      id,
		"error": mustMarshalHTTP(map[string]any{
			"code":    code,
			"message": message,
		}),
	})
	if err := sess.Send("message", string(payload)); err != nil {
		d.logger.Debug("failed to deliver error response", "app", d.Name, "error", err)
	}
}

// handleServerStatus reports liveness and the freshly rebuilt tool catalog
// for this app, independent of any single SSE session.
func (d *Downstream) handleServerStatus(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if handlePreflight(w, r) {
		return
	}

	statuses := d.aggregator.Statuses()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"name":           d.Name,
		"description":    d.Description,
		"init_time":      d.startedAt.Unix(),
		"status":         "ok",
		"connection_cnt": d.sessions.Len(),
		"tools":          d.aggregator.ToolsCatalog(),
		"upstreams":      statuses,
	})
}

func mustMarshalHTTP(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
