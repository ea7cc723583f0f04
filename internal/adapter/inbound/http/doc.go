// Package http provides mcpmux's two HTTP surfaces: the downstream MCP
// transport and the admin REST API.
//
// The downstream MCP surface is HTTP+SSE, one mount per app:
//
//   - GET  {prefix}/sse           opens a long-lived event stream, assigns
//     the client a session id, and immediately emits an "endpoint" event
//     carrying the URL to POST requests to.
//   - POST {prefix}/messages/?session_id=<id>  accepts one JSON-RPC
//     request for that session. This endpoint always answers 202
//     Accepted; the actual JSON-RPC reply (or error) is delivered
//     asynchronously as a "message" event over the session's SSE stream,
//     never in the POST response body.
//   - GET  {prefix}/server_status returns the app's liveness, open session
//     count, merged tool catalog and per-upstream status, independent of
//     any single session.
//
// SSE frames are written as "event: <name>\r\ndata: <payload>\r\n\r\n" —
// CRLF line endings, matching what the reference MCP SSE transport expects.
// This differs from the bare "\n\n" framing some HTTP/SSE libraries use
// elsewhere in this codebase's history; downstream clients of this proxy
// require the CRLF form.
//
// The admin REST API is plain request/response JSON under /admin/apps: it
// manages the app registry (create, list, inspect, delete) and is the
// control plane for bringing new apps' upstreams online, not part of the
// MCP data plane.
package http
