// Package http provides the gin handlers of the local control API.
//
// Routes:
//   - GET  /            liveness
//   - GET  /health      session counts and multiplexer status
//   - GET  /services    tool catalogue
//   - POST /services/execute  run a tool: {"tool_id": "terminal.write", "params": {...}}
//   - GET  /metrics     Prometheus exposition
//
// Tool errors map to status codes by kind: invalid parameters 400, unknown
// session 404, duplicate session 409, failed tmux command 502, anything
// else 500.
package http
