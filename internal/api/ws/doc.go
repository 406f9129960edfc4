// Package ws streams session events over WebSocket.
//
// Connect to /stream?session_id=ID for one session, or /stream for all of
// them. Frames are JSON objects with a "type" field.
//
// Message Types (Server → Client):
//   - system: connection established
//   - output: {"session_id", "data"} with data base64-encoded
//   - exit: {"session_id", "exit_code"}; exit_code is absent when unknown
//   - pong: reply to ping
//   - error: {"session_id", "message"}
//
// Message Types (Client → Server):
//   - input: {"session_id", "data"} base64, or {"session_id", "text"}
//   - resize: {"session_id", "cols", "rows"}
//   - ping: keep-alive
//
// A connection that cannot keep up with output is closed with
// CloseTryAgainLater rather than stalling the session.
package ws
