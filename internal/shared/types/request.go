package types

// ExecuteRequest represents a service execution request
type ExecuteRequest struct {
	ToolID   string                 `json:"tool_id" binding:"required"`
	Params   map[string]interface{} `json:"params"`
	ClientID *string                `json:"client_id,omitempty"`
}

// StreamFrame is one websocket frame in either direction.
//
// Server to client: "output" (Data is base64), "exit" (ExitCode may be
// absent), "pong", "error". Client to server: "input" (Data is base64 unless
// Text is set), "resize", "ping".
type StreamFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      string `json:"data,omitempty"`
	Text      string `json:"text,omitempty"`
	ExitCode  *int   `json:"exit_code,omitempty"`
	Cols      int    `json:"cols,omitempty"`
	Rows      int    `json:"rows,omitempty"`
	Message   string `json:"message,omitempty"`
}
