// Package types provides shared data structures for ptyhost.
//
// Core Types:
//   - Service, Tool, Parameter: tool catalogue entries
//   - Context: caller information passed to providers
//   - Result: standard tool result envelope
//
// Request Types:
//   - ExecuteRequest: tool execution over HTTP
//   - StreamFrame: websocket frames for the event stream
//
// Example Usage:
//
//	result, err := registry.Execute(ctx, "terminal.create_session", map[string]interface{}{
//	    "working_directory": "/home/user",
//	}, &types.Context{})
package types
