// Package terminal exposes the session manager as terminal.* tools.
//
// Tools:
//   - terminal.create_session: start a shell or command on a new pseudo-terminal
//   - terminal.attach_session: reattach to a surviving tmux session
//   - terminal.write / terminal.read: send input, drain buffered output
//   - terminal.resize, terminal.detach, terminal.close
//   - terminal.list_sessions, terminal.get_session, terminal.is_active, terminal.active_count
//   - terminal.close_all: release everything at shutdown
//   - terminal.multiplexer_status, terminal.list_external, terminal.set_use_multiplexer
//   - terminal.save_layout / terminal.restore_layout: persist and bring back tabs
//
// Manager errors are returned unchanged so callers can classify them with
// errors.Is against the terminal package's error kinds. Bad parameters wrap
// types.ErrInvalidParams.
//
// Example Usage:
//
//	result, err := registry.Execute(ctx, "terminal.create_session", map[string]interface{}{
//	    "working_directory": "/home/user/project",
//	    "cols": 120, "rows": 40,
//	}, appCtx)
//	// result.Data["session_id"], result.Data["external_name"]
package terminal
