package terminal

import "github.com/GriffinCanCode/ptyhost/internal/shared/types"

var (
	sessionIDParam = types.Parameter{Name: "session_id", Type: "string", Required: true, Description: "Terminal session ID"}
	colsParam      = types.Parameter{Name: "cols", Type: "number", Description: "Terminal width in columns. Defaults to 80"}
	rowsParam      = types.Parameter{Name: "rows", Type: "number", Description: "Terminal height in rows. Defaults to 24"}
)

func (p *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "terminal.create_session",
			Name:        "Create Terminal Session",
			Description: "Start a shell, or a one-shot command, on a new pseudo-terminal. Uses tmux when enabled and available",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Session ID. Generated when omitted"},
				{Name: "working_directory", Type: "string", Description: "Initial working directory. Defaults to the user's home"},
				{Name: "command", Type: "string", Description: "Run this command instead of an interactive shell"},
				colsParam,
				rowsParam,
			},
			Returns: "session_info",
		},
		{
			ID:          "terminal.attach_session",
			Name:        "Attach Terminal Session",
			Description: "Reattach a session ID to a tmux session that survived a restart",
			Parameters: []types.Parameter{
				sessionIDParam,
				{Name: "external_name", Type: "string", Required: true, Description: "tmux session name"},
				{Name: "working_directory", Type: "string", Description: "Directory recorded for the session"},
				colsParam,
				rowsParam,
			},
			Returns: "attached",
		},
		{
			ID:          "terminal.write",
			Name:        "Write to Terminal",
			Description: "Send input bytes to a session",
			Parameters: []types.Parameter{
				sessionIDParam,
				{Name: "data", Type: "string", Description: "Base64-encoded input"},
				{Name: "text", Type: "string", Description: "Plain text input, used when data is absent"},
			},
			Returns: "written",
		},
		{
			ID:          "terminal.read",
			Name:        "Read from Terminal",
			Description: "Drain recent output buffered for a session",
			Parameters:  []types.Parameter{sessionIDParam},
			Returns:     "output_data",
		},
		{
			ID:          "terminal.resize",
			Name:        "Resize Terminal",
			Description: "Change terminal dimensions. Sizes below 2x2 are ignored",
			Parameters: []types.Parameter{
				sessionIDParam,
				{Name: "cols", Type: "number", Required: true, Description: "Terminal width in columns"},
				{Name: "rows", Type: "number", Required: true, Description: "Terminal height in rows"},
			},
			Returns: "size",
		},
		{
			ID:          "terminal.detach",
			Name:        "Detach Terminal",
			Description: "Drop the local connection. tmux sessions keep running; direct sessions are closed",
			Parameters:  []types.Parameter{sessionIDParam},
			Returns:     "detached",
		},
		{
			ID:          "terminal.close",
			Name:        "Close Terminal",
			Description: "Terminate a session and its tmux session",
			Parameters:  []types.Parameter{sessionIDParam},
			Returns:     "exit_code",
		},
		{
			ID:          "terminal.list_sessions",
			Name:        "List Sessions",
			Description: "List tracked session IDs",
			Returns:     "sessions",
		},
		{
			ID:          "terminal.is_active",
			Name:        "Is Session Active",
			Description: "Report whether a session is tracked and its process or tmux session is alive",
			Parameters:  []types.Parameter{sessionIDParam},
			Returns:     "active",
		},
		{
			ID:          "terminal.get_session",
			Name:        "Get Session",
			Description: "Describe one session",
			Parameters:  []types.Parameter{sessionIDParam},
			Returns:     "session_info",
		},
		{
			ID:          "terminal.active_count",
			Name:        "Active Session Count",
			Description: "Count sessions whose local process is running",
			Returns:     "count",
		},
		{
			ID:          "terminal.close_all",
			Name:        "Release All Sessions",
			Description: "Kill direct sessions and detach tmux sessions",
			Returns:     "closed",
		},
		{
			ID:          "terminal.multiplexer_status",
			Name:        "Multiplexer Status",
			Description: "Report tmux availability, version and the current preference",
			Returns:     "status",
		},
		{
			ID:          "terminal.list_external",
			Name:        "List tmux Sessions",
			Description: "List tmux sessions in this host's namespace",
			Returns:     "sessions",
		},
		{
			ID:          "terminal.set_use_multiplexer",
			Name:        "Set Multiplexer Preference",
			Description: "Enable or disable tmux for new sessions and persist the choice",
			Parameters: []types.Parameter{
				{Name: "enabled", Type: "boolean", Required: true, Description: "Use tmux for new sessions"},
			},
			Returns: "enabled",
		},
		{
			ID:          "terminal.save_layout",
			Name:        "Save Layout",
			Description: "Replace the saved session layout. At most 10 sessions are kept",
			Parameters: []types.Parameter{
				{Name: "sessions", Type: "array", Required: true, Description: "Objects with session_id, project_id, tab_name, tab_type, working_directory, sort_order"},
			},
			Returns: "saved",
		},
		{
			ID:          "terminal.restore_layout",
			Name:        "Restore Layout",
			Description: "Reattach or recreate every saved session",
			Parameters:  []types.Parameter{colsParam, rowsParam},
			Returns:     "sessions",
		},
	}
}
