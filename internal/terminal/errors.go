package terminal

import "errors"

// Error kinds returned by the Manager. Every error wraps exactly one of them;
// classify with errors.Is.
var (
	// ErrAlreadyExists is returned when a session ID or external name is taken.
	ErrAlreadyExists = errors.New("session already exists")
	// ErrNotFound is returned for unknown sessions and vanished external sessions.
	ErrNotFound = errors.New("session not found")
	// ErrSpawnFailed is returned when a pseudo-terminal or process cannot be started.
	ErrSpawnFailed = errors.New("spawn failed")
	// ErrExternalCommandFailed is returned when a multiplexer command fails.
	ErrExternalCommandFailed = errors.New("external command failed")
	// ErrIO is returned when writing to or resizing a live terminal fails.
	ErrIO = errors.New("terminal i/o failed")
)
