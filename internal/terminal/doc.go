// Package terminal manages pseudo-terminal sessions.
//
// A Manager tracks sessions by ID. Each session runs on one of two backends:
//
//   - direct: the shell or one-shot command runs on the local pseudo-terminal
//     and dies with it.
//   - tmux: the shell lives in a named tmux session; the local
//     pseudo-terminal only runs an attach client, so detaching or restarting
//     the host leaves the shell running for a later AttachSession.
//
// Every session has a reader goroutine that publishes output to an
// EventSink in read order. Sessions started with a command also get a
// monitor goroutine that publishes the exit code once the child exits and
// the reader has drained, bounded by the exit grace period. Each local
// transport produces at most one Exit event; detached and replaced
// transports are silenced.
package terminal
