// Package server is the composition root of ptyhost.
//
// NewServer wires configuration, logging, metrics, the descriptor store, the
// tmux client, the session manager, the tool registry and the gin router.
// Run sweeps orphaned tmux sessions and serves the control API on a unix
// socket and, optionally, a loopback TCP address.
package server
