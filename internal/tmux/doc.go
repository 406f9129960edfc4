// Package tmux is a small control client for the tmux CLI.
//
// Every session the host creates lives under a name prefix (default "ph-")
// followed by the first eight characters of the session ID. Targets are
// always exact ("=name") so one session name never prefix-matches another.
package tmux
