// Package middleware provides gin middleware for the local control API:
// loopback-only access, CORS for local web front ends and per-client rate
// limiting.
package middleware
