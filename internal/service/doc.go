// Package service provides the tool registry for ptyhost providers.
//
// The registry maintains a catalogue of service providers and dispatches
// "service.tool" IDs to them, recording call counts and durations.
//
// Example Usage:
//
//	registry := service.NewRegistry(metrics)
//	registry.Register(terminalProvider)
//	result, err := registry.Execute(ctx, "terminal.list_sessions", nil, appCtx)
package service
