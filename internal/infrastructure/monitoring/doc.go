/*
Package monitoring provides Prometheus metrics for ptyhost.

# Overview

Metrics cover the control API (HTTP requests, tool executions), the session
manager (tracked sessions per backend, creations, reattachments, exits, bytes
moved through terminals), tmux control commands, orphan sweeps, descriptor
persistence and WebSocket streams.

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics, "terminal", "create_session")
	// ... execute ...
	timer.Stop("success")

Tests pass prometheus.NewRegistry() to avoid duplicate registration. A nil
*Metrics records nothing.

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
*/
package monitoring
