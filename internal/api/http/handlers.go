package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ptyhost/internal/service"
	"github.com/GriffinCanCode/ptyhost/internal/shared/types"
	"github.com/GriffinCanCode/ptyhost/internal/shared/utils"
	"github.com/GriffinCanCode/ptyhost/internal/terminal"
)

// Version is reported by the root and health endpoints.
const Version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	registry *service.Registry
	manager  *terminal.Manager
	logger   *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(registry *service.Registry, manager *terminal.Manager, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		registry: registry,
		manager:  manager,
		logger:   logger,
	}
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "ptyhost",
		"version": Version,
	})
}

// Health handles the detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": Version,
		"sessions": gin.H{
			"tracked": len(h.manager.ListSessions()),
			"running": h.manager.ActiveCount(),
		},
		"multiplexer":      h.manager.MultiplexerStatus(),
		"service_registry": h.registry.Stats(),
	})
}

// ListServices returns the tool catalogue
func (h *Handlers) ListServices(c *gin.Context) {
	services := h.registry.List(nil)
	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"stats":    h.registry.Stats(),
	})
}

// ExecuteService executes a service tool
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_params"})
		return
	}

	if err := utils.ValidateToolID(req.ToolID, "tool_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_params"})
		return
	}
	if req.ClientID != nil {
		if err := utils.ValidateID(*req.ClientID, "client_id", false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_params"})
			return
		}
	}

	appCtx := &types.Context{
		ClientID: req.ClientID,
		Remote:   c.Request.RemoteAddr,
	}

	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, appCtx)
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("tool execution failed", zap.String("tool_id", req.ToolID), zap.Error(err))
		} else {
			h.logger.Debug("tool execution rejected", zap.String("tool_id", req.ToolID), zap.Error(err))
		}
		msg := err.Error()
		c.JSON(status, gin.H{
			"success": false,
			"error":   msg,
			"kind":    ErrorKind(err),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Metrics serves the Prometheus exposition for gatherer.
func Metrics(gatherer prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
