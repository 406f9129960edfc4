package terminal

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ptyhost/internal/shared/types"
	"github.com/GriffinCanCode/ptyhost/internal/store"
	"github.com/GriffinCanCode/ptyhost/internal/terminal"
)

// DescriptorStore persists layouts and the multiplexer preference.
type DescriptorStore interface {
	SaveDescriptors(ctx context.Context, inputs []store.DescriptorInput) (int, error)
	LoadDescriptors(ctx context.Context) ([]store.Descriptor, error)
	SetUseMultiplexer(ctx context.Context, enabled bool) error
}

// Provider exposes the session manager as terminal.* tools.
type Provider struct {
	manager *terminal.Manager
	store   DescriptorStore
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewProvider creates a terminal provider. descriptors may be nil, in which case
// layout tools fail and preference changes are not persisted.
func NewProvider(manager *terminal.Manager, descriptors DescriptorStore, metrics *monitoring.Metrics, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		manager: manager,
		store:   descriptors,
		metrics: metrics,
		logger:  logger,
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "terminal",
		Name:        "Terminal Service",
		Description: "Pseudo-terminal shell sessions with optional tmux persistence",
		Category:    types.CategoryTerminal,
		Capabilities: []string{
			"pty",
			"shell",
			"interactive",
			"tmux",
			"sessions",
			"resize",
			"layout",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "terminal.create_session":
		return p.createSession(ctx, params)
	case "terminal.attach_session":
		return p.attachSession(ctx, params)
	case "terminal.write":
		return p.write(params)
	case "terminal.read":
		return p.read(params)
	case "terminal.resize":
		return p.resize(ctx, params)
	case "terminal.detach":
		return p.detach(ctx, params)
	case "terminal.close":
		return p.close(ctx, params)
	case "terminal.list_sessions":
		return p.listSessions()
	case "terminal.is_active":
		return p.isActive(ctx, params)
	case "terminal.get_session":
		return p.getSession(params)
	case "terminal.active_count":
		return success(map[string]interface{}{"count": p.manager.ActiveCount()})
	case "terminal.close_all":
		return success(map[string]interface{}{"closed": p.manager.CloseAll(ctx)})
	case "terminal.multiplexer_status":
		return p.multiplexerStatus()
	case "terminal.list_external":
		return p.listExternal(ctx)
	case "terminal.set_use_multiplexer":
		return p.setUseMultiplexer(ctx, params)
	case "terminal.save_layout":
		return p.saveLayout(ctx, params)
	case "terminal.restore_layout":
		return p.restoreLayout(ctx, params)
	default:
		return nil, fmt.Errorf("%w: unknown tool: %s", types.ErrInvalidParams, toolID)
	}
}

func defaultDir(dir string) string {
	if dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "/"
}

func success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}
