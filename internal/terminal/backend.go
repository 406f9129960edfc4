package terminal

import (
	"context"
	"fmt"
	"os"

	"github.com/GriffinCanCode/ptyhost/internal/tmux"
	"go.uber.org/zap"
)

// BackendKind names a session backend.
type BackendKind string

const (
	// BackendDirect runs the shell straight on the local pseudo-terminal.
	BackendDirect BackendKind = "direct"
	// BackendMultiplexed bridges the local pseudo-terminal to a tmux session.
	BackendMultiplexed BackendKind = "tmux"
)

// StartRequest describes a new session's process.
type StartRequest struct {
	Dir     string
	Command string
	Cols    int
	Rows    int
}

// Backend is the contract shared by direct and multiplexed sessions. A
// backend is chosen once at creation and never changes.
type Backend interface {
	Kind() BackendKind
	// ExternalName is the tmux session name, or "" for direct sessions.
	ExternalName() string
	// Start creates the session and returns its first local transport.
	Start(ctx context.Context, req StartRequest) (*Transport, error)
	// Reopen returns a fresh local transport for an existing session.
	Reopen(ctx context.Context, dir string, cols, rows int) (*Transport, error)
	// Resize updates geometry tracked outside the local transport.
	Resize(ctx context.Context, cols, rows int) error
	// Terminate ends state that outlives the local transport.
	Terminate(ctx context.Context) error
	// Alive reports whether the session still exists.
	Alive(ctx context.Context, t *Transport) bool
}

type directBackend struct {
	shell ShellBuilder
}

func newDirectBackend(shell ShellBuilder) *directBackend {
	return &directBackend{shell: shell}
}

func (b *directBackend) Kind() BackendKind    { return BackendDirect }
func (b *directBackend) ExternalName() string { return "" }

func (b *directBackend) Start(_ context.Context, req StartRequest) (*Transport, error) {
	inv := b.shell.Interactive(req.Dir)
	if req.Command != "" {
		inv = b.shell.OneShot(req.Command)
	}
	return Open(OpenRequest{Invocation: inv, Dir: req.Dir, Cols: req.Cols, Rows: req.Rows})
}

func (b *directBackend) Reopen(context.Context, string, int, int) (*Transport, error) {
	return nil, fmt.Errorf("%w: direct sessions cannot be reattached", ErrNotFound)
}

func (b *directBackend) Resize(context.Context, int, int) error { return nil }
func (b *directBackend) Terminate(context.Context) error        { return nil }

func (b *directBackend) Alive(_ context.Context, t *Transport) bool {
	return t != nil && t.Child().Running()
}

type multiplexedBackend struct {
	client       *tmux.Client
	name         string
	shell        ShellBuilder
	historyLimit int
	logger       *zap.Logger
}

func newMultiplexedBackend(client *tmux.Client, name string, shell ShellBuilder, historyLimit int, logger *zap.Logger) *multiplexedBackend {
	return &multiplexedBackend{
		client:       client,
		name:         name,
		shell:        shell,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

func (b *multiplexedBackend) Kind() BackendKind    { return BackendMultiplexed }
func (b *multiplexedBackend) ExternalName() string { return b.name }

// Start creates the tmux session, configures it and only then attaches a
// local client. Options are best-effort once the session exists. The tmux
// session is killed if any later step fails.
func (b *multiplexedBackend) Start(ctx context.Context, req StartRequest) (*Transport, error) {
	err := b.client.NewSession(ctx, tmux.NewSessionOptions{
		Name:    b.name,
		Dir:     req.Dir,
		Cols:    req.Cols,
		Rows:    req.Rows,
		Command: b.shell.CommandLine(req.Dir, req.Command),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalCommandFailed, err)
	}

	t, err := b.finishStart(ctx, req)
	if err != nil {
		if kerr := b.client.KillSession(context.WithoutCancel(ctx), b.name); kerr != nil {
			b.logger.Warn("failed to clean up tmux session",
				zap.String("external_name", b.name),
				zap.Error(kerr))
		}
		return nil, err
	}
	return t, nil
}

func (b *multiplexedBackend) finishStart(ctx context.Context, req StartRequest) (*Transport, error) {
	defaultCommand := ""
	if req.Command == "" {
		defaultCommand = b.shell.DefaultCommand()
	}
	if err := b.client.Configure(ctx, b.name, b.historyLimit, defaultCommand); err != nil {
		b.logger.Warn("tmux options not applied",
			zap.String("external_name", b.name),
			zap.Error(err))
	}

	// A short command can finish before we get here, taking the tmux session
	// with it. The attach client then exits at once and the monitor reports it.
	if req.Command != "" {
		if !b.client.HasSession(ctx, b.name) {
			b.logger.Info("tmux command session ended before attach",
				zap.String("external_name", b.name))
		}
	} else if err := b.client.WaitForSession(ctx, b.name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalCommandFailed, err)
	}
	return b.Reopen(ctx, req.Dir, req.Cols, req.Rows)
}

// Reopen spawns a new attach client for the session.
func (b *multiplexedBackend) Reopen(_ context.Context, dir string, cols, rows int) (*Transport, error) {
	bin, args := b.client.AttachCommand(b.name)

	env := tmux.CleanEnv(os.Environ())
	env = setEnv(env, envTerm)
	env = setEnv(env, envColorTerm)
	if b.shell.Marker != "" {
		env = setEnv(env, b.shell.Marker+"=1")
	}

	return Open(OpenRequest{
		Invocation: Invocation{Path: bin, Args: args, Env: env},
		Dir:        existingDir(dir),
		Cols:       cols,
		Rows:       rows,
	})
}

func (b *multiplexedBackend) Resize(ctx context.Context, cols, rows int) error {
	if err := b.client.ResizeWindow(ctx, b.name, cols, rows); err != nil {
		return fmt.Errorf("%w: %w", ErrExternalCommandFailed, err)
	}
	return nil
}

func (b *multiplexedBackend) Terminate(ctx context.Context) error {
	if err := b.client.KillSession(ctx, b.name); err != nil {
		return fmt.Errorf("%w: %w", ErrExternalCommandFailed, err)
	}
	return nil
}

// Alive probes tmux directly: the session can be killed out of band while
// the local attach client is still winding down.
func (b *multiplexedBackend) Alive(ctx context.Context, _ *Transport) bool {
	return b.client.HasSession(ctx, b.name)
}

// existingDir keeps a reattach working when the original directory is gone;
// the attach client does not care where it runs.
func existingDir(dir string) string {
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
