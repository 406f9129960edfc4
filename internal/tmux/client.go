package tmux

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/monitoring"
	retry "github.com/avast/retry-go/v5"
	"go.uber.org/zap"
)

var (
	// ErrCommandFailed is returned when a tmux command exits non-zero.
	ErrCommandFailed = errors.New("tmux command failed")
	// ErrNotInstalled is returned when the tmux binary cannot be found.
	ErrNotInstalled = errors.New("tmux not installed")
)

const (
	// DefaultPrefix namespaces every session this host creates.
	DefaultPrefix = "ph-"
	// DefaultHistoryLimit is the scrollback configured on new sessions.
	DefaultHistoryLimit = 50000

	idChars = 8

	waitAttempts = 10
)

// SessionInfo describes a namespaced tmux session.
type SessionInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Created time.Time `json:"created"`
}

// NewSessionOptions configures a detached tmux session.
type NewSessionOptions struct {
	Name    string
	Dir     string
	Cols    int
	Rows    int
	Command string
}

// Client drives the tmux CLI for one session namespace.
type Client struct {
	bin       string
	socket    string
	prefix    string
	runner    Runner
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	waitDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithPrefix sets the session namespace prefix.
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithSocketName runs every command against a named server (tmux -L).
func WithSocketName(name string) Option {
	return func(c *Client) { c.socket = name }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records every command in m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithWaitDelay sets the interval between WaitForSession probes.
func WithWaitDelay(delay time.Duration) Option {
	return func(c *Client) { c.waitDelay = delay }
}

// New creates a client for the tmux binary at bin.
func New(bin string, opts ...Option) *Client {
	if bin == "" {
		bin = "tmux"
	}
	c := &Client{
		bin:       bin,
		prefix:    DefaultPrefix,
		runner:    ExecRunner{},
		logger:    zap.NewNop(),
		waitDelay: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bin returns the tmux binary path.
func (c *Client) Bin() string { return c.bin }

// Prefix returns the session namespace prefix.
func (c *Client) Prefix() string { return c.prefix }

func (c *Client) serverArgs(args []string) []string {
	if c.socket == "" {
		return args
	}
	return append([]string{"-L", c.socket}, args...)
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	out, err := c.runner.Run(ctx, c.bin, c.serverArgs(args)...)
	c.metrics.RecordTmuxCommand(subcommand(args), err)
	if err != nil {
		c.logger.Debug("tmux command failed",
			zap.Strings("args", args),
			zap.Error(err))
	}
	return out, err
}

// Version probes the tmux binary and returns its version string, e.g.
// "tmux 3.4".
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.run(ctx, "-V")
}

// SessionName derives the deterministic external name for a session ID.
func (c *Client) SessionName(id string) string {
	short := id
	if utf8.RuneCountInString(short) > idChars {
		short = string([]rune(short)[:idChars])
	}
	return c.prefix + Sanitize(short)
}

// Owns reports whether name belongs to this client's namespace.
func (c *Client) Owns(name string) bool {
	return strings.HasPrefix(name, c.prefix)
}

// Sanitize replaces characters tmux treats specially in targets.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// exact builds a session target that never prefix-matches another session.
func exact(name string) string { return "=" + name }

// exactWindow targets the current window of the named session. Commands that
// take a window or pane target reject a bare "=name".
func exactWindow(name string) string { return exact(name) + ":" }

// NewSession starts a detached session.
func (c *Client) NewSession(ctx context.Context, opts NewSessionOptions) error {
	args := []string{
		"new-session", "-d",
		"-s", opts.Name,
		"-c", opts.Dir,
		"-x", strconv.Itoa(opts.Cols),
		"-y", strconv.Itoa(opts.Rows),
	}
	if opts.Command != "" {
		args = append(args, opts.Command)
	}
	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("create session %s: %w", opts.Name, err)
	}
	return nil
}

// Configure applies host options to a session: no status bar, mouse on, the
// given scrollback limit and, when set, the default command for new panes.
// Every option is attempted; failures are joined into the returned error.
func (c *Client) Configure(ctx context.Context, name string, historyLimit int, defaultCommand string) error {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	options := [][2]string{
		{"status", "off"},
		{"mouse", "on"},
		{"history-limit", strconv.Itoa(historyLimit)},
	}
	if defaultCommand != "" {
		options = append(options, [2]string{"default-command", defaultCommand})
	}
	var errs []error
	for _, opt := range options {
		if _, err := c.run(ctx, "set-option", "-t", exactWindow(name), opt[0], opt[1]); err != nil {
			errs = append(errs, fmt.Errorf("set %s on %s: %w", opt[0], name, err))
		}
	}
	return errors.Join(errs...)
}

// HasSession reports whether the named session exists.
func (c *Client) HasSession(ctx context.Context, name string) bool {
	_, err := c.run(ctx, "has-session", "-t", exact(name))
	return err == nil
}

// KillSession terminates the named session.
func (c *Client) KillSession(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "kill-session", "-t", exact(name)); err != nil {
		return fmt.Errorf("kill session %s: %w", name, err)
	}
	return nil
}

// ResizeWindow sets the session window geometry.
func (c *Client) ResizeWindow(ctx context.Context, name string, cols, rows int) error {
	_, err := c.run(ctx, "resize-window",
		"-t", exactWindow(name),
		"-x", strconv.Itoa(cols),
		"-y", strconv.Itoa(rows))
	if err != nil {
		return fmt.Errorf("resize %s: %w", name, err)
	}
	return nil
}

// listSeparator must be printable: tmux escapes control characters in -F
// output. Names never contain it (see Sanitize); paths may.
const (
	listSeparator = "|"
	listFormat    = "#{session_name}" + listSeparator + "#{session_path}" + listSeparator + "#{session_created}"
)

// ListSessions returns the sessions in this client's namespace. A missing
// tmux server yields an empty list.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	out, err := c.run(ctx, "list-sessions", "-F", listFormat)
	if err != nil {
		if noServer(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return c.parseList(out), nil
}

func (c *Client) parseList(out string) []SessionInfo {
	var sessions []SessionInfo
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, rest, _ := strings.Cut(line, listSeparator)
		if !c.Owns(name) {
			continue
		}
		info := SessionInfo{Name: name, Path: rest}
		if i := strings.LastIndex(rest, listSeparator); i >= 0 {
			info.Path = rest[:i]
			if secs, err := strconv.ParseInt(rest[i+1:], 10, 64); err == nil {
				info.Created = time.Unix(secs, 0)
			}
		}
		sessions = append(sessions, info)
	}
	return sessions
}

func noServer(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no server running") ||
		strings.Contains(msg, "error connecting") ||
		strings.Contains(msg, "no sessions")
}

// AttachCommand returns the argv of an attach client for the named session.
func (c *Client) AttachCommand(name string) (string, []string) {
	return c.bin, c.serverArgs([]string{"attach-session", "-t", exact(name)})
}

// WaitForSession polls until the named session answers has-session.
func (c *Client) WaitForSession(ctx context.Context, name string) error {
	return retry.New(
		retry.Attempts(waitAttempts),
		retry.Delay(c.waitDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	).Do(func() error {
		if c.HasSession(ctx, name) {
			return nil
		}
		return fmt.Errorf("%w: session %s not ready", ErrCommandFailed, name)
	})
}

// KillServer stops the tmux server this client talks to.
func (c *Client) KillServer(ctx context.Context) error {
	if _, err := c.run(ctx, "kill-server"); err != nil && !noServer(err) {
		return fmt.Errorf("kill server: %w", err)
	}
	return nil
}
