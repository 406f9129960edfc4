package terminal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ptyhost/internal/shared/id"
	"github.com/GriffinCanCode/ptyhost/internal/tmux"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	DefaultCols = 80
	DefaultRows = 24
)

// Options configures a Manager.
type Options struct {
	// Shell overrides $SHELL.
	Shell string
	// UseMultiplexer is the initial backend preference.
	UseMultiplexer bool
	HistoryLimit   int
	ReadBuffer     int
	// ExitGrace bounds how long an exit waits for trailing output.
	ExitGrace time.Duration
	// MarkerEnv is set to 1 in managed shells.
	MarkerEnv       string
	ScrollbackBytes int

	Sink    EventSink
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

func (o *Options) applyDefaults() {
	if o.ReadBuffer <= 0 {
		o.ReadBuffer = 4096
	}
	if o.ExitGrace <= 0 {
		o.ExitGrace = 500 * time.Millisecond
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = tmux.DefaultHistoryLimit
	}
	if o.ScrollbackBytes <= 0 {
		o.ScrollbackBytes = 256 * 1024
	}
	if o.Sink == nil {
		o.Sink = discardSink{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// CreateRequest describes a new session. An empty ID is generated.
type CreateRequest struct {
	ID      string
	Dir     string
	Command string
	Cols    int
	Rows    int
}

// AttachRequest reattaches a session ID to a surviving tmux session.
type AttachRequest struct {
	ID           string
	ExternalName string
	Dir          string
	Cols         int
	Rows         int
}

// SessionInfo is the public view of a tracked session.
type SessionInfo struct {
	ID               string      `json:"session_id"`
	Backend          BackendKind `json:"backend"`
	ExternalName     string      `json:"external_name,omitempty"`
	WorkingDirectory string      `json:"working_directory"`
	Command          string      `json:"command,omitempty"`
	Cols             int         `json:"cols"`
	Rows             int         `json:"rows"`
	CreatedAt        time.Time   `json:"created_at"`
	Running          bool        `json:"running"`
}

// MultiplexerStatus describes tmux availability and the current preference.
type MultiplexerStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Enabled   bool   `json:"enabled"`
	Prefix    string `json:"prefix,omitempty"`
}

type session struct {
	id        string
	backend   Backend
	dir       string
	command   string
	createdAt time.Time
	stream    *stream
}

// Manager is the session registry. One mutex guards the session map and
// pending reservations; no blocking I/O runs while it is held.
//
// Exit codes come from the local child. For multiplexed command sessions
// that child is the tmux attach client, so the code reflects the client
// (usually 0), not the command running inside tmux.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	// pending holds IDs being created or attached, mapped to their external
	// name, so concurrent callers cannot claim the same ID or name.
	pending map[string]string

	tmux        *tmux.Client
	tmuxVersion string
	useTmux     atomic.Bool

	shell   ShellBuilder
	sink    EventSink
	opts    Options
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewManager creates a Manager. The tmux client may be nil; otherwise its
// binary is probed once here and sessions fall back to the direct backend
// when it is missing.
func NewManager(ctx context.Context, client *tmux.Client, opts Options) *Manager {
	opts.applyDefaults()

	m := &Manager{
		sessions: make(map[string]*session),
		pending:  make(map[string]string),
		shell:    NewShellBuilder(opts.Shell, opts.MarkerEnv),
		sink:     opts.Sink,
		opts:     opts,
		logger:   opts.Logger.Named("terminal"),
		metrics:  opts.Metrics,
	}
	m.useTmux.Store(opts.UseMultiplexer)

	if client != nil {
		version, err := client.Version(ctx)
		if err != nil {
			m.logger.Info("tmux not available, using direct sessions only", zap.Error(err))
		} else {
			m.tmux = client
			m.tmuxVersion = version
			m.logger.Info("tmux detected",
				zap.String("version", version),
				zap.Bool("use_multiplexer", opts.UseMultiplexer))
		}
	}
	return m
}

// Shell returns the resolved shell builder.
func (m *Manager) Shell() ShellBuilder {
	return m.shell
}

func normalizeSize(cols, rows int) (int, int) {
	if cols <= 0 {
		cols = DefaultCols
	}
	if rows <= 0 {
		rows = DefaultRows
	}
	return cols, rows
}

func (m *Manager) selectBackend(sessionID string) Backend {
	if m.tmux != nil && m.useTmux.Load() {
		name := m.tmux.SessionName(sessionID)
		return newMultiplexedBackend(m.tmux, name, m.shell, m.opts.HistoryLimit, m.logger)
	}
	return newDirectBackend(m.shell)
}

// reserveLocked claims id and externalName, or reports ErrAlreadyExists.
// Must be called with m.mu held.
func (m *Manager) reserveLocked(sessionID, externalName string, replace bool) error {
	if _, ok := m.pending[sessionID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, sessionID)
	}
	if _, ok := m.sessions[sessionID]; ok && !replace {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, sessionID)
	}
	if externalName != "" {
		for otherID, name := range m.pending {
			if name == externalName && otherID != sessionID {
				return fmt.Errorf("%w: external name %s in use by %s", ErrAlreadyExists, externalName, otherID)
			}
		}
		for otherID, s := range m.sessions {
			if s.backend.ExternalName() == externalName && otherID != sessionID {
				return fmt.Errorf("%w: external name %s in use by %s", ErrAlreadyExists, externalName, otherID)
			}
		}
	}
	m.pending[sessionID] = externalName
	return nil
}

func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	delete(m.pending, sessionID)
	m.mu.Unlock()
}

// CreateSession starts a session and its I/O pump. It returns the tmux
// session name for multiplexed sessions and "" for direct ones.
func (m *Manager) CreateSession(ctx context.Context, req CreateRequest) (string, error) {
	if req.ID == "" {
		req.ID = id.NewSessionID().String()
	}
	req.Cols, req.Rows = normalizeSize(req.Cols, req.Rows)

	backend := m.selectBackend(req.ID)
	externalName := backend.ExternalName()
	log := m.logger.With(zap.String("session_id", req.ID))

	m.mu.Lock()
	err := m.reserveLocked(req.ID, externalName, false)
	m.mu.Unlock()
	if err != nil {
		return "", err
	}

	if externalName != "" && m.tmux.HasSession(ctx, externalName) {
		m.release(req.ID)
		return "", fmt.Errorf("%w: tmux session %s already running", ErrAlreadyExists, externalName)
	}

	t, err := backend.Start(ctx, StartRequest{
		Dir:     req.Dir,
		Command: req.Command,
		Cols:    req.Cols,
		Rows:    req.Rows,
	})
	if err != nil {
		m.release(req.ID)
		log.Error("failed to create session", zap.String("dir", req.Dir), zap.Error(err))
		return "", err
	}

	s := &session{
		id:        req.ID,
		backend:   backend,
		dir:       req.Dir,
		command:   req.Command,
		createdAt: time.Now(),
		stream:    newStream(req.ID, t, NewBuffer(m.opts.ScrollbackBytes)),
	}

	m.mu.Lock()
	delete(m.pending, req.ID)
	m.sessions[req.ID] = s
	m.mu.Unlock()

	m.startPump(s.stream, req.Command != "")
	m.metrics.IncSessionsCreated(string(backend.Kind()))
	m.updateGauges()

	log.Info("session created",
		zap.String("backend", string(backend.Kind())),
		zap.String("external_name", externalName),
		zap.String("dir", req.Dir),
		zap.Bool("command_mode", req.Command != ""))

	return externalName, nil
}

// AttachSession opens a fresh local bridge to a surviving tmux session. An
// existing local transport for the same ID is replaced and silenced.
func (m *Manager) AttachSession(ctx context.Context, req AttachRequest) (bool, error) {
	if m.tmux == nil {
		return false, fmt.Errorf("%w: tmux not available", ErrExternalCommandFailed)
	}
	if req.ID == "" || req.ExternalName == "" {
		return false, fmt.Errorf("%w: session id and external name are required", ErrNotFound)
	}
	req.Cols, req.Rows = normalizeSize(req.Cols, req.Rows)
	log := m.logger.With(zap.String("session_id", req.ID), zap.String("external_name", req.ExternalName))

	m.mu.Lock()
	err := m.reserveLocked(req.ID, req.ExternalName, true)
	m.mu.Unlock()
	if err != nil {
		return false, err
	}
	defer m.release(req.ID)

	if !m.tmux.HasSession(ctx, req.ExternalName) {
		return false, fmt.Errorf("%w: tmux session %s no longer exists", ErrNotFound, req.ExternalName)
	}

	if err := m.tmux.ResizeWindow(ctx, req.ExternalName, req.Cols, req.Rows); err != nil {
		log.Debug("resize before attach failed", zap.Error(err))
	}

	backend := newMultiplexedBackend(m.tmux, req.ExternalName, m.shell, m.opts.HistoryLimit, m.logger)
	t, err := backend.Reopen(ctx, req.Dir, req.Cols, req.Rows)
	if err != nil {
		log.Error("failed to attach session", zap.Error(err))
		return false, err
	}

	s := &session{
		id:        req.ID,
		backend:   backend,
		dir:       req.Dir,
		createdAt: time.Now(),
		stream:    newStream(req.ID, t, NewBuffer(m.opts.ScrollbackBytes)),
	}

	m.mu.Lock()
	old := m.sessions[req.ID]
	m.sessions[req.ID] = s
	m.mu.Unlock()

	if old != nil {
		old.stream.silence()
		if err := old.stream.transport.Close(); err != nil {
			log.Debug("closing replaced transport", zap.Error(err))
		}
		log.Info("replaced existing transport")
	}

	m.startPump(s.stream, false)
	m.metrics.IncSessionsAttached()
	m.updateGauges()

	log.Info("session attached")
	return true, nil
}

func (m *Manager) lookup(sessionID string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return s, nil
}

// Write sends input to a session.
func (m *Manager) Write(sessionID string, data []byte) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	if err := s.stream.transport.Write(data); err != nil {
		return err
	}
	m.metrics.AddBytesIn(len(data))
	return nil
}

// Resize updates the local terminal and, for multiplexed sessions, the tmux
// window. Dimensions below MinDimension are silently ignored.
func (m *Manager) Resize(ctx context.Context, sessionID string, cols, rows int) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	applied, err := s.stream.transport.Resize(cols, rows)
	if err != nil || !applied {
		return err
	}
	return s.backend.Resize(ctx, cols, rows)
}

// DetachSession drops the local transport. A multiplexed session's tmux
// session keeps running; a direct session is closed.
func (m *Manager) DetachSession(ctx context.Context, sessionID string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	if s.backend.Kind() == BackendDirect {
		_, err := m.CloseSession(ctx, sessionID)
		return err
	}

	m.mu.Lock()
	if m.sessions[sessionID] != s {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	m.detach(s)
	m.updateGauges()
	m.logger.Info("session detached",
		zap.String("session_id", sessionID),
		zap.String("external_name", s.backend.ExternalName()))
	return nil
}

func (m *Manager) detach(s *session) {
	s.stream.silence()
	if err := s.stream.transport.Close(); err != nil {
		m.logger.Debug("closing attach client", zap.String("session_id", s.id), zap.Error(err))
	}
}

// CloseSession terminates a session. It returns the exit code if the
// process had already exited, or nil when it had to be killed. Multiplexed
// sessions also lose their tmux session.
func (m *Manager) CloseSession(ctx context.Context, sessionID string) (*int, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	st := s.stream
	claimed := st.claimExit()
	code := st.transport.Child().ExitCode()
	if err := st.transport.Close(); err != nil {
		m.logger.Debug("closing transport", zap.String("session_id", sessionID), zap.Error(err))
	}

	var termErr error
	if s.backend.Kind() == BackendMultiplexed {
		if err := s.backend.Terminate(ctx); err != nil && s.backend.Alive(ctx, nil) {
			termErr = err
		}
	}

	st.waitReader(m.opts.ExitGrace)
	if claimed {
		m.publishExit(sessionID, code)
	}
	st.silence()
	m.updateGauges()

	m.logger.Info("session closed",
		zap.String("session_id", sessionID),
		zap.String("backend", string(s.backend.Kind())),
		zap.Intp("exit_code", code),
		zap.Error(termErr))
	return code, termErr
}

// CloseAll runs at shutdown: direct sessions are killed and multiplexed
// sessions are detached so they can be reattached on the next run.
func (m *Manager) CloseAll(ctx context.Context) int {
	m.mu.Lock()
	all := lo.Values(m.sessions)
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range all {
		m.detach(s)
		m.logger.Info("session released on shutdown",
			zap.String("session_id", s.id),
			zap.String("backend", string(s.backend.Kind())))
	}
	m.updateGauges()
	return len(all)
}

// ListSessions returns tracked session IDs, sorted.
func (m *Manager) ListSessions() []string {
	m.mu.Lock()
	ids := lo.Keys(m.sessions)
	m.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Sessions returns info for every tracked session, oldest first.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.Lock()
	all := lo.Values(m.sessions)
	m.mu.Unlock()

	infos := lo.Map(all, func(s *session, _ int) SessionInfo { return s.info() })
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// SessionInfo returns info for one session.
func (m *Manager) SessionInfo(sessionID string) (SessionInfo, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return SessionInfo{}, err
	}
	return s.info(), nil
}

func (s *session) info() SessionInfo {
	cols, rows := s.stream.transport.Size()
	return SessionInfo{
		ID:               s.id,
		Backend:          s.backend.Kind(),
		ExternalName:     s.backend.ExternalName(),
		WorkingDirectory: s.dir,
		Command:          s.command,
		Cols:             cols,
		Rows:             rows,
		CreatedAt:        s.createdAt,
		Running:          s.stream.transport.Child().Running(),
	}
}

// IsActive reports whether a session is alive. Multiplexed sessions are
// checked against tmux itself.
func (m *Manager) IsActive(ctx context.Context, sessionID string) bool {
	s, err := m.lookup(sessionID)
	if err != nil {
		return false
	}
	return s.backend.Alive(ctx, s.stream.transport)
}

// ActiveCount returns the number of sessions whose local process runs.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.CountBy(lo.Values(m.sessions), func(s *session) bool {
		return s.stream.transport.Child().Running()
	})
}

// ReadBuffered drains the session's recent output.
func (m *Manager) ReadBuffered(sessionID string) ([]byte, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return s.stream.scrollback.Drain(), nil
}

// SetUseMultiplexer changes the backend preference for future sessions.
func (m *Manager) SetUseMultiplexer(enabled bool) {
	m.useTmux.Store(enabled)
	m.logger.Info("multiplexer preference updated", zap.Bool("use_multiplexer", enabled))
}

// MultiplexerStatus reports tmux availability and the current preference.
func (m *Manager) MultiplexerStatus() MultiplexerStatus {
	status := MultiplexerStatus{
		Available: m.tmux != nil,
		Version:   m.tmuxVersion,
		Enabled:   m.useTmux.Load(),
	}
	if m.tmux != nil {
		status.Prefix = m.tmux.Prefix()
	}
	return status
}

// ListExternal returns the tmux sessions in this host's namespace.
func (m *Manager) ListExternal(ctx context.Context) ([]tmux.SessionInfo, error) {
	if m.tmux == nil {
		return nil, nil
	}
	sessions, err := m.tmux.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalCommandFailed, err)
	}
	return sessions, nil
}

func (m *Manager) updateGauges() {
	if m.metrics == nil {
		return
	}
	m.mu.Lock()
	counts := lo.CountValuesBy(lo.Values(m.sessions), func(s *session) BackendKind {
		return s.backend.Kind()
	})
	m.mu.Unlock()

	m.metrics.SetSessionsActive(string(BackendDirect), counts[BackendDirect])
	m.metrics.SetSessionsActive(string(BackendMultiplexed), counts[BackendMultiplexed])
}
