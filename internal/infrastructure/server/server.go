package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/ptyhost/internal/api/http"
	"github.com/GriffinCanCode/ptyhost/internal/api/middleware"
	"github.com/GriffinCanCode/ptyhost/internal/api/ws"
	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/monitoring"
	terminalProvider "github.com/GriffinCanCode/ptyhost/internal/providers/terminal"
	"github.com/GriffinCanCode/ptyhost/internal/service"
	"github.com/GriffinCanCode/ptyhost/internal/store"
	"github.com/GriffinCanCode/ptyhost/internal/terminal"
	"github.com/GriffinCanCode/ptyhost/internal/tmux"
)

const (
	hubBuffer       = 256
	hubSendTimeout  = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// ErrAlreadyRunning is returned when another host owns the control socket.
var ErrAlreadyRunning = errors.New("ptyhost already running")

// Server wraps the control API and its dependencies
type Server struct {
	router   *gin.Engine
	manager  *terminal.Manager
	hub      *terminal.Hub
	registry *service.Registry
	store    *store.Store
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	gatherer *prometheus.Registry
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg config.LogConfig) (*logging.Logger, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if cfg.Level != "" {
		logCfg.Level = cfg.Level
	}
	return logging.New(logCfg)
}

// NewTmuxClient builds the tmux client described by cfg.
func NewTmuxClient(cfg config.TerminalConfig, logger *zap.Logger, metrics *monitoring.Metrics) *tmux.Client {
	return tmux.New(cfg.TmuxBin,
		tmux.WithPrefix(cfg.Namespace),
		tmux.WithLogger(logger.Named("tmux")),
		tmux.WithMetrics(metrics),
	)
}

// NewServer creates a new server instance. It opens the descriptor store
// and probes tmux but starts nothing; call Run to serve.
func NewServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing ptyhost",
		zap.String("socket", cfg.Server.Socket),
		zap.String("addr", cfg.Server.Addr),
		zap.String("db", cfg.Store.Path),
	)

	gatherer := prometheus.NewRegistry()
	gatherer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(gatherer)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	useMultiplexer := cfg.Terminal.UseMultiplexer
	if saved, ok, err := db.UseMultiplexer(ctx); err != nil {
		logger.Warn("Ignoring stored multiplexer preference", zap.Error(err))
	} else if ok {
		useMultiplexer = saved
	}

	hub := terminal.NewHub(hubBuffer, hubSendTimeout, logger.Named("events").Logger)
	manager := terminal.NewManager(ctx, NewTmuxClient(cfg.Terminal, logger.Logger, metrics), terminal.Options{
		Shell:          cfg.Terminal.Shell,
		UseMultiplexer: useMultiplexer,
		HistoryLimit:   cfg.Terminal.HistoryLimit,
		ReadBuffer:     cfg.Terminal.ReadBuffer,
		ExitGrace:      cfg.Terminal.ExitGrace,
		MarkerEnv:      cfg.Terminal.MarkerEnv,
		Sink:           hub,
		Logger:         logger.Logger,
		Metrics:        metrics,
	})

	registry := service.NewRegistry(metrics)
	provider := terminalProvider.NewProvider(manager, db, metrics, logger.Named("provider").Logger)
	if err := registry.Register(provider); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register terminal provider: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LocalOnly())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(registry, manager, logger.Named("api").Logger)
	wsHandler := ws.NewHandler(hub, manager, metrics, logger.Named("ws").Logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/services", handlers.ListServices)
	router.POST("/services/execute", handlers.ExecuteService)
	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/metrics", apihttp.Metrics(gatherer))

	logger.Info("Server initialized successfully",
		zap.Any("multiplexer", manager.MultiplexerStatus()))

	return &Server{
		router:   router,
		manager:  manager,
		hub:      hub,
		registry: registry,
		store:    db,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		gatherer: gatherer,
	}, nil
}

// Manager returns the session manager.
func (s *Server) Manager() *terminal.Manager { return s.manager }

// Handler returns the HTTP handler serving the control API.
func (s *Server) Handler() http.Handler { return s.router }

// SweepOrphans kills namespaced tmux sessions that no saved descriptor
// references. With dryRun it only reports them.
func (s *Server) SweepOrphans(ctx context.Context, dryRun bool) ([]string, error) {
	if !s.manager.MultiplexerStatus().Available {
		return nil, nil
	}
	known, err := s.store.KnownExternalNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load known sessions: %w", err)
	}
	if dryRun {
		return s.manager.Orphans(ctx, known)
	}
	return s.manager.SweepOrphans(ctx, known)
}

// Run sweeps orphaned tmux sessions, then serves the control API until ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if killed, err := s.SweepOrphans(ctx, false); err != nil {
		s.logger.Warn("Orphan sweep failed", zap.Error(err))
	} else if len(killed) > 0 {
		s.logger.Info("Swept orphaned tmux sessions", zap.Strings("names", killed))
	}

	listeners, err := s.listen()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, len(listeners))
	for _, ln := range listeners {
		s.logger.Info("Starting control API", zap.String("network", ln.Addr().Network()), zap.String("addr", ln.Addr().String()))
		go func(ln net.Listener) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(ln)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		s.logger.Error("Control API failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Control API shutdown", zap.Error(err))
	}
	os.Remove(s.config.Server.Socket)
	return runErr
}

func (s *Server) listen() ([]net.Listener, error) {
	var listeners []net.Listener
	closeAll := func() {
		for _, ln := range listeners {
			ln.Close()
		}
	}

	if s.config.Server.Socket != "" {
		ln, err := listenUnix(s.config.Server.Socket)
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, ln)
	}

	if s.config.Server.Addr != "" {
		if err := checkLoopback(s.config.Server.Addr); err != nil {
			closeAll()
			return nil, err
		}
		ln, err := net.Listen("tcp", s.config.Server.Addr)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	if len(listeners) == 0 {
		return nil, errors.New("no socket or address configured")
	}
	return listeners, nil
}

// listenUnix binds path, replacing a stale socket left by a crashed run.
func listenUnix(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create socket dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if conn, err := net.DialTimeout("unix", path, time.Second); err == nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to restrict socket: %w", err)
	}
	return ln, nil
}

func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("address %q is not a loopback address", addr)
}

// Close releases sessions and closes the store. tmux sessions are detached,
// not killed, so the next run can reattach them.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	released := s.manager.CloseAll(context.Background())
	s.logger.Info("Released sessions", zap.Int("count", released))

	var err error
	if closeErr := s.store.Close(); closeErr != nil {
		s.logger.Error("Failed to close store", zap.Error(closeErr))
		err = fmt.Errorf("failed to close store: %w", closeErr)
	}

	s.logger.Sync()
	return err
}
