package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-mht/internal/history"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-mht/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-mht/internal/provider"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Provider *provider.Provider
	History  history.Repository // optional; /reloads answers 404 without it
	Version  string

	// Checks are the subsystems /health probes, keyed by the name it
	// reports them under.
	Checks map[string]HealthChecker
}

// HealthChecker is a subsystem the health endpoint probes.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	provider *provider.Provider
	history  history.Repository
	version  string
	checks   map[string]HealthChecker
	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc

	removeListener func()
}

// New creates a new API server with the given dependencies.
//
// The server subscribes to item changes immediately so WebSocket clients
// see every swap; it does not listen until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, provider)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("item provider is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		provider: deps.Provider,
		history:  deps.History,
		version:  deps.Version,
		checks:   deps.Checks,
	}
	s.hub = NewHub(s.wsCfg, s.logger)
	s.removeListener = s.provider.AddItemChangeListener(provider.ItemChangeListenerFunc(s.broadcastItemsChanged))

	return s, nil
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
//
// Parameters:
//   - ctx: Parent context for the WebSocket hub
//
// Returns:
//   - error: Always nil; listener errors are logged
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close stops broadcasting item changes and shuts the server down,
// waiting up to 10 seconds for in-flight requests.
func (s *Server) Close() error {
	if s.removeListener != nil {
		s.removeListener()
		s.removeListener = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
