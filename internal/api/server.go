package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/binged/internal/api/handlers"
	mw "github.com/tphakala/binged/internal/api/middleware"
	"github.com/tphakala/binged/internal/conf"
	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/logger"
	"github.com/tphakala/binged/internal/observability"
)

// HealthStatus is the body served at /health.
const HealthStatus = "Server is running"

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"` // seconds
}

// Server is the HTTP server for binged.
// It manages the Echo instance, the middleware stack and the movie routes.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings

	// Dependencies
	dataStore     datastore.Interface
	metrics       *observability.Metrics
	accessLog     logger.Logger
	clock         func() time.Time
	apiController *handlers.Controller

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithDataStore sets the datastore for the server.
func WithDataStore(ds datastore.Interface) ServerOption {
	return func(s *Server) {
		s.dataStore = ds
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithAccessLogger overrides the access log destination.
func WithAccessLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.accessLog = l
	}
}

// WithClock sets the clock used for health timestamps and default dates.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.clock = now
	}
}

// WithConfig replaces the config derived from settings.
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	s := &Server{
		config:    ConfigFromSettings(settings),
		settings:  settings,
		clock:     time.Now,
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if s.dataStore == nil {
		return nil, fmt.Errorf("datastore is required")
	}
	if s.accessLog == nil {
		s.accessLog = logger.Global().Module("access")
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = s.config.Debug
	s.echo.HTTPErrorHandler = s.HTTPErrorHandler

	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	GetLogger().Info("HTTP server initialized",
		logger.String("address", s.config.Address()),
		logger.Bool("metrics", s.config.MetricsEnabled && s.metrics != nil),
		logger.Float64("rate_limit", s.config.RateLimit),
		logger.Bool("debug", s.config.Debug))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll:   true,
		DisablePrintStack: !s.config.Debug,
	}))

	s.echo.Use(mw.NewRequestID())

	// Metrics wrap the access log so both see the status rendered by the
	// error handler, and the log still sees the handler error.
	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}
	s.echo.Use(mw.NewRequestLogger(s.accessLog))

	securityConfig := mw.DefaultSecurityConfig(s.config.AllowedOrigins...)
	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))

	if limiter := mw.NewRateLimiter(s.config.RateLimit); limiter != nil {
		s.echo.Use(limiter)
	}

	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	if s.config.MetricsEnabled && s.metrics != nil {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}

	s.apiController = handlers.New(s.echo, s.dataStore,
		handlers.WithClock(s.clock),
		handlers.WithLocation(s.settings.Location()))
}

// healthCheck handles the server health check endpoint. It never touches
// the datastore.
func (s *Server) healthCheck(c echo.Context) error {
	now := s.clock()
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    HealthStatus,
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Uptime:    now.Sub(s.startTime).Seconds(),
	})
}

// startBlocking serves until the server is shut down.
func (s *Server) startBlocking() error {
	addr := s.config.Address()
	GetLogger().Info("Starting HTTP server", logger.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartWithGracefulShutdown starts the server and shuts it down on SIGINT,
// SIGTERM or when ctx is cancelled.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.startBlocking()
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		// Listener failed before any shutdown was requested
		return err
	case <-sigCtx.Done():
	}

	GetLogger().Info("Shutdown signal received, initiating graceful shutdown")
	if err := s.Shutdown(); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully stops the server, waiting at most ShutdownTimeout for
// in-flight requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		GetLogger().Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	GetLogger().Info("Server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Config returns the effective server configuration.
func (s *Server) Config() *Config {
	return s.config
}
