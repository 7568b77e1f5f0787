// Package http serves the operational endpoints (health and Prometheus
// metrics) next to the stdio tool server.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openctemio/ossreview/internal/config"
	"github.com/openctemio/ossreview/internal/infra/http/handler"
	"github.com/openctemio/ossreview/internal/infra/http/middleware"
	"github.com/openctemio/ossreview/pkg/logger"
)

// Server represents the HTTP server.
type Server struct {
	httpServer    *http.Server
	router        Router
	config        *config.Config
	logger        *logger.Logger
	healthOptions []handler.HealthHandlerOption
}

// ServerOption is a function that configures the server.
type ServerOption func(*Server)

// WithHealthOptions configures the /healthz handler.
func WithHealthOptions(opts ...handler.HealthHandlerOption) ServerOption {
	return func(s *Server) {
		s.healthOptions = append(s.healthOptions, opts...)
	}
}

// NewServer creates a new HTTP server listening on cfg.Metrics.Addr.
func NewServer(cfg *config.Config, log *logger.Logger, opts ...ServerOption) *Server {
	s := &Server{
		config: cfg,
		logger: log.With("component", "http"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.router == nil {
		s.router = NewChiRouter()
	}

	// Apply global middleware (order matters!)
	s.router.Use(
		middleware.Recovery(s.logger, cfg.IsDevelopment()),
		middleware.RequestID(),
		middleware.Metrics(),
		middleware.Logger(s.logger),
	)

	health := handler.NewHealthHandler(s.healthOptions...)
	s.router.GET("/healthz", health.Health)
	s.router.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           s.router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}

	return s
}

// Router returns the router for registering handlers.
func (s *Server) Router() Router {
	return s.router
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
	_ = s.router.Walk(func(method, path string, _ http.Handler) error {
		s.logger.Debug("route registered", "method", method, "path", path)
		return nil
	})

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
