package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/pkg/circuitbreaker"
	"pdfrag/backend/go/pkg/httpmiddleware"
	"pdfrag/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Server wraps a gin engine and an http.Server and applies the configured
// rate limiting and circuit breaking middleware to every route.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// WithMiddleware installs handlers that run before the rate limiter, such as request logging.
func WithMiddleware(handlers ...gin.HandlerFunc) ServerOption {
	return func(s *Server) {
		s.engine.Use(handlers...)
	}
}

// WithReadHeaderTimeout bounds the time spent reading request headers.
func WithReadHeaderTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.httpServer.ReadHeaderTimeout = d
	}
}

// NewServer creates and configures a new Server instance based on the provided AppConfig and options.
// Options run first so their middleware wraps the limiter and breaker installed from config.
func NewServer(cfg *config.AppConfig, opts ...ServerOption) (*Server, error) {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	srv := &Server{
		httpServer: &http.Server{Handler: engine},
		engine:     engine,
	}

	for _, opt := range opts {
		opt(srv)
	}

	if limiter := ratelimiter.FromConfig(cfg.Middleware.RateLimiter); limiter != nil {
		logrus.Infof("Enabling Rate Limiter middleware: %.2f req/s, burst %d", cfg.Middleware.RateLimiter.Rate, cfg.Middleware.RateLimiter.Capacity)
		engine.Use(httpmiddleware.RateLimit(limiter))
	}

	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := circuitbreaker.FromConfig(cfg.Middleware.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		logrus.Info("Enabling Circuit Breaker middleware.")
		engine.Use(httpmiddleware.CircuitBreak(breaker))
	}

	// Set a default address if none was provided
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = cfg.Server.HTTPAddress
	}
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":8080"
	}

	return srv, nil
}

// Engine returns the gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the root handler, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe starts the HTTP server. A graceful shutdown is not reported as an error.
func (s *Server) ListenAndServe() error {
	if s.httpServer.Addr == "" {
		return fmt.Errorf("server address is not set")
	}
	logrus.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
