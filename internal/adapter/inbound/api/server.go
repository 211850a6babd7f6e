package api

import (
	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/config"
	"codevectorizer/internal/port/inbound"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Server is the HTTP front of the vectorization core.
type Server struct {
	httpServer *http.Server
	registry   *RouteRegistry
}

// ServerBuilder assembles a Server from its services and middleware.
type ServerBuilder struct {
	config       config.APIConfig
	version      string
	vectorizer   inbound.VectorizationService
	searcher     inbound.SearchService
	tenants      inbound.TenantService
	healthChecks map[string]HealthCheck
	middleware   []MiddlewareFunc
}

// NewServerBuilder starts a builder for the given API configuration.
func NewServerBuilder(cfg config.APIConfig) *ServerBuilder {
	return &ServerBuilder{
		config:       cfg,
		healthChecks: make(map[string]HealthCheck),
	}
}

// WithVersion sets the version string reported by the health endpoint.
func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.version = version
	return b
}

// WithVectorizationService sets the job service.
func (b *ServerBuilder) WithVectorizationService(service inbound.VectorizationService) *ServerBuilder {
	b.vectorizer = service
	return b
}

// WithSearchService sets the search service.
func (b *ServerBuilder) WithSearchService(service inbound.SearchService) *ServerBuilder {
	b.searcher = service
	return b
}

// WithTenantService sets the tenant management service.
func (b *ServerBuilder) WithTenantService(service inbound.TenantService) *ServerBuilder {
	b.tenants = service
	return b
}

// WithHealthCheck registers a named dependency probe for /health.
func (b *ServerBuilder) WithHealthCheck(name string, check HealthCheck) *ServerBuilder {
	b.healthChecks[name] = check
	return b
}

// WithMiddleware appends middleware, applied in registration order.
func (b *ServerBuilder) WithMiddleware(middleware MiddlewareFunc) *ServerBuilder {
	b.middleware = append(b.middleware, middleware)
	return b
}

// WithDefaultMiddleware adds recovery, request ID, and request logging.
func (b *ServerBuilder) WithDefaultMiddleware() *ServerBuilder {
	b.middleware = append(b.middleware,
		RecoveryMiddleware(),
		RequestIDMiddleware(),
		LoggingMiddleware(),
	)
	return b
}

// Build validates the builder and assembles the server.
func (b *ServerBuilder) Build() (*Server, error) {
	if b.config.Port == "" {
		return nil, errors.New("API port is required")
	}
	if b.vectorizer == nil {
		return nil, errors.New("vectorization service is required")
	}
	if b.searcher == nil {
		return nil, errors.New("search service is required")
	}
	if b.tenants == nil {
		return nil, errors.New("tenant service is required")
	}

	registry := NewRouteRegistry()
	registry.RegisterAPIRoutes(
		NewHealthHandler(b.version, b.healthChecks),
		NewVectorizeHandler(b.vectorizer),
		NewSearchHandler(b.searcher),
		NewTenantHandler(b.tenants),
	)

	readTimeout := b.config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	writeTimeout := b.config.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(b.config.Host, b.config.Port),
		Handler:      registry.Handler(b.middleware...),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	return &Server{
		httpServer: httpServer,
		registry:   registry,
	}, nil
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slogger.Info(ctx, "API server listening", slogger.Fields{
			"addr":   s.httpServer.Addr,
			"routes": s.registry.String(),
		})
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	slogger.Info(ctx, "API server shutting down", nil)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}
	return nil
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.httpServer.Addr
}
