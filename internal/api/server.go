package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/api/handlers"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/api/middleware"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/service"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8085,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

// Options carries the optional collaborators of the server
type Options struct {
	// Schema backs the health check. Nil skips the database probe.
	Schema handlers.SchemaChecker
	// Gatherer is served at /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Server is the HTTP API that triggers cost runs and manages carrier costs.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	service    *service.CostService
	opts       Options
}

// NewServer creates a new API server.
func NewServer(cfg Config, svc *service.CostService, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		config:  cfg,
		router:  chi.NewRouter(),
		logger:  logger,
		service: svc,
		opts:    opts,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health and metrics sit outside /api for load balancers and scrapers
	s.router.Get("/health", handlers.NewHealthHandler(s.opts.Schema).ServeHTTP)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	costingHandler := handlers.NewCostingHandler(s.service, s.logger)
	carriersHandler := handlers.NewCarriersHandler(s.service, s.logger)
	runsHandler := handlers.NewRunsHandler(s.service, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/tenants/{tenant}", func(r chi.Router) {
			r.Post("/recalculate", costingHandler.Recalculate)
			r.Post("/delivery-imports", costingHandler.Import)

			r.Get("/carriers", carriersHandler.List)
			r.Put("/carriers/{label}", carriersHandler.Set)

			r.Get("/runs", runsHandler.List)
		})

		r.Get("/runs/{id}", runsHandler.Get)
	})
}

// Start starts the HTTP server. Runs can take a while on large catalogs,
// so the write timeout is generous.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
