package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/mattjoyce/envios-relay/internal/hubspot"
	"github.com/mattjoyce/envios-relay/internal/metrics"
)

// ShipmentSearcher finds a shipment record by tracking id.
type ShipmentSearcher interface {
	SearchByGuia(ctx context.Context, guia string) (hubspot.Properties, error)
}

// EventLister replays the webhook event log.
type EventLister interface {
	List(ctx context.Context) ([]json.RawMessage, error)
}

// Config holds API server configuration
type Config struct {
	Listen         string
	AllowedOrigins []string
	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath string
	Version     string
}

// Server represents the HTTP API server
type Server struct {
	config    Config
	shipments ShipmentSearcher
	events    EventLister
	webhook   http.Handler
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new API server instance. webhook handles POST /webhook.
func New(config Config, shipments ShipmentSearcher, events EventLister, webhook http.Handler, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		shipments: shipments,
		events:    events,
		webhook:   webhook,
		logger:    logger,
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // covers one upstream search
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware())

	// Routes. None of them require auth.
	r.Get("/", s.handleRoot)
	r.Get("/openapi.json", s.handleOpenAPI)
	r.Get("/consultar-envio", s.handleLookup)
	r.Post("/webhook", s.webhook.ServeHTTP)
	r.Get("/ver-webhooks", s.handleListEvents)

	if s.config.MetricsPath != "" {
		metrics.Register()
		r.Handle(s.config.MetricsPath, metrics.Handler())
	}

	return r
}

// corsMiddleware allows credentialed requests. Browsers reject a literal "*"
// origin for those, so a wildcard is served by echoing the caller's origin.
func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
	if allowsAnyOrigin(s.config.AllowedOrigins) {
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		opts.AllowedOrigins = s.config.AllowedOrigins
	}
	return cors.New(opts).Handler
}

func allowsAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
