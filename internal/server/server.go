// Package server provides the HTTP server and routing for the kanban view.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aristath/lmt-kanban/internal/events"
	"github.com/aristath/lmt-kanban/internal/modules/dashboard"
	"github.com/aristath/lmt-kanban/internal/scheduler"
)

// SchedulerControl is the part of the refresh scheduler the HTTP surface drives
type SchedulerControl interface {
	TriggerManual()
	Status() scheduler.Status
}

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Dashboard *dashboard.Service
	Bus       *events.Bus
	Scheduler SchedulerControl
	// Gatherer serves /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	port      int
	dashboard *dashboard.Service
	bus       *events.Bus
	scheduler SchedulerControl
	gatherer  prometheus.Gatherer
	system    *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		port:      cfg.Port,
		dashboard: cfg.Dashboard,
		bus:       cfg.Bus,
		scheduler: cfg.Scheduler,
		gatherer:  gatherer,
	}
	s.system = NewSystemHandlers(cfg.Log, cfg.Dashboard, cfg.Scheduler)

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE and WebSocket connections are long-lived
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api", func(r chi.Router) {
		// Streaming routes stay outside the request timeout
		r.Get("/events/stream", NewEventsStreamHandler(s.bus, s.log).ServeHTTP)
		r.Get("/ws", NewViewSocketHandler(s.bus, s.dashboard, s.log).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/", s.handleDashboard)
				r.Post("/refresh", s.handleRefresh)
				r.Post("/exclude-common", s.handleExcludeCommon)
				r.Post("/sort/{table}/{key}", s.handleSort)
			})

			r.Route("/detail", func(r chi.Router) {
				r.Get("/", s.handleDetail)
				r.Get("/batches", s.handleBatches)
			})

			r.Get("/system/status", s.system.HandleSystemStatus)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
