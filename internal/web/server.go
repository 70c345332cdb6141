package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/constants"
	"github.com/kozaktomas/photo-moments/internal/curator"
	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/web/handlers"
	"github.com/kozaktomas/photo-moments/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	jobManager *handlers.JobManager
	curator    handlers.Curator
	source     curator.PhotoSource
	log        *logger.Logger
}

// NewServer creates a new web server. source feeds analysis jobs and may be
// nil for a read-only server over stored clusters.
func NewServer(cfg config.WebConfig, c handlers.Curator, source curator.PhotoSource, log *logger.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:     r,
		jobManager: handlers.NewJobManager(),
		curator:    c,
		source:     source,
		log:        logger.OrNop(log),
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins...))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// no WriteTimeout: event streams stay open for the whole analysis
		IdleTimeout: 60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	analyzeHandler := handlers.NewAnalyzeHandler(s.curator, s.source, s.jobManager, s.log)
	clustersHandler := handlers.NewClustersHandler(s.curator, s.log)
	libraryHandler := handlers.NewLibraryHandler(s.curator, s.jobManager, s.log)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// Event streams live outside the request timeout.
		r.Get("/analyze/{jobId}/events", analyzeHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(constants.RequestTimeout))

			// Analysis jobs
			r.Post("/analyze", analyzeHandler.Start)
			r.Get("/analyze/{jobId}", analyzeHandler.Status)
			r.Delete("/analyze/{jobId}", analyzeHandler.Cancel)

			// Clusters
			r.Get("/clusters", clustersHandler.List)
			r.Get("/clusters/{id}", clustersHandler.Get)
			r.Post("/clusters/{id}/recompute", clustersHandler.Recompute)
			r.Put("/clusters/{id}/representative", clustersHandler.SetRepresentative)
			r.Delete("/clusters/{id}/representative", clustersHandler.ResetRepresentative)
			r.Get("/clusters/{id}/faces", clustersHandler.Faces)
			r.Post("/clusters/{id}/compose", clustersHandler.Compose)
			r.Get("/moments", clustersHandler.Moments)

			// Library
			r.Get("/recommendations", libraryHandler.Recommendations)
			r.Get("/status", libraryHandler.Status)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("starting web server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown cancels running jobs and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down web server")
	s.jobManager.CancelAll()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
