// Package server provides the HTTP API for submitting and tracking
// comparison jobs.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ciridae/scopematch/internal/config"
	"github.com/ciridae/scopematch/internal/jobs"
)

// Pipeline is the job surface the HTTP handlers need.
type Pipeline interface {
	Submit(sourcePath, targetPath string) jobs.Job
	Job(id string) (jobs.Job, bool)
	JobCount() int
}

// Server is the HTTP server for the comparison API.
type Server struct {
	pipeline Pipeline
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(pipeline Pipeline, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		pipeline: pipeline,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Post("/api/v1/jobs", s.handleCreateJob)
	r.Get("/api/v1/jobs/{id}", s.handleGetJob)
	r.Get("/api/v1/jobs/{id}/items", s.handleGetJobItems)
	r.Get("/api/v1/jobs/{id}/report", s.handleGetJobReport)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
