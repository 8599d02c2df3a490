// Package api exposes the orchestrator over HTTP: start and stop bots,
// inspect task status. It is a thin adapter; every decision stays in the
// engine packages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/mfleur/polyleg/internal/models"
	"github.com/mfleur/polyleg/internal/storage"
	"github.com/mfleur/polyleg/internal/task"
)

type Server struct {
	router       *chi.Mux
	server       *http.Server
	orchestrator *task.Orchestrator
	logger       *logrus.Logger
	port         int
	authToken    string
}

type Config struct {
	Port      int
	AuthToken string
}

func NewServer(cfg Config, orchestrator *task.Orchestrator, logger *logrus.Logger) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		orchestrator: orchestrator,
		logger:       logger,
		port:         cfg.Port,
		authToken:    cfg.AuthToken,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Post("/api/bots/{id}/start", s.handleStart)
	s.router.Post("/api/tasks/{id}/stop", s.handleStop)
	s.router.Get("/api/tasks/{id}", s.handleStatus)
	s.router.Get("/api/users/{id}/tasks", s.handleListActive)
	s.router.Get("/health", s.handleHealth)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}
	s.logger.Infof("Starting control API on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "id")

	started, err := s.orchestrator.Start(r.Context(), botID)
	switch {
	case errors.Is(err, storage.ErrTaskAlreadyRunning):
		s.writeError(w, http.StatusConflict, "bot already has an active task")
		return
	case errors.Is(err, storage.ErrConfigNotFound):
		s.writeError(w, http.StatusNotFound, "bot or strategy not found")
		return
	case err != nil:
		s.logger.WithError(err).Errorf("Failed to start bot %s", botID)
		s.writeError(w, http.StatusInternalServerError, "start failed")
		return
	}

	s.writeJSON(w, http.StatusCreated, started)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	err := s.orchestrator.Stop(r.Context(), taskID)
	switch {
	case errors.Is(err, storage.ErrTaskNotFound):
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	case err != nil:
		s.logger.WithError(err).Errorf("Failed to stop task %s", taskID)
		s.writeError(w, http.StatusInternalServerError, "stop failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "stopped", "task_id": taskID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	status, err := s.orchestrator.Status(r.Context(), taskID)
	switch {
	case errors.Is(err, storage.ErrTaskNotFound):
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	case err != nil:
		s.logger.WithError(err).Errorf("Failed to read task %s", taskID)
		s.writeError(w, http.StatusInternalServerError, "status failed")
		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleListActive(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	tasks, err := s.orchestrator.ListActive(r.Context(), userID)
	if err != nil {
		s.logger.WithError(err).Errorf("Failed to list tasks for %s", userID)
		s.writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if tasks == nil {
		tasks = []*models.TradingTask{}
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
