// Package httpapi exposes the manual trigger surface: run a sweep, run a
// single project, post the digest. The scheduler does the same work on a
// timer; these endpoints exist for operators and integration tests.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tobolak1/ppc-checker/internal/digest"
	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/orchestrator"
	"github.com/tobolak1/ppc-checker/internal/store"
)

type Server struct {
	Orchestrator *orchestrator.Orchestrator
	Digest       *digest.Builder
	Store        store.Store
}

func SetupRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/checks/run", s.RunSweep)
		r.Post("/checks/run/{projectID}", s.RunProject)
		r.Post("/digest/run", s.RunDigest)
		r.Get("/findings/active", s.ActiveFindings)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RunSweep triggers a full sweep synchronously and reports the result.
func (s *Server) RunSweep(w http.ResponseWriter, r *http.Request) {
	result, err := s.Orchestrator.RunAll(r.Context())
	if err != nil {
		log.Printf("Manual sweep failed: %v", err)
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RunProject triggers a check run for a single project.
func (s *Server) RunProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	project, err := s.findProject(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load projects")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	findings, err := s.Orchestrator.RunProject(r.Context(), project)
	if err != nil {
		log.Printf("Manual run failed for project %s: %v", project.Name, err)
		writeError(w, http.StatusInternalServerError, "check run failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"project":  project.Name,
		"findings": findings,
	})
}

// RunDigest posts the digest immediately, regardless of the schedule.
func (s *Server) RunDigest(w http.ResponseWriter, r *http.Request) {
	if err := s.Digest.Run(r.Context()); err != nil {
		log.Printf("Manual digest failed: %v", err)
		writeError(w, http.StatusInternalServerError, "digest failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "posted"})
}

// ActiveFindings lists all currently unresolved findings.
func (s *Server) ActiveFindings(w http.ResponseWriter, r *http.Request) {
	findings, err := s.Store.ActiveFindings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load findings")
		return
	}
	if findings == nil {
		findings = []models.Finding{}
	}
	writeJSON(w, http.StatusOK, findings)
}

func (s *Server) findProject(ctx context.Context, projectID string) (*models.Project, error) {
	projects, err := s.Store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].ID == projectID {
			return &projects[i], nil
		}
	}
	return nil, nil
}
