package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/greyline-dev/screenpilot/internal/perception"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	// API v1 routes (read-only diagnostics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/perception", s.handlePerception)
		r.Get("/perception/{name}", s.handleObservation)
		r.Get("/stats", s.handleStats)
		r.Get("/policies", s.handlePolicies)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handlePerception returns the full observation snapshot.
func (s *Server) handlePerception(w http.ResponseWriter, r *http.Request) {
	var entities map[string]perception.Observation
	switch r.URL.Query().Get("found") {
	case "":
		entities = s.store.All()
	case "true":
		entities = s.store.Found()
	case "false":
		entities = make(map[string]perception.Observation)
		for name, obs := range s.store.All() {
			if !obs.Found {
				entities[name] = obs
			}
		}
	default:
		writeBadRequest(w, "found must be true or false")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(entities),
		"entities": entities,
	})
}

// handleObservation returns the latest observation for one template.
func (s *Server) handleObservation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	obs, ok := s.store.Get(name)
	if !ok {
		writeNotFound(w, "no observation for template "+name)
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

// handleStats returns tracking loop statistics.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.tracker == nil {
		writeJSON(w, http.StatusOK, map[string]any{"tracking": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tracking": s.tracker.Stats(),
	})
}

// handlePolicies lists the registered policy names.
func (s *Server) handlePolicies(w http.ResponseWriter, _ *http.Request) {
	names := []string{}
	if s.policies != nil {
		names = s.policies.Names()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"policies": names,
	})
}
