package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "focksim",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleStatus reports sweep progress and process health
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	completed, failed, total := s.runner.Progress()

	response := map[string]interface{}{
		"status": "running",
		"run_id": s.runID,
		"sweep": map[string]interface{}{
			"completed": completed,
			"failed":    failed,
			"total":     total,
		},
		"memory": map[string]interface{}{
			"alloc_mb": m.Alloc / 1024 / 1024,
			"sys_mb":   m.Sys / 1024 / 1024,
			"num_gc":   m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleListRuns returns all recorded runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.repo.ListRuns()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list runs")
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// handleGetRun returns one run by ID
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := s.repo.GetRun(runID)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		s.writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	s.writeJSON(w, http.StatusOK, run)
}

// handleListResults returns the stored rows of a run, optionally limited
// with ?limit=N
func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	rows, err := s.repo.ListResults(runID, limit)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", runID).Msg("Failed to list results")
		s.writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": rows})
}

// handleSummary returns aggregated statistics for a run
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	summary, err := s.repo.Summary(runID)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", runID).Msg("Failed to compute summary")
		s.writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
