package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/lmt-kanban/internal/modules/dashboard"
)

const contentTypeMsgpack = "application/msgpack"

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "lmt-kanban",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeView writes a view model as MessagePack when the client asks for it, JSON otherwise
func (s *Server) writeView(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if !strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack) {
		s.writeJSON(w, status, data)
		return
	}

	body, err := msgpack.Marshal(data)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode MessagePack response")
		s.writeError(w, http.StatusInternalServerError, "encoding failed")
		return
	}
	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.log.Error().Err(err).Msg("Failed to write MessagePack response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// handleDashboard returns the overview view model
// GET /api/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.writeView(w, r, http.StatusOK, s.dashboard.View(r.URL.Query().Get("q")))
}

// handleRefresh fires a manual refresh
// POST /api/dashboard/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.scheduler.TriggerManual()
	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "accepted",
		"loading": true,
	})
}

type excludeCommonRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleExcludeCommon switches the shared-material toggle
// POST /api/dashboard/exclude-common
func (s *Server) handleExcludeCommon(w http.ResponseWriter, r *http.Request) {
	var req excludeCommonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Enabled == nil {
		s.writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	changed, err := s.dashboard.SetExcludeCommon(*req.Enabled)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to apply exclude-common toggle")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"exclude_common": *req.Enabled,
		"label":          dashboard.ExcludeCommonLabel(*req.Enabled),
		"changed":        changed,
	})
}

// handleSort toggles the sort of an overview list
// POST /api/dashboard/sort/{table}/{key}
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	key := chi.URLParam(r, "key")

	state, err := s.dashboard.ToggleSort(table, key)
	if err != nil {
		if errors.Is(err, dashboard.ErrUnknownTable) || errors.Is(err, dashboard.ErrUnknownSortKey) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"table":  table,
		"key":    state.Key,
		"dir":    state.Dir.String(),
		"marker": state.Dir.Arrow(),
	})
}

// handleBatches returns the batch picker
// GET /api/detail/batches
func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.dashboard.Batches(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to list batches")
		s.writeError(w, http.StatusBadGateway, "analytics backend unavailable")
		return
	}
	s.writeView(w, r, http.StatusOK, batches)
}

// handleDetail returns the detail view of one batch
// GET /api/detail
func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	req := dashboard.ParseDetailRequest(r.URL.Query())

	view, err := s.dashboard.Detail(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "analytics backend unavailable")
		return
	}
	s.writeView(w, r, http.StatusOK, view)
}
