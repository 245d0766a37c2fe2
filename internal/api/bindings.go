package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-devbind/internal/bridges/devfile"
	"github.com/nerrad567/gray-logic-devbind/internal/history"
)

// handleListBindings returns the status of every binding.
func (s *Server) handleListBindings(w http.ResponseWriter, _ *http.Request) {
	bindings := s.engine.Bindings()
	out := make([]devfile.Status, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, b.Status())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bindings": out,
		"count":    len(out),
	})
}

// handleGetBinding returns one binding's status.
func (s *Server) handleGetBinding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, ok := s.engine.Binding(id)
	if !ok {
		writeNotFound(w, "binding not found")
		return
	}
	writeJSON(w, http.StatusOK, b.Status())
}

// handleBindingHistory returns the most recent device exchanges of a
// binding, newest first. ?limit= defaults to 50 and is capped at 200.
func (s *Server) handleBindingHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history is not enabled")
		return
	}

	id := chi.URLParam(r, "id")
	if _, ok := s.engine.Binding(id); !ok {
		writeNotFound(w, "binding not found")
		return
	}

	limit := history.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("reading binding history failed", "binding_id", id, "error", err)
		writeInternalError(w, "failed to read history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"binding_id": id,
		"entries":    entries,
		"count":      len(entries),
	})
}
