package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow,
			r.Method+" not supported on "+r.URL.Path)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/bindings", func(r chi.Router) {
			r.Get("/", s.handleListBindings)
			r.Get("/{id}", s.handleGetBinding)
			r.Get("/{id}/history", s.handleBindingHistory)
		})

		r.Get("/elements", s.handleListElements)
		r.Get("/elements/{id}", s.handleGetElement)

		// WebSocket (auth via ticket, validated in handler)
		r.Get(s.wsPath(), s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post(s.wsPath()+"/ticket", s.handleWSTicket)

			// Flat patterns: a mounted /elements/{id} subrouter would
			// shadow the public GET above.
			r.Put("/elements/{id}/attributes/{name}", s.handleSetAttribute)
			r.Delete("/elements/{id}/attributes/{name}", s.handleRemoveAttribute)
			r.Put("/elements/{id}/style/{property}", s.handleSetStyle)
			r.Delete("/elements/{id}/style/{property}", s.handleRemoveStyle)
			r.Post("/elements/{id}/events/{name}", s.handleDispatchEvent)
		})
	})

	return r
}

// handleHealth returns the server health status with binding counters.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.engine.Stats()
	status := "ok"
	if stats.Failed > 0 || stats.Inert > 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            status,
		"version":           s.version,
		"uptime_seconds":    int64(time.Since(s.started).Seconds()),
		"bindings":          stats,
		"websocket_clients": s.feed.count(),
		"websocket_dropped": s.feed.dropped.Load(),
	})
}

// wsPath returns the WebSocket route below /api/v1.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}
