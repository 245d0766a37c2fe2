package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-devbind/internal/relay"
)

// valueRequest is the body of the PUT attribute and style endpoints.
type valueRequest struct {
	Value     string `json:"value"`
	Namespace string `json:"namespace,omitempty"`
}

// handleListElements returns every element id in document order.
func (s *Server) handleListElements(w http.ResponseWriter, _ *http.Request) {
	ids := s.doc.ElementIDs()
	writeJSON(w, http.StatusOK, map[string]any{
		"elements": ids,
		"count":    len(ids),
	})
}

// handleGetElement returns a snapshot of one element.
func (s *Server) handleGetElement(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.doc.Snapshot(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "element not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSetAttribute(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValue(w, r)
	if !ok {
		return
	}
	s.apply(w, r, relay.CommandMessage{
		Action:    relay.ActionSetAttribute,
		Name:      chi.URLParam(r, "name"),
		Namespace: req.Namespace,
		Value:     req.Value,
	})
}

func (s *Server) handleRemoveAttribute(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, relay.CommandMessage{
		Action:    relay.ActionRemoveAttribute,
		Name:      chi.URLParam(r, "name"),
		Namespace: r.URL.Query().Get("namespace"),
	})
}

func (s *Server) handleSetStyle(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValue(w, r)
	if !ok {
		return
	}
	s.apply(w, r, relay.CommandMessage{
		Action: relay.ActionSetStyle,
		Name:   chi.URLParam(r, "property"),
		Value:  req.Value,
	})
}

func (s *Server) handleRemoveStyle(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, relay.CommandMessage{
		Action: relay.ActionRemoveStyle,
		Name:   chi.URLParam(r, "property"),
	})
}

func (s *Server) handleDispatchEvent(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, relay.CommandMessage{
		Action: relay.ActionDispatchEvent,
		Name:   chi.URLParam(r, "name"),
	})
}

// apply runs a command against the document and responds with the element's
// resulting state.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, cmd relay.CommandMessage) {
	cmd.ID = requestID(r.Context())
	cmd.ElementID = chi.URLParam(r, "id")
	cmd.Source = "api"

	if err := relay.Apply(s.doc, cmd); err != nil {
		switch relay.ErrorCode(err) {
		case relay.ErrCodeUnknownElement:
			writeNotFound(w, "element not found")
		case relay.ErrCodeDocumentError:
			s.logger.Error("applying element change failed", "element_id", cmd.ElementID, "error", err)
			writeInternalError(w, "failed to apply change")
		default:
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		}
		return
	}

	s.logger.Debug("element changed via api",
		"element_id", cmd.ElementID,
		"action", string(cmd.Action),
		"name", cmd.Name,
		"subject", r.Context().Value(ctxKeySubject),
	)

	snap, _ := s.doc.Snapshot(cmd.ElementID)
	writeJSON(w, http.StatusOK, snap)
}

// decodeValue reads a valueRequest. An empty body means an empty value.
func decodeValue(w http.ResponseWriter, r *http.Request) (valueRequest, bool) {
	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return req, false
	}
	return req, true
}
