package api

import (
	"net/http"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
)

// SessionHandler manages conversation sessions over HTTP.
type SessionHandler struct {
	system RAG
	logger log.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(system RAG, logger log.Logger) *SessionHandler {
	return &SessionHandler{system: system, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.clear)
}

// create handles POST /api/sessions.
func (h *SessionHandler) create(w http.ResponseWriter, _ *http.Request) {
	id := h.system.CreateSession()
	h.logger.Debug("session created via API", "session_id", id)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

// clear handles DELETE /api/sessions/{id}. Clearing an unknown session is
// a no-op so the endpoint is idempotent.
func (h *SessionHandler) clear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id is required")
		return
	}
	h.system.ClearSession(id)
	w.WriteHeader(http.StatusNoContent)
}
