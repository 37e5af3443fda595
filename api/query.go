package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/answer"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/search"
)

// maxQueryBody bounds the request body size for /api/query.
const maxQueryBody = 64 * 1024

// QueryRequest is the request body for POST /api/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// Source is one citation as returned to API clients.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// QueryResponse is the response body for POST /api/query.
type QueryResponse struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id"`
}

// QueryHandler answers questions over HTTP.
type QueryHandler struct {
	system RAG
	logger log.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(system RAG, logger log.Logger) *QueryHandler {
	return &QueryHandler{system: system, logger: logger}
}

// RegisterRoutes registers query routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.query)
}

// query handles POST /api/query.
func (h *QueryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	body := http.MaxBytesReader(w, r.Body, maxQueryBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "query must not be empty")
		return
	}

	ans, err := h.system.Query(r.Context(), req.Query, req.SessionID)
	if err != nil {
		h.logger.Error("query failed", "error", err, "session_id", req.SessionID)
		status := http.StatusInternalServerError
		if errors.Is(err, answer.ErrToolLoopExceeded) {
			status = http.StatusBadGateway
		}
		writeError(w, status, "query_failed", "failed to answer the query")
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    ans.Text,
		Sources:   toSources(ans.Sources),
		SessionID: ans.SessionID,
	})
}

// toSources renders citations for API clients. Always returns a non-nil
// slice so the JSON field is [] rather than null.
func toSources(citations []search.Citation) []Source {
	sources := make([]Source, 0, len(citations))
	for _, c := range citations {
		sources = append(sources, Source{
			Text: c.String(),
			Link: c.LessonLink,
		})
	}
	return sources
}
