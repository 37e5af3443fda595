package api

import (
	"net/http"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
)

// CoursesHandler serves course catalog analytics.
type CoursesHandler struct {
	system RAG
	logger log.Logger
}

// NewCoursesHandler creates a courses handler.
func NewCoursesHandler(system RAG, logger log.Logger) *CoursesHandler {
	return &CoursesHandler{system: system, logger: logger}
}

// RegisterRoutes registers course routes on the given mux.
func (h *CoursesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/courses", h.courses)
}

// courses handles GET /api/courses.
func (h *CoursesHandler) courses(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.system.CourseAnalytics(r.Context())
	if err != nil {
		h.logger.Error("course analytics failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analytics_failed", "failed to load course analytics")
		return
	}
	if analytics.CourseTitles == nil {
		analytics.CourseTitles = []string{}
	}
	writeJSON(w, http.StatusOK, analytics)
}
