package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/rag"
)

// fakeRAG is a scriptable RAG implementation for handler tests.
type fakeRAG struct {
	answer    *rag.Answer
	answerErr error
	analytics *rag.Analytics
	analytErr error

	queries []string
	cleared []string
	created int

	panicOnQuery bool
}

func (f *fakeRAG) Query(_ context.Context, question, sessionID string) (*rag.Answer, error) {
	if f.panicOnQuery {
		panic("boom")
	}
	f.queries = append(f.queries, question)
	if f.answerErr != nil {
		return nil, f.answerErr
	}
	ans := *f.answer
	if ans.SessionID == "" {
		ans.SessionID = sessionID
	}
	return &ans, nil
}

func (f *fakeRAG) CourseAnalytics(context.Context) (*rag.Analytics, error) {
	return f.analytics, f.analytErr
}

func (f *fakeRAG) CreateSession() string {
	f.created++
	return "session-123"
}

func (f *fakeRAG) ClearSession(id string) {
	f.cleared = append(f.cleared, id)
}

func newTestServer(t *testing.T, system RAG) http.Handler {
	t.Helper()
	srv, err := NewServer(system, nil, nil)
	if err != nil {
		t.Fatalf("NewServer() = %v", err)
	}
	return srv.Handler()
}

func TestNewServer(t *testing.T) {
	if _, err := NewServer(nil, nil, nil); err == nil {
		t.Error("NewServer(nil system) = nil error")
	}
}

func TestRouting(t *testing.T) {
	handler := newTestServer(t, &fakeRAG{analytics: &rag.Analytics{}})

	tests := []struct {
		method, path string
		wantStatus   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/courses", http.StatusOK},
		{http.MethodGet, "/api/query", http.StatusMethodNotAllowed},
		{http.MethodGet, "/no/such/route", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestReadinessWithoutPool(t *testing.T) {
	handler := newTestServer(t, &fakeRAG{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 without a pool", rec.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	handler := newTestServer(t, &fakeRAG{analytics: &rag.Analytics{}})

	t.Run("present on every response", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got == "" {
			t.Error("Access-Control-Allow-Methods missing on preflight response")
		}
	})
}

func TestPanicRecovery(t *testing.T) {
	handler := newTestServer(t, &fakeRAG{panicOnQuery: true})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", jsonBody(`{"query":"boom"}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 from recovery middleware", rec.Code)
	}
}
