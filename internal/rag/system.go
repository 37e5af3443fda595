// Package rag wires sessions, retrieval and answer generation into the
// question-answering entry point the API and CLI call.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/answer"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/search"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/session"
)

// AnswerEngine generates answers. Satisfied by *answer.Engine.
type AnswerEngine interface {
	Answer(ctx context.Context, question string, history []*ai.Message) (*answer.Result, error)
}

// Catalog reports on the indexed course corpus. Satisfied by
// *vectorstore.Store.
type Catalog interface {
	CourseCount(ctx context.Context) (int, error)
	CourseTitles(ctx context.Context) ([]string, error)
}

// Answer is the response to one question.
type Answer struct {
	Text      string
	Sources   []search.Citation
	SessionID string
}

// Analytics summarizes the indexed corpus.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// System is the orchestration facade over sessions, retrieval and
// generation.
type System struct {
	sessions *session.Store
	engine   AnswerEngine
	catalog  Catalog
	logger   log.Logger
}

// New creates a System.
func New(sessions *session.Store, engine AnswerEngine, catalog Catalog, logger log.Logger) (*System, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("answer engine is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &System{
		sessions: sessions,
		engine:   engine,
		catalog:  catalog,
		logger:   logger,
	}, nil
}

// CreateSession starts a new empty conversation and returns its ID.
func (s *System) CreateSession() string {
	return s.sessions.Create()
}

// ClearSession drops a conversation's history.
func (s *System) ClearSession(sessionID string) {
	s.sessions.Delete(sessionID)
}

// Query answers a question within a conversation. An empty sessionID starts
// a new session; the returned Answer carries the ID to continue with.
//
// The session is only updated after a successful answer: a failed engine
// call leaves the conversation exactly as it was, and tool traffic or
// citations are never written into the history.
func (s *System) Query(ctx context.Context, question, sessionID string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question must not be empty")
	}

	if sessionID == "" {
		sessionID = s.sessions.Create()
	}

	history := toMessages(s.sessions.History(sessionID))

	result, err := s.engine.Answer(ctx, question, history)
	if err != nil {
		return nil, fmt.Errorf("answering query: %w", err)
	}

	s.sessions.AddExchange(sessionID, question, result.Text)

	s.logger.Info("query answered",
		"session_id", sessionID,
		"history_turns", len(history),
		"sources", len(result.Citations))

	return &Answer{
		Text:      result.Text,
		Sources:   result.Citations,
		SessionID: sessionID,
	}, nil
}

// CourseAnalytics reports the corpus size and course titles.
func (s *System) CourseAnalytics(ctx context.Context) (*Analytics, error) {
	count, err := s.catalog.CourseCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("course analytics: %w", err)
	}
	titles, err := s.catalog.CourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("course analytics: %w", err)
	}
	return &Analytics{TotalCourses: count, CourseTitles: titles}, nil
}

// toMessages converts stored turns into model messages.
func toMessages(turns []session.Turn) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case session.RoleUser:
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(turn.Content)))
		case session.RoleAssistant:
			msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(turn.Content)))
		}
	}
	return msgs
}
