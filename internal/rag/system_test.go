package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/answer"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/search"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/session"
)

// fakeEngine records the history it was handed and returns a canned result.
type fakeEngine struct {
	result    *answer.Result
	err       error
	histories [][]*ai.Message
}

func (f *fakeEngine) Answer(_ context.Context, _ string, history []*ai.Message) (*answer.Result, error) {
	f.histories = append(f.histories, history)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeCatalog struct {
	count  int
	titles []string
	err    error
}

func (f *fakeCatalog) CourseCount(context.Context) (int, error) { return f.count, f.err }

func (f *fakeCatalog) CourseTitles(context.Context) ([]string, error) { return f.titles, f.err }

func newTestSystem(t *testing.T, engine AnswerEngine, catalog Catalog) (*System, *session.Store) {
	t.Helper()
	sessions := session.New(2, nil)
	sys, err := New(sessions, engine, catalog, nil)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return sys, sessions
}

func TestQuery(t *testing.T) {
	t.Run("empty question rejected", func(t *testing.T) {
		sys, _ := newTestSystem(t, &fakeEngine{}, &fakeCatalog{})
		if _, err := sys.Query(context.Background(), "  ", ""); err == nil {
			t.Error("Query(empty) = nil error")
		}
	})

	t.Run("creates session when none given", func(t *testing.T) {
		engine := &fakeEngine{result: &answer.Result{Text: "An answer."}}
		sys, sessions := newTestSystem(t, engine, &fakeCatalog{})

		got, err := sys.Query(context.Background(), "A question?", "")
		if err != nil {
			t.Fatalf("Query() = %v", err)
		}
		if got.SessionID == "" {
			t.Fatal("SessionID is empty")
		}
		if got.Text != "An answer." {
			t.Errorf("Text = %q", got.Text)
		}

		turns := sessions.History(got.SessionID)
		if len(turns) != 2 {
			t.Fatalf("History() = %v, want the committed exchange", turns)
		}
		if turns[0].Content != "A question?" || turns[1].Content != "An answer." {
			t.Errorf("committed turns = %v", turns)
		}
	})

	t.Run("failed answer leaves session untouched", func(t *testing.T) {
		engine := &fakeEngine{err: errors.New("model unavailable")}
		sys, sessions := newTestSystem(t, engine, &fakeCatalog{})
		id := sessions.Create()
		sessions.AddExchange(id, "earlier question", "earlier answer")

		if _, err := sys.Query(context.Background(), "new question", id); err == nil {
			t.Fatal("Query() = nil error, want engine failure")
		}

		turns := sessions.History(id)
		if len(turns) != 2 || turns[0].Content != "earlier question" {
			t.Errorf("History() = %v, want the original exchange only", turns)
		}
	})

	t.Run("session carries across queries", func(t *testing.T) {
		engine := &fakeEngine{result: &answer.Result{Text: "answer"}}
		sys, _ := newTestSystem(t, engine, &fakeCatalog{})

		first, err := sys.Query(context.Background(), "first question", "")
		if err != nil {
			t.Fatalf("Query() = %v", err)
		}
		if _, err := sys.Query(context.Background(), "second question", first.SessionID); err != nil {
			t.Fatalf("Query() = %v", err)
		}

		if len(engine.histories[0]) != 0 {
			t.Errorf("first call history = %d messages, want 0", len(engine.histories[0]))
		}
		if len(engine.histories[1]) != 2 {
			t.Errorf("second call history = %d messages, want the first exchange", len(engine.histories[1]))
		}
	})

	t.Run("citations surface but are not persisted", func(t *testing.T) {
		engine := &fakeEngine{result: &answer.Result{
			Text: "answer",
			Citations: []search.Citation{
				{CourseTitle: "ML", LessonNumber: 0},
			},
		}}
		sys, sessions := newTestSystem(t, engine, &fakeCatalog{})

		got, err := sys.Query(context.Background(), "q", "")
		if err != nil {
			t.Fatalf("Query() = %v", err)
		}
		if len(got.Sources) != 1 {
			t.Fatalf("Sources = %v, want 1", got.Sources)
		}

		for _, turn := range sessions.History(got.SessionID) {
			if turn.Content != "q" && turn.Content != "answer" {
				t.Errorf("unexpected persisted turn %v", turn)
			}
		}
	})

	t.Run("unknown session id is adopted", func(t *testing.T) {
		engine := &fakeEngine{result: &answer.Result{Text: "answer"}}
		sys, sessions := newTestSystem(t, engine, &fakeCatalog{})

		got, err := sys.Query(context.Background(), "q", "client-chosen-id")
		if err != nil {
			t.Fatalf("Query() = %v", err)
		}
		if got.SessionID != "client-chosen-id" {
			t.Errorf("SessionID = %q", got.SessionID)
		}
		if len(sessions.History("client-chosen-id")) != 2 {
			t.Error("exchange not committed under the given session id")
		}
	})
}

func TestCourseAnalytics(t *testing.T) {
	t.Run("reports corpus", func(t *testing.T) {
		sys, _ := newTestSystem(t, &fakeEngine{}, &fakeCatalog{
			count:  2,
			titles: []string{"A", "B"},
		})

		got, err := sys.CourseAnalytics(context.Background())
		if err != nil {
			t.Fatalf("CourseAnalytics() = %v", err)
		}
		if got.TotalCourses != 2 || len(got.CourseTitles) != 2 {
			t.Errorf("Analytics = %+v", got)
		}
	})

	t.Run("propagates catalog failure", func(t *testing.T) {
		sys, _ := newTestSystem(t, &fakeEngine{}, &fakeCatalog{err: errors.New("db down")})
		if _, err := sys.CourseAnalytics(context.Background()); err == nil {
			t.Error("CourseAnalytics() = nil error")
		}
	})
}

func TestSessionLifecycle(t *testing.T) {
	sys, sessions := newTestSystem(t, &fakeEngine{result: &answer.Result{Text: "a"}}, &fakeCatalog{})

	id := sys.CreateSession()
	if id == "" {
		t.Fatal("CreateSession() returned empty id")
	}

	if _, err := sys.Query(context.Background(), "q", id); err != nil {
		t.Fatalf("Query() = %v", err)
	}
	sys.ClearSession(id)
	if len(sessions.History(id)) != 0 {
		t.Error("ClearSession left history behind")
	}
}
