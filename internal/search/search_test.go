package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/vectorstore"
)

// fakeSearcher returns canned hits and records the options it was called with.
type fakeSearcher struct {
	hits []vectorstore.Hit
	err  error

	lastQuery string
	lastOpts  int
}

func (f *fakeSearcher) Search(_ context.Context, query string, opts ...vectorstore.SearchOption) ([]vectorstore.Hit, error) {
	f.lastQuery = query
	f.lastOpts = len(opts)
	return f.hits, f.err
}

func intPtr(n int) *int { return &n }

func TestNewTool(t *testing.T) {
	if _, err := NewTool(nil, 5, nil); err == nil {
		t.Error("NewTool(nil searcher) = nil error")
	}
	if _, err := NewTool(&fakeSearcher{}, 0, nil); err == nil {
		t.Error("NewTool(maxResults 0) = nil error")
	}
	if _, err := NewTool(&fakeSearcher{}, 5, nil); err != nil {
		t.Errorf("NewTool() = %v", err)
	}
}

func TestExecute(t *testing.T) {
	t.Run("formats passages with provenance headers", func(t *testing.T) {
		f := &fakeSearcher{hits: []vectorstore.Hit{
			{
				Content: "MCP clients connect to servers.",
				Meta: vectorstore.ChunkMeta{
					CourseTitle:  "Introduction to MCP",
					LessonNumber: 2,
					LessonLink:   "https://example.com/mcp/2",
				},
			},
			{
				Content: "Course overview text.",
				Meta: vectorstore.ChunkMeta{
					CourseTitle:  "Introduction to MCP",
					LessonNumber: -1,
				},
			},
		}}
		tool, _ := NewTool(f, 5, nil)

		text, citations, err := tool.Execute(context.Background(), Input{Query: "what is MCP"})
		if err != nil {
			t.Fatalf("Execute() = %v", err)
		}

		blocks := strings.Split(text, "\n\n")
		if len(blocks) != 2 {
			t.Fatalf("got %d blocks, want 2:\n%s", len(blocks), text)
		}
		if !strings.HasPrefix(blocks[0], "[Introduction to MCP - Lesson 2]\n") {
			t.Errorf("block 0 header wrong:\n%s", blocks[0])
		}
		if !strings.HasPrefix(blocks[1], "[Introduction to MCP]\n") {
			t.Errorf("course-level block header wrong:\n%s", blocks[1])
		}

		if len(citations) != 2 {
			t.Fatalf("got %d citations, want 2", len(citations))
		}
		if citations[0].LessonLink != "https://example.com/mcp/2" {
			t.Errorf("citation link = %q", citations[0].LessonLink)
		}
	})

	t.Run("one passage yields its exact citation", func(t *testing.T) {
		f := &fakeSearcher{hits: []vectorstore.Hit{
			{
				Content: "Supervised learning uses labeled data.",
				Meta:    vectorstore.ChunkMeta{CourseTitle: "ML", LessonNumber: 0, LessonTitle: "Intro"},
			},
		}}
		tool, _ := NewTool(f, 5, nil)

		_, citations, err := tool.Execute(context.Background(), Input{Query: "supervised learning"})
		if err != nil {
			t.Fatalf("Execute() = %v", err)
		}
		if len(citations) != 1 {
			t.Fatalf("got %d citations, want 1", len(citations))
		}
		want := Citation{CourseTitle: "ML", LessonNumber: 0}
		if citations[0] != want {
			t.Errorf("citation = %+v, want %+v", citations[0], want)
		}
		if citations[0].String() != "ML - Lesson 0" {
			t.Errorf("citation display = %q", citations[0].String())
		}
	})

	t.Run("empty result names the filters", func(t *testing.T) {
		tool, _ := NewTool(&fakeSearcher{}, 5, nil)

		text, citations, err := tool.Execute(context.Background(), Input{
			Query:        "nothing",
			CourseTitle:  "MCP",
			LessonNumber: intPtr(3),
		})
		if err != nil {
			t.Fatalf("Execute() = %v", err)
		}
		want := "No relevant content found in course 'MCP' in lesson 3."
		if text != want {
			t.Errorf("text = %q, want %q", text, want)
		}
		if len(citations) != 0 {
			t.Errorf("citations = %v, want none", citations)
		}
	})

	t.Run("empty result without filters", func(t *testing.T) {
		tool, _ := NewTool(&fakeSearcher{}, 5, nil)

		text, _, err := tool.Execute(context.Background(), Input{Query: "nothing"})
		if err != nil {
			t.Fatalf("Execute() = %v", err)
		}
		if text != "No relevant content found." {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("unknown course reported to model, not as error", func(t *testing.T) {
		f := &fakeSearcher{err: fmt.Errorf("%w: %q", vectorstore.ErrCourseNotFound, "Bogus")}
		tool, _ := NewTool(f, 5, nil)

		text, citations, err := tool.Execute(context.Background(), Input{
			Query:       "x",
			CourseTitle: "Bogus",
		})
		if err != nil {
			t.Fatalf("Execute() = %v, want nil", err)
		}
		if text != "No course found matching 'Bogus'" {
			t.Errorf("text = %q", text)
		}
		if len(citations) != 0 {
			t.Errorf("citations = %v", citations)
		}
	})

	t.Run("infrastructure failure is an error", func(t *testing.T) {
		f := &fakeSearcher{err: errors.New("connection refused")}
		tool, _ := NewTool(f, 5, nil)

		if _, _, err := tool.Execute(context.Background(), Input{Query: "x"}); err == nil {
			t.Error("Execute() = nil error, want store failure")
		}
	})

	t.Run("empty query rejected", func(t *testing.T) {
		tool, _ := NewTool(&fakeSearcher{}, 5, nil)

		if _, _, err := tool.Execute(context.Background(), Input{Query: "  "}); err == nil {
			t.Error("Execute(empty query) = nil error")
		}
	})

	t.Run("lesson zero filter is passed through", func(t *testing.T) {
		f := &fakeSearcher{}
		tool, _ := NewTool(f, 5, nil)

		_, _, err := tool.Execute(context.Background(), Input{
			Query:        "intro",
			LessonNumber: intPtr(0),
		})
		if err != nil {
			t.Fatalf("Execute() = %v", err)
		}
		// limit + lesson options
		if f.lastOpts != 2 {
			t.Errorf("searcher got %d options, want 2", f.lastOpts)
		}
	})
}
