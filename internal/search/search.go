// Package search provides the course content retrieval tool exposed to the
// model. It turns vector store hits into a passage block the model can read
// and citations the UI can display.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/vectorstore"
)

// ToolName is the Genkit tool name for course content search.
const ToolName = "search_course_content"

// toolDescription is what the model sees when deciding whether to search.
const toolDescription = "Search course materials with smart course name matching " +
	"and lesson filtering. " +
	"Returns: relevant course passages with course and lesson provenance. " +
	"Use this for questions about specific course content or detailed " +
	"educational materials. " +
	"Course titles match partially, so 'MCP' finds 'Introduction to MCP'."

// noResultsMarker is returned to the model when nothing matches.
const noResultsMarker = "No relevant content found"

// Searcher is the retrieval capability the tool needs.
// Defined here, by the consumer, so tests can substitute a fake store.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...vectorstore.SearchOption) ([]vectorstore.Hit, error)
}

// Input is the model-facing input schema of the search tool.
// LessonNumber is a pointer so lesson 0 is distinguishable from "no filter".
type Input struct {
	Query        string `json:"query" jsonschema_description:"What to search for in course content"`
	CourseTitle  string `json:"course_title,omitempty" jsonschema_description:"Course title, full or partial (e.g. 'MCP', 'Introduction')"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema_description:"Specific lesson number to search within (e.g. 1, 2, 3)"`
}

// Citation identifies where a retrieved passage came from.
type Citation struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber int    `json:"lesson_number"` // -1 when course-level
	LessonLink   string `json:"lesson_link,omitempty"`
}

// String renders the citation for display, e.g. "Building Toward Computer
// Use - Lesson 3" or just the course title for course-level content.
func (c Citation) String() string {
	if c.LessonNumber >= 0 {
		return fmt.Sprintf("%s - Lesson %d", c.CourseTitle, c.LessonNumber)
	}
	return c.CourseTitle
}

// Tool searches course content on behalf of the model.
type Tool struct {
	searcher   Searcher
	maxResults int
	logger     log.Logger
}

// NewTool creates the search tool. maxResults bounds the passages returned
// per call; a nil logger falls back to a no-op logger.
func NewTool(searcher Searcher, maxResults int, logger log.Logger) (*Tool, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if maxResults < 1 {
		return nil, fmt.Errorf("maxResults must be positive, got %d", maxResults)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Tool{searcher: searcher, maxResults: maxResults, logger: logger}, nil
}

// Register registers the tool with Genkit so the model sees its schema.
// The returned ai.Tool is passed to generate calls; execution itself is
// driven by the answer engine, which calls Execute directly.
func (t *Tool) Register(g *genkit.Genkit) ai.Tool {
	return genkit.DefineTool(g, ToolName, toolDescription,
		func(ctx *ai.ToolContext, input Input) (string, error) {
			text, _, err := t.Execute(ctx.Context, input)
			return text, err
		})
}

// Execute runs a search and formats the hits for the model.
//
// The formatted text carries one passage per hit, headed by its provenance:
//
//	[Course Title - Lesson 2]
//	...passage text...
//
// A search that matches nothing, or names an unknown course, yields an
// explanatory message for the model rather than an error: the model should
// see the empty result and say so, not crash the turn. Only infrastructure
// failures (store or embedder down) surface as errors.
func (t *Tool) Execute(ctx context.Context, input Input) (string, []Citation, error) {
	if strings.TrimSpace(input.Query) == "" {
		return "", nil, fmt.Errorf("query is required")
	}

	opts := []vectorstore.SearchOption{vectorstore.WithLimit(t.maxResults)}
	if input.CourseTitle != "" {
		opts = append(opts, vectorstore.WithCourse(input.CourseTitle))
	}
	if input.LessonNumber != nil {
		opts = append(opts, vectorstore.WithLesson(*input.LessonNumber))
	}

	hits, err := t.searcher.Search(ctx, input.Query, opts...)
	if errors.Is(err, vectorstore.ErrCourseNotFound) {
		t.logger.Debug("search for unknown course", "course", input.CourseTitle)
		return fmt.Sprintf("No course found matching '%s'", input.CourseTitle), nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("searching course content: %w", err)
	}

	if len(hits) == 0 {
		return noResults(input), nil, nil
	}

	var blocks []string
	citations := make([]Citation, 0, len(hits))
	for _, hit := range hits {
		header := fmt.Sprintf("[%s]", hit.Meta.CourseTitle)
		if hit.Meta.LessonNumber >= 0 {
			header = fmt.Sprintf("[%s - Lesson %d]", hit.Meta.CourseTitle, hit.Meta.LessonNumber)
		}
		blocks = append(blocks, header+"\n"+hit.Content)
		citations = append(citations, Citation{
			CourseTitle:  hit.Meta.CourseTitle,
			LessonNumber: hit.Meta.LessonNumber,
			LessonLink:   hit.Meta.LessonLink,
		})
	}

	t.logger.Debug("search tool executed",
		"query_length", len(input.Query),
		"hits", len(hits))
	return strings.Join(blocks, "\n\n"), citations, nil
}

// noResults describes an empty result, echoing any filters so the model can
// tell the user what was searched.
func noResults(input Input) string {
	var sb strings.Builder
	sb.WriteString(noResultsMarker)
	if input.CourseTitle != "" {
		fmt.Fprintf(&sb, " in course '%s'", input.CourseTitle)
	}
	if input.LessonNumber != nil {
		fmt.Fprintf(&sb, " in lesson %d", *input.LessonNumber)
	}
	sb.WriteString(".")
	return sb.String()
}
