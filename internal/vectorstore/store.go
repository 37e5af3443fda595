// Package vectorstore persists course material in PostgreSQL with pgvector
// embeddings and serves semantic search over it.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/course"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
)

// ErrCourseNotFound indicates a course filter matched nothing in the catalog.
var ErrCourseNotFound = errors.New("course not found")

// searchTimeout bounds embedding generation plus the vector query.
const searchTimeout = 10 * time.Second

// Querier defines the database operations the store needs.
// Following Go best practices: interfaces are defined by the consumer,
// which lets tests substitute a mock for the pgx implementation.
type Querier interface {
	UpsertCourse(ctx context.Context, arg UpsertCourseParams) (int64, error)
	ReplaceLessons(ctx context.Context, courseID int64, lessons []course.Lesson) error
	InsertChunks(ctx context.Context, arg []InsertChunkParams) error
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error)
	ResolveCourseTitle(ctx context.Context, name string) (string, error)
	CountCourses(ctx context.Context) (int64, error)
	ListCourseTitles(ctx context.Context) ([]string, error)
	DeleteCourse(ctx context.Context, title string) error
}

// UpsertCourseParams describes one course row.
type UpsertCourseParams struct {
	Title      string
	Link       string
	Instructor string
}

// InsertChunkParams describes one content chunk row.
type InsertChunkParams struct {
	CourseID     int64
	CourseTitle  string
	LessonNumber int
	ChunkIndex   int
	Content      string
	Embedding    pgvector.Vector
}

// SearchChunksParams describes a vector search.
// CourseTitle empty means all courses; LessonNumber -1 means all lessons.
type SearchChunksParams struct {
	QueryEmbedding pgvector.Vector
	CourseTitle    string
	LessonNumber   int
	ResultLimit    int
}

// ChunkRow is one row returned by SearchChunks.
type ChunkRow struct {
	Content      string
	CourseTitle  string
	LessonNumber int
	LessonTitle  string
	LessonLink   string
	Similarity   float32
}

// Store manages course material with vector search capabilities.
// It handles embedding generation and similarity search using
// PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store. A nil logger falls back to a no-op logger.
func New(querier Querier, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// AddCourse stores a course outline and its content chunks. Chunk content is
// embedded in a single batch request. Re-adding a course with the same title
// replaces its outline; chunks are appended by the caller's indexing policy.
func (s *Store) AddCourse(ctx context.Context, c *course.Course, chunks []course.Chunk) error {
	courseID, err := s.queries.UpsertCourse(ctx, UpsertCourseParams{
		Title:      c.Title,
		Link:       c.Link,
		Instructor: c.Instructor,
	})
	if err != nil {
		return fmt.Errorf("upserting course %q: %w", c.Title, err)
	}

	if err := s.queries.ReplaceLessons(ctx, courseID, c.Lessons); err != nil {
		return fmt.Errorf("storing lessons for %q: %w", c.Title, err)
	}

	if len(chunks) == 0 {
		return nil
	}

	embeddings, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding chunks for %q: %w", c.Title, err)
	}

	params := make([]InsertChunkParams, len(chunks))
	for i, ch := range chunks {
		params[i] = InsertChunkParams{
			CourseID:     courseID,
			CourseTitle:  ch.CourseTitle,
			LessonNumber: ch.LessonNumber,
			ChunkIndex:   ch.ChunkIndex,
			Content:      ch.Content,
			Embedding:    embeddings[i],
		}
	}
	if err := s.queries.InsertChunks(ctx, params); err != nil {
		return fmt.Errorf("inserting chunks for %q: %w", c.Title, err)
	}

	s.logger.Debug("added course",
		"title", c.Title,
		"lessons", len(c.Lessons),
		"chunks", len(chunks))
	return nil
}

// Search performs semantic search over the stored chunks.
//
// Example:
//
//	hits, err := store.Search(ctx, "what is MCP",
//	    vectorstore.WithCourse("MCP"),
//	    vectorstore.WithLesson(2),
//	    vectorstore.WithLimit(5))
//
// A course filter that matches nothing returns ErrCourseNotFound so the
// caller can report the bad filter instead of an empty result.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Hit, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	courseTitle := ""
	if cfg.courseName != "" {
		title, err := s.queries.ResolveCourseTitle(queryCtx, cfg.courseName)
		if err != nil {
			return nil, fmt.Errorf("resolving course %q: %w", cfg.courseName, err)
		}
		if title == "" {
			return nil, fmt.Errorf("%w: %q", ErrCourseNotFound, cfg.courseName)
		}
		courseTitle = title
	}

	queryEmbedding, err := s.embedQuery(queryCtx, query)
	if err != nil {
		return nil, err
	}

	rows, err := s.queries.SearchChunks(queryCtx, SearchChunksParams{
		QueryEmbedding: queryEmbedding,
		CourseTitle:    courseTitle,
		LessonNumber:   cfg.lessonNumber,
		ResultLimit:    cfg.limit,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, Hit{
			Content: row.Content,
			Meta: ChunkMeta{
				CourseTitle:  row.CourseTitle,
				LessonNumber: row.LessonNumber,
				LessonTitle:  row.LessonTitle,
				LessonLink:   row.LessonLink,
			},
			Similarity: row.Similarity,
		})
	}

	s.logger.Debug("vector search",
		"query_length", len(query),
		"course", courseTitle,
		"lesson", cfg.lessonNumber,
		"hits", len(hits))
	return hits, nil
}

// CourseCount returns the number of courses in the catalog.
func (s *Store) CourseCount(ctx context.Context) (int, error) {
	count, err := s.queries.CountCourses(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting courses: %w", err)
	}
	return int(count), nil
}

// CourseTitles returns all course titles, alphabetically ordered.
func (s *Store) CourseTitles(ctx context.Context) ([]string, error) {
	titles, err := s.queries.ListCourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing course titles: %w", err)
	}
	return titles, nil
}

// ExistingTitles returns the catalog titles as a set, for skip-duplicate
// checks during indexing.
func (s *Store) ExistingTitles(ctx context.Context) (map[string]bool, error) {
	titles, err := s.CourseTitles(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(titles))
	for _, t := range titles {
		set[t] = true
	}
	return set, nil
}

// DeleteCourse removes a course, its lessons and its chunks.
func (s *Store) DeleteCourse(ctx context.Context, title string) error {
	if err := s.queries.DeleteCourse(ctx, title); err != nil {
		return fmt.Errorf("deleting course %q: %w", title, err)
	}
	s.logger.Debug("deleted course", "title", title)
	return nil
}

// embedQuery generates the embedding for a search query.
func (s *Store) embedQuery(ctx context.Context, query string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(query)}},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return pgvector.Vector{}, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return pgvector.Vector{}, fmt.Errorf("generating query embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding returned for query")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// embedChunks generates embeddings for all chunks in one batch request.
func (s *Store) embedChunks(ctx context.Context, chunks []course.Chunk) ([]pgvector.Vector, error) {
	docs := make([]*ai.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(ch.Content)}}
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("generating embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d chunks",
			len(resp.Embeddings), len(chunks))
	}

	vectors := make([]pgvector.Vector, len(chunks))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding returned for chunk %d", i)
		}
		vectors[i] = pgvector.NewVector(emb.Embedding)
	}
	return vectors, nil
}
