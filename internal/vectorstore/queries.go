package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/course"
)

// NewPool creates a pgx connection pool with pgvector types registered on
// every connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// PgxQuerier implements Querier against a pgx connection pool.
type PgxQuerier struct {
	pool *pgxpool.Pool
}

// NewQuerier wraps a connection pool in a Querier.
func NewQuerier(pool *pgxpool.Pool) *PgxQuerier {
	return &PgxQuerier{pool: pool}
}

// UpsertCourse inserts or updates a course row and returns its ID.
func (q *PgxQuerier) UpsertCourse(ctx context.Context, arg UpsertCourseParams) (int64, error) {
	var id int64
	err := q.pool.QueryRow(ctx, `
		INSERT INTO courses (title, link, instructor)
		VALUES ($1, $2, $3)
		ON CONFLICT (title) DO UPDATE
		SET link = EXCLUDED.link, instructor = EXCLUDED.instructor
		RETURNING id`,
		arg.Title, arg.Link, arg.Instructor).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert course: %w", err)
	}
	return id, nil
}

// ReplaceLessons replaces the lesson outline of a course.
func (q *PgxQuerier) ReplaceLessons(ctx context.Context, courseID int64, lessons []course.Lesson) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM lessons WHERE course_id = $1`, courseID)
	for _, l := range lessons {
		batch.Queue(`
			INSERT INTO lessons (course_id, number, title, link)
			VALUES ($1, $2, $3, $4)`,
			courseID, l.Number, l.Title, l.Link)
	}

	results := q.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("replace lessons: %w", err)
		}
	}
	return nil
}

// InsertChunks inserts content chunks in one batch.
func (q *PgxQuerier) InsertChunks(ctx context.Context, args []InsertChunkParams) error {
	batch := &pgx.Batch{}
	for _, arg := range args {
		batch.Queue(`
			INSERT INTO course_chunks
				(course_id, course_title, lesson_number, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			arg.CourseID, arg.CourseTitle, arg.LessonNumber,
			arg.ChunkIndex, arg.Content, arg.Embedding)
	}

	results := q.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	return nil
}

// SearchChunks runs a cosine-distance vector search with optional course and
// lesson filters. Lesson metadata joins in from the outline when present.
func (q *PgxQuerier) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT
			cc.content,
			cc.course_title,
			cc.lesson_number,
			COALESCE(l.title, '') AS lesson_title,
			COALESCE(l.link, '') AS lesson_link,
			1 - (cc.embedding <=> $1) AS similarity
		FROM course_chunks cc
		LEFT JOIN lessons l
			ON l.course_id = cc.course_id AND l.number = cc.lesson_number
		WHERE ($2 = '' OR cc.course_title = $2)
			AND ($3 < 0 OR cc.lesson_number = $3)
		ORDER BY cc.embedding <=> $1
		LIMIT $4`,
		arg.QueryEmbedding, arg.CourseTitle, arg.LessonNumber, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var out []ChunkRow
	for rows.Next() {
		var r ChunkRow
		if err := rows.Scan(&r.Content, &r.CourseTitle, &r.LessonNumber,
			&r.LessonTitle, &r.LessonLink, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}
	return out, nil
}

// ResolveCourseTitle resolves a partial course name to the full catalog
// title. Shorter titles win ties so "MCP" prefers the closest match.
// Returns "" with nil error when nothing matches.
func (q *PgxQuerier) ResolveCourseTitle(ctx context.Context, name string) (string, error) {
	var title string
	err := q.pool.QueryRow(ctx, `
		SELECT title FROM courses
		WHERE title ILIKE '%' || $1 || '%'
		ORDER BY length(title)
		LIMIT 1`, name).Scan(&title)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve course title: %w", err)
	}
	return title, nil
}

// CountCourses returns the catalog size.
func (q *PgxQuerier) CountCourses(ctx context.Context) (int64, error) {
	var count int64
	if err := q.pool.QueryRow(ctx, `SELECT count(*) FROM courses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

// ListCourseTitles returns all course titles, alphabetically ordered.
func (q *PgxQuerier) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := q.pool.Query(ctx, `SELECT title FROM courses ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan course title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course titles: %w", err)
	}
	return titles, nil
}

// DeleteCourse removes a course; lessons and chunks cascade.
func (q *PgxQuerier) DeleteCourse(ctx context.Context, title string) error {
	if _, err := q.pool.Exec(ctx, `DELETE FROM courses WHERE title = $1`, title); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
