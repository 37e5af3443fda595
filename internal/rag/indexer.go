package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/markchangjz/starting-ragchatbot-codebase/internal/course"
	"github.com/markchangjz/starting-ragchatbot-codebase/internal/log"
)

// Library is the storage side of indexing. Satisfied by *vectorstore.Store.
type Library interface {
	ExistingTitles(ctx context.Context) (map[string]bool, error)
	AddCourse(ctx context.Context, c *course.Course, chunks []course.Chunk) error
	DeleteCourse(ctx context.Context, title string) error
}

// IndexStats summarizes one indexing run.
type IndexStats struct {
	CoursesAdded int
	ChunksAdded  int
	Skipped      int // already-indexed courses left untouched
}

// Indexer loads course documents from disk into the library.
type Indexer struct {
	processor *course.Processor
	library   Library
	logger    log.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(processor *course.Processor, library Library, logger log.Logger) (*Indexer, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if library == nil {
		return nil, fmt.Errorf("library is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Indexer{processor: processor, library: library, logger: logger}, nil
}

// IndexFolder processes every course document in dir and stores the new
// ones. Courses whose title is already in the library are skipped, so the
// folder can be re-indexed cheaply on startup. With clearExisting set, all
// known courses are deleted first and everything is re-indexed.
//
// Files are processed in name order for deterministic runs. A file that
// fails to parse is logged and skipped; it does not abort the run.
func (ix *Indexer) IndexFolder(ctx context.Context, dir string, clearExisting bool) (*IndexStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading docs directory: %w", err)
	}

	existing, err := ix.library.ExistingTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing existing courses: %w", err)
	}

	if clearExisting {
		for title := range existing {
			if err := ix.library.DeleteCourse(ctx, title); err != nil {
				return nil, fmt.Errorf("clearing course %q: %w", title, err)
			}
		}
		ix.logger.Info("cleared existing courses", "count", len(existing))
		existing = map[string]bool{}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !isCourseDocument(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	stats := &IndexStats{}
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		path := filepath.Join(dir, name)
		c, chunks, err := ix.processor.ProcessFile(path)
		if err != nil {
			ix.logger.Warn("skipping unparseable document", "file", name, "error", err)
			continue
		}

		if existing[c.Title] {
			stats.Skipped++
			ix.logger.Debug("course already indexed", "title", c.Title)
			continue
		}

		if err := ix.library.AddCourse(ctx, c, chunks); err != nil {
			return stats, fmt.Errorf("indexing %q: %w", c.Title, err)
		}
		existing[c.Title] = true
		stats.CoursesAdded++
		stats.ChunksAdded += len(chunks)
		ix.logger.Info("indexed course",
			"title", c.Title,
			"chunks", len(chunks))
	}

	return stats, nil
}

// isCourseDocument reports whether a file name looks like a course
// transcript the processor can read.
func isCourseDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}
