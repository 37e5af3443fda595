package vectorstore

// ChunkMeta carries the provenance of a retrieved chunk. CourseTitle and
// LessonNumber identify where the text came from; LessonTitle and LessonLink
// are filled from the lesson outline when the chunk belongs to a lesson.
type ChunkMeta struct {
	CourseTitle  string
	LessonNumber int // -1 for course-level content
	LessonTitle  string
	LessonLink   string
}

// Hit is a single search result.
type Hit struct {
	Content    string
	Meta       ChunkMeta
	Similarity float32 // cosine similarity (0-1)
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	limit        int
	courseName   string
	lessonNumber int
}

// WithLimit sets the maximum number of hits to return. Default is 5.
func WithLimit(n int) SearchOption {
	return func(c *searchConfig) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithCourse restricts the search to one course. The name is matched
// fuzzily against the catalog, so a partial title like "MCP" resolves to
// the full course title.
func WithCourse(name string) SearchOption {
	return func(c *searchConfig) {
		c.courseName = name
	}
}

// WithLesson restricts the search to one lesson number.
func WithLesson(number int) SearchOption {
	return func(c *searchConfig) {
		c.lessonNumber = number
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		limit:        5,
		lessonNumber: -1,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
