// Package course defines the course material data model and the document
// processor that turns course transcripts into indexable chunks.
package course

// Course represents one course document with its lesson outline.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson is a single lesson within a course.
// Link is empty when the source document carries no lesson link.
type Lesson struct {
	Number int
	Title  string
	Link   string
}

// Chunk is a slice of lesson text prepared for embedding and retrieval.
// CourseTitle and LessonNumber are the provenance fields surfaced to users
// as source citations.
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber int // -1 when the chunk is not tied to a lesson
	ChunkIndex   int
}

// Lesson returns the lesson with the given number, or nil if absent.
func (c *Course) Lesson(number int) *Lesson {
	for i := range c.Lessons {
		if c.Lessons[i].Number == number {
			return &c.Lessons[i]
		}
	}
	return nil
}
