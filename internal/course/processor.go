package course

// processor.go parses course transcript documents and splits lesson text
// into overlapping, sentence-aligned chunks.
//
// Expected document layout:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<lesson transcript...>
//
//	Lesson 1: ...
//
// Header lines may appear in any order; missing link/instructor lines are
// tolerated. Text before the first lesson marker is treated as course-level
// content with no lesson number.

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// lessonMarker matches lines like "Lesson 3: Advanced Topics".
var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Processor splits course documents into chunks for indexing.
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

// NewProcessor creates a Processor with the given chunking parameters.
// chunkSize is the target chunk length in characters; chunkOverlap is the
// number of trailing characters carried into the next chunk.
func NewProcessor(chunkSize, chunkOverlap int) (*Processor, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, chunk size)", chunkOverlap)
	}
	return &Processor{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// ProcessFile reads and processes a single course document.
func (p *Processor) ProcessFile(path string) (*Course, []Chunk, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- paths come from the operator-supplied docs dir
	if err != nil {
		return nil, nil, fmt.Errorf("reading course document: %w", err)
	}

	course, chunks, err := p.Process(string(data), filepath.Base(path))
	if err != nil {
		return nil, nil, fmt.Errorf("processing %s: %w", filepath.Base(path), err)
	}
	return course, chunks, nil
}

// Process parses a course document and returns the course outline plus the
// content chunks. fallbackTitle is used when the document has no
// "Course Title:" header.
func (p *Processor) Process(text, fallbackTitle string) (*Course, []Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, fmt.Errorf("document is empty")
	}

	course := &Course{Title: fallbackTitle}

	type section struct {
		lessonNumber int // -1 for course-level preamble
		lines        []string
	}
	current := &section{lessonNumber: -1}
	sections := []*section{current}
	inHeader := true

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if inHeader {
			switch {
			case strings.HasPrefix(line, "Course Title:"):
				course.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
				continue
			case strings.HasPrefix(line, "Course Link:"):
				course.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
				continue
			case strings.HasPrefix(line, "Course Instructor:"):
				course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
				continue
			case strings.TrimSpace(line) == "":
				continue
			}
			inHeader = false
		}

		if m := lessonMarker.FindStringSubmatch(line); m != nil {
			number, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, nil, fmt.Errorf("parsing lesson number in %q: %w", line, err)
			}
			course.Lessons = append(course.Lessons, Lesson{
				Number: number,
				Title:  strings.TrimSpace(m[2]),
			})
			current = &section{lessonNumber: number}
			sections = append(sections, current)
			continue
		}

		// A "Lesson Link:" line directly after a marker belongs to the lesson.
		if strings.HasPrefix(line, "Lesson Link:") && current.lessonNumber >= 0 && len(current.lines) == 0 {
			if l := course.Lesson(current.lessonNumber); l != nil {
				l.Link = strings.TrimSpace(strings.TrimPrefix(line, "Lesson Link:"))
			}
			continue
		}

		current.lines = append(current.lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanning document: %w", err)
	}

	if course.Title == "" {
		return nil, nil, fmt.Errorf("document has no course title")
	}

	var chunks []Chunk
	index := 0
	for _, sec := range sections {
		content := strings.TrimSpace(strings.Join(sec.lines, "\n"))
		if content == "" {
			continue
		}
		for i, piece := range p.split(content) {
			// The first chunk of each lesson carries course/lesson context so
			// an isolated passage still embeds its provenance.
			if i == 0 && sec.lessonNumber >= 0 {
				piece = fmt.Sprintf("Course %s Lesson %d content: %s", course.Title, sec.lessonNumber, piece)
			}
			chunks = append(chunks, Chunk{
				Content:      piece,
				CourseTitle:  course.Title,
				LessonNumber: sec.lessonNumber,
				ChunkIndex:   index,
			})
			index++
		}
	}

	return course, chunks, nil
}

// split packs sentences into chunks of at most chunkSize characters,
// carrying roughly chunkOverlap trailing characters into the next chunk.
// A single sentence longer than chunkSize becomes its own oversized chunk
// rather than being cut mid-sentence.
func (p *Processor) split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var buf []string
	bufLen := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(buf, " "))

		// Seed the next chunk with trailing sentences up to the overlap budget.
		var carry []string
		carryLen := 0
		for i := len(buf) - 1; i >= 0; i-- {
			n := len(buf[i]) + 1
			if carryLen+n > p.chunkOverlap {
				break
			}
			carry = append([]string{buf[i]}, carry...)
			carryLen += n
		}
		buf = carry
		bufLen = carryLen
	}

	for _, s := range sentences {
		if bufLen > 0 && bufLen+len(s)+1 > p.chunkSize {
			flush()
		}
		buf = append(buf, s)
		bufLen += len(s) + 1
	}
	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, " "))
	}

	return chunks
}

// splitSentences splits text on sentence-ending punctuation followed by
// whitespace. Newlines inside sentences collapse to single spaces.
func splitSentences(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}

	var sentences []string
	start := 0
	runes := []rune(normalized)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				s := strings.TrimSpace(string(runes[start : i+1]))
				if s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
