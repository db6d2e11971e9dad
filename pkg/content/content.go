// Package content defines the catalog entities exchanged with the content
// service and validates response payloads before they enter the caches.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ChapterSummary is one entry of a language's chapter listing.
type ChapterSummary struct {
	Chapter            int    `json:"chapter"`
	ChapterTitle       string `json:"chapter_title"`
	ChapterDescription string `json:"chapter_description"`
}

// ChapterMeta is the per-chapter metadata persisted next to a listing so a
// detail fetch can recover the chapter number and description.
type ChapterMeta struct {
	ChapterNumber      int    `json:"chapter_number"`
	ChapterTitle       string `json:"chapter_title"`
	ChapterDescription string `json:"chapter_description"`
}

// Meta returns the metadata record for the summary.
func (s ChapterSummary) Meta() ChapterMeta {
	return ChapterMeta{
		ChapterNumber:      s.Chapter,
		ChapterTitle:       s.ChapterTitle,
		ChapterDescription: s.ChapterDescription,
	}
}

// NumberParam renders the chapter number as a request parameter.
// Unknown numbers are sent as an empty string.
func (m ChapterMeta) NumberParam() string {
	if m.ChapterNumber == 0 {
		return ""
	}
	return strconv.Itoa(m.ChapterNumber)
}

// Section is a titled block of prose inside a chapter.
type Section struct {
	SectionTitle   string `json:"section_title"`
	SectionContent string `json:"section_content"`
}

// Exercise is a practice task attached to a chapter.
type Exercise struct {
	ExerciseTitle       string `json:"exercise_title"`
	ExerciseDescription string `json:"exercise_description"`
}

// Example is a code sample attached to a chapter.
type Example struct {
	ExampleTitle string `json:"example_title"`
	ExampleCode  string `json:"example_code"`
}

// ChapterDetail is the full content of one chapter.
type ChapterDetail struct {
	ChapterTitle       string     `json:"chapter_title"`
	Sections           []Section  `json:"sections"`
	Exercises          []Exercise `json:"exercises"`
	Examples           []Example  `json:"examples"`
	ChapterDescription string     `json:"chapter_description"`
}

// Clone returns a copy of d that shares no slices with it.
func (d ChapterDetail) Clone() ChapterDetail {
	d.Sections = slices.Clone(d.Sections)
	d.Exercises = slices.Clone(d.Exercises)
	d.Examples = slices.Clone(d.Examples)
	return d
}

// ValidationError reports an invalid key or a response payload that does not
// match the expected schema.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// DecodeChapterList parses a /suggest response body into an ordered chapter
// listing. Every entry must carry a non-empty title.
func DecodeChapterList(data []byte) ([]ChapterSummary, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &ValidationError{Field: "body", Reason: "expected a JSON array of chapters"}
	}

	var chapters []ChapterSummary
	if err := json.Unmarshal(trimmed, &chapters); err != nil {
		return nil, &ValidationError{Field: "body", Reason: err.Error()}
	}

	for i, ch := range chapters {
		if strings.TrimSpace(ch.ChapterTitle) == "" {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("[%d].chapter_title", i),
				Reason: "must not be empty",
			}
		}
		if ch.Chapter < 0 {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("[%d].chapter", i),
				Reason: "must not be negative",
			}
		}
	}

	if chapters == nil {
		chapters = []ChapterSummary{}
	}
	return chapters, nil
}

// DecodeChapterDetail parses a /details response body. Missing collections
// decode as empty slices so callers never see nil.
func DecodeChapterDetail(data []byte) (*ChapterDetail, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ValidationError{Field: "body", Reason: "expected a JSON object"}
	}

	var detail ChapterDetail
	if err := json.Unmarshal(trimmed, &detail); err != nil {
		return nil, &ValidationError{Field: "body", Reason: err.Error()}
	}

	if detail.Sections == nil {
		detail.Sections = []Section{}
	}
	if detail.Exercises == nil {
		detail.Exercises = []Exercise{}
	}
	if detail.Examples == nil {
		detail.Examples = []Example{}
	}
	return &detail, nil
}
