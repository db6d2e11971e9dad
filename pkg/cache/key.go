package cache

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ContentKey identifies a cacheable unit: a language listing or one chapter
// of a language.
type ContentKey string

const (
	listKeySuffix    = "-courseChapters"
	chapterKeyPrefix = "chapter-"
)

// Normalize lower-cases raw, trims it and collapses every run of whitespace
// into a single hyphen. All other characters are kept.
//
// Example:
//
//	Normalize("  My   Title ") == "my-title"
//
// Whitespace-only input normalizes to "", which callers must reject.
func Normalize(raw string) string {
	// A Caser holds state and is not safe for concurrent use.
	lower := cases.Lower(language.Und).String(raw)
	return strings.Join(strings.Fields(lower), "-")
}

// ListKey returns the key of a language's chapter listing.
// Format: {language}-courseChapters
func ListKey(languageID string) ContentKey {
	lang := Normalize(languageID)
	if lang == "" {
		return ""
	}
	return ContentKey(lang + listKeySuffix)
}

// ChapterKey returns the key of one chapter of a language. The same key
// indexes the persisted chapter metadata and the session detail entry.
// Format: chapter-{language}-{normalized title}
func ChapterKey(languageID, chapterTitle string) ContentKey {
	lang := Normalize(languageID)
	title := Normalize(chapterTitle)
	if lang == "" || title == "" {
		return ""
	}
	return ContentKey(chapterKeyPrefix + lang + "-" + title)
}

// String returns the key as stored.
func (k ContentKey) String() string {
	return string(k)
}

// IsZero reports whether the key was derived from empty input.
func (k ContentKey) IsZero() bool {
	return k == ""
}
