package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/course-catalog/pkg/content"
)

// Map is a concurrency-safe in-memory mapping from content keys to values.
// A later Set for the same key overwrites the earlier one.
type Map[T any] struct {
	mu      sync.RWMutex
	entries map[ContentKey]Entry[T]
	ttl     time.Duration
	layer   string
}

// NewMap creates a map whose entries expire after ttl (ttl <= 0: never).
// The layer name labels hit metrics.
func NewMap[T any](layer string, ttl time.Duration) *Map[T] {
	return &Map[T]{
		entries: make(map[ContentKey]Entry[T]),
		ttl:     ttl,
		layer:   layer,
	}
}

// Get returns the value for key. Expired entries are dropped and reported
// as absent.
func (m *Map[T]) Get(key ContentKey) (T, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		CacheMisses.WithLabelValues(m.layer).Inc()
		var zero T
		return zero, false
	}
	if entry.IsExpired() {
		CacheMisses.WithLabelValues(m.layer).Inc()
		m.mu.Lock()
		// Re-check: a fresh Set may have replaced the stale entry.
		if cur, still := m.entries[key]; still && cur.IsExpired() {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		var zero T
		return zero, false
	}

	CacheHits.WithLabelValues(m.layer).Inc()
	return entry.Value, true
}

// Set stores value under key.
func (m *Map[T]) Set(key ContentKey, value T) {
	m.mu.Lock()
	m.entries[key] = NewEntry(value, m.ttl)
	m.mu.Unlock()
}

// Delete removes key.
func (m *Map[T]) Delete(key ContentKey) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// DeletePrefix removes every key starting with prefix and returns how many
// entries were dropped.
func (m *Map[T]) DeletePrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key := range m.entries {
		if strings.HasPrefix(string(key), prefix) {
			delete(m.entries, key)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (m *Map[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear drops every entry.
func (m *Map[T]) Clear() {
	m.mu.Lock()
	m.entries = make(map[ContentKey]Entry[T])
	m.mu.Unlock()
}

// Session is the in-memory cache shared by every view of one running
// application. It is created once at the root and passed explicitly to
// whoever reads or writes it.
type Session struct {
	// Lists holds chapter listings keyed by ListKey.
	Lists *Map[[]content.ChapterSummary]

	// Details holds chapter content keyed by ChapterKey.
	Details *Map[content.ChapterDetail]
}

// NewSession creates an empty session cache. A ttl <= 0 keeps entries for
// the lifetime of the process.
func NewSession(ttl time.Duration) *Session {
	return &Session{
		Lists:   NewMap[[]content.ChapterSummary]("session_list", ttl),
		Details: NewMap[content.ChapterDetail]("session_detail", ttl),
	}
}

// InvalidateLanguage drops the listing and every chapter detail of a
// language.
func (s *Session) InvalidateLanguage(languageID string) int {
	listKey := ListKey(languageID)
	if listKey.IsZero() {
		return 0
	}

	n := 0
	if _, ok := s.Lists.peek(listKey); ok {
		n++
	}
	s.Lists.Delete(listKey)
	n += s.Details.DeletePrefix(chapterKeyPrefix + Normalize(languageID) + "-")
	return n
}

// peek reads an entry without touching expiry or metrics.
func (m *Map[T]) peek(key ContentKey) (Entry[T], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok
}
