package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/course-catalog/pkg/content"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored value could not be decoded
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is durable key-value storage surviving process restarts.
// Implementations need no read-modify-write atomicity; last write wins.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
}

// StoreError wraps a failed store operation. Callers recover from it as a
// cache miss.
type StoreError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, &StoreError{Op: "get", Key: key, Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: "set", Key: key, Err: err}
	}
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// LoadChapterList reads a language listing from the store.
// Returns ErrCacheMiss if absent, or an error wrapping ErrInvalidEntry if the
// stored value cannot be decoded.
func LoadChapterList(ctx context.Context, store Store, key ContentKey) ([]content.ChapterSummary, error) {
	raw, err := load(ctx, store, key)
	if err != nil {
		return nil, err
	}

	var chapters []content.ChapterSummary
	if err := json.Unmarshal([]byte(raw), &chapters); err != nil || chapters == nil {
		StoreErrors.WithLabelValues("decode").Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEntry, key, err)
	}
	return chapters, nil
}

// SaveChapterList writes a language listing to the store.
func SaveChapterList(ctx context.Context, store Store, key ContentKey, chapters []content.ChapterSummary) error {
	return save(ctx, store, key, chapters)
}

// LoadChapterMeta reads persisted chapter metadata.
func LoadChapterMeta(ctx context.Context, store Store, key ContentKey) (content.ChapterMeta, error) {
	raw, err := load(ctx, store, key)
	if err != nil {
		return content.ChapterMeta{}, err
	}

	var meta content.ChapterMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		StoreErrors.WithLabelValues("decode").Inc()
		return content.ChapterMeta{}, fmt.Errorf("%w: %s: %v", ErrInvalidEntry, key, err)
	}
	return meta, nil
}

// SaveChapterMeta writes chapter metadata to the store.
func SaveChapterMeta(ctx context.Context, store Store, key ContentKey, meta content.ChapterMeta) error {
	return save(ctx, store, key, meta)
}

func load(ctx context.Context, store Store, key ContentKey) (string, error) {
	raw, ok, err := store.Get(ctx, key.String())
	if err != nil {
		StoreErrors.WithLabelValues("get").Inc()
		var serr *StoreError
		if errors.As(err, &serr) {
			return "", err
		}
		return "", &StoreError{Op: "get", Key: key.String(), Err: err}
	}
	if !ok {
		CacheMisses.WithLabelValues("store").Inc()
		return "", ErrCacheMiss
	}
	CacheHits.WithLabelValues("store").Inc()
	return raw, nil
}

func save(ctx context.Context, store Store, key ContentKey, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		StoreErrors.WithLabelValues("encode").Inc()
		return &StoreError{Op: "encode", Key: key.String(), Err: err}
	}
	if err := store.Set(ctx, key.String(), string(data)); err != nil {
		StoreErrors.WithLabelValues("set").Inc()
		var serr *StoreError
		if errors.As(err, &serr) {
			return err
		}
		return &StoreError{Op: "set", Key: key.String(), Err: err}
	}
	return nil
}
