package cache

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Sternrassler/course-catalog/pkg/content"
)

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("quota exceeded")
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestStore_ChapterListRoundTrip(t *testing.T) {
	chapters := []content.ChapterSummary{
		{Chapter: 1, ChapterTitle: "Intro", ChapterDescription: "..."},
	}

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := ListKey("python3")

			if err := SaveChapterList(ctx, store, key, chapters); err != nil {
				t.Fatalf("SaveChapterList failed: %v", err)
			}

			raw, ok, err := store.Get(ctx, "python3-courseChapters")
			if err != nil || !ok {
				t.Fatalf("raw Get failed: ok=%v err=%v", ok, err)
			}
			wantRaw := `[{"chapter":1,"chapter_title":"Intro","chapter_description":"..."}]`
			if raw != wantRaw {
				t.Errorf("stored value = %s, want %s", raw, wantRaw)
			}

			got, err := LoadChapterList(ctx, store, key)
			if err != nil {
				t.Fatalf("LoadChapterList failed: %v", err)
			}
			if !reflect.DeepEqual(got, chapters) {
				t.Errorf("round trip = %+v, want %+v", got, chapters)
			}
		})
	}
}

func TestStore_ChapterMetaRoundTrip(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := ChapterKey("go", "Variables")
			meta := content.ChapterMeta{ChapterNumber: 2, ChapterTitle: "Variables", ChapterDescription: "Names"}

			if err := SaveChapterMeta(ctx, store, key, meta); err != nil {
				t.Fatalf("SaveChapterMeta failed: %v", err)
			}
			got, err := LoadChapterMeta(ctx, store, key)
			if err != nil {
				t.Fatalf("LoadChapterMeta failed: %v", err)
			}
			if got != meta {
				t.Errorf("LoadChapterMeta() = %+v, want %+v", got, meta)
			}
		})
	}
}

func TestStore_LastWriteWins(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Set(ctx, "k", "one"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := store.Set(ctx, "k", "two"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got, ok, err := store.Get(ctx, "k")
			if err != nil || !ok || got != "two" {
				t.Errorf("Get() = %q, %v, %v; want two", got, ok, err)
			}
		})
	}
}

func TestLoadChapterList_Miss(t *testing.T) {
	_, err := LoadChapterList(context.Background(), NewMemoryStore(), ListKey("go"))
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestLoadChapterList_Corrupted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Set(ctx, ListKey("go").String(), "{not json")

	_, err := LoadChapterList(ctx, store, ListKey("go"))
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestStore_FailuresWrapped(t *testing.T) {
	ctx := context.Background()

	_, err := LoadChapterMeta(ctx, failingStore{}, ChapterKey("go", "x"))
	var serr *StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *StoreError, got %v", err)
	}
	if serr.Op != "get" {
		t.Errorf("Op = %q, want get", serr.Op)
	}

	err = SaveChapterMeta(ctx, failingStore{}, ChapterKey("go", "x"), content.ChapterMeta{})
	if !errors.As(err, &serr) || serr.Op != "set" {
		t.Errorf("expected set *StoreError, got %v", err)
	}
}

func TestOpenSQLiteStore_EmptyPath(t *testing.T) {
	if _, err := OpenSQLiteStore("  "); err == nil {
		t.Error("OpenSQLiteStore with blank path should fail")
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	s, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if err := s.Set(ctx, "go-courseChapters", "[]"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s.Close()

	s, err = OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, ok, err := s.Get(ctx, "go-courseChapters")
	if err != nil || !ok || got != "[]" {
		t.Errorf("Get() = %q, %v, %v; want persisted value", got, ok, err)
	}
}
