package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/course-catalog/pkg/cache"
	"github.com/Sternrassler/course-catalog/pkg/client"
	"github.com/Sternrassler/course-catalog/pkg/content"
)

// fakeFetcher counts calls and lets tests hold requests in flight.
type fakeFetcher struct {
	mu           sync.Mutex
	suggestCalls int
	detailCalls  int
	lastDetail   client.DetailsRequest

	// gate, when set, blocks every call until it is closed. Calls ignore
	// their context so late responses can be observed.
	gate chan struct{}
	// finished receives one value per completed call when set.
	finished chan struct{}

	chapters   []content.ChapterSummary
	detail     *content.ChapterDetail
	suggestErr error
	detailErr  error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		chapters: []content.ChapterSummary{
			{Chapter: 1, ChapterTitle: "Intro", ChapterDescription: "Getting started"},
			{Chapter: 2, ChapterTitle: "Variables", ChapterDescription: "Naming values"},
		},
		detail: &content.ChapterDetail{
			ChapterTitle: "Variables",
			Sections:     []content.Section{{SectionTitle: "Declaring", SectionContent: "var x int"}},
			Exercises:    []content.Exercise{},
			Examples:     []content.Example{},
		},
	}
}

func (f *fakeFetcher) wait() {
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeFetcher) done() {
	if f.finished != nil {
		f.finished <- struct{}{}
	}
}

func (f *fakeFetcher) SuggestChapters(ctx context.Context, language string) ([]content.ChapterSummary, error) {
	f.mu.Lock()
	f.suggestCalls++
	f.mu.Unlock()
	defer f.done()

	f.wait()
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	return f.chapters, nil
}

func (f *fakeFetcher) ChapterDetails(ctx context.Context, req client.DetailsRequest) (*content.ChapterDetail, error) {
	f.mu.Lock()
	f.detailCalls++
	f.lastDetail = req
	f.mu.Unlock()
	defer f.done()

	f.wait()
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	d := *f.detail
	return &d, nil
}

func (f *fakeFetcher) calls() (suggest, detail int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggestCalls, f.detailCalls
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

// blockingStore holds every Set until its context ends or release is
// closed.
type blockingStore struct {
	*cache.MemoryStore
	setStarted chan struct{}
	release    chan struct{}
	once       sync.Once
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		MemoryStore: cache.NewMemoryStore(),
		setStarted:  make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (s *blockingStore) Set(ctx context.Context, key, value string) error {
	s.once.Do(func() { close(s.setStarted) })
	select {
	case <-s.release:
		return s.MemoryStore.Set(ctx, key, value)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestOrchestrator(t *testing.T, fetcher Fetcher, store cache.Store) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Fetcher: fetcher,
		Store:   store,
		Session: cache.NewSession(0),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return o
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
