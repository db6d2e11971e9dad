package catalog

import (
	"context"
	"sync"

	"github.com/Sternrassler/course-catalog/pkg/cache"
	"github.com/Sternrassler/course-catalog/pkg/content"
)

// Slot is the cancellation scope of one "current view". Entering a slot
// with a new key cancels whatever is still pending for the previous key.
// Independent views use independent slots.
type Slot struct {
	mu      sync.Mutex
	key     cache.ContentKey
	next    uint64
	pending map[uint64]context.CancelFunc
}

// Enter returns a context bound to key. Pending contexts entered for a
// different key are cancelled; those for the same key are left alone. The
// returned release func must be called when the caller is done.
func (s *Slot) Enter(parent context.Context, key cache.ContentKey) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.pending == nil {
		s.pending = make(map[uint64]context.CancelFunc)
	}
	if s.key != key {
		for id, c := range s.pending {
			c()
			delete(s.pending, id)
		}
		s.key = key
	}
	id := s.next
	s.next++
	s.pending[id] = cancel
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		cancel()
	}
	return ctx, release
}

// Cancel cancels everything pending in the slot.
func (s *Slot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.pending {
		c()
		delete(s.pending, id)
	}
	s.key = ""
}

// Pending returns the number of contexts still pending.
func (s *Slot) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Navigator drives a listing view and a detail view, each with its own
// slot: moving between chapters never cancels a listing fetch.
type Navigator struct {
	orch   *Orchestrator
	list   Slot
	detail Slot
}

// NewNavigator creates a navigator over o.
func NewNavigator(o *Orchestrator) *Navigator {
	return &Navigator{orch: o}
}

// ShowLanguage resolves the listing view of a language.
func (n *Navigator) ShowLanguage(ctx context.Context, languageID string) View[[]content.ChapterSummary] {
	ctx, release := n.list.Enter(ctx, cache.ListKey(languageID))
	defer release()

	res, err := n.orch.FetchChapterList(ctx, languageID)
	return Present(res.Chapters, res.Source, err)
}

// ShowChapter resolves the detail view of a chapter.
func (n *Navigator) ShowChapter(ctx context.Context, languageID, chapterTitle string) View[content.ChapterDetail] {
	ctx, release := n.detail.Enter(ctx, cache.ChapterKey(languageID, chapterTitle))
	defer release()

	res, err := n.orch.FetchChapterDetail(ctx, languageID, chapterTitle)
	return Present(res.Detail, res.Source, err)
}

// Close cancels every pending view fetch.
func (n *Navigator) Close() {
	n.list.Cancel()
	n.detail.Cancel()
}
