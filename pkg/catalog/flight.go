package catalog

import (
	"context"
	"sync"

	"github.com/Sternrassler/course-catalog/pkg/cache"
)

// flight is one network call shared by every caller of the same key.
type flight[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu        sync.Mutex
	waiters   int
	abandoned bool
	finished  bool

	// val and err are written once before done is closed.
	val T
	err error
}

// flightGroup deduplicates concurrent fetches per key. Unlike
// singleflight, the shared call is cancelled once every waiter has left,
// and its result is then never committed.
type flightGroup[T any] struct {
	mu    sync.Mutex
	calls map[cache.ContentKey]*flight[T]
}

// do returns the result of fetch for key, starting it unless a live call
// already exists. commit runs at most once per call, before any waiter
// sees the result, and starts only while at least one waiter remains. joined
// reports whether the caller attached to an existing call.
func (g *flightGroup[T]) do(
	ctx context.Context,
	key cache.ContentKey,
	fetch func(ctx context.Context) (T, error),
	commit func(ctx context.Context, val T),
) (val T, joined bool, err error) {
	if err := ctx.Err(); err != nil {
		return val, false, err
	}

	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[cache.ContentKey]*flight[T])
	}

	f, joined := g.calls[key]
	if joined {
		f.mu.Lock()
		if f.abandoned {
			joined = false
		} else {
			f.waiters++
		}
		f.mu.Unlock()
	}
	if !joined {
		// The call outlives any single caller: it stops only when all
		// waiters are gone.
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight[T]{done: make(chan struct{}), cancel: cancel, waiters: 1}
		g.calls[key] = f
		go g.run(fctx, key, f, fetch, commit)
	}
	g.mu.Unlock()

	select {
	case <-f.done:
		return f.val, joined, f.err
	case <-ctx.Done():
		g.leave(key, f)
		var zero T
		return zero, joined, ctx.Err()
	}
}

func (g *flightGroup[T]) run(
	ctx context.Context,
	key cache.ContentKey,
	f *flight[T],
	fetch func(ctx context.Context) (T, error),
	commit func(ctx context.Context, val T),
) {
	defer f.cancel()

	val, err := fetch(ctx)

	g.mu.Lock()
	if g.calls[key] == f {
		delete(g.calls, key)
	}
	g.mu.Unlock()

	f.mu.Lock()
	abandoned := f.abandoned
	f.mu.Unlock()

	// commit runs without f.mu so leaving waiters never wait on store
	// writes. A waiter leaving mid-commit cancels ctx, which stops them.
	if err == nil {
		if abandoned || ctx.Err() != nil {
			err = context.Canceled
		} else if commit != nil {
			commit(ctx, val)
		}
	}

	f.mu.Lock()
	f.finished = true
	f.val, f.err = val, err
	f.mu.Unlock()

	close(f.done)
}

// leave detaches one waiter. The last waiter to leave an unfinished call
// cancels it, including one whose commit is still running.
func (g *flightGroup[T]) leave(key cache.ContentKey, f *flight[T]) {
	f.mu.Lock()
	f.waiters--
	last := f.waiters == 0 && !f.finished
	if last {
		f.abandoned = true
	}
	f.mu.Unlock()

	if !last {
		return
	}

	g.mu.Lock()
	if g.calls[key] == f {
		delete(g.calls, key)
	}
	g.mu.Unlock()
	f.cancel()
}

// waiting returns the number of callers attached to the live call for key.
func (g *flightGroup[T]) waiting(key cache.ContentKey) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.calls[key]
	if !ok {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waiters
}
