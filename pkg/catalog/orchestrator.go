// Package catalog orchestrates chapter fetches across the session cache,
// the persistent store and the content service.
//
// Every fetch walks the same states:
//
//	Idle → Resolving → Fetching → Succeeded | Failed | Cancelled
//
// Resolving consults the cache tiers, Fetching issues at most one network
// call per key no matter how many callers ask for it. The caller's context
// is the cancellation token: once every caller of a key has gone, the
// network call is cancelled and its result is dropped.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Sternrassler/course-catalog/pkg/cache"
	"github.com/Sternrassler/course-catalog/pkg/client"
	"github.com/Sternrassler/course-catalog/pkg/content"
	"github.com/Sternrassler/course-catalog/pkg/logging"
	"github.com/rs/zerolog"
)

// State is a step of the fetch protocol.
type State string

const (
	StateIdle      State = "idle"
	StateResolving State = "resolving"
	StateFetching  State = "fetching"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

const (
	kindList   = "list"
	kindDetail = "detail"
)

// Fetcher is the network side of the orchestrator. *client.Client
// implements it.
type Fetcher interface {
	SuggestChapters(ctx context.Context, language string) ([]content.ChapterSummary, error)
	ChapterDetails(ctx context.Context, req client.DetailsRequest) (*content.ChapterDetail, error)
}

// Config wires the orchestrator to its collaborators.
type Config struct {
	// Fetcher performs network requests
	Fetcher Fetcher

	// Store is the durable tier
	Store cache.Store

	// Session is the in-memory tier shared by all views
	Session *cache.Session
}

// ListResult is a resolved chapter listing. Chapters belongs to the caller;
// the cached listing is never handed out.
type ListResult struct {
	Chapters []content.ChapterSummary
	Source   Source
}

// DetailResult is resolved chapter content, copied out of the caches.
type DetailResult struct {
	Detail content.ChapterDetail
	Source Source
}

// Orchestrator resolves chapter listings and chapter details.
type Orchestrator struct {
	fetcher Fetcher
	store   cache.Store
	session *cache.Session
	logger  zerolog.Logger

	lists   flightGroup[[]content.ChapterSummary]
	details flightGroup[content.ChapterDetail]
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Session == nil {
		return nil, fmt.Errorf("session cache is required")
	}

	return &Orchestrator{
		fetcher: cfg.Fetcher,
		store:   cfg.Store,
		session: cfg.Session,
		logger:  logging.NewLogger("catalog"),
	}, nil
}

// Session returns the session cache the orchestrator writes to.
func (o *Orchestrator) Session() *cache.Session {
	return o.session
}

// FetchChapterList resolves the chapter listing of a language from the
// session cache, then the persistent store, then the network. A network
// result is written to both tiers together with one metadata record per
// chapter.
func (o *Orchestrator) FetchChapterList(ctx context.Context, languageID string) (ListResult, error) {
	key := cache.ListKey(languageID)
	if key.IsZero() {
		return ListResult{}, o.invalid(kindList, "language", "must not be empty")
	}
	logger := o.logger.With().Str("kind", kindList).Str("key", key.String()).Logger()
	logger.Debug().Str("state", string(StateResolving)).Msg("Resolving")

	if chapters, ok := o.session.Lists.Get(key); ok {
		o.succeeded(logger, kindList, SourceSession)
		return ListResult{Chapters: slices.Clone(chapters), Source: SourceSession}, nil
	}

	chapters, err := cache.LoadChapterList(ctx, o.store, key)
	switch {
	case err == nil:
		o.session.Lists.Set(key, chapters)
		o.succeeded(logger, kindList, SourceStore)
		return ListResult{Chapters: slices.Clone(chapters), Source: SourceStore}, nil
	case errors.Is(err, cache.ErrCacheMiss):
	default:
		logger.Warn().Err(err).Msg("Persistent store read failed, treating as miss")
	}

	language := cache.Normalize(languageID)
	chapters, joined, err := o.lists.do(ctx, key,
		func(ctx context.Context) ([]content.ChapterSummary, error) {
			logger.Debug().Str("state", string(StateFetching)).Msg("Fetching")
			return o.fetcher.SuggestChapters(ctx, language)
		},
		func(ctx context.Context, chapters []content.ChapterSummary) {
			o.commitList(ctx, logger, language, key, chapters)
		},
	)
	if joined {
		inflightJoinsTotal.WithLabelValues(kindList).Inc()
	}
	if err != nil {
		return ListResult{}, o.failed(ctx, logger, kindList, err)
	}

	o.succeeded(logger, kindList, SourceNetwork)
	return ListResult{Chapters: slices.Clone(chapters), Source: SourceNetwork}, nil
}

// commitList writes a fetched listing to both tiers. Store failures are
// logged and otherwise ignored.
func (o *Orchestrator) commitList(ctx context.Context, logger zerolog.Logger, language string, key cache.ContentKey, chapters []content.ChapterSummary) {
	o.session.Lists.Set(key, chapters)

	if err := cache.SaveChapterList(ctx, o.store, key, chapters); err != nil {
		logger.Warn().Err(err).Msg("Failed to persist chapter list")
	}

	for _, ch := range chapters {
		if ctx.Err() != nil {
			logger.Debug().Msg("Every waiter left, skipping remaining chapter metadata")
			return
		}
		metaKey := cache.ChapterKey(language, ch.ChapterTitle)
		if metaKey.IsZero() {
			continue
		}
		if err := cache.SaveChapterMeta(ctx, o.store, metaKey, ch.Meta()); err != nil {
			logger.Warn().Err(err).Str("meta_key", metaKey.String()).Msg("Failed to persist chapter metadata")
		}
	}

	logger.Debug().Int("chapters", len(chapters)).Msg("Cached chapter list")
}

// FetchChapterDetail resolves the content of one chapter from the session
// cache or the network. Persisted chapter metadata, if any, is sent along
// as request parameters.
func (o *Orchestrator) FetchChapterDetail(ctx context.Context, languageID, chapterTitle string) (DetailResult, error) {
	language := cache.Normalize(languageID)
	if language == "" {
		return DetailResult{}, o.invalid(kindDetail, "language", "must not be empty")
	}
	key := cache.ChapterKey(languageID, chapterTitle)
	if key.IsZero() {
		return DetailResult{}, o.invalid(kindDetail, "chapter_title", "must not be empty")
	}
	logger := o.logger.With().Str("kind", kindDetail).Str("key", key.String()).Logger()
	logger.Debug().Str("state", string(StateResolving)).Msg("Resolving")

	if detail, ok := o.session.Details.Get(key); ok {
		o.succeeded(logger, kindDetail, SourceSession)
		return DetailResult{Detail: detail.Clone(), Source: SourceSession}, nil
	}

	title := strings.TrimSpace(chapterTitle)
	detail, joined, err := o.details.do(ctx, key,
		func(ctx context.Context) (content.ChapterDetail, error) {
			meta := o.loadMeta(ctx, logger, key)

			logger.Debug().
				Str("state", string(StateFetching)).
				Str("chapter_number", meta.NumberParam()).
				Msg("Fetching")

			detail, err := o.fetcher.ChapterDetails(ctx, client.DetailsRequest{
				Language:     language,
				ChapterTitle: title,
				Meta:         meta,
			})
			if err != nil {
				return content.ChapterDetail{}, err
			}
			if detail.ChapterTitle == "" {
				detail.ChapterTitle = title
			}
			return *detail, nil
		},
		func(_ context.Context, detail content.ChapterDetail) {
			o.session.Details.Set(key, detail)
		},
	)
	if joined {
		inflightJoinsTotal.WithLabelValues(kindDetail).Inc()
	}
	if err != nil {
		return DetailResult{}, o.failed(ctx, logger, kindDetail, err)
	}

	o.succeeded(logger, kindDetail, SourceNetwork)
	return DetailResult{Detail: detail.Clone(), Source: SourceNetwork}, nil
}

// loadMeta returns the persisted metadata for a chapter, or empty metadata
// when it is absent or unreadable.
func (o *Orchestrator) loadMeta(ctx context.Context, logger zerolog.Logger, key cache.ContentKey) content.ChapterMeta {
	meta, err := cache.LoadChapterMeta(ctx, o.store, key)
	switch {
	case err == nil:
		return meta
	case errors.Is(err, cache.ErrCacheMiss):
		logger.Debug().Msg("No chapter metadata stored, using empty values")
	default:
		logger.Warn().Err(err).Msg("Chapter metadata unavailable, using empty values")
	}
	return content.ChapterMeta{}
}

// Invalidate drops a language's listing and chapter details from the
// session cache. The persistent store is left untouched.
func (o *Orchestrator) Invalidate(languageID string) int {
	n := o.session.InvalidateLanguage(languageID)
	o.logger.Debug().Str("language", languageID).Int("entries", n).Msg("Invalidated session cache")
	return n
}

func (o *Orchestrator) invalid(kind, field, reason string) error {
	err := &content.ValidationError{Field: field, Reason: reason}
	fetchesTotal.WithLabelValues(kind, string(OutcomeInvalid)).Inc()
	o.logger.Debug().Str("kind", kind).Err(err).Msg("Rejected invalid key")
	return err
}

func (o *Orchestrator) succeeded(logger zerolog.Logger, kind string, source Source) {
	outcome := Classify(source, nil)
	fetchesTotal.WithLabelValues(kind, string(outcome.Kind)).Inc()
	logger.Debug().
		Str("state", string(StateSucceeded)).
		Str("source", string(source)).
		Msg("Resolved")
}

// failed classifies err and returns the error to hand to the caller.
// Cancellation becomes ErrCancelled and is only logged at debug level.
func (o *Orchestrator) failed(ctx context.Context, logger zerolog.Logger, kind string, err error) error {
	if ctx.Err() == context.Canceled || errors.Is(err, context.Canceled) {
		cancellationsTotal.WithLabelValues(kind).Inc()
		fetchesTotal.WithLabelValues(kind, string(OutcomeCancelled)).Inc()
		logger.Debug().Str("state", string(StateCancelled)).Msg("Fetch abandoned")
		return fmt.Errorf("%w: %w", ErrCancelled, context.Canceled)
	}

	outcome := Classify(SourceNetwork, err)
	fetchesTotal.WithLabelValues(kind, string(outcome.Kind)).Inc()
	logger.Warn().
		Err(err).
		Str("state", string(StateFailed)).
		Str("outcome", outcome.String()).
		Msg("Fetch failed")
	return err
}
