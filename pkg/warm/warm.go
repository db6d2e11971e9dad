// Package warm pre-fetches every chapter of a language so later navigation
// is served from the caches.
package warm

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/course-catalog/pkg/catalog"
	"github.com/Sternrassler/course-catalog/pkg/content"
	"github.com/Sternrassler/course-catalog/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var warmChaptersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_warm_chapters_total",
	Help: "Chapters pre-fetched during warm-up by result",
}, []string{"result"})

// Config holds warmer configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel detail fetches
	MaxConcurrency int
	// Timeout per chapter fetch
	Timeout time.Duration
}

// DefaultConfig returns a configuration gentle on the content service.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// Orchestrator is the part of *catalog.Orchestrator the warmer drives.
type Orchestrator interface {
	FetchChapterList(ctx context.Context, languageID string) (catalog.ListResult, error)
	FetchChapterDetail(ctx context.Context, languageID, chapterTitle string) (catalog.DetailResult, error)
}

// ChapterResult is the outcome of warming one chapter.
type ChapterResult struct {
	Chapter content.ChapterSummary
	Source  catalog.Source
	Outcome catalog.Outcome
	Err     error
}

// Report summarises one warm-up run. Chapters keep listing order.
type Report struct {
	Language   string
	ListSource catalog.Source
	Chapters   []ChapterResult
	Duration   time.Duration
}

// Failed returns the number of chapters that could not be fetched.
func (r *Report) Failed() int {
	n := 0
	for _, ch := range r.Chapters {
		if ch.Err != nil {
			n++
		}
	}
	return n
}

// Warmer fetches a listing and then all of its chapters with bounded
// concurrency.
type Warmer struct {
	orch   Orchestrator
	config Config
	logger zerolog.Logger
}

// New creates a warmer.
func New(orch Orchestrator, config Config) *Warmer {
	def := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = def.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	return &Warmer{
		orch:   orch,
		config: config,
		logger: logging.NewLogger("warm"),
	}
}

// Warm resolves the listing of languageID and every chapter in it. Failed
// chapters are reported in the result; only a failed listing or a
// cancelled ctx returns an error.
func (w *Warmer) Warm(ctx context.Context, languageID string) (*Report, error) {
	start := time.Now()

	list, err := w.orch.FetchChapterList(ctx, languageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chapter list: %w", err)
	}

	report := &Report{
		Language:   languageID,
		ListSource: list.Source,
		Chapters:   make([]ChapterResult, len(list.Chapters)),
	}

	w.logger.Info().
		Str("language", languageID).
		Int("chapters", len(list.Chapters)).
		Int("concurrency", w.config.MaxConcurrency).
		Msg("Starting warm-up")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.MaxConcurrency)

	for i, ch := range list.Chapters {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Each goroutine owns report.Chapters[i].
			report.Chapters[i] = w.warmChapter(gctx, languageID, ch)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}

	err = g.Wait()
	report.Duration = time.Since(start)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		w.logger.Debug().Err(err).Str("language", languageID).Msg("Warm-up stopped")
		return report, fmt.Errorf("warm-up interrupted: %w", err)
	}

	w.logger.Info().
		Str("language", languageID).
		Int("chapters", len(report.Chapters)).
		Int("failed", report.Failed()).
		Dur("duration", report.Duration).
		Msg("Warm-up complete")

	return report, nil
}

func (w *Warmer) warmChapter(ctx context.Context, languageID string, ch content.ChapterSummary) ChapterResult {
	chCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	res, err := w.orch.FetchChapterDetail(chCtx, languageID, ch.ChapterTitle)
	outcome := catalog.Classify(res.Source, err)
	warmChaptersTotal.WithLabelValues(string(outcome.Kind)).Inc()

	if err != nil && outcome.Surfaces() {
		w.logger.Warn().
			Err(err).
			Str("chapter", ch.ChapterTitle).
			Str("outcome", outcome.String()).
			Msg("Chapter fetch failed")
	}

	return ChapterResult{
		Chapter: ch,
		Source:  res.Source,
		Outcome: outcome,
		Err:     err,
	}
}
