package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_blocks_total",
		Help: "Total number of Retry-After hints that closed the request gate",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_rate_limit_wait_seconds",
		Help:    "Time requests spent waiting at a closed gate",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// Gate delays requests while the content service asked us to back off.
// The zero value is an open gate.
type Gate struct {
	mu     sync.Mutex
	state  State
	logger zerolog.Logger
	now    func() time.Time
}

// NewGate creates an open gate.
func NewGate(logger zerolog.Logger) *Gate {
	return &Gate{logger: logger}
}

func (g *Gate) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}

// State returns a snapshot of the gate.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// UpdateFromResponse closes the gate when a 429 or 503 response carries a
// Retry-After hint. It reports whether the gate was changed.
func (g *Gate) UpdateFromResponse(statusCode int, headers http.Header) bool {
	if !honoured(statusCode) {
		return false
	}

	now := g.clock()
	d, ok := ParseRetryAfter(headers.Get("Retry-After"), now)
	if !ok {
		return false
	}

	until := now.Add(d)
	g.mu.Lock()
	g.state.LastUpdate = now
	extended := until.After(g.state.BlockedUntil)
	if extended {
		g.state.BlockedUntil = until
	}
	g.mu.Unlock()

	if extended {
		rateLimitBlocksTotal.Inc()
		g.logger.Warn().
			Int("status_code", statusCode).
			Dur("retry_after", d).
			Msg("Content service asked to back off")
	}
	return extended
}

// Wait blocks until the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	wait := g.State().TimeUntilReset(g.clock())
	if wait <= 0 {
		return ctx.Err()
	}

	g.logger.Debug().Dur("wait", wait).Msg("Waiting for rate limit gate")
	start := time.Now()
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		rateLimitWaitSeconds.Observe(time.Since(start).Seconds())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
