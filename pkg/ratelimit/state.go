// Package ratelimit honours Retry-After hints from the content service.
// A 429 or 503 response that carries the header closes the gate until the
// indicated time; every request waits at the gate before it is sent.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxRetryAfter caps how long a single hint may block requests.
const MaxRetryAfter = 60 * time.Second

// State is a snapshot of the gate.
type State struct {
	// BlockedUntil is the earliest time the next request may be sent.
	BlockedUntil time.Time

	// LastUpdate is when a hint was last recorded.
	LastUpdate time.Time
}

// IsBlocked reports whether requests must wait at now.
func (s State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// TimeUntilReset returns how long requests still have to wait.
// Returns 0 if the gate is open.
func (s State) TimeUntilReset(now time.Time) time.Duration {
	d := s.BlockedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// ParseRetryAfter reads a Retry-After header value, either delay-seconds
// or an HTTP date, relative to now. ok is false for an absent or
// malformed value. The result is capped at MaxRetryAfter.
func ParseRetryAfter(value string, now time.Time) (d time.Duration, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
		if d < 0 {
			d = 0
		}
	} else {
		return 0, false
	}

	if d > MaxRetryAfter {
		d = MaxRetryAfter
	}
	return d, true
}

// honoured reports whether a response status may carry a Retry-After
// hint worth respecting.
func honoured(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable
}
