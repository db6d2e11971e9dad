package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/course-catalog/pkg/client"
	"github.com/Sternrassler/course-catalog/pkg/content"
)

// ErrCancelled is returned when the caller abandoned a fetch. It is not a
// failure and is never shown to the user.
var ErrCancelled = errors.New("fetch cancelled")

// Source tells where a successful result came from.
type Source string

const (
	SourceSession Source = "session"
	SourceStore   Source = "store"
	SourceNetwork Source = "network"
)

// OutcomeKind classifies how a fetch ended.
type OutcomeKind string

const (
	OutcomeCacheHit       OutcomeKind = "cache_hit"
	OutcomeSuccess        OutcomeKind = "success"
	OutcomeHTTPError      OutcomeKind = "http_error"
	OutcomeTransportError OutcomeKind = "transport_error"
	OutcomeInvalid        OutcomeKind = "invalid"
	OutcomeCancelled      OutcomeKind = "cancelled"
)

// Outcome is the classified result of one fetch.
type Outcome struct {
	Kind OutcomeKind

	// StatusCode is set for OutcomeHTTPError
	StatusCode int

	// Message is a human-readable description for failures
	Message string
}

// Surfaces reports whether the outcome must be shown to the caller as an
// error.
func (o Outcome) Surfaces() bool {
	switch o.Kind {
	case OutcomeHTTPError, OutcomeTransportError, OutcomeInvalid:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeHTTPError:
		return fmt.Sprintf("HttpError(%d)", o.StatusCode)
	case OutcomeTransportError:
		return fmt.Sprintf("TransportError(%s)", o.Message)
	case OutcomeInvalid:
		return fmt.Sprintf("ValidationError(%s)", o.Message)
	default:
		return string(o.Kind)
	}
}

// Classify maps the result of a fetch to an Outcome. source is only
// consulted when err is nil.
func Classify(source Source, err error) Outcome {
	if err == nil {
		if source == SourceNetwork {
			return Outcome{Kind: OutcomeSuccess}
		}
		return Outcome{Kind: OutcomeCacheHit}
	}

	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return Outcome{Kind: OutcomeCancelled}
	}

	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return Outcome{
			Kind:       OutcomeHTTPError,
			StatusCode: httpErr.StatusCode,
			Message:    fmt.Sprintf("HTTP error! status: %d", httpErr.StatusCode),
		}
	}

	var verr *content.ValidationError
	if errors.As(err, &verr) {
		return Outcome{Kind: OutcomeInvalid, Message: verr.Error()}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Kind: OutcomeTransportError, Message: "request timed out"}
	}

	var transportErr *client.TransportError
	if errors.As(err, &transportErr) {
		return Outcome{Kind: OutcomeTransportError, Message: transportErr.Err.Error()}
	}

	return Outcome{Kind: OutcomeTransportError, Message: err.Error()}
}

// Status is the presentation state of a view.
type Status string

const (
	// StatusIdle means nothing is shown: the fetch was abandoned.
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusReady   Status = "ready"
)

// View is what a listing or detail screen renders.
type View[T any] struct {
	Status     Status      `json:"status"`
	Outcome    OutcomeKind `json:"outcome,omitempty"`
	Message    string      `json:"message,omitempty"`
	StatusCode int         `json:"status_code,omitempty"`
	Source     Source      `json:"source,omitempty"`
	Data       T           `json:"data"`
}

// Loading returns the view shown while a fetch is pending.
func Loading[T any]() View[T] {
	return View[T]{Status: StatusLoading}
}

// Present builds the view for a finished fetch.
func Present[T any](data T, source Source, err error) View[T] {
	outcome := Classify(source, err)

	switch {
	case err == nil:
		return View[T]{Status: StatusReady, Outcome: outcome.Kind, Source: source, Data: data}
	case outcome.Kind == OutcomeCancelled:
		return View[T]{Status: StatusIdle, Outcome: outcome.Kind}
	default:
		return View[T]{
			Status:     StatusError,
			Outcome:    outcome.Kind,
			Message:    outcome.Message,
			StatusCode: outcome.StatusCode,
		}
	}
}
