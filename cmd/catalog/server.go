package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/course-catalog/pkg/cache"
	"github.com/Sternrassler/course-catalog/pkg/catalog"
	"github.com/Sternrassler/course-catalog/pkg/logging"
	"github.com/Sternrassler/course-catalog/pkg/metrics"
	"github.com/rs/zerolog"
)

// pinger is implemented by stores that hold a connection.
type pinger interface {
	Ping(ctx context.Context) error
}

type server struct {
	orch   *catalog.Orchestrator
	store  cache.Store
	logger zerolog.Logger
}

// newServer exposes catalog views over HTTP. Each request's context is the
// cancellation token of its fetch: a client that hangs up abandons it.
func newServer(orch *catalog.Orchestrator, store cache.Store) http.Handler {
	s := &server{
		orch:   orch,
		store:  store,
		logger: logging.NewLogger("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/{language}", s.chaptersHandler)
	mux.HandleFunc("DELETE /api/{language}", s.invalidateHandler)
	mux.HandleFunc("GET /api/{language}/chapter/{title}", s.chapterHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Store not ready")
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) chaptersHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.orch.FetchChapterList(r.Context(), r.PathValue("language"))
	writeView(w, catalog.Present(res.Chapters, res.Source, err))
}

func (s *server) chapterHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.orch.FetchChapterDetail(r.Context(), r.PathValue("language"), r.PathValue("title"))
	writeView(w, catalog.Present(res.Detail, res.Source, err))
}

func (s *server) invalidateHandler(w http.ResponseWriter, r *http.Request) {
	n := s.orch.Invalidate(r.PathValue("language"))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"invalidated": n})
}

// writeView encodes v with a status code matching its outcome. Abandoned
// views are not written: the client is gone.
func writeView[T any](w http.ResponseWriter, v catalog.View[T]) {
	if v.Status == catalog.StatusIdle {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(v.Outcome, v.StatusCode))
	json.NewEncoder(w).Encode(v)
}

func httpStatus(kind catalog.OutcomeKind, upstream int) int {
	switch kind {
	case catalog.OutcomeCacheHit, catalog.OutcomeSuccess:
		return http.StatusOK
	case catalog.OutcomeInvalid:
		return http.StatusBadRequest
	case catalog.OutcomeHTTPError:
		if upstream == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}
