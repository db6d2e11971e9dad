// Package metrics exposes the Prometheus registry the catalog components
// register with. Metrics are declared in their own packages (cache, client,
// catalog, ratelimit, warm) via promauto to avoid circular dependencies.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every catalog metric name.
const Namespace = "catalog_"

var (
	// Registry is the registerer used by promauto in every package.
	Registry = prometheus.DefaultRegisterer

	// Gatherer reads back what Registry collected.
	Gatherer = prometheus.DefaultGatherer
)

// Handler serves the collected metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Snapshot sums every catalog counter across its labels. Histograms and
// gauges are skipped.
func Snapshot() (map[string]float64, error) {
	families, err := Gatherer.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), Namespace) {
			continue
		}
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				out[mf.GetName()] += c.GetValue()
			}
		}
	}
	return out, nil
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total{layer} (Counter): session_list, session_detail and store hits
//   - catalog_cache_misses_total{layer} (Counter): Cache misses by layer
//   - catalog_store_errors_total{operation} (Counter): Persistent store failures (get, set, decode)
//
// Request Metrics (pkg/client):
//   - catalog_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - catalog_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - catalog_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - catalog_retries_total{error_class} (Counter): Retry attempts by error class
//   - catalog_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catalog_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_blocks_total (Counter): Retry-After hints that closed the request gate
//   - catalog_rate_limit_wait_seconds (Histogram): Time requests waited at a closed gate
//
// Orchestrator Metrics (pkg/catalog):
//   - catalog_fetches_total{kind, outcome} (Counter): Finished fetches by outcome
//   - catalog_inflight_joins_total{kind} (Counter): Callers that joined an in-flight fetch
//   - catalog_cancellations_total{kind} (Counter): Fetches abandoned by their caller
//
// Warm-up Metrics (pkg/warm):
//   - catalog_warm_chapters_total{result} (Counter): Chapters pre-fetched by result
//
// Example Prometheus Queries:
//
//   # Session hit rate for chapter content
//   sum(rate(catalog_cache_hits_total{layer="session_detail"}[5m])) /
//   (sum(rate(catalog_cache_hits_total{layer="session_detail"}[5m])) + sum(rate(catalog_cache_misses_total{layer="session_detail"}[5m])))
//
//   # Deduplicated fetches
//   rate(catalog_inflight_joins_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))
