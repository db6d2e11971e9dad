package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the fetch orchestrator.
var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_fetches_total",
		Help: "Total orchestrated fetches by kind and outcome",
	}, []string{"kind", "outcome"}) // kind: "list", "detail"

	inflightJoinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_inflight_joins_total",
		Help: "Total fetches that attached to an in-flight request",
	}, []string{"kind"})

	cancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cancellations_total",
		Help: "Total fetches abandoned by their caller",
	}, []string{"kind"})
)
