// Package metrics holds the Prometheus collectors for queries, loads and
// sessions. Collectors register with the default registry on import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gradelens"

// Outcome labels
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Cache result labels
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheShared = "shared"
)

var (
	// queriesTotal counts engine calls.
	// Labels: op (aggregate, crosstab, ...), outcome (ok, error)
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Total analysis queries by operation and outcome",
	}, []string{"op", "outcome"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Analysis query latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"op"})

	datasetLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dataset_loads_total",
		Help:      "Total dataset parses by outcome",
	}, []string{"outcome"})

	// loadCache counts loader cache lookups.
	// Labels: result (hit, miss, shared)
	loadCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "load_cache_total",
		Help:      "Loader cache lookups by result",
	}, []string{"result"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of open analysis sessions",
	})
)

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveQuery records one engine call that started at start
func ObserveQuery(op string, start time.Time, err error) {
	queriesTotal.WithLabelValues(op, outcome(err)).Inc()
	queryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordLoad records one dataset parse
func RecordLoad(err error) {
	datasetLoads.WithLabelValues(outcome(err)).Inc()
}

// RecordCacheLookup records a loader cache lookup
func RecordCacheLookup(result string) {
	loadCache.WithLabelValues(result).Inc()
}

// SessionOpened and SessionClosed track the live session count
func SessionOpened() { sessionsActive.Inc() }

func SessionClosed() { sessionsActive.Dec() }
