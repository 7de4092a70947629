// Package metrics holds the Prometheus collectors for the query layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded for store statements.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

var (
	// StoreQueryDuration tracks the latency of event store statements.
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_duration_seconds",
			Help:    "Duration of event store statements in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"statement", "outcome"},
	)

	// StoreQueriesTotal counts event store statements by outcome.
	StoreQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_queries_total",
			Help: "Total number of event store statements",
		},
		[]string{"statement", "outcome"},
	)

	// StoreRowsReturned tracks how many rows each statement returned.
	StoreRowsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_rows_returned",
			Help:    "Rows returned per event store statement",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"statement"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts breaker state changes.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// DegradedFeaturesTotal counts responses served without an optional feature.
	DegradedFeaturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "degraded_features_total",
			Help: "Total number of responses served without an optional feature",
		},
		[]string{"feature"},
	)
)

// RecordStoreQuery records one finished store statement.
func RecordStoreQuery(statement, outcome string, duration time.Duration, rows int) {
	StoreQueryDuration.WithLabelValues(statement, outcome).Observe(duration.Seconds())
	StoreQueriesTotal.WithLabelValues(statement, outcome).Inc()
	if outcome == OutcomeSuccess {
		StoreRowsReturned.WithLabelValues(statement).Observe(float64(rows))
	}
}

// RecordDegradedFeature records a response that left out feature.
func RecordDegradedFeature(feature string) {
	DegradedFeaturesTotal.WithLabelValues(feature).Inc()
}
