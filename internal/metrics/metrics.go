// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "error_type"},
	)

	DBTransactionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "duckdb_transaction_conflicts_total",
			Help: "Total number of transactions aborted by a write-write conflict",
		},
	)

	// Edit Metrics
	EditsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planting_site_edits_total",
			Help: "Total number of planting site edits by result",
		},
		[]string{"result"}, // "applied", "noop", "failed"
	)

	EditApplyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "planting_site_edit_apply_duration_seconds",
			Help:    "Time spent applying a planting site edit inside its transaction",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
	)

	ClustersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "permanent_clusters_created_total",
			Help: "Total number of permanent clusters placed by edits",
		},
	)

	PlotsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitoring_plots_created_total",
			Help: "Total number of monitoring plots created or reused",
		},
		[]string{"kind"}, // "cluster", "temporary"
	)

	PlotsMadeUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitoring_plots_made_unavailable_total",
			Help: "Total number of monitoring plots taken out of service by edits",
		},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planting_site_events_published_total",
			Help: "Total number of domain events published by outcome",
		},
		[]string{"topic", "outcome"}, // outcome: "success", "failure", "rejected"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"action", "decision"}, // decision: "allow", "deny"
	)

	AuthzCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_cache_hits_total",
			Help: "Total number of authorization decisions served from cache",
		},
	)

	AuthzCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_cache_misses_total",
			Help: "Total number of authorization decisions evaluated by the enforcer",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// EditOutcome summarizes what one applied edit changed.
type EditOutcome struct {
	NoOp             bool
	ClustersPlaced   int
	ClusterPlots     int
	PlotsUnavailable int
}

// RecordEdit records the result of applying an edit
func RecordEdit(duration time.Duration, outcome EditOutcome, err error) {
	EditApplyDuration.Observe(duration.Seconds())
	switch {
	case err != nil:
		EditsApplied.WithLabelValues("failed").Inc()
		return
	case outcome.NoOp:
		EditsApplied.WithLabelValues("noop").Inc()
		return
	}
	EditsApplied.WithLabelValues("applied").Inc()
	ClustersCreated.Add(float64(outcome.ClustersPlaced))
	PlotsCreated.WithLabelValues("cluster").Add(float64(outcome.ClusterPlots))
	PlotsMadeUnavailable.Add(float64(outcome.PlotsUnavailable))
}

// RecordTemporaryPlots records temporary plots created outside an edit
func RecordTemporaryPlots(n int) {
	PlotsCreated.WithLabelValues("temporary").Add(float64(n))
}

// RecordEventPublish records a publish attempt for a topic
func RecordEventPublish(topic, outcome string) {
	EventsPublished.WithLabelValues(topic, outcome).Inc()
}

// RecordCircuitBreakerTransition records a state change and updates the state gauge.
// States are "closed", "half-open" and "open".
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(circuitStateValue(to))
}

func circuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordAuthzDecision records an authorization decision
func RecordAuthzDecision(action string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisions.WithLabelValues(action, decision).Inc()
}
