// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

/*
Package metrics provides Prometheus instrumentation for planting site edits.

Metrics are registered with the default registry through promauto when the
package is loaded, so importing it is enough to expose them on any
promhttp handler the embedding service mounts.

# Available Metrics

Database Metrics:
  - duckdb_query_duration_seconds: Query execution time (histogram)
    Labels: operation
  - duckdb_query_errors_total: Failed queries (counter)
    Labels: operation, error_type
  - duckdb_transaction_conflicts_total: Write-write conflicts (counter)

Edit Metrics:
  - planting_site_edits_total: Edits by result (counter)
    Labels: result (applied, noop, failed)
  - planting_site_edit_apply_duration_seconds: Apply latency (histogram)
  - permanent_clusters_created_total: Clusters placed by edits (counter)
  - monitoring_plots_created_total: Plots created or reused (counter)
    Labels: kind (cluster, temporary)
  - monitoring_plots_made_unavailable_total: Plots taken out of service (counter)

Event Metrics:
  - planting_site_events_published_total: Publish attempts (counter)
    Labels: topic, outcome (success, failure, rejected)
  - circuit_breaker_state: Publisher breaker state (gauge)
  - circuit_breaker_state_transitions_total: Breaker transitions (counter)

Authorization Metrics:
  - authz_decisions_total: Decisions (counter)
    Labels: action, decision
  - authz_cache_hits_total, authz_cache_misses_total: Decision cache (counter)

# Usage

	start := time.Now()
	result, err := applier.Apply(ctx, tx, siteEdit, nil)
	metrics.RecordEdit(time.Since(start), outcome, err)
*/
package metrics
