// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

/*
Package config loads sitectl and service configuration.

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. defaults built into defaultConfig
 2. an optional YAML file: CONFIG_PATH, config.yaml, config.yml,
    /etc/plantingsites/config.yaml or /etc/plantingsites/config.yml
 3. explicitly mapped environment variables

Only the environment variables listed in envTransformFunc are read, so
unrelated variables never leak into the configuration.

# Sections

  - database: DuckDB path, memory limit and thread count
  - logging: level, format and caller annotation
  - geometry: monitoring plot edge length and the containment tolerance
  - seasons: planting season length and lead-time limits
  - events: publishing backend (gochannel or nats), topic prefix, breaker
  - authz: Casbin model and policy paths and decision cache
  - country: GeoJSON file of country outlines for country detection

# Environment Variables

	DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS
	LOG_LEVEL, LOG_FORMAT, LOG_CALLER
	PLOT_SIZE_METERS, CONTAINMENT_TOLERANCE_SQ_METERS
	SEASON_MIN_DAYS, SEASON_MAX_DAYS, SEASON_MAX_DAYS_IN_FUTURE
	EVENTS_BACKEND, EVENTS_TOPIC_PREFIX, EVENTS_BUFFER_SIZE, NATS_URL,
	NATS_MAX_RECONNECTS, NATS_RECONNECT_WAIT,
	EVENTS_BREAKER_THRESHOLD, EVENTS_BREAKER_TIMEOUT
	CASBIN_MODEL_PATH, CASBIN_POLICY_PATH, CASBIN_CACHE_ENABLED, CASBIN_CACHE_TTL
	COUNTRY_BOUNDARIES_PATH

Durations accept Go syntax ("30s", "5m").

Usage:

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
*/
package config
