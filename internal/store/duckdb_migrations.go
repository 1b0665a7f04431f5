// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/plantingsites/internal/logging"
)

// Migration represents a versioned schema migration.
type Migration struct {
	Version     int       // Unique version number (monotonically increasing)
	Name        string    // Human-readable migration name
	Description string    // Description of what this migration does
	SQL         string    // Statements separated by semicolons
	AppliedAt   time.Time // When the migration was applied (populated on query)
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// schemaContext returns a context with timeout for schema operations
func schemaContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 60*time.Second)
}

// migrations returns every schema migration in version order.
// Geometry columns hold WKT; each geometry-bearing table records the SRID
// its rows were written in.
func migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Name:        "planting_sites",
			Description: "Live site tree: sites, zones, subzones, monitoring plots and seasons",
			SQL: `
CREATE SEQUENCE IF NOT EXISTS planting_id_seq START 1;

CREATE TABLE IF NOT EXISTS planting_sites (
	id BIGINT PRIMARY KEY DEFAULT nextval('planting_id_seq'),
	organization_id BIGINT NOT NULL DEFAULT 0,
	name TEXT NOT NULL,
	description TEXT,
	boundary TEXT,
	exclusion TEXT,
	srid INTEGER NOT NULL DEFAULT 0,
	grid_origin_x DOUBLE,
	grid_origin_y DOUBLE,
	anchor_lon DOUBLE,
	anchor_lat DOUBLE,
	area_ha DOUBLE,
	country_code TEXT,
	time_zone TEXT,
	current_history_id BIGINT,
	next_plot_number BIGINT NOT NULL DEFAULT 1,
	created_time TIMESTAMPTZ NOT NULL,
	modified_time TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS planting_zones (
	id BIGINT PRIMARY KEY DEFAULT nextval('planting_id_seq'),
	planting_site_id BIGINT NOT NULL,
	name TEXT NOT NULL,
	boundary TEXT NOT NULL,
	srid INTEGER NOT NULL DEFAULT 0,
	area_ha DOUBLE,
	target_planting_density DOUBLE NOT NULL DEFAULT 0,
	error_margin DOUBLE NOT NULL DEFAULT 0,
	students_t DOUBLE NOT NULL DEFAULT 0,
	variance DOUBLE NOT NULL DEFAULT 0,
	num_permanent_clusters INTEGER NOT NULL DEFAULT 0,
	num_temporary_plots INTEGER NOT NULL DEFAULT 0,
	extra_permanent_clusters INTEGER NOT NULL DEFAULT 0,
	boundary_modified_time TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS planting_subzones (
	id BIGINT PRIMARY KEY DEFAULT nextval('planting_id_seq'),
	planting_site_id BIGINT NOT NULL,
	planting_zone_id BIGINT NOT NULL,
	name TEXT NOT NULL,
	full_name TEXT NOT NULL,
	boundary TEXT NOT NULL,
	srid INTEGER NOT NULL DEFAULT 0,
	area_ha DOUBLE,
	planting_completed_time TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS monitoring_plots (
	id BIGINT PRIMARY KEY DEFAULT nextval('planting_id_seq'),
	planting_site_id BIGINT NOT NULL,
	planting_subzone_id BIGINT,
	plot_number BIGINT NOT NULL,
	boundary TEXT NOT NULL,
	srid INTEGER NOT NULL DEFAULT 0,
	size_meters INTEGER NOT NULL,
	is_available BOOLEAN NOT NULL,
	is_ad_hoc BOOLEAN NOT NULL DEFAULT FALSE,
	permanent_cluster INTEGER,
	permanent_cluster_subplot INTEGER,
	created_time TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS planting_seasons (
	id BIGINT PRIMARY KEY DEFAULT nextval('planting_id_seq'),
	planting_site_id BIGINT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT FALSE
)`,
		},
		{
			Version:     2,
			Name:        "planting_site_histories",
			Description: "Append-only geometry snapshots written by every structural edit",
			SQL: `
CREATE TABLE IF NOT EXISTS planting_site_histories (
	id BIGINT PRIMARY KEY DEFAULT nextval('planting_id_seq'),
	planting_site_id BIGINT NOT NULL,
	created_time TIMESTAMPTZ NOT NULL,
	name TEXT NOT NULL,
	boundary TEXT,
	exclusion TEXT,
	srid INTEGER NOT NULL DEFAULT 0,
	grid_origin_x DOUBLE,
	grid_origin_y DOUBLE,
	area_ha DOUBLE
);

CREATE TABLE IF NOT EXISTS planting_zone_histories (
	id BIGINT PRIMARY KEY DEFAULT nextval('planting_id_seq'),
	planting_site_history_id BIGINT NOT NULL,
	planting_zone_id BIGINT,
	name TEXT NOT NULL,
	boundary TEXT NOT NULL,
	srid INTEGER NOT NULL DEFAULT 0,
	area_ha DOUBLE
);

CREATE TABLE IF NOT EXISTS planting_subzone_histories (
	id BIGINT PRIMARY KEY DEFAULT nextval('planting_id_seq'),
	planting_zone_history_id BIGINT NOT NULL,
	planting_subzone_id BIGINT,
	name TEXT NOT NULL,
	full_name TEXT NOT NULL,
	boundary TEXT NOT NULL,
	srid INTEGER NOT NULL DEFAULT 0,
	area_ha DOUBLE
);

CREATE TABLE IF NOT EXISTS monitoring_plot_histories (
	id BIGINT PRIMARY KEY DEFAULT nextval('planting_id_seq'),
	planting_site_history_id BIGINT NOT NULL,
	planting_subzone_history_id BIGINT,
	monitoring_plot_id BIGINT NOT NULL,
	planting_subzone_id BIGINT,
	plot_number BIGINT NOT NULL,
	boundary TEXT NOT NULL,
	srid INTEGER NOT NULL DEFAULT 0,
	size_meters INTEGER NOT NULL,
	is_available BOOLEAN NOT NULL,
	is_ad_hoc BOOLEAN NOT NULL,
	permanent_cluster INTEGER,
	permanent_cluster_subplot INTEGER
)`,
		},
		{
			Version:     3,
			Name:        "planting_populations",
			Description: "Per-species plant totals recorded independently at subzone, zone and site level",
			SQL: `
CREATE TABLE IF NOT EXISTS planting_subzone_populations (
	planting_site_id BIGINT NOT NULL,
	planting_subzone_id BIGINT NOT NULL,
	species_id BIGINT NOT NULL,
	total_plants BIGINT NOT NULL DEFAULT 0,
	plants_since_last_observation BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (planting_subzone_id, species_id)
);

CREATE TABLE IF NOT EXISTS planting_zone_populations (
	planting_site_id BIGINT NOT NULL,
	planting_zone_id BIGINT NOT NULL,
	species_id BIGINT NOT NULL,
	total_plants BIGINT NOT NULL DEFAULT 0,
	plants_since_last_observation BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (planting_zone_id, species_id)
);

CREATE TABLE IF NOT EXISTS planting_site_populations (
	planting_site_id BIGINT NOT NULL,
	species_id BIGINT NOT NULL,
	total_plants BIGINT NOT NULL DEFAULT 0,
	plants_since_last_observation BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (planting_site_id, species_id)
)`,
		},
		{
			Version:     4,
			Name:        "planting_indexes",
			Description: "Indexes for parent lookups and as-of history queries",
			SQL: `
CREATE INDEX IF NOT EXISTS idx_zones_site ON planting_zones(planting_site_id);
CREATE INDEX IF NOT EXISTS idx_subzones_site ON planting_subzones(planting_site_id);
CREATE INDEX IF NOT EXISTS idx_plots_site ON monitoring_plots(planting_site_id);
CREATE INDEX IF NOT EXISTS idx_seasons_site ON planting_seasons(planting_site_id);
CREATE INDEX IF NOT EXISTS idx_site_histories_site_time ON planting_site_histories(planting_site_id, created_time);
CREATE INDEX IF NOT EXISTS idx_zone_histories_site_history ON planting_zone_histories(planting_site_history_id);
CREATE INDEX IF NOT EXISTS idx_plot_histories_site_history ON monitoring_plot_histories(planting_site_history_id)`,
		},
	}
}

// execStatements runs each semicolon-separated statement in turn.
func (s *DuckDBStore) execStatements(ctx context.Context, query string) error {
	for _, stmt := range strings.Split(query, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *DuckDBStore) getAppliedMigrations(ctx context.Context) (map[int]Migration, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT version, name, description, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		var desc *string
		if err := rows.Scan(&m.Version, &m.Name, &desc, &m.AppliedAt); err != nil {
			return nil, err
		}
		if desc != nil {
			m.Description = *desc
		}
		applied[m.Version] = m
	}
	return applied, rows.Err()
}

// Migrate applies every migration not yet recorded in schema_migrations and
// returns how many were applied.
func (s *DuckDBStore) Migrate(ctx context.Context) (int, error) {
	ctx, cancel := schemaContext(ctx)
	defer cancel()

	if err := s.execStatements(ctx, schemaMigrationsTable); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	newMigrations := 0
	for _, m := range migrations() {
		if _, exists := applied[m.Version]; exists {
			continue
		}

		if err := s.execStatements(ctx, m.SQL); err != nil {
			return newMigrations, fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}

		_, err := s.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description) VALUES (?, ?, ?)`,
			m.Version, m.Name, m.Description)
		if err != nil {
			return newMigrations, fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}
		newMigrations++
	}

	if newMigrations > 0 {
		logging.Info().Int("count", newMigrations).Msg("Applied database migrations")
	}
	return newMigrations, nil
}

// SchemaVersion returns the highest applied migration version
func (s *DuckDBStore) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// MigrationHistory returns all applied migrations in order
func (s *DuckDBStore) MigrationHistory(ctx context.Context) ([]Migration, error) {
	applied, err := s.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	history := make([]Migration, 0, len(applied))
	for _, m := range migrations() {
		if a, ok := applied[m.Version]; ok {
			history = append(history, a)
		}
	}
	return history, nil
}
