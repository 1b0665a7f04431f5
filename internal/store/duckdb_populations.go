// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomtom215/plantingsites/internal/model"
)

// AddPlants adds count plants of a species to the subzone, its zone and its
// site population rows, creating rows that do not exist yet.
func (t *duckdbTx) AddPlants(ctx context.Context, subzoneID model.SubzoneID, speciesID model.SpeciesID, count int64) error {
	var siteID, zoneID int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT planting_site_id, planting_zone_id FROM planting_subzones WHERE id = ?`,
		int64(subzoneID)).Scan(&siteID, &zoneID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound("planting subzone", subzoneID)
	}
	if err != nil {
		return fmt.Errorf("failed to record plants: %w", err)
	}

	levels := []struct {
		table  string
		update string
		insert string
		keys   []any
	}{
		{
			table:  "subzone",
			update: `UPDATE planting_subzone_populations SET total_plants = total_plants + ?, plants_since_last_observation = plants_since_last_observation + ? WHERE planting_subzone_id = ? AND species_id = ?`,
			insert: `INSERT INTO planting_subzone_populations (total_plants, plants_since_last_observation, planting_subzone_id, species_id, planting_site_id) VALUES (?, ?, ?, ?, ?)`,
			keys:   []any{int64(subzoneID), int64(speciesID)},
		},
		{
			table:  "zone",
			update: `UPDATE planting_zone_populations SET total_plants = total_plants + ?, plants_since_last_observation = plants_since_last_observation + ? WHERE planting_zone_id = ? AND species_id = ?`,
			insert: `INSERT INTO planting_zone_populations (total_plants, plants_since_last_observation, planting_zone_id, species_id, planting_site_id) VALUES (?, ?, ?, ?, ?)`,
			keys:   []any{zoneID, int64(speciesID)},
		},
		{
			table:  "site",
			update: `UPDATE planting_site_populations SET total_plants = total_plants + ?, plants_since_last_observation = plants_since_last_observation + ? WHERE planting_site_id = ? AND species_id = ?`,
			insert: `INSERT INTO planting_site_populations (total_plants, plants_since_last_observation, planting_site_id, species_id) VALUES (?, ?, ?, ?)`,
			keys:   []any{siteID, int64(speciesID)},
		},
	}

	for _, level := range levels {
		args := append([]any{count, count}, level.keys...)
		res, err := t.exec(ctx, "record "+level.table+" plants", level.update, args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to record %s plants: %w", level.table, err)
		} else if n > 0 {
			continue
		}
		if level.table != "site" {
			args = append(args, siteID)
		}
		if _, err := t.exec(ctx, "record "+level.table+" plants", level.insert, args...); err != nil {
			return err
		}
	}
	return nil
}

func (t *duckdbTx) SubzonePopulations(ctx context.Context, siteID model.SiteID) ([]model.SubzonePopulation, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT planting_subzone_id, species_id, total_plants, plants_since_last_observation
		FROM planting_subzone_populations WHERE planting_site_id = ?
		ORDER BY planting_subzone_id, species_id`, int64(siteID))
	if err != nil {
		return nil, fmt.Errorf("failed to read subzone populations: %w", err)
	}
	defer rows.Close()

	var out []model.SubzonePopulation
	for rows.Next() {
		var p model.SubzonePopulation
		if err := rows.Scan(&p.SubzoneID, &p.SpeciesID, &p.TotalPlants, &p.PlantsSinceLastObservation); err != nil {
			return nil, fmt.Errorf("failed to scan subzone population: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *duckdbTx) ZonePopulations(ctx context.Context, siteID model.SiteID) ([]model.ZonePopulation, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT planting_zone_id, species_id, total_plants, plants_since_last_observation
		FROM planting_zone_populations WHERE planting_site_id = ?
		ORDER BY planting_zone_id, species_id`, int64(siteID))
	if err != nil {
		return nil, fmt.Errorf("failed to read zone populations: %w", err)
	}
	defer rows.Close()

	var out []model.ZonePopulation
	for rows.Next() {
		var p model.ZonePopulation
		if err := rows.Scan(&p.ZoneID, &p.SpeciesID, &p.TotalPlants, &p.PlantsSinceLastObservation); err != nil {
			return nil, fmt.Errorf("failed to scan zone population: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *duckdbTx) SitePopulations(ctx context.Context, siteID model.SiteID) ([]model.SitePopulation, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT planting_site_id, species_id, total_plants, plants_since_last_observation
		FROM planting_site_populations WHERE planting_site_id = ?
		ORDER BY species_id`, int64(siteID))
	if err != nil {
		return nil, fmt.Errorf("failed to read site populations: %w", err)
	}
	defer rows.Close()

	var out []model.SitePopulation
	for rows.Next() {
		var p model.SitePopulation
		if err := rows.Scan(&p.SiteID, &p.SpeciesID, &p.TotalPlants, &p.PlantsSinceLastObservation); err != nil {
			return nil, fmt.Errorf("failed to scan site population: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *duckdbTx) ResetPlantsSinceLastObservation(ctx context.Context, siteID model.SiteID) error {
	if _, err := t.fetchSiteRow(ctx, siteID); err != nil {
		return err
	}
	for _, table := range []string{"planting_subzone_populations", "planting_zone_populations", "planting_site_populations"} {
		_, err := t.exec(ctx, "reset plants since last observation",
			`UPDATE `+table+` SET plants_since_last_observation = 0 WHERE planting_site_id = ?`, int64(siteID))
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *duckdbTx) PlantedSubzoneIDs(ctx context.Context, siteID model.SiteID) (map[model.SubzoneID]bool, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT DISTINCT planting_subzone_id FROM planting_subzone_populations
		WHERE planting_site_id = ? AND total_plants > 0`, int64(siteID))
	if err != nil {
		return nil, fmt.Errorf("failed to read planted subzones: %w", err)
	}
	defer rows.Close()

	planted := make(map[model.SubzoneID]bool)
	for rows.Next() {
		var id model.SubzoneID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan planted subzone: %w", err)
		}
		planted[id] = true
	}
	return planted, rows.Err()
}
