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

	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
)

func (t *duckdbTx) fetchZones(ctx context.Context, siteID model.SiteID, frame *geometry.Frame) ([]zoneRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, name, boundary, srid, area_ha, target_planting_density, error_margin,
			students_t, variance, num_permanent_clusters, num_temporary_plots,
			extra_permanent_clusters, boundary_modified_time
		FROM planting_zones WHERE planting_site_id = ? ORDER BY id`, int64(siteID))
	if err != nil {
		return nil, fmt.Errorf("failed to read planting zones: %w", err)
	}
	defer rows.Close()

	var zones []zoneRecord
	for rows.Next() {
		var (
			z        model.Zone
			boundary sql.NullString
			srid     int32
			area     sql.NullFloat64
		)
		if err := rows.Scan(&z.ID, &z.Name, &boundary, &srid, &area, &z.TargetPlantingDensity, &z.ErrorMargin,
			&z.StudentsT, &z.Variance, &z.NumPermanentClusters, &z.NumTemporaryPlots,
			&z.ExtraPermanentClusters, &z.BoundaryModifiedTime); err != nil {
			return nil, fmt.Errorf("failed to scan planting zone: %w", err)
		}
		if z.Boundary, err = decodeMultiPolygon(boundary, srid, frame); err != nil {
			return nil, fmt.Errorf("planting zone %d boundary: %w", z.ID, err)
		}
		z.AreaHa = floatPtr(area)
		z.BoundaryModifiedTime = z.BoundaryModifiedTime.UTC()
		zones = append(zones, zoneRecord{SiteID: siteID, Zone: z})
	}
	return zones, rows.Err()
}

func (t *duckdbTx) fetchSubzones(ctx context.Context, siteID model.SiteID, frame *geometry.Frame) ([]subzoneRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, planting_zone_id, name, full_name, boundary, srid, area_ha, planting_completed_time
		FROM planting_subzones WHERE planting_site_id = ? ORDER BY id`, int64(siteID))
	if err != nil {
		return nil, fmt.Errorf("failed to read planting subzones: %w", err)
	}
	defer rows.Close()

	var subzones []subzoneRecord
	for rows.Next() {
		var (
			r         = subzoneRecord{SiteID: siteID}
			boundary  sql.NullString
			srid      int32
			area      sql.NullFloat64
			completed sql.NullTime
		)
		sz := &r.Subzone
		if err := rows.Scan(&sz.ID, &r.ZoneID, &sz.Name, &sz.FullName, &boundary, &srid, &area, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan planting subzone: %w", err)
		}
		if sz.Boundary, err = decodeMultiPolygon(boundary, srid, frame); err != nil {
			return nil, fmt.Errorf("planting subzone %d boundary: %w", sz.ID, err)
		}
		sz.AreaHa = floatPtr(area)
		sz.PlantingCompletedTime = timePtr(completed)
		subzones = append(subzones, r)
	}
	return subzones, rows.Err()
}

func (t *duckdbTx) fetchPlots(ctx context.Context, siteID model.SiteID, frame *geometry.Frame) ([]plotRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, planting_subzone_id, plot_number, boundary, srid, size_meters, is_available,
			is_ad_hoc, permanent_cluster, permanent_cluster_subplot, created_time
		FROM monitoring_plots WHERE planting_site_id = ? ORDER BY plot_number`, int64(siteID))
	if err != nil {
		return nil, fmt.Errorf("failed to read monitoring plots: %w", err)
	}
	defer rows.Close()

	var plots []plotRecord
	for rows.Next() {
		var (
			p                model.Plot
			subzoneID        sql.NullInt64
			boundary         string
			srid             int32
			cluster, subplot sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &subzoneID, &p.Number, &boundary, &srid, &p.SizeMeters, &p.IsAvailable,
			&p.IsAdHoc, &cluster, &subplot, &p.CreatedTime); err != nil {
			return nil, fmt.Errorf("failed to scan monitoring plot: %w", err)
		}
		if p.Boundary, err = decodePolygon(boundary, srid, frame); err != nil {
			return nil, fmt.Errorf("monitoring plot %d boundary: %w", p.ID, err)
		}
		p.SubzoneID = idPtr[model.SubzoneID](subzoneID)
		p.PermanentCluster = intPtr(cluster)
		p.PermanentClusterSubplot = intPtr(subplot)
		p.CreatedTime = p.CreatedTime.UTC()
		plots = append(plots, plotRecord{SiteID: siteID, Plot: p})
	}
	return plots, rows.Err()
}

func (t *duckdbTx) SiteOfZone(ctx context.Context, id model.ZoneID) (model.SiteID, error) {
	var siteID model.SiteID
	err := t.tx.QueryRowContext(ctx, `SELECT planting_site_id FROM planting_zones WHERE id = ?`, int64(id)).Scan(&siteID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.NotFound("planting zone", id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read planting zone: %w", err)
	}
	return siteID, nil
}

func (t *duckdbTx) SiteOfSubzone(ctx context.Context, id model.SubzoneID) (model.SiteID, error) {
	var siteID model.SiteID
	err := t.tx.QueryRowContext(ctx, `SELECT planting_site_id FROM planting_subzones WHERE id = ?`, int64(id)).Scan(&siteID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.NotFound("planting subzone", id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read planting subzone: %w", err)
	}
	return siteID, nil
}

func (t *duckdbTx) InsertZone(ctx context.Context, siteID model.SiteID, zone *model.Zone) (model.ZoneID, error) {
	if _, err := t.fetchSiteRow(ctx, siteID); err != nil {
		return 0, err
	}
	id, err := t.insertReturningID(ctx, "insert planting zone", `
		INSERT INTO planting_zones (planting_site_id, name, boundary, srid, area_ha,
			target_planting_density, error_margin, students_t, variance, num_permanent_clusters,
			num_temporary_plots, extra_permanent_clusters, boundary_modified_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		int64(siteID), zone.Name, encodeMultiPolygon(zone.Boundary), int32(geometry.Canonical), nullFloat(zone.AreaHa),
		zone.TargetPlantingDensity, zone.ErrorMargin, zone.StudentsT, zone.Variance, zone.NumPermanentClusters,
		zone.NumTemporaryPlots, zone.ExtraPermanentClusters, zone.BoundaryModifiedTime)
	return model.ZoneID(id), err
}

func (t *duckdbTx) UpdateZone(ctx context.Context, zone *model.Zone) error {
	return t.execOne(ctx, "update planting zone", model.NotFound("planting zone", zone.ID), `
		UPDATE planting_zones SET name = ?, boundary = ?, srid = ?, area_ha = ?,
			target_planting_density = ?, error_margin = ?, students_t = ?, variance = ?,
			num_permanent_clusters = ?, num_temporary_plots = ?, extra_permanent_clusters = ?,
			boundary_modified_time = ?
		WHERE id = ?`,
		zone.Name, encodeMultiPolygon(zone.Boundary), int32(geometry.Canonical), nullFloat(zone.AreaHa),
		zone.TargetPlantingDensity, zone.ErrorMargin, zone.StudentsT, zone.Variance,
		zone.NumPermanentClusters, zone.NumTemporaryPlots, zone.ExtraPermanentClusters,
		zone.BoundaryModifiedTime, int64(zone.ID))
}

// DeleteZone removes the zone and its subzones. History rows survive with
// their live-entity reference cleared.
func (t *duckdbTx) DeleteZone(ctx context.Context, id model.ZoneID) error {
	var exists bool
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) > 0 FROM planting_zones WHERE id = ?`, int64(id)).Scan(&exists); err != nil {
		return fmt.Errorf("failed to delete planting zone: %w", err)
	}
	if !exists {
		return model.NotFound("planting zone", id)
	}

	rows, err := t.tx.QueryContext(ctx, `SELECT id FROM planting_subzones WHERE planting_zone_id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete planting zone: %w", err)
	}
	var subzoneIDs []model.SubzoneID
	for rows.Next() {
		var sid model.SubzoneID
		if err := rows.Scan(&sid); err != nil {
			closeQuietly(rows)
			return fmt.Errorf("failed to delete planting zone: %w", err)
		}
		subzoneIDs = append(subzoneIDs, sid)
	}
	closeQuietly(rows)
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to delete planting zone: %w", err)
	}
	for _, sid := range subzoneIDs {
		if err := t.deleteSubzone(ctx, sid); err != nil {
			return err
		}
	}

	statements := []string{
		`UPDATE planting_zone_histories SET planting_zone_id = NULL WHERE planting_zone_id = ?`,
		`DELETE FROM planting_zone_populations WHERE planting_zone_id = ?`,
		`DELETE FROM planting_zones WHERE id = ?`,
	}
	for _, stmt := range statements {
		if _, err := t.exec(ctx, "delete planting zone", stmt, int64(id)); err != nil {
			return err
		}
	}
	return nil
}

func (t *duckdbTx) InsertSubzone(ctx context.Context, zoneID model.ZoneID, subzone *model.Subzone) (model.SubzoneID, error) {
	var siteID int64
	err := t.tx.QueryRowContext(ctx, `SELECT planting_site_id FROM planting_zones WHERE id = ?`, int64(zoneID)).Scan(&siteID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.NotFound("planting zone", zoneID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert planting subzone: %w", err)
	}
	id, err := t.insertReturningID(ctx, "insert planting subzone", `
		INSERT INTO planting_subzones (planting_site_id, planting_zone_id, name, full_name, boundary,
			srid, area_ha, planting_completed_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		siteID, int64(zoneID), subzone.Name, subzone.FullName, encodeMultiPolygon(subzone.Boundary),
		int32(geometry.Canonical), nullFloat(subzone.AreaHa), nullTime(subzone.PlantingCompletedTime))
	return model.SubzoneID(id), err
}

func (t *duckdbTx) UpdateSubzone(ctx context.Context, subzone *model.Subzone) error {
	return t.execOne(ctx, "update planting subzone", model.NotFound("planting subzone", subzone.ID), `
		UPDATE planting_subzones SET name = ?, full_name = ?, boundary = ?, srid = ?, area_ha = ?,
			planting_completed_time = ?
		WHERE id = ?`,
		subzone.Name, subzone.FullName, encodeMultiPolygon(subzone.Boundary), int32(geometry.Canonical),
		nullFloat(subzone.AreaHa), nullTime(subzone.PlantingCompletedTime), int64(subzone.ID))
}

func (t *duckdbTx) DeleteSubzone(ctx context.Context, id model.SubzoneID) error {
	var exists bool
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) > 0 FROM planting_subzones WHERE id = ?`, int64(id)).Scan(&exists); err != nil {
		return fmt.Errorf("failed to delete planting subzone: %w", err)
	}
	if !exists {
		return model.NotFound("planting subzone", id)
	}
	return t.deleteSubzone(ctx, id)
}

func (t *duckdbTx) deleteSubzone(ctx context.Context, id model.SubzoneID) error {
	statements := []string{
		`UPDATE monitoring_plots SET planting_subzone_id = NULL WHERE planting_subzone_id = ?`,
		`UPDATE planting_subzone_histories SET planting_subzone_id = NULL WHERE planting_subzone_id = ?`,
		`UPDATE monitoring_plot_histories SET planting_subzone_id = NULL WHERE planting_subzone_id = ?`,
		`DELETE FROM planting_subzone_populations WHERE planting_subzone_id = ?`,
		`DELETE FROM planting_subzones WHERE id = ?`,
	}
	for _, stmt := range statements {
		if _, err := t.exec(ctx, "delete planting subzone", stmt, int64(id)); err != nil {
			return err
		}
	}
	return nil
}

func (t *duckdbTx) InsertPlot(ctx context.Context, siteID model.SiteID, plot *model.Plot) (model.PlotID, error) {
	if _, err := t.fetchSiteRow(ctx, siteID); err != nil {
		return 0, err
	}
	if err := t.checkSubzone(ctx, siteID, plot.SubzoneID); err != nil {
		return 0, err
	}
	id, err := t.insertReturningID(ctx, "insert monitoring plot", `
		INSERT INTO monitoring_plots (planting_site_id, planting_subzone_id, plot_number, boundary, srid,
			size_meters, is_available, is_ad_hoc, permanent_cluster, permanent_cluster_subplot, created_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		int64(siteID), nullID(plot.SubzoneID), plot.Number, encodePolygon(plot.Boundary), int32(geometry.Canonical),
		plot.SizeMeters, plot.IsAvailable, plot.IsAdHoc, nullInt(plot.PermanentCluster),
		nullInt(plot.PermanentClusterSubplot), plot.CreatedTime)
	if err != nil {
		return 0, err
	}
	_, err = t.exec(ctx, "insert monitoring plot", `
		UPDATE planting_sites SET next_plot_number = GREATEST(next_plot_number, ? + 1) WHERE id = ?`,
		plot.Number, int64(siteID))
	return model.PlotID(id), err
}

func (t *duckdbTx) UpdatePlot(ctx context.Context, plot *model.Plot) error {
	var siteID model.SiteID
	err := t.tx.QueryRowContext(ctx, `SELECT planting_site_id FROM monitoring_plots WHERE id = ?`, int64(plot.ID)).Scan(&siteID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound("monitoring plot", plot.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update monitoring plot: %w", err)
	}
	if err := t.checkSubzone(ctx, siteID, plot.SubzoneID); err != nil {
		return err
	}
	_, err = t.exec(ctx, "update monitoring plot", `
		UPDATE monitoring_plots SET planting_subzone_id = ?, plot_number = ?, boundary = ?, srid = ?,
			size_meters = ?, is_available = ?, is_ad_hoc = ?, permanent_cluster = ?,
			permanent_cluster_subplot = ?
		WHERE id = ?`,
		nullID(plot.SubzoneID), plot.Number, encodePolygon(plot.Boundary), int32(geometry.Canonical),
		plot.SizeMeters, plot.IsAvailable, plot.IsAdHoc, nullInt(plot.PermanentCluster),
		nullInt(plot.PermanentClusterSubplot), int64(plot.ID))
	return err
}

// checkSubzone verifies that a plot's subzone, if any, belongs to siteID.
func (t *duckdbTx) checkSubzone(ctx context.Context, siteID model.SiteID, subzoneID *model.SubzoneID) error {
	if subzoneID == nil {
		return nil
	}
	var owner model.SiteID
	err := t.tx.QueryRowContext(ctx, `SELECT planting_site_id FROM planting_subzones WHERE id = ?`, int64(*subzoneID)).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != siteID) {
		return model.NotFound("planting subzone", *subzoneID)
	}
	if err != nil {
		return fmt.Errorf("failed to read planting subzone: %w", err)
	}
	return nil
}

func (t *duckdbTx) NextPlotNumber(ctx context.Context, siteID model.SiteID) (int64, error) {
	var n int64
	err := t.tx.QueryRowContext(ctx, `
		UPDATE planting_sites SET next_plot_number = next_plot_number + 1
		WHERE id = ?
		RETURNING next_plot_number - 1`, int64(siteID)).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.NotFound("planting site", siteID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to allocate plot number: %w", err)
	}
	return n, nil
}
