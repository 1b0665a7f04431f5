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
	"time"

	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
)

// InsertHistory writes the snapshot's rows and returns the new site history ID.
// Provisional zone and subzone history IDs inside the snapshot are replaced
// by the persisted ones.
func (t *duckdbTx) InsertHistory(ctx context.Context, snapshot *model.HistorySnapshot) (model.SiteHistoryID, error) {
	if _, err := t.fetchSiteRow(ctx, snapshot.Site.SiteID); err != nil {
		return 0, err
	}
	sh := snapshot.Site
	originX, originY := encodePoint(sh.GridOrigin)
	rawID, err := t.insertReturningID(ctx, "insert planting site history", `
		INSERT INTO planting_site_histories (planting_site_id, created_time, name, boundary, exclusion,
			srid, grid_origin_x, grid_origin_y, area_ha)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		int64(sh.SiteID), sh.CreatedTime, sh.Name, encodeMultiPolygon(sh.Boundary), encodeMultiPolygon(sh.Exclusion),
		int32(geometry.Canonical), originX, originY, nullFloat(sh.AreaHa))
	if err != nil {
		return 0, err
	}
	historyID := model.SiteHistoryID(rawID)

	zoneIDs := make(map[model.ZoneHistoryID]int64, len(snapshot.Zones))
	for _, zh := range snapshot.Zones {
		id, err := t.insertReturningID(ctx, "insert planting zone history", `
			INSERT INTO planting_zone_histories (planting_site_history_id, planting_zone_id, name, boundary, srid, area_ha)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
			int64(historyID), nullID(zh.ZoneID), zh.Name, encodeMultiPolygon(zh.Boundary),
			int32(geometry.Canonical), nullFloat(zh.AreaHa))
		if err != nil {
			return 0, err
		}
		zoneIDs[zh.ID] = id
	}

	subzoneIDs := make(map[model.SubzoneHistoryID]int64, len(snapshot.Subzones))
	for _, szh := range snapshot.Subzones {
		zoneHistoryID, ok := zoneIDs[szh.ZoneHistoryID]
		if !ok {
			return 0, fmt.Errorf("subzone history %q references unknown zone history %d", szh.FullName, szh.ZoneHistoryID)
		}
		id, err := t.insertReturningID(ctx, "insert planting subzone history", `
			INSERT INTO planting_subzone_histories (planting_zone_history_id, planting_subzone_id, name,
				full_name, boundary, srid, area_ha)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			zoneHistoryID, nullID(szh.SubzoneID), szh.Name, szh.FullName, encodeMultiPolygon(szh.Boundary),
			int32(geometry.Canonical), nullFloat(szh.AreaHa))
		if err != nil {
			return 0, err
		}
		subzoneIDs[szh.ID] = id
	}

	for _, ph := range snapshot.Plots {
		var subzoneHistoryID sql.NullInt64
		if ph.SubzoneHistoryID != nil {
			id, ok := subzoneIDs[*ph.SubzoneHistoryID]
			if !ok {
				return 0, fmt.Errorf("plot history %d references unknown subzone history %d", ph.Number, *ph.SubzoneHistoryID)
			}
			subzoneHistoryID = sql.NullInt64{Int64: id, Valid: true}
		}
		_, err := t.exec(ctx, "insert monitoring plot history", `
			INSERT INTO monitoring_plot_histories (planting_site_history_id, planting_subzone_history_id,
				monitoring_plot_id, planting_subzone_id, plot_number, boundary, srid, size_meters,
				is_available, is_ad_hoc, permanent_cluster, permanent_cluster_subplot)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(historyID), subzoneHistoryID, int64(ph.PlotID), nullID(ph.SubzoneID), ph.Number,
			encodePolygon(ph.Boundary), int32(geometry.Canonical), ph.SizeMeters, ph.IsAvailable, ph.IsAdHoc,
			nullInt(ph.PermanentCluster), nullInt(ph.PermanentClusterSubplot))
		if err != nil {
			return 0, err
		}
	}
	return historyID, nil
}

const siteHistoryColumns = `id, planting_site_id, created_time, name, boundary, exclusion, srid,
	grid_origin_x, grid_origin_y, area_ha`

func scanSiteHistory(row rowScanner, frame *geometry.Frame) (model.SiteHistory, error) {
	var (
		h                   model.SiteHistory
		boundary, exclusion sql.NullString
		srid                int32
		originX, originY    sql.NullFloat64
		area                sql.NullFloat64
	)
	if err := row.Scan(&h.ID, &h.SiteID, &h.CreatedTime, &h.Name, &boundary, &exclusion, &srid,
		&originX, &originY, &area); err != nil {
		return h, err
	}
	h.CreatedTime = h.CreatedTime.UTC()
	h.AreaHa = floatPtr(area)
	var err error
	if h.Boundary, err = decodeMultiPolygon(boundary, srid, frame); err != nil {
		return h, err
	}
	if h.Exclusion, err = decodeMultiPolygon(exclusion, srid, frame); err != nil {
		return h, err
	}
	h.GridOrigin, err = decodeGridOrigin(originX, originY, srid, frame)
	return h, err
}

func (t *duckdbTx) FetchHistory(ctx context.Context, siteID model.SiteID, id model.SiteHistoryID) (*model.HistorySnapshot, error) {
	site, err := t.fetchSiteRow(ctx, siteID)
	if err != nil {
		return nil, err
	}
	frame := site.Frame()

	row := t.tx.QueryRowContext(ctx, `SELECT `+siteHistoryColumns+`
		FROM planting_site_histories WHERE id = ? AND planting_site_id = ?`, int64(id), int64(siteID))
	sh, err := scanSiteHistory(row, frame)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("planting site history", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read planting site history %d: %w", id, err)
	}

	snap := &model.HistorySnapshot{Site: sh}
	if snap.Zones, err = t.fetchZoneHistories(ctx, id, frame); err != nil {
		return nil, err
	}
	if snap.Subzones, err = t.fetchSubzoneHistories(ctx, id, frame); err != nil {
		return nil, err
	}
	if snap.Plots, err = t.fetchPlotHistories(ctx, id, frame); err != nil {
		return nil, err
	}
	return snap, nil
}

func (t *duckdbTx) fetchZoneHistories(ctx context.Context, id model.SiteHistoryID, frame *geometry.Frame) ([]model.ZoneHistory, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, planting_zone_id, name, boundary, srid, area_ha
		FROM planting_zone_histories WHERE planting_site_history_id = ? ORDER BY id`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read planting zone histories: %w", err)
	}
	defer rows.Close()

	var out []model.ZoneHistory
	for rows.Next() {
		var (
			h        = model.ZoneHistory{SiteHistoryID: id}
			zoneID   sql.NullInt64
			boundary sql.NullString
			srid     int32
			area     sql.NullFloat64
		)
		if err := rows.Scan(&h.ID, &zoneID, &h.Name, &boundary, &srid, &area); err != nil {
			return nil, fmt.Errorf("failed to scan planting zone history: %w", err)
		}
		if h.Boundary, err = decodeMultiPolygon(boundary, srid, frame); err != nil {
			return nil, fmt.Errorf("planting zone history %d boundary: %w", h.ID, err)
		}
		h.ZoneID = idPtr[model.ZoneID](zoneID)
		h.AreaHa = floatPtr(area)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (t *duckdbTx) fetchSubzoneHistories(ctx context.Context, id model.SiteHistoryID, frame *geometry.Frame) ([]model.SubzoneHistory, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT sh.id, sh.planting_zone_history_id, sh.planting_subzone_id, sh.name, sh.full_name,
			sh.boundary, sh.srid, sh.area_ha
		FROM planting_subzone_histories sh
		JOIN planting_zone_histories zh ON zh.id = sh.planting_zone_history_id
		WHERE zh.planting_site_history_id = ?
		ORDER BY sh.id`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read planting subzone histories: %w", err)
	}
	defer rows.Close()

	var out []model.SubzoneHistory
	for rows.Next() {
		var (
			h         model.SubzoneHistory
			subzoneID sql.NullInt64
			boundary  sql.NullString
			srid      int32
			area      sql.NullFloat64
		)
		if err := rows.Scan(&h.ID, &h.ZoneHistoryID, &subzoneID, &h.Name, &h.FullName,
			&boundary, &srid, &area); err != nil {
			return nil, fmt.Errorf("failed to scan planting subzone history: %w", err)
		}
		if h.Boundary, err = decodeMultiPolygon(boundary, srid, frame); err != nil {
			return nil, fmt.Errorf("planting subzone history %d boundary: %w", h.ID, err)
		}
		h.SubzoneID = idPtr[model.SubzoneID](subzoneID)
		h.AreaHa = floatPtr(area)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (t *duckdbTx) fetchPlotHistories(ctx context.Context, id model.SiteHistoryID, frame *geometry.Frame) ([]model.PlotHistory, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, planting_subzone_history_id, monitoring_plot_id, planting_subzone_id, plot_number,
			boundary, srid, size_meters, is_available, is_ad_hoc, permanent_cluster, permanent_cluster_subplot
		FROM monitoring_plot_histories WHERE planting_site_history_id = ?
		ORDER BY plot_number`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read monitoring plot histories: %w", err)
	}
	defer rows.Close()

	var out []model.PlotHistory
	for rows.Next() {
		var (
			h                = model.PlotHistory{SiteHistoryID: id}
			subzoneHistoryID sql.NullInt64
			subzoneID        sql.NullInt64
			boundary         string
			srid             int32
			cluster, subplot sql.NullInt64
		)
		if err := rows.Scan(&h.ID, &subzoneHistoryID, &h.PlotID, &subzoneID, &h.Number,
			&boundary, &srid, &h.SizeMeters, &h.IsAvailable, &h.IsAdHoc, &cluster, &subplot); err != nil {
			return nil, fmt.Errorf("failed to scan monitoring plot history: %w", err)
		}
		if h.Boundary, err = decodePolygon(boundary, srid, frame); err != nil {
			return nil, fmt.Errorf("monitoring plot history %d boundary: %w", h.ID, err)
		}
		h.SubzoneHistoryID = idPtr[model.SubzoneHistoryID](subzoneHistoryID)
		h.SubzoneID = idPtr[model.SubzoneID](subzoneID)
		h.PermanentCluster = intPtr(cluster)
		h.PermanentClusterSubplot = intPtr(subplot)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (t *duckdbTx) ListHistories(ctx context.Context, siteID model.SiteID) ([]model.SiteHistory, error) {
	site, err := t.fetchSiteRow(ctx, siteID)
	if err != nil {
		return nil, err
	}
	frame := site.Frame()

	rows, err := t.tx.QueryContext(ctx, `SELECT `+siteHistoryColumns+`
		FROM planting_site_histories WHERE planting_site_id = ?
		ORDER BY created_time, id`, int64(siteID))
	if err != nil {
		return nil, fmt.Errorf("failed to list planting site histories: %w", err)
	}
	defer rows.Close()

	var out []model.SiteHistory
	for rows.Next() {
		h, err := scanSiteHistory(rows, frame)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planting site history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (t *duckdbTx) HistoryAsOf(ctx context.Context, siteID model.SiteID, at time.Time) (*model.HistorySnapshot, error) {
	if _, err := t.fetchSiteRow(ctx, siteID); err != nil {
		return nil, err
	}
	var id model.SiteHistoryID
	err := t.tx.QueryRowContext(ctx, `
		SELECT id FROM planting_site_histories
		WHERE planting_site_id = ? AND created_time <= ?
		ORDER BY created_time DESC, id DESC
		LIMIT 1`, int64(siteID), at).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("planting site history", siteID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find planting site history: %w", err)
	}
	return t.FetchHistory(ctx, siteID, id)
}

func (t *duckdbTx) RenameSiteHistory(ctx context.Context, id model.SiteHistoryID, name string) error {
	return t.execOne(ctx, "rename planting site history", model.NotFound("planting site history", id),
		`UPDATE planting_site_histories SET name = ? WHERE id = ?`, name, int64(id))
}

func (t *duckdbTx) RenameZoneHistory(ctx context.Context, id model.SiteHistoryID, zoneID model.ZoneID, name string) error {
	_, err := t.exec(ctx, "rename planting zone history", `
		UPDATE planting_zone_histories SET name = ?
		WHERE planting_site_history_id = ? AND planting_zone_id = ?`,
		name, int64(id), int64(zoneID))
	return err
}

func (t *duckdbTx) RenameSubzoneHistory(ctx context.Context, id model.SiteHistoryID, subzoneID model.SubzoneID, name, fullName string) error {
	_, err := t.exec(ctx, "rename planting subzone history", `
		UPDATE planting_subzone_histories SET name = ?, full_name = ?
		WHERE planting_subzone_id = ? AND planting_zone_history_id IN
			(SELECT id FROM planting_zone_histories WHERE planting_site_history_id = ?)`,
		name, fullName, int64(subzoneID), int64(id))
	return err
}
