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

const siteColumns = `id, organization_id, name, description, boundary, exclusion, srid,
	grid_origin_x, grid_origin_y, anchor_lon, anchor_lat, area_ha, country_code,
	time_zone, current_history_id, created_time, modified_time`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (*model.Site, error) {
	var (
		s                    model.Site
		description          sql.NullString
		boundary             sql.NullString
		exclusion            sql.NullString
		srid                 int32
		originX, originY     sql.NullFloat64
		anchorLon, anchorLat sql.NullFloat64
		area                 sql.NullFloat64
		country              sql.NullString
		timeZone             sql.NullString
		historyID            sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.OrganizationID, &s.Name, &description, &boundary, &exclusion, &srid,
		&originX, &originY, &anchorLon, &anchorLat, &area, &country,
		&timeZone, &historyID, &s.CreatedTime, &s.ModifiedTime)
	if err != nil {
		return nil, err
	}
	s.Description = description.String
	s.Anchor = decodePoint(anchorLon, anchorLat)
	s.AreaHa = floatPtr(area)
	s.CountryCode = country.String
	s.TimeZone = timeZone.String
	s.HistoryID = idPtr[model.SiteHistoryID](historyID)
	s.CreatedTime = s.CreatedTime.UTC()
	s.ModifiedTime = s.ModifiedTime.UTC()

	frame := s.Frame()
	if s.Boundary, err = decodeMultiPolygon(boundary, srid, frame); err != nil {
		return nil, fmt.Errorf("planting site %d boundary: %w", s.ID, err)
	}
	if s.Exclusion, err = decodeMultiPolygon(exclusion, srid, frame); err != nil {
		return nil, fmt.Errorf("planting site %d exclusion: %w", s.ID, err)
	}
	if s.GridOrigin, err = decodeGridOrigin(originX, originY, srid, frame); err != nil {
		return nil, fmt.Errorf("planting site %d grid origin: %w", s.ID, err)
	}
	return &s, nil
}

func (t *duckdbTx) fetchSiteRow(ctx context.Context, id model.SiteID) (*model.Site, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM planting_sites WHERE id = ?`, int64(id))
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("planting site", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read planting site %d: %w", id, err)
	}
	return site, nil
}

func (t *duckdbTx) FetchSite(ctx context.Context, id model.SiteID, depth model.Depth) (*model.Site, error) {
	site, err := t.fetchSiteRow(ctx, id)
	if err != nil {
		return nil, err
	}
	if site.Seasons, err = t.fetchSeasons(ctx, id); err != nil {
		return nil, err
	}
	if depth < model.DepthZone {
		return site, nil
	}

	frame := site.Frame()
	zones, err := t.fetchZones(ctx, id, frame)
	if err != nil {
		return nil, err
	}
	var subzones []subzoneRecord
	if depth >= model.DepthSubzone {
		if subzones, err = t.fetchSubzones(ctx, id, frame); err != nil {
			return nil, err
		}
	}
	var plots []plotRecord
	if depth >= model.DepthPlot {
		if plots, err = t.fetchPlots(ctx, id, frame); err != nil {
			return nil, err
		}
	}
	return assembleSite(site, zones, subzones, plots, depth), nil
}

func (t *duckdbTx) ListSites(ctx context.Context, org model.OrganizationID) ([]model.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM planting_sites`
	var args []any
	if org != 0 {
		query += ` WHERE organization_id = ?`
		args = append(args, int64(org))
	}
	query += ` ORDER BY id`

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list planting sites: %w", err)
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planting site: %w", err)
		}
		sites = append(sites, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating planting sites: %w", err)
	}
	for i := range sites {
		if sites[i].Seasons, err = t.fetchSeasons(ctx, sites[i].ID); err != nil {
			return nil, err
		}
	}
	return sites, nil
}

func (t *duckdbTx) InsertSite(ctx context.Context, site *model.Site) (model.SiteID, error) {
	originX, originY := encodePoint(site.GridOrigin)
	anchorLon, anchorLat := encodePoint(site.Anchor)
	id, err := t.insertReturningID(ctx, "insert planting site", `
		INSERT INTO planting_sites (organization_id, name, description, boundary, exclusion, srid,
			grid_origin_x, grid_origin_y, anchor_lon, anchor_lat, area_ha, country_code,
			time_zone, current_history_id, created_time, modified_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		int64(site.OrganizationID), site.Name, nullString(site.Description),
		encodeMultiPolygon(site.Boundary), encodeMultiPolygon(site.Exclusion), int32(geometry.Canonical),
		originX, originY, anchorLon, anchorLat, nullFloat(site.AreaHa), nullString(site.CountryCode),
		nullString(site.TimeZone), nullID(site.HistoryID), site.CreatedTime, site.ModifiedTime)
	return model.SiteID(id), err
}

func (t *duckdbTx) UpdateSite(ctx context.Context, site *model.Site) error {
	originX, originY := encodePoint(site.GridOrigin)
	anchorLon, anchorLat := encodePoint(site.Anchor)
	return t.execOne(ctx, "update planting site", model.NotFound("planting site", site.ID), `
		UPDATE planting_sites SET organization_id = ?, name = ?, description = ?, boundary = ?,
			exclusion = ?, srid = ?, grid_origin_x = ?, grid_origin_y = ?, anchor_lon = ?,
			anchor_lat = ?, area_ha = ?, country_code = ?, time_zone = ?, current_history_id = ?,
			modified_time = ?
		WHERE id = ?`,
		int64(site.OrganizationID), site.Name, nullString(site.Description),
		encodeMultiPolygon(site.Boundary), encodeMultiPolygon(site.Exclusion), int32(geometry.Canonical),
		originX, originY, anchorLon, anchorLat, nullFloat(site.AreaHa), nullString(site.CountryCode),
		nullString(site.TimeZone), nullID(site.HistoryID), site.ModifiedTime, int64(site.ID))
}

// DeleteSite removes the site and everything hanging from it, history included.
func (t *duckdbTx) DeleteSite(ctx context.Context, id model.SiteID) error {
	if _, err := t.fetchSiteRow(ctx, id); err != nil {
		return err
	}
	statements := []string{
		`DELETE FROM monitoring_plot_histories WHERE planting_site_history_id IN
			(SELECT id FROM planting_site_histories WHERE planting_site_id = ?)`,
		`DELETE FROM planting_subzone_histories WHERE planting_zone_history_id IN
			(SELECT z.id FROM planting_zone_histories z
			 JOIN planting_site_histories s ON s.id = z.planting_site_history_id
			 WHERE s.planting_site_id = ?)`,
		`DELETE FROM planting_zone_histories WHERE planting_site_history_id IN
			(SELECT id FROM planting_site_histories WHERE planting_site_id = ?)`,
		`DELETE FROM planting_site_histories WHERE planting_site_id = ?`,
		`DELETE FROM planting_subzone_populations WHERE planting_site_id = ?`,
		`DELETE FROM planting_zone_populations WHERE planting_site_id = ?`,
		`DELETE FROM planting_site_populations WHERE planting_site_id = ?`,
		`DELETE FROM monitoring_plots WHERE planting_site_id = ?`,
		`DELETE FROM planting_subzones WHERE planting_site_id = ?`,
		`DELETE FROM planting_zones WHERE planting_site_id = ?`,
		`DELETE FROM planting_seasons WHERE planting_site_id = ?`,
		`DELETE FROM planting_sites WHERE id = ?`,
	}
	for _, stmt := range statements {
		if _, err := t.exec(ctx, "delete planting site", stmt, int64(id)); err != nil {
			return err
		}
	}
	return nil
}

func (t *duckdbTx) fetchSeasons(ctx context.Context, siteID model.SiteID) ([]model.PlantingSeason, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, start_date, end_date, is_active FROM planting_seasons
		WHERE planting_site_id = ? ORDER BY start_date`, int64(siteID))
	if err != nil {
		return nil, fmt.Errorf("failed to read planting seasons: %w", err)
	}
	defer rows.Close()

	var seasons []model.PlantingSeason
	for rows.Next() {
		var s model.PlantingSeason
		if err := rows.Scan(&s.ID, &s.StartDate, &s.EndDate, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan planting season: %w", err)
		}
		s.StartDate = model.Date(s.StartDate.Date())
		s.EndDate = model.Date(s.EndDate.Date())
		seasons = append(seasons, s)
	}
	return seasons, rows.Err()
}

func (t *duckdbTx) ReplaceSeasons(ctx context.Context, id model.SiteID, seasons []model.PlantingSeason) error {
	if _, err := t.fetchSiteRow(ctx, id); err != nil {
		return err
	}
	if _, err := t.exec(ctx, "replace planting seasons", `DELETE FROM planting_seasons WHERE planting_site_id = ?`, int64(id)); err != nil {
		return err
	}
	for _, s := range seasons {
		if s.ID != 0 {
			_, err := t.exec(ctx, "replace planting seasons", `
				INSERT INTO planting_seasons (id, planting_site_id, start_date, end_date, is_active)
				VALUES (?, ?, ?, ?, ?)`,
				int64(s.ID), int64(id), s.StartDate, s.EndDate, s.IsActive)
			if err != nil {
				return err
			}
			continue
		}
		_, err := t.exec(ctx, "replace planting seasons", `
			INSERT INTO planting_seasons (planting_site_id, start_date, end_date, is_active)
			VALUES (?, ?, ?, ?)`,
			int64(id), s.StartDate, s.EndDate, s.IsActive)
		if err != nil {
			return err
		}
	}
	return nil
}
