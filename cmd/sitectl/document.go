// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/sites"
)

// siteDocument is the JSON form of a site accepted by create and edit. Edit
// reads only the layout fields.
type siteDocument struct {
	OrganizationID model.OrganizationID `json:"organization_id"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	TimeZone       string               `json:"time_zone"`
	Seasons        []seasonDocument     `json:"planting_seasons"`

	SRID       int               `json:"srid"`
	Boundary   *geojson.Geometry `json:"boundary"`
	Exclusion  *geojson.Geometry `json:"exclusion"`
	GridOrigin *geojson.Geometry `json:"grid_origin"`
	Zones      []zoneDocument    `json:"zones"`
}

type zoneDocument struct {
	Name                  string            `json:"name"`
	Boundary              *geojson.Geometry `json:"boundary"`
	TargetPlantingDensity float64           `json:"target_planting_density"`
	ErrorMargin           float64           `json:"error_margin"`
	StudentsT             float64           `json:"students_t"`
	Variance              float64           `json:"variance"`
	NumPermanentClusters  int               `json:"num_permanent_clusters"`
	NumTemporaryPlots     int               `json:"num_temporary_plots"`
	Subzones              []subzoneDocument `json:"subzones"`
}

type subzoneDocument struct {
	Name     string            `json:"name"`
	Boundary *geojson.Geometry `json:"boundary"`
}

type seasonDocument struct {
	ID        model.SeasonID `json:"id"`
	StartDate string         `json:"start_date"` // YYYY-MM-DD
	EndDate   string         `json:"end_date"`
}

func decodeSiteDocument(r io.Reader) (*siteDocument, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc siteDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode site document: %w", err)
	}
	return &doc, nil
}

func (d *siteDocument) createRequest() (sites.CreateSiteRequest, error) {
	layout, err := d.layout()
	if err != nil {
		return sites.CreateSiteRequest{}, err
	}
	seasons := make([]sites.SeasonInput, 0, len(d.Seasons))
	for i, s := range d.Seasons {
		start, err := time.Parse(time.DateOnly, s.StartDate)
		if err != nil {
			return sites.CreateSiteRequest{}, fmt.Errorf("planting_seasons[%d].start_date: %w", i, err)
		}
		end, err := time.Parse(time.DateOnly, s.EndDate)
		if err != nil {
			return sites.CreateSiteRequest{}, fmt.Errorf("planting_seasons[%d].end_date: %w", i, err)
		}
		seasons = append(seasons, sites.SeasonInput{ID: s.ID, StartDate: start, EndDate: end})
	}
	return sites.CreateSiteRequest{
		OrganizationID: d.OrganizationID,
		Name:           d.Name,
		Description:    d.Description,
		TimeZone:       d.TimeZone,
		Seasons:        seasons,
		Layout:         layout,
	}, nil
}

func (d *siteDocument) layout() (sites.SiteLayout, error) {
	l := sites.SiteLayout{SRID: geometry.SRID(d.SRID)}
	var err error
	if l.Boundary, err = polygons("boundary", d.Boundary); err != nil {
		return l, err
	}
	if l.Exclusion, err = polygons("exclusion", d.Exclusion); err != nil {
		return l, err
	}
	if d.GridOrigin != nil {
		p, ok := d.GridOrigin.Geometry().(orb.Point)
		if !ok {
			return l, fmt.Errorf("grid_origin: expected a Point, got %s", d.GridOrigin.Type)
		}
		l.GridOrigin = &p
	}

	for i, zd := range d.Zones {
		z := sites.ZoneLayout{
			Name: zd.Name,
			ZoneSettings: sites.ZoneSettings{
				TargetPlantingDensity: zd.TargetPlantingDensity,
				ErrorMargin:           zd.ErrorMargin,
				StudentsT:             zd.StudentsT,
				Variance:              zd.Variance,
				NumPermanentClusters:  zd.NumPermanentClusters,
				NumTemporaryPlots:     zd.NumTemporaryPlots,
			},
		}
		if z.Boundary, err = polygons(fmt.Sprintf("zones[%d].boundary", i), zd.Boundary); err != nil {
			return l, err
		}
		for j, sd := range zd.Subzones {
			sz := sites.SubzoneLayout{Name: sd.Name}
			if sz.Boundary, err = polygons(fmt.Sprintf("zones[%d].subzones[%d].boundary", i, j), sd.Boundary); err != nil {
				return l, err
			}
			z.Subzones = append(z.Subzones, sz)
		}
		l.Zones = append(l.Zones, z)
	}
	return l, nil
}

// polygons accepts a GeoJSON Polygon or MultiPolygon. A missing geometry
// is nil.
func polygons(field string, g *geojson.Geometry) (orb.MultiPolygon, error) {
	if g == nil {
		return nil, nil
	}
	switch geom := g.Geometry().(type) {
	case orb.Polygon:
		return orb.MultiPolygon{geom}, nil
	case orb.MultiPolygon:
		return geom, nil
	default:
		return nil, fmt.Errorf("%s: expected a Polygon or MultiPolygon, got %s", field, g.Type)
	}
}
