// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package sites

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
)

// SiteLayout is the desired geometry of a site. Coordinates are in SRID and
// are converted to the site's local meters before the edit is calculated.
// A layout without zones describes a simple site.
type SiteLayout struct {
	SRID       geometry.SRID    `json:"srid" validate:"srid"`
	Boundary   orb.MultiPolygon `json:"boundary,omitempty"` // Defaults to the union of zone boundaries
	Exclusion  orb.MultiPolygon `json:"exclusion,omitempty"`
	GridOrigin *orb.Point       `json:"grid_origin,omitempty"` // Ignored once the site has one
	Zones      []ZoneLayout     `json:"zones,omitempty" validate:"unique=Name,dive"`
}

// ZoneLayout is one desired zone. Settings only apply to zones the layout
// creates; existing zones keep theirs (see UpdateZoneSettings).
type ZoneLayout struct {
	Name     string           `json:"name" validate:"required,max=100,trimmed"`
	Boundary orb.MultiPolygon `json:"boundary"`
	Subzones []SubzoneLayout  `json:"subzones" validate:"unique=Name,dive"`
	ZoneSettings
}

// SubzoneLayout is one desired subzone.
type SubzoneLayout struct {
	Name     string           `json:"name" validate:"required,max=100,trimmed"`
	Boundary orb.MultiPolygon `json:"boundary"`
}

// errNoAnchor is wrapped when geographic coordinates are submitted for a
// site that was created in local meters.
var errNoAnchor = errors.New("site has no geographic anchor; submit site-local coordinates (srid 0)")

// anchor returns the WGS84 point that becomes local (0, 0) for a new site:
// the south-west corner of every geometry in the layout. Layouts in local
// meters, or without geometry, have no anchor.
func (l *SiteLayout) anchor() (*orb.Point, error) {
	if l.SRID == geometry.SRIDLocal {
		return nil, nil
	}

	var (
		bound orb.Bound
		found bool
	)
	extend := func(mp orb.MultiPolygon) {
		if len(mp) == 0 {
			return
		}
		if !found {
			bound, found = mp.Bound(), true
			return
		}
		bound = bound.Union(mp.Bound())
	}
	extend(l.Boundary)
	for i := range l.Zones {
		extend(l.Zones[i].Boundary)
	}
	if !found {
		return nil, nil
	}

	sw, err := geometry.ReprojectPoint(bound.Min, l.SRID, geometry.SRIDWGS84, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to compute site anchor: %w", err)
	}
	return &sw, nil
}

// toSite converts the layout into a desired site tree in local meters.
func (l *SiteLayout) toSite(name string, frame *geometry.Frame) (*model.Site, error) {
	conv := func(what string, mp orb.MultiPolygon) (orb.MultiPolygon, error) {
		out, err := geometry.ReprojectMultiPolygon(mp, l.SRID, geometry.Canonical, frame)
		if errors.Is(err, geometry.ErrFrameRequired) {
			return nil, fmt.Errorf("%s: %w", what, errNoAnchor)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", what, err)
		}
		return out, nil
	}

	site := &model.Site{Name: name}
	var err error
	if site.Boundary, err = conv("site boundary", l.Boundary); err != nil {
		return nil, err
	}
	if site.Exclusion, err = conv("site exclusion", l.Exclusion); err != nil {
		return nil, err
	}
	if l.GridOrigin != nil {
		origin, err := geometry.ReprojectPoint(*l.GridOrigin, l.SRID, geometry.Canonical, frame)
		if err != nil {
			return nil, fmt.Errorf("grid origin: %w", err)
		}
		site.GridOrigin = &origin
	}

	site.Zones = make([]model.Zone, len(l.Zones))
	parts := make([]orb.MultiPolygon, len(l.Zones))
	for i := range l.Zones {
		zl := &l.Zones[i]
		z := model.Zone{Name: zl.Name}
		zl.ZoneSettings.applyTo(&z)
		if z.Boundary, err = conv(fmt.Sprintf("zone %q", zl.Name), zl.Boundary); err != nil {
			return nil, err
		}
		for _, sl := range zl.Subzones {
			sz := model.Subzone{Name: sl.Name, FullName: model.FullSubzoneName(zl.Name, sl.Name)}
			if sz.Boundary, err = conv(fmt.Sprintf("subzone %q", sz.FullName), sl.Boundary); err != nil {
				return nil, err
			}
			z.Subzones = append(z.Subzones, sz)
		}
		site.Zones[i] = z
		parts[i] = z.Boundary
	}

	if len(site.Boundary) == 0 && len(parts) > 0 {
		if site.Boundary, err = geometry.UnionAll(parts...); err != nil {
			return nil, fmt.Errorf("failed to union zone boundaries: %w", err)
		}
	}
	return site, nil
}
