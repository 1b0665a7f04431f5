// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// SRID identifies a coordinate reference system.
type SRID int

const (
	// SRIDLocal is site-local planar meters, the canonical CRS.
	SRIDLocal SRID = 0
	// SRIDWGS84 is longitude/latitude on the WGS84 datum (EPSG:4326).
	SRIDWGS84 SRID = 4326
	// SRIDWebMercator is spherical Web Mercator (EPSG:3857).
	SRIDWebMercator SRID = 3857

	// Canonical is the CRS every stored boundary is normalized to on read.
	Canonical = SRIDLocal
)

// earthRadius matches the sphere used by Web Mercator.
const earthRadius = 6378137.0

// ErrFrameRequired is returned when a conversion involves site-local meters
// but no frame was supplied.
var ErrFrameRequired = errors.New("conversion to or from site-local coordinates requires a frame")

// ErrUnsupportedSRID is returned for coordinate systems Reproject cannot handle.
var ErrUnsupportedSRID = errors.New("unsupported SRID")

// Valid reports whether s is one of the supported coordinate systems.
func (s SRID) Valid() bool {
	switch s {
	case SRIDLocal, SRIDWGS84, SRIDWebMercator:
		return true
	}
	return false
}

// String returns the EPSG-style name of the SRID.
func (s SRID) String() string {
	switch s {
	case SRIDLocal:
		return "LOCAL"
	case SRIDWGS84:
		return "EPSG:4326"
	case SRIDWebMercator:
		return "EPSG:3857"
	default:
		return fmt.Sprintf("SRID:%d", int(s))
	}
}

// Frame anchors site-local planar meters to the globe. The anchor is a WGS84
// longitude/latitude that maps to the local origin (0, 0).
type Frame struct {
	Anchor orb.Point
}

// ToLocal projects a WGS84 point into the frame's planar meters.
func (f Frame) ToLocal(p orb.Point) orb.Point {
	lat0 := f.Anchor.Lat() * math.Pi / 180
	x := (p.Lon() - f.Anchor.Lon()) * math.Pi / 180 * earthRadius * math.Cos(lat0)
	y := (p.Lat() - f.Anchor.Lat()) * math.Pi / 180 * earthRadius
	return orb.Point{x, y}
}

// ToWGS84 is the inverse of ToLocal.
func (f Frame) ToWGS84(p orb.Point) orb.Point {
	lat0 := f.Anchor.Lat() * math.Pi / 180
	lon := f.Anchor.Lon() + p.X()/(earthRadius*math.Cos(lat0))*180/math.Pi
	lat := f.Anchor.Lat() + p.Y()/earthRadius*180/math.Pi
	return orb.Point{lon, lat}
}

// Reproject converts g from one CRS to another, pivoting through WGS84. The
// input is not modified. A frame is required whenever SRIDLocal is involved.
func Reproject(g orb.Geometry, from, to SRID, frame *Frame) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	if !from.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSRID, from)
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSRID, to)
	}

	out := orb.Clone(g)
	if from == to {
		return out, nil
	}

	switch from {
	case SRIDWebMercator:
		out = project.Geometry(out, project.Mercator.ToWGS84)
	case SRIDLocal:
		if frame == nil {
			return nil, ErrFrameRequired
		}
		out = project.Geometry(out, frame.ToWGS84)
	}

	switch to {
	case SRIDWebMercator:
		out = project.Geometry(out, project.WGS84.ToMercator)
	case SRIDLocal:
		if frame == nil {
			return nil, ErrFrameRequired
		}
		out = project.Geometry(out, frame.ToLocal)
	}

	return out, nil
}

// ReprojectMultiPolygon is Reproject for the boundary type used throughout
// the site model.
func ReprojectMultiPolygon(mp orb.MultiPolygon, from, to SRID, frame *Frame) (orb.MultiPolygon, error) {
	if mp == nil {
		return nil, nil
	}
	g, err := Reproject(mp, from, to, frame)
	if err != nil {
		return nil, err
	}
	return Polygons(g), nil
}

// ReprojectPoint is Reproject for a single point.
func ReprojectPoint(p orb.Point, from, to SRID, frame *Frame) (orb.Point, error) {
	g, err := Reproject(p, from, to, frame)
	if err != nil {
		return orb.Point{}, err
	}
	pt, ok := g.(orb.Point)
	if !ok {
		return orb.Point{}, fmt.Errorf("reprojected point has type %s", g.GeoJSONType())
	}
	return pt, nil
}
