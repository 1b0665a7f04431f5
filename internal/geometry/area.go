// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// SquareMetersPerHectare converts planar area to hectares.
	SquareMetersPerHectare = 10000.0

	// MinReportedHectares is the smallest area reported by AreaHectares.
	// Anything smaller is a sliver left over from overlay arithmetic.
	MinReportedHectares = 0.05

	// DefaultToleranceSquareMeters is the overlap/containment slack used when
	// comparing boundaries that were produced by separate overlay operations.
	DefaultToleranceSquareMeters = 1.0

	// DefaultPlotSizeMeters is the edge length of a monitoring plot.
	DefaultPlotSizeMeters = 30
)

// AreaSquareMeters returns the planar area of g in canonical units.
func AreaSquareMeters(g orb.Geometry) float64 {
	if g == nil {
		return 0
	}
	return planar.Area(g)
}

// AreaHectares returns the area of g in hectares rounded to one decimal
// place, or nil when the area is below MinReportedHectares.
func AreaHectares(g orb.Geometry) *float64 {
	ha := AreaSquareMeters(g) / SquareMetersPerHectare
	if ha < MinReportedHectares {
		return nil
	}
	rounded := math.Round(ha*10) / 10
	return &rounded
}

// Hectares converts square meters to hectares without rounding.
func Hectares(squareMeters float64) float64 {
	return squareMeters / SquareMetersPerHectare
}

// Centroid returns the area-weighted centroid of a multipolygon.
func Centroid(mp orb.MultiPolygon) orb.Point {
	if len(mp) == 0 {
		return orb.Point{}
	}
	c, _ := planar.CentroidArea(mp)
	return c
}

// IsEmpty reports whether mp has no polygon with area.
func IsEmpty(mp orb.MultiPolygon) bool {
	return len(mp) == 0 || AreaSquareMeters(mp) == 0
}
