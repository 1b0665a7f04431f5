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
	"github.com/paulmach/orb/encoding/wkt"
	sf "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidGeometry is matched by every *InvalidGeometryError.
var ErrInvalidGeometry = errors.New("invalid geometry")

// InvalidGeometryError describes why a boundary was rejected.
type InvalidGeometryError struct {
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	return "invalid geometry: " + e.Reason
}

// Is allows errors.Is(err, ErrInvalidGeometry).
func (e *InvalidGeometryError) Is(target error) bool {
	return target == ErrInvalidGeometry
}

// Validate checks that mp is a non-empty, closed, non-self-intersecting
// multipolygon. Ring-level checks run first so the error names the problem;
// the remaining OGC rules (holes inside shells, disjoint polygons) are left
// to simplefeatures.
func Validate(mp orb.MultiPolygon) error {
	if len(mp) == 0 {
		return &InvalidGeometryError{Reason: "geometry is empty"}
	}
	for pi, poly := range mp {
		if len(poly) == 0 {
			return &InvalidGeometryError{Reason: fmt.Sprintf("polygon %d has no rings", pi)}
		}
		for ri, ring := range poly {
			if err := validateRing(ring); err != nil {
				return &InvalidGeometryError{Reason: fmt.Sprintf("polygon %d ring %d: %s", pi, ri, err)}
			}
		}
	}
	if AreaSquareMeters(mp) == 0 {
		return &InvalidGeometryError{Reason: "geometry has zero area"}
	}
	if _, err := sf.UnmarshalWKT(wkt.MarshalString(mp)); err != nil {
		return &InvalidGeometryError{Reason: err.Error()}
	}
	return nil
}

func validateRing(ring orb.Ring) error {
	if len(ring) < 4 {
		return errors.New("ring has fewer than 4 points")
	}
	for _, p := range ring {
		if math.IsNaN(p.X()) || math.IsNaN(p.Y()) || math.IsInf(p.X(), 0) || math.IsInf(p.Y(), 0) {
			return errors.New("ring has a non-finite coordinate")
		}
	}
	if !ring.Closed() {
		return errors.New("ring is not closed")
	}
	if selfIntersects(ring) {
		return errors.New("ring is self-intersecting")
	}
	return nil
}

// selfIntersects checks every pair of non-adjacent ring edges.
func selfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsIntersect(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := orientation(p3, p4, p1)
	d2 := orientation(p3, p4, p2)
	d3 := orientation(p1, p2, p3)
	d4 := orientation(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(p3, p4, p1)) ||
		(d2 == 0 && onSegment(p3, p4, p2)) ||
		(d3 == 0 && onSegment(p1, p2, p3)) ||
		(d4 == 0 && onSegment(p1, p2, p4))
}

func orientation(a, b, c orb.Point) float64 {
	return (b.X()-a.X())*(c.Y()-a.Y()) - (b.Y()-a.Y())*(c.X()-a.X())
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a.X(), b.X()) <= p.X() && p.X() <= math.Max(a.X(), b.X()) &&
		math.Min(a.Y(), b.Y()) <= p.Y() && p.Y() <= math.Max(a.Y(), b.Y())
}
