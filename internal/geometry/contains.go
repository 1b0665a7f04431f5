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

// containsEpsilon is the distance in meters within which a point counts as
// lying on a boundary.
const containsEpsilon = 1e-6

// ContainsBound reports whether the closed rectangle b lies inside mp. Points
// on the boundary of mp count as inside, so a plot sharing an edge with its
// zone is contained. This avoids an overlay operation for the common case of
// testing grid squares against a zone.
func ContainsBound(mp orb.MultiPolygon, b orb.Bound) bool {
	if len(mp) == 0 || !mp.Bound().Pad(containsEpsilon).Contains(b.Min) ||
		!mp.Bound().Pad(containsEpsilon).Contains(b.Max) {
		return false
	}

	corners := [5]orb.Point{
		b.Min,
		{b.Max.X(), b.Min.Y()},
		b.Max,
		{b.Min.X(), b.Max.Y()},
		b.Center(),
	}
	for _, c := range corners {
		if !CoversPoint(mp, c) {
			return false
		}
	}

	inner := orb.Bound{
		Min: orb.Point{b.Min.X() + containsEpsilon, b.Min.Y() + containsEpsilon},
		Max: orb.Point{b.Max.X() - containsEpsilon, b.Max.Y() - containsEpsilon},
	}
	for _, poly := range mp {
		for _, ring := range poly {
			for i := 1; i < len(ring); i++ {
				if segmentHitsBound(ring[i-1], ring[i], inner) {
					return false
				}
			}
		}
	}
	return true
}

// CoversPoint reports whether p lies in the interior or on the boundary of mp.
func CoversPoint(mp orb.MultiPolygon, p orb.Point) bool {
	if planar.MultiPolygonContains(mp, p) {
		return true
	}
	return onBoundary(mp, p)
}

func onBoundary(mp orb.MultiPolygon, p orb.Point) bool {
	for _, poly := range mp {
		for _, ring := range poly {
			for i := 1; i < len(ring); i++ {
				if pointSegmentDistance(p, ring[i-1], ring[i]) <= containsEpsilon {
					return true
				}
			}
		}
	}
	return false
}

func pointSegmentDistance(p, a, b orb.Point) float64 {
	dx, dy := b.X()-a.X(), b.Y()-a.Y()
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X()-a.X(), p.Y()-a.Y())
	}
	t := ((p.X()-a.X())*dx + (p.Y()-a.Y())*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X()-(a.X()+t*dx), p.Y()-(a.Y()+t*dy))
}

// segmentHitsBound clips segment ab against the closed rectangle b
// (Liang-Barsky) and reports whether any part of it remains.
func segmentHitsBound(a, c orb.Point, b orb.Bound) bool {
	if b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() {
		return false
	}
	dx, dy := c.X()-a.X(), c.Y()-a.Y()
	t0, t1 := 0.0, 1.0

	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return false
			}
			if r < t1 {
				t1 = r
			}
		}
		return true
	}

	return clip(-dx, a.X()-b.Min.X()) &&
		clip(dx, b.Max.X()-a.X()) &&
		clip(-dy, a.Y()-b.Min.Y()) &&
		clip(dy, b.Max.Y()-a.Y()) &&
		t0 <= t1
}

// IntersectsBound reports whether mp and the rectangle b share interior area.
func IntersectsBound(mp orb.MultiPolygon, b orb.Bound) bool {
	if len(mp) == 0 || !BoundsOverlap(mp.Bound(), b) {
		return false
	}
	if planar.MultiPolygonContains(mp, b.Center()) {
		return true
	}
	inner := orb.Bound{
		Min: orb.Point{b.Min.X() + containsEpsilon, b.Min.Y() + containsEpsilon},
		Max: orb.Point{b.Max.X() - containsEpsilon, b.Max.Y() - containsEpsilon},
	}
	for _, poly := range mp {
		for _, ring := range poly {
			for i := 1; i < len(ring); i++ {
				if segmentHitsBound(ring[i-1], ring[i], inner) {
					return true
				}
			}
		}
	}
	return false
}

// Covers reports whether outer covers inner, allowing up to tolerance square
// meters of inner to fall outside.
func Covers(outer, inner orb.MultiPolygon, tolerance float64) (bool, error) {
	if len(inner) == 0 {
		return true, nil
	}
	if len(outer) == 0 {
		return AreaSquareMeters(inner) <= tolerance, nil
	}
	outside, err := Difference(inner, outer)
	if err != nil {
		return false, err
	}
	return AreaSquareMeters(outside) <= tolerance, nil
}

// OverlapArea returns the area shared by a and b in square meters.
func OverlapArea(a, b orb.MultiPolygon) (float64, error) {
	if len(a) == 0 || len(b) == 0 || !a.Bound().Intersects(b.Bound()) {
		return 0, nil
	}
	shared, err := Intersection(a, b)
	if err != nil {
		return 0, err
	}
	return AreaSquareMeters(shared), nil
}
