// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// gridEpsilon absorbs float noise when snapping coordinates onto the lattice.
const gridEpsilon = 1e-6

// Square returns the axis-aligned square with south-west corner sw.
func Square(sw orb.Point, size float64) orb.Bound {
	return orb.Bound{Min: sw, Max: orb.Point{sw.X() + size, sw.Y() + size}}
}

// SquarePolygon returns Square as a one-polygon multipolygon.
func SquarePolygon(sw orb.Point, size float64) orb.MultiPolygon {
	return orb.MultiPolygon{Square(sw, size).ToPolygon()}
}

// BoundToMultiPolygon converts a bound to the boundary type.
func BoundToMultiPolygon(b orb.Bound) orb.MultiPolygon {
	return orb.MultiPolygon{b.ToPolygon()}
}

// AlignToGrid returns the largest square whose corners lie on the lattice
// origin + (i*unit, j*unit) and that fits inside target. A target corner that
// is already on the lattice is preserved; otherwise the corner moves north-east
// to the nearest lattice point. The second result is false when no square of
// at least one unit fits.
func AlignToGrid(origin orb.Point, target orb.Bound, unit float64) (orb.Bound, bool) {
	if unit <= 0 {
		return orb.Bound{}, false
	}

	cx := origin.X() + math.Ceil((target.Min.X()-origin.X())/unit-gridEpsilon)*unit
	cy := origin.Y() + math.Ceil((target.Min.Y()-origin.Y())/unit-gridEpsilon)*unit

	edge := math.Min(target.Max.X()-cx, target.Max.Y()-cy)
	edge = math.Floor(edge/unit+gridEpsilon) * unit
	if edge < unit {
		return orb.Bound{}, false
	}

	return Square(orb.Point{cx, cy}, edge), true
}

// IsGridAligned reports whether b is a square of edge size whose corners lie
// on the lattice anchored at origin.
func IsGridAligned(origin orb.Point, b orb.Bound, size float64) bool {
	aligned, ok := AlignToGrid(origin, b, size)
	if !ok {
		return false
	}
	return nearlyEqual(aligned.Min, b.Min) && nearlyEqual(aligned.Max, b.Max) &&
		math.Abs((b.Max.X()-b.Min.X())-size) < gridEpsilon
}

// GridIndex returns the lattice indices of the cell whose south-west corner
// is nearest to p.
func GridIndex(origin orb.Point, p orb.Point, unit float64) (int, int) {
	i := int(math.Round((p.X() - origin.X()) / unit))
	j := int(math.Round((p.Y() - origin.Y()) / unit))
	return i, j
}

// GridPoint returns the lattice point with indices (i, j).
func GridPoint(origin orb.Point, i, j int, unit float64) orb.Point {
	return orb.Point{origin.X() + float64(i)*unit, origin.Y() + float64(j)*unit}
}

// GridSquares enumerates every square of edge size whose south-west corner is
// a lattice point (spacing step) and which intersects region. Squares are
// returned south to north, then west to east.
func GridSquares(origin orb.Point, region orb.Bound, step, size float64) []orb.Bound {
	if step <= 0 || size <= 0 || region.IsEmpty() {
		return nil
	}

	iMin := int(math.Floor((region.Min.X()-size-origin.X())/step+gridEpsilon)) + 1
	jMin := int(math.Floor((region.Min.Y()-size-origin.Y())/step+gridEpsilon)) + 1
	iMax := int(math.Ceil((region.Max.X()-origin.X())/step-gridEpsilon)) - 1
	jMax := int(math.Ceil((region.Max.Y()-origin.Y())/step-gridEpsilon)) - 1

	var out []orb.Bound
	for j := jMin; j <= jMax; j++ {
		for i := iMin; i <= iMax; i++ {
			out = append(out, Square(GridPoint(origin, i, j, step), size))
		}
	}
	return out
}

// Quadrants splits a square into four equal squares, numbered 1 (south-west)
// 2 (south-east) 3 (north-east) and 4 (north-west).
func Quadrants(b orb.Bound) [4]orb.Bound {
	half := (b.Max.X() - b.Min.X()) / 2
	x, y := b.Min.X(), b.Min.Y()
	return [4]orb.Bound{
		Square(orb.Point{x, y}, half),
		Square(orb.Point{x + half, y}, half),
		Square(orb.Point{x + half, y + half}, half),
		Square(orb.Point{x, y + half}, half),
	}
}

// BoundsOverlap reports whether two bounds share interior area, ignoring
// contact along edges.
func BoundsOverlap(a, b orb.Bound) bool {
	return a.Min.X() < b.Max.X()-gridEpsilon && b.Min.X() < a.Max.X()-gridEpsilon &&
		a.Min.Y() < b.Max.Y()-gridEpsilon && b.Min.Y() < a.Max.Y()-gridEpsilon
}

// SameSquare reports whether two bounds are equal within grid tolerance.
func SameSquare(a, b orb.Bound) bool {
	return nearlyEqual(a.Min, b.Min) && nearlyEqual(a.Max, b.Max)
}

// SortBounds orders bounds south to north, then west to east.
func SortBounds(bounds []orb.Bound) {
	sort.SliceStable(bounds, func(i, j int) bool {
		if math.Abs(bounds[i].Min.Y()-bounds[j].Min.Y()) > gridEpsilon {
			return bounds[i].Min.Y() < bounds[j].Min.Y()
		}
		return bounds[i].Min.X() < bounds[j].Min.X()
	})
}

func nearlyEqual(a, b orb.Point) bool {
	return math.Abs(a.X()-b.X()) < gridEpsilon && math.Abs(a.Y()-b.Y()) < gridEpsilon
}
