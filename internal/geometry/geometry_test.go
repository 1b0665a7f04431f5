// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func rect(x0, y0, x1, y1 float64) orb.MultiPolygon {
	return BoundToMultiPolygon(orb.Bound{Min: orb.Point{x0, y0}, Max: orb.Point{x1, y1}})
}

func TestAreaHectares(t *testing.T) {
	tests := []struct {
		name string
		geom orb.MultiPolygon
		want *float64
	}{
		{"one hectare", rect(0, 0, 100, 100), ptr(1.0)},
		{"rounds to one decimal", rect(0, 0, 150, 100), ptr(1.5)},
		{"rounds half up", rect(0, 0, 100, 126), ptr(1.3)},
		{"below threshold", rect(0, 0, 20, 20), nil},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AreaHectares(tt.geom)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("AreaHectares() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("AreaHectares() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

func ptr(v float64) *float64 { return &v }

func TestAlignToGrid(t *testing.T) {
	origin := orb.Point{0, 0}

	t.Run("aligned corner is preserved", func(t *testing.T) {
		target := Square(orb.Point{60, 90}, 30)
		got, ok := AlignToGrid(origin, target, 30)
		if !ok {
			t.Fatal("expected a square")
		}
		if !SameSquare(got, target) {
			t.Errorf("AlignToGrid() = %v, want %v", got, target)
		}
	})

	t.Run("unaligned corner floats inside", func(t *testing.T) {
		target := Square(orb.Point{10, 10}, 70)
		got, ok := AlignToGrid(origin, target, 30)
		if !ok {
			t.Fatal("expected a square")
		}
		want := Square(orb.Point{30, 30}, 30)
		if !SameSquare(got, want) {
			t.Errorf("AlignToGrid() = %v, want %v", got, want)
		}
		if !target.Contains(got.Min) || !target.Contains(got.Max) {
			t.Errorf("aligned square %v escapes target %v", got, target)
		}
	})

	t.Run("offset origin", func(t *testing.T) {
		o := orb.Point{5, 7}
		target := Square(orb.Point{35, 37}, 30)
		got, ok := AlignToGrid(o, target, 30)
		if !ok || !SameSquare(got, target) {
			t.Errorf("AlignToGrid() = %v, %v, want %v", got, ok, target)
		}
	})

	t.Run("too small", func(t *testing.T) {
		if _, ok := AlignToGrid(origin, Square(orb.Point{1, 1}, 30), 30); ok {
			t.Error("expected no aligned square")
		}
	})
}

func TestIsGridAligned(t *testing.T) {
	origin := orb.Point{0, 0}
	if !IsGridAligned(origin, Square(orb.Point{30, 60}, 30), 30) {
		t.Error("lattice square reported unaligned")
	}
	if IsGridAligned(origin, Square(orb.Point{31, 60}, 30), 30) {
		t.Error("shifted square reported aligned")
	}
	if IsGridAligned(origin, Square(orb.Point{30, 60}, 60), 30) {
		t.Error("oversized square reported aligned")
	}
}

func TestGridSquares(t *testing.T) {
	region := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{90, 60}}
	squares := GridSquares(orb.Point{0, 0}, region, 30, 60)

	// Corners from x in {-30,0,30,60} and y in {-30,0,30}.
	if len(squares) != 12 {
		t.Fatalf("got %d squares, want 12", len(squares))
	}
	for _, sq := range squares {
		if !BoundsOverlap(sq, region) {
			t.Errorf("square %v does not overlap region", sq)
		}
	}
	if squares[0].Min.Y() > squares[len(squares)-1].Min.Y() {
		t.Error("squares not ordered south to north")
	}
}

func TestQuadrants(t *testing.T) {
	q := Quadrants(Square(orb.Point{0, 0}, 60))
	want := []orb.Point{{0, 0}, {30, 0}, {30, 30}, {0, 30}}
	for i, w := range want {
		if !nearlyEqual(q[i].Min, w) {
			t.Errorf("quadrant %d corner = %v, want %v", i+1, q[i].Min, w)
		}
	}
}

func TestContainsBound(t *testing.T) {
	lShape := orb.MultiPolygon{{{
		{0, 0}, {90, 0}, {90, 30}, {30, 30}, {30, 90}, {0, 90}, {0, 0},
	}}}
	withHole := orb.MultiPolygon{{
		{{0, 0}, {90, 0}, {90, 90}, {0, 90}, {0, 0}},
		{{30, 30}, {60, 30}, {60, 60}, {30, 60}, {30, 30}},
	}}

	tests := []struct {
		name string
		mp   orb.MultiPolygon
		b    orb.Bound
		want bool
	}{
		{"inside sharing edges", lShape, Square(orb.Point{0, 0}, 30), true},
		{"in the arm", lShape, Square(orb.Point{60, 0}, 30), true},
		{"in the notch", lShape, Square(orb.Point{30, 30}, 30), false},
		{"straddling", lShape, Square(orb.Point{15, 15}, 30), false},
		{"filling the hole", withHole, Square(orb.Point{30, 30}, 30), false},
		{"around the hole", withHole, Square(orb.Point{0, 0}, 90), false},
		{"beside the hole", withHole, Square(orb.Point{0, 0}, 30), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsBound(tt.mp, tt.b); got != tt.want {
				t.Errorf("ContainsBound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntersectsBound(t *testing.T) {
	zone := rect(0, 0, 60, 60)
	if !IntersectsBound(zone, Square(orb.Point{30, 30}, 60)) {
		t.Error("overlapping square not detected")
	}
	if IntersectsBound(zone, Square(orb.Point{60, 0}, 30)) {
		t.Error("edge-adjacent square reported as intersecting")
	}
	if !IntersectsBound(rect(10, 10, 20, 20), Square(orb.Point{0, 0}, 30)) {
		t.Error("geometry inside square not detected")
	}
}

func TestOverlayAreaConservation(t *testing.T) {
	a := rect(0, 0, 100, 100)
	b := rect(50, 50, 150, 150)

	union, err := Union(a, b)
	if err != nil {
		t.Fatalf("Union() error = %v", err)
	}
	inter, err := Intersection(a, b)
	if err != nil {
		t.Fatalf("Intersection() error = %v", err)
	}
	diff, err := Difference(a, b)
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}

	if got := AreaSquareMeters(inter); math.Abs(got-2500) > 1e-6 {
		t.Errorf("intersection area = %v, want 2500", got)
	}
	if got := AreaSquareMeters(diff); math.Abs(got-7500) > 1e-6 {
		t.Errorf("difference area = %v, want 7500", got)
	}
	// area(a) + area(b) = area(a ∪ b) + area(a ∩ b)
	lhs := AreaSquareMeters(a) + AreaSquareMeters(b)
	rhs := AreaSquareMeters(union) + AreaSquareMeters(inter)
	if math.Abs(lhs-rhs) > 1e-6 {
		t.Errorf("area not conserved: %v != %v", lhs, rhs)
	}
}

func TestOverlayDisjoint(t *testing.T) {
	a := rect(0, 0, 10, 10)
	b := rect(20, 20, 30, 30)

	inter, err := Intersection(a, b)
	if err != nil {
		t.Fatalf("Intersection() error = %v", err)
	}
	if len(inter) != 0 {
		t.Errorf("Intersection() = %v, want empty", inter)
	}
	diff, err := Difference(a, b)
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}
	if AreaSquareMeters(diff) != 100 {
		t.Errorf("Difference() area = %v, want 100", AreaSquareMeters(diff))
	}
}

func TestCovers(t *testing.T) {
	outer := rect(0, 0, 100, 100)

	ok, err := Covers(outer, rect(10, 10, 90, 90), DefaultToleranceSquareMeters)
	if err != nil || !ok {
		t.Errorf("Covers(inside) = %v, %v", ok, err)
	}
	ok, err = Covers(outer, rect(50, 50, 150, 100), DefaultToleranceSquareMeters)
	if err != nil || ok {
		t.Errorf("Covers(outside) = %v, %v", ok, err)
	}
	// A 0.5 m^2 sliver is within tolerance.
	ok, err = Covers(outer, rect(0, 0, 100.005, 100), DefaultToleranceSquareMeters)
	if err != nil || !ok {
		t.Errorf("Covers(sliver) = %v, %v", ok, err)
	}
}

func TestValidate(t *testing.T) {
	bowtie := orb.MultiPolygon{{{{0, 0}, {10, 10}, {10, 0}, {0, 10}, {0, 0}}}}
	open := orb.MultiPolygon{{{{0, 0}, {10, 0}, {10, 10}, {0, 10}}}}

	tests := []struct {
		name    string
		mp      orb.MultiPolygon
		wantErr bool
	}{
		{"valid square", rect(0, 0, 10, 10), false},
		{"empty", nil, true},
		{"self-intersecting", bowtie, true},
		{"unclosed ring", open, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.mp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("error %v does not match ErrInvalidGeometry", err)
			}
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {
	frame := Frame{Anchor: orb.Point{-122.4, 37.7}}
	p := orb.Point{-122.39, 37.71}

	local := frame.ToLocal(p)
	back := frame.ToWGS84(local)
	if math.Abs(back.Lon()-p.Lon()) > 1e-9 || math.Abs(back.Lat()-p.Lat()) > 1e-9 {
		t.Errorf("round trip = %v, want %v", back, p)
	}
	// 0.01 degrees of latitude is about 1113 m.
	if math.Abs(local.Y()-1113.19) > 1 {
		t.Errorf("local y = %v, want about 1113", local.Y())
	}
}

func TestReproject(t *testing.T) {
	frame := Frame{Anchor: orb.Point{10, 50}}
	square := rect(0, 0, 100, 100)

	wgs, err := ReprojectMultiPolygon(square, SRIDLocal, SRIDWGS84, &frame)
	if err != nil {
		t.Fatalf("to WGS84: %v", err)
	}
	merc, err := ReprojectMultiPolygon(wgs, SRIDWGS84, SRIDWebMercator, nil)
	if err != nil {
		t.Fatalf("to Mercator: %v", err)
	}
	back, err := ReprojectMultiPolygon(merc, SRIDWebMercator, SRIDLocal, &frame)
	if err != nil {
		t.Fatalf("to local: %v", err)
	}
	if got := AreaSquareMeters(back); math.Abs(got-10000) > 0.01 {
		t.Errorf("round trip area = %v, want 10000", got)
	}
	if AreaSquareMeters(square) != 10000 {
		t.Error("input was modified")
	}

	if _, err := Reproject(square, SRIDLocal, SRIDWGS84, nil); !errors.Is(err, ErrFrameRequired) {
		t.Errorf("missing frame error = %v", err)
	}
	if _, err := Reproject(square, SRID(27700), SRIDWGS84, nil); !errors.Is(err, ErrUnsupportedSRID) {
		t.Errorf("unsupported SRID error = %v", err)
	}
}
