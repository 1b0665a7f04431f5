// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	sf "github.com/peterstace/simplefeatures/geom"
)

type overlayFunc func(a, b sf.Geometry) (sf.Geometry, error)

// Union returns the union of a and b.
func Union(a, b orb.MultiPolygon) (orb.MultiPolygon, error) {
	switch {
	case len(a) == 0:
		return cloneMultiPolygon(b), nil
	case len(b) == 0:
		return cloneMultiPolygon(a), nil
	}
	return overlay("union", sf.Union, a, b)
}

// UnionAll folds Union over parts.
func UnionAll(parts ...orb.MultiPolygon) (orb.MultiPolygon, error) {
	var acc orb.MultiPolygon
	for _, p := range parts {
		next, err := Union(acc, p)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

// Intersection returns the area shared by a and b.
func Intersection(a, b orb.MultiPolygon) (orb.MultiPolygon, error) {
	if len(a) == 0 || len(b) == 0 || !a.Bound().Intersects(b.Bound()) {
		return nil, nil
	}
	return overlay("intersection", sf.Intersection, a, b)
}

// Difference returns the part of a not covered by b.
func Difference(a, b orb.MultiPolygon) (orb.MultiPolygon, error) {
	switch {
	case len(a) == 0:
		return nil, nil
	case len(b) == 0 || !a.Bound().Intersects(b.Bound()):
		return cloneMultiPolygon(a), nil
	}
	return overlay("difference", sf.Difference, a, b)
}

func overlay(name string, op overlayFunc, a, b orb.MultiPolygon) (orb.MultiPolygon, error) {
	ga, err := toSimpleFeatures(a)
	if err != nil {
		return nil, fmt.Errorf("%s: first operand: %w", name, err)
	}
	gb, err := toSimpleFeatures(b)
	if err != nil {
		return nil, fmt.Errorf("%s: second operand: %w", name, err)
	}
	result, err := op(ga, gb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return fromSimpleFeatures(result)
}

func toSimpleFeatures(mp orb.MultiPolygon) (sf.Geometry, error) {
	g, err := sf.UnmarshalWKT(wkt.MarshalString(mp))
	if err != nil {
		return sf.Geometry{}, &InvalidGeometryError{Reason: err.Error()}
	}
	return g, nil
}

func fromSimpleFeatures(g sf.Geometry) (orb.MultiPolygon, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	parsed, err := wkt.Unmarshal(g.AsText())
	if err != nil {
		return nil, fmt.Errorf("decode overlay result: %w", err)
	}
	return Polygons(parsed), nil
}

// Polygons extracts every polygon in g as a multipolygon. Points and lines
// produced by degenerate overlays are dropped.
func Polygons(g orb.Geometry) orb.MultiPolygon {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil
		}
		return orb.MultiPolygon{v}
	case orb.MultiPolygon:
		return v
	case orb.Bound:
		return orb.MultiPolygon{v.ToPolygon()}
	case orb.Collection:
		var out orb.MultiPolygon
		for _, c := range v {
			out = append(out, Polygons(c)...)
		}
		return out
	}
	return nil
}

func cloneMultiPolygon(mp orb.MultiPolygon) orb.MultiPolygon {
	if mp == nil {
		return nil
	}
	return mp.Clone()
}
