// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/tomtom215/plantingsites/internal/geometry"
)

// encodeMultiPolygon renders mp as WKT, or NULL when it is empty.
func encodeMultiPolygon(mp orb.MultiPolygon) sql.NullString {
	if len(mp) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: wkt.MarshalString(mp), Valid: true}
}

func encodePolygon(p orb.Polygon) string {
	return wkt.MarshalString(p)
}

// decodeMultiPolygon parses a WKT column written in srid and returns it in
// site-local meters. Polygons are promoted to single-member multipolygons.
func decodeMultiPolygon(col sql.NullString, srid int32, frame *geometry.Frame) (orb.MultiPolygon, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	g, err := wkt.Unmarshal(col.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored geometry: %w", err)
	}
	mp := geometry.Polygons(g)
	if geometry.SRID(srid) == geometry.Canonical {
		return mp, nil
	}
	return geometry.ReprojectMultiPolygon(mp, geometry.SRID(srid), geometry.Canonical, frame)
}

// decodePolygon parses a plot boundary written in srid.
func decodePolygon(col string, srid int32, frame *geometry.Frame) (orb.Polygon, error) {
	mp, err := decodeMultiPolygon(sql.NullString{String: col, Valid: true}, srid, frame)
	if err != nil {
		return nil, err
	}
	if len(mp) != 1 {
		return nil, fmt.Errorf("stored plot boundary has %d polygons", len(mp))
	}
	return mp[0], nil
}

func encodePoint(p *orb.Point) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p[0], Valid: true}, sql.NullFloat64{Float64: p[1], Valid: true}
}

func decodePoint(x, y sql.NullFloat64) *orb.Point {
	if !x.Valid || !y.Valid {
		return nil
	}
	return &orb.Point{x.Float64, y.Float64}
}

// decodeGridOrigin reprojects a stored grid origin into site-local meters.
func decodeGridOrigin(x, y sql.NullFloat64, srid int32, frame *geometry.Frame) (*orb.Point, error) {
	p := decodePoint(x, y)
	if p == nil || geometry.SRID(srid) == geometry.Canonical {
		return p, nil
	}
	local, err := geometry.ReprojectPoint(*p, geometry.SRID(srid), geometry.Canonical, frame)
	if err != nil {
		return nil, err
	}
	return &local, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func intPtr(i sql.NullInt64) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int64)
	return &v
}

func nullID[T ~int64](id *T) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func idPtr[T ~int64](i sql.NullInt64) *T {
	if !i.Valid {
		return nil
	}
	v := T(i.Int64)
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
