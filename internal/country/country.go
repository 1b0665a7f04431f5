// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

// Package country maps site boundaries to ISO 3166-1 alpha-2 country codes
// using a GeoJSON file of country outlines in WGS84.
package country

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/tomtom215/plantingsites/internal/geometry"
)

// codeProperties are the feature properties searched for a country code,
// in order. Natural Earth uses ISO_A2 with "-99" for disputed areas.
var codeProperties = []string{"ISO_A2", "iso_a2", "iso_code", "code"}

type outline struct {
	code     string
	boundary orb.MultiPolygon
	bound    orb.Bound
}

// Detector finds the country containing a site.
type Detector struct {
	outlines []outline
}

// Load reads a GeoJSON FeatureCollection of country outlines. Features
// without a usable code or polygonal geometry are skipped.
func Load(r io.Reader) (*Detector, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read country boundaries: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse country boundaries: %w", err)
	}

	d := &Detector{}
	for _, f := range fc.Features {
		code := featureCode(f)
		if code == "" {
			continue
		}
		mp := geometry.Polygons(f.Geometry)
		if len(mp) == 0 {
			continue
		}
		d.outlines = append(d.outlines, outline{code: code, boundary: mp, bound: mp.Bound()})
	}
	return d, nil
}

// LoadFile reads country outlines from path.
func LoadFile(path string) (*Detector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open country boundaries: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func featureCode(f *geojson.Feature) string {
	for _, key := range codeProperties {
		code := strings.ToUpper(strings.TrimSpace(f.Properties.MustString(key, "")))
		if len(code) == 2 {
			return code
		}
	}
	return ""
}

// Len returns the number of loaded outlines.
func (d *Detector) Len() int {
	return len(d.outlines)
}

// DetectCountry returns the code of the country containing the centroid of
// boundary, which is in site-local meters. Sites without a WGS84 anchor
// cannot be placed and return "".
func (d *Detector) DetectCountry(boundary orb.MultiPolygon, frame *geometry.Frame) string {
	if d == nil || frame == nil || geometry.IsEmpty(boundary) {
		return ""
	}
	return d.CountryAt(frame.ToWGS84(geometry.Centroid(boundary)))
}

// CountryAt returns the code of the first outline containing the WGS84
// point lonLat, or "".
func (d *Detector) CountryAt(lonLat orb.Point) string {
	for _, o := range d.outlines {
		if !o.bound.Contains(lonLat) {
			continue
		}
		if planar.MultiPolygonContains(o.boundary, lonLat) {
			return o.code
		}
	}
	return ""
}
