// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/geometry"
)

// Rules carries the geometric constants structural validation depends on.
type Rules struct {
	PlotSizeMeters        int
	ToleranceSquareMeters float64
}

// DefaultRules returns the standard plot size and overlap tolerance.
func DefaultRules() Rules {
	return Rules{
		PlotSizeMeters:        geometry.DefaultPlotSizeMeters,
		ToleranceSquareMeters: geometry.DefaultToleranceSquareMeters,
	}
}

// ClusterSizeMeters is the edge length of a permanent cluster.
func (r Rules) ClusterSizeMeters() float64 {
	return float64(2 * r.PlotSizeMeters)
}

// Validate checks a site tree for structural problems. Invalid boundary
// geometry is returned as a *geometry.InvalidGeometryError naming the
// entity; every other violation is collected into one *MapInvalidError.
func Validate(site *Site, rules Rules) error {
	if err := validateGeometries(site); err != nil {
		return err
	}

	v := &validator{rules: rules}
	v.checkZones(site)
	for i := range site.Zones {
		v.checkSubzones(&site.Zones[i])
	}
	v.checkPlots(site)
	for i := range site.Zones {
		v.checkClusters(&site.Zones[i])
	}

	if v.err != nil {
		return v.err
	}
	if len(v.problems) > 0 {
		return &MapInvalidError{Problems: v.problems}
	}
	return nil
}

func validateGeometries(site *Site) error {
	if site.Boundary != nil {
		if err := geometry.Validate(site.Boundary); err != nil {
			return fmt.Errorf("site %q boundary: %w", site.Name, err)
		}
	}
	if site.Exclusion != nil {
		if err := geometry.Validate(site.Exclusion); err != nil {
			return fmt.Errorf("site %q exclusion: %w", site.Name, err)
		}
	}
	for _, z := range site.Zones {
		if err := geometry.Validate(z.Boundary); err != nil {
			return fmt.Errorf("zone %q: %w", z.Name, err)
		}
		for _, sz := range z.Subzones {
			if err := geometry.Validate(sz.Boundary); err != nil {
				return fmt.Errorf("subzone %q: %w", sz.FullName, err)
			}
		}
	}
	return nil
}

type validator struct {
	rules    Rules
	problems []MapProblem
	err      error
}

func (v *validator) add(entity, format string, args ...any) {
	v.problems = append(v.problems, MapProblem{Entity: entity, Reason: fmt.Sprintf(format, args...)})
}

func (v *validator) covers(outer, inner orb.MultiPolygon) bool {
	ok, err := geometry.Covers(outer, inner, v.rules.ToleranceSquareMeters)
	if err != nil && v.err == nil {
		v.err = err
	}
	return ok
}

func (v *validator) overlaps(a, b orb.MultiPolygon) bool {
	area, err := geometry.OverlapArea(a, b)
	if err != nil && v.err == nil {
		v.err = err
	}
	return area > v.rules.ToleranceSquareMeters
}

func (v *validator) checkZones(site *Site) {
	if site.IsDetailed() && len(site.Boundary) == 0 {
		v.add(fmt.Sprintf("site %q", site.Name), "site with zones has no boundary")
		return
	}

	names := make(map[string]bool, len(site.Zones))
	for i := range site.Zones {
		z := &site.Zones[i]
		entity := fmt.Sprintf("zone %q", z.Name)
		if z.Name == "" {
			v.add(entity, "name is empty")
		}
		if names[z.Name] {
			v.add(entity, "name is not unique")
		}
		names[z.Name] = true

		if !v.covers(site.Boundary, z.Boundary) {
			v.add(entity, "boundary extends outside the site boundary")
		}
		for j := i + 1; j < len(site.Zones); j++ {
			if v.overlaps(z.Boundary, site.Zones[j].Boundary) {
				v.add(entity, "overlaps zone %q", site.Zones[j].Name)
			}
		}
	}
}

func (v *validator) checkSubzones(z *Zone) {
	if len(z.Subzones) == 0 {
		v.add(fmt.Sprintf("zone %q", z.Name), "zone has no subzones")
		return
	}

	names := make(map[string]bool, len(z.Subzones))
	for i := range z.Subzones {
		sz := &z.Subzones[i]
		entity := fmt.Sprintf("subzone %q", FullSubzoneName(z.Name, sz.Name))
		if sz.Name == "" {
			v.add(entity, "name is empty")
		}
		if names[sz.Name] {
			v.add(entity, "name is not unique within the zone")
		}
		names[sz.Name] = true

		if !v.covers(z.Boundary, sz.Boundary) {
			v.add(entity, "boundary extends outside zone %q", z.Name)
		}
		for j := i + 1; j < len(z.Subzones); j++ {
			if v.overlaps(sz.Boundary, z.Subzones[j].Boundary) {
				v.add(entity, "overlaps subzone %q", FullSubzoneName(z.Name, z.Subzones[j].Name))
			}
		}
	}
}

func (v *validator) checkPlots(site *Site) {
	numbers := make(map[int64]bool)
	for _, ref := range site.AllPlots() {
		p := ref.Plot
		entity := fmt.Sprintf("plot %d", p.Number)

		if p.Number <= 0 {
			v.add(entity, "plot number must be positive")
		} else if numbers[p.Number] {
			v.add(entity, "plot number is not unique within the site")
		}
		numbers[p.Number] = true

		if ref.Subzone == nil {
			if p.InCluster() {
				v.add(entity, "exterior plot is assigned to permanent cluster %d", *p.PermanentCluster)
			}
		} else {
			if p.SubzoneID != nil && ref.Subzone.ID != 0 && *p.SubzoneID != ref.Subzone.ID {
				v.add(entity, "subzone reference does not match its owner")
			}
			if !p.IsAdHoc && !geometry.ContainsBound(ref.Subzone.Boundary, p.Bound()) {
				v.add(entity, "boundary is not inside subzone %q", ref.Subzone.FullName)
			}
		}

		if p.IsAdHoc {
			continue
		}
		if !isSquare(p.Boundary, float64(p.SizeMeters)) {
			v.add(entity, "boundary is not a %d m square", p.SizeMeters)
			continue
		}
		if p.SizeMeters == v.rules.PlotSizeMeters {
			if site.GridOrigin == nil {
				v.add(entity, "site has plots but no grid origin")
			} else if !geometry.IsGridAligned(*site.GridOrigin, p.Bound(), float64(p.SizeMeters)) {
				v.add(entity, "boundary is not aligned to the site grid")
			}
		}
	}
}

func (v *validator) checkClusters(z *Zone) {
	clusters := make(map[int][]*Plot)
	for i := range z.Subzones {
		for j := range z.Subzones[i].Plots {
			p := &z.Subzones[i].Plots[j]
			entity := fmt.Sprintf("plot %d", p.Number)
			switch {
			case p.PermanentCluster == nil && p.PermanentClusterSubplot != nil:
				v.add(entity, "has a cluster subplot but no cluster")
			case p.PermanentCluster != nil && p.PermanentClusterSubplot == nil:
				v.add(entity, "has a cluster but no cluster subplot")
			case p.PermanentCluster != nil:
				if p.IsAdHoc {
					v.add(entity, "ad hoc plots cannot be in permanent clusters")
				}
				clusters[*p.PermanentCluster] = append(clusters[*p.PermanentCluster], p)
			}
		}
	}

	numbers := make([]int, 0, len(clusters))
	for n := range clusters {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	for _, n := range numbers {
		plots := clusters[n]
		entity := fmt.Sprintf("zone %q cluster %d", z.Name, n)
		if n <= 0 {
			v.add(entity, "cluster number must be positive")
		}

		bySubplot := make(map[int]*Plot, 4)
		for _, p := range plots {
			sp := *p.PermanentClusterSubplot
			if sp < 1 || sp > 4 {
				v.add(entity, "plot %d has subplot %d outside 1..4", p.Number, sp)
				continue
			}
			if bySubplot[sp] != nil {
				v.add(entity, "subplot %d is assigned to plots %d and %d", sp, bySubplot[sp].Number, p.Number)
				continue
			}
			bySubplot[sp] = p
		}
		if len(plots) != 4 || len(bySubplot) != 4 {
			v.add(entity, "has %d plots, want exactly 4 covering subplots 1-4", len(plots))
			continue
		}

		first := bySubplot[1]
		square := geometry.Square(first.Bound().Min, float64(2*first.SizeMeters))
		quadrants := geometry.Quadrants(square)
		for sp := 1; sp <= 4; sp++ {
			if !geometry.SameSquare(bySubplot[sp].Bound(), quadrants[sp-1]) {
				v.add(entity, "plot %d does not occupy quadrant %d", bySubplot[sp].Number, sp)
			}
		}
	}
}

func isSquare(poly orb.Polygon, size float64) bool {
	if len(poly) != 1 || len(poly[0]) != 5 {
		return false
	}
	b := poly.Bound()
	if math.Abs(b.Max.X()-b.Min.X()-size) > 1e-6 || math.Abs(b.Max.Y()-b.Min.Y()-size) > 1e-6 {
		return false
	}
	return math.Abs(geometry.AreaSquareMeters(poly)-size*size) < 1e-3
}
