// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package reconcile

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/cluster"
	"github.com/tomtom215/plantingsites/internal/edit"
	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
)

// pendingPlot is a plot on its way into the next tree, tagged with the zone
// and subzone names it belongs to. Empty names mean exterior.
type pendingPlot struct {
	plot    model.Plot
	zone    string
	subzone string
}

// builder turns an edit into the post-edit site tree without touching the
// store. New plots are numbered through nextNumber.
type builder struct {
	e          *edit.SiteEdit
	rules      model.Rules
	now        time.Time
	force      map[model.SubzoneID]bool
	nextNumber func() (int64, error)
}

func (b *builder) build() (*model.Site, error) {
	ex, de := b.e.Existing, b.e.Desired

	next := ex.Clone()
	next.Exclusion = cloneMP(de.Exclusion)
	next.ModifiedTime = b.now
	if next.GridOrigin == nil {
		if origin := cluster.GridOrigin(ex, de); origin != nil {
			o := *origin
			next.GridOrigin = &o
		}
	}

	next.Zones = nil
	for i := range b.e.ZoneEdits {
		ze := &b.e.ZoneEdits[i]
		if ze.Kind == edit.Deleted {
			continue
		}
		next.Zones = append(next.Zones, b.zone(ze))
	}

	boundary, err := siteBoundary(next, de)
	if err != nil {
		return nil, err
	}
	next.Boundary = boundary

	plots, err := b.plots()
	if err != nil {
		return nil, err
	}
	distribute(next, plots)

	if err := model.RecomputeAreas(next); err != nil {
		return nil, fmt.Errorf("failed to compute areas: %w", err)
	}
	return next, nil
}

// siteBoundary returns the desired boundary for simple sites and the union
// of zone boundaries for detailed ones.
func siteBoundary(next, desired *model.Site) (orb.MultiPolygon, error) {
	if len(next.Zones) == 0 {
		return cloneMP(desired.Boundary), nil
	}
	parts := make([]orb.MultiPolygon, len(next.Zones))
	for i := range next.Zones {
		parts[i] = next.Zones[i].Boundary
	}
	union, err := geometry.UnionAll(parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to union zone boundaries: %w", err)
	}
	return union, nil
}

func (b *builder) zone(ze *edit.ZoneEdit) model.Zone {
	var z model.Zone
	if ze.Existing != nil {
		z = ze.Existing.Clone()
	} else {
		z = ze.Desired.Clone()
		z.ID = 0
		z.BoundaryModifiedTime = b.now
	}
	z.Boundary = cloneMP(ze.Desired.Boundary)
	z.ExtraPermanentClusters = ze.ExtraPermanentClusters
	if ze.Kind == edit.Modified {
		z.BoundaryModifiedTime = b.now
	}

	z.Subzones = make([]model.Subzone, 0, len(ze.SubzoneEdits))
	for i := range ze.SubzoneEdits {
		se := &ze.SubzoneEdits[i]
		if se.Kind == edit.Deleted {
			continue
		}
		var sz model.Subzone
		if se.Existing != nil {
			sz = se.Existing.Clone()
			if se.AreaIncreased(b.rules.ToleranceSquareMeters) && b.force[sz.ID] {
				sz.PlantingCompletedTime = nil
			}
		} else {
			sz = se.Desired.Clone()
			sz.ID = 0
			sz.PlantingCompletedTime = nil
		}
		sz.Boundary = cloneMP(se.Desired.Boundary)
		sz.FullName = model.FullSubzoneName(z.Name, sz.Name)
		sz.Plots = nil
		z.Subzones = append(z.Subzones, sz)
	}
	return z
}

// plots returns every plot of the next tree: existing plots with their
// outcomes and renumbering applied, then cluster placements.
func (b *builder) plots() ([]pendingPlot, error) {
	renumber := make(map[string]map[int]int)
	for _, ze := range b.e.ZoneEdits {
		if len(ze.Renumbering) == 0 {
			continue
		}
		m := make(map[int]int, len(ze.Renumbering))
		for _, r := range ze.Renumbering {
			m[r.From] = r.To
		}
		renumber[ze.Name] = m
	}

	outcomes := b.e.Outcomes()
	plots := make([]pendingPlot, 0, len(outcomes))
	byID := make(map[model.PlotID]int, len(outcomes))
	for _, o := range outcomes {
		p := o.Plot.Clone()
		p.IsAvailable = o.Available
		if o.Cluster == nil {
			p.PermanentCluster = nil
			p.PermanentClusterSubplot = nil
		} else if to, ok := renumber[o.Zone][*o.Cluster]; ok {
			p.PermanentCluster = model.IntPtr(to)
		}
		byID[p.ID] = len(plots)
		plots = append(plots, pendingPlot{plot: p, zone: o.Zone, subzone: o.Subzone})
	}

	for _, ze := range b.e.ZoneEdits {
		for _, placement := range ze.Placements {
			for _, pp := range placement.Plots {
				if idx, ok := byID[pp.ReusePlotID]; ok && pp.ReusePlotID != 0 {
					reused := &plots[idx]
					reused.plot.IsAvailable = true
					reused.plot.PermanentCluster = model.IntPtr(placement.Number)
					reused.plot.PermanentClusterSubplot = model.IntPtr(pp.Subplot)
					reused.zone, reused.subzone = ze.Name, pp.Subzone
					continue
				}
				number, err := b.nextNumber()
				if err != nil {
					return nil, err
				}
				plots = append(plots, pendingPlot{
					plot: model.Plot{
						Number:                  number,
						Boundary:                pp.Boundary.ToPolygon(),
						SizeMeters:              b.rules.PlotSizeMeters,
						IsAvailable:             true,
						PermanentCluster:        model.IntPtr(placement.Number),
						PermanentClusterSubplot: model.IntPtr(pp.Subplot),
						CreatedTime:             b.now,
					},
					zone:    ze.Name,
					subzone: pp.Subzone,
				})
			}
		}
	}
	return plots, nil
}

// distribute hangs plots under their subzones, or on the site as exterior
// plots, and points each plot at its owner.
func distribute(site *model.Site, plots []pendingPlot) {
	site.ExteriorPlots = nil
	for _, pp := range plots {
		p := pp.plot
		var owner *model.Subzone
		if z := site.FindZone(pp.zone); z != nil && pp.subzone != "" {
			owner = z.FindSubzone(pp.subzone)
		}
		if owner == nil {
			p.SubzoneID = nil
			site.ExteriorPlots = append(site.ExteriorPlots, p)
			continue
		}
		p.SubzoneID = nil
		if owner.ID != 0 {
			id := owner.ID
			p.SubzoneID = &id
		}
		owner.Plots = append(owner.Plots, p)
	}

	for i := range site.Zones {
		for j := range site.Zones[i].Subzones {
			model.SortPlots(site.Zones[i].Subzones[j].Plots)
		}
	}
	model.SortPlots(site.ExteriorPlots)
}

func cloneMP(mp orb.MultiPolygon) orb.MultiPolygon {
	if mp == nil {
		return nil
	}
	return mp.Clone()
}
