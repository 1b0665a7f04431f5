// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package edit

import (
	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
)

type clusterKey struct {
	zone   string
	number int
}

// plotEdits re-homes every existing plot into the desired subzone that
// contains it and takes plots out of service when they leave usable area.
//
// Clusters are atomic: if any member ends up unavailable, every member does.
// A cluster with a member that changes zone (or becomes exterior) can no
// longer keep its zone-scoped number, so it is dissolved.
func (c *calculator) plotEdits(e *SiteEdit) error {
	refs := c.existing.AllPlots()
	edits := make([]PlotEdit, len(refs))
	available := make([]bool, len(refs))
	clusters := make(map[clusterKey][]int)
	dissolved := make(map[clusterKey]bool)

	for i, ref := range refs {
		p := ref.Plot
		pe := PlotEdit{PlotID: p.ID, Number: p.Number}
		if ref.Zone != nil {
			pe.FromZone = ref.Zone.Name
			pe.FromSubzone = ref.Subzone.Name
		}
		pe.ToZone, pe.ToSubzone = c.locate(p.Bound(), pe.FromZone, pe.FromSubzone)
		pe.Move = pe.FromZone != pe.ToZone || pe.FromSubzone != pe.ToSubzone

		available[i] = p.IsAvailable
		if !p.IsAdHoc && p.IsAvailable {
			if pe.Exterior() || !geometry.ContainsBound(c.desiredUsable[pe.ToZone], p.Bound()) {
				available[i] = false
			}
		}

		if p.InCluster() && ref.Zone != nil {
			key := clusterKey{zone: ref.Zone.Name, number: *p.PermanentCluster}
			clusters[key] = append(clusters[key], i)
			if pe.ToZone != pe.FromZone {
				dissolved[key] = true
			}
		}
		edits[i] = pe
	}

	for key, members := range clusters {
		lost := dissolved[key]
		for _, i := range members {
			if !available[i] {
				lost = true
			}
		}
		if !lost {
			continue
		}
		for _, i := range members {
			available[i] = false
			if dissolved[key] {
				edits[i].ClearCluster = true
			}
		}
	}

	for i, ref := range refs {
		pe := edits[i]
		pe.MakeUnavailable = ref.Plot.IsAvailable && !available[i]
		if pe.Move || pe.MakeUnavailable || pe.ClearCluster {
			e.PlotEdits = append(e.PlotEdits, pe)
		}
	}
	return nil
}

// locate returns the desired zone and subzone names whose boundary contains
// b, preferring the plot's current subzone. Empty names mean exterior.
func (c *calculator) locate(b orb.Bound, zoneName, subzoneName string) (string, string) {
	if z := c.desired.FindZone(zoneName); z != nil {
		if sz := z.FindSubzone(subzoneName); sz != nil && geometry.ContainsBound(sz.Boundary, b) {
			return z.Name, sz.Name
		}
	}
	for i := range c.desired.Zones {
		z := &c.desired.Zones[i]
		if !geometry.BoundsOverlap(z.Boundary.Bound(), b) {
			continue
		}
		for j := range z.Subzones {
			sz := &z.Subzones[j]
			if geometry.ContainsBound(sz.Boundary, b) {
				return z.Name, sz.Name
			}
		}
	}
	return "", ""
}

// PlotOutcome is the state of an existing plot once the edit is applied,
// before any cluster placements.
type PlotOutcome struct {
	Plot      *model.Plot
	Zone      string // Empty for exterior plots
	Subzone   string
	Available bool
	Cluster   *int
}

// Outcomes returns the post-edit state of every existing plot.
func (e *SiteEdit) Outcomes() []PlotOutcome {
	byNumber := make(map[int64]*PlotEdit, len(e.PlotEdits))
	for i := range e.PlotEdits {
		byNumber[e.PlotEdits[i].Number] = &e.PlotEdits[i]
	}

	refs := e.Existing.AllPlots()
	out := make([]PlotOutcome, 0, len(refs))
	for _, ref := range refs {
		p := ref.Plot
		o := PlotOutcome{Plot: p, Available: p.IsAvailable, Cluster: p.PermanentCluster}
		if ref.Zone != nil {
			o.Zone, o.Subzone = ref.Zone.Name, ref.Subzone.Name
		}
		if pe, ok := byNumber[p.Number]; ok {
			o.Zone, o.Subzone = pe.ToZone, pe.ToSubzone
			if pe.MakeUnavailable {
				o.Available = false
			}
			if pe.ClearCluster {
				o.Cluster = nil
			}
		}
		out = append(out, o)
	}
	return out
}

// PlotEditFor returns the edit for the plot with the given number.
func (e *SiteEdit) PlotEditFor(number int64) *PlotEdit {
	for i := range e.PlotEdits {
		if e.PlotEdits[i].Number == number {
			return &e.PlotEdits[i]
		}
	}
	return nil
}
