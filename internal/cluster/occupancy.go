// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package cluster

import (
	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/edit"
	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
)

type cell struct{ i, j int }

// occupancy indexes existing plots by grid cell. Plots that are not
// grid-aligned squares of the current size (ad hoc and legacy plots) are kept
// in a list and checked by overlap.
type occupancy struct {
	origin         orb.Point
	size           float64
	reuseAvailable bool
	reusable       map[cell]model.PlotID
	blocked        map[cell]bool
	other          []orb.Bound
}

func newOccupancy(origin orb.Point, rules model.Rules, reuseAvailable bool) *occupancy {
	return &occupancy{
		origin:         origin,
		size:           float64(rules.PlotSizeMeters),
		reuseAvailable: reuseAvailable,
		reusable:       make(map[cell]model.PlotID),
		blocked:        make(map[cell]bool),
	}
}

func (o *occupancy) key(b orb.Bound) cell {
	i, j := geometry.GridIndex(o.origin, b.Min, o.size)
	return cell{i, j}
}

// add records a plot as it will be after the edit. Unclustered plots of the
// current size may be recycled. Available ones are only recycled when
// reuseAvailable is set (cluster placement); otherwise they block the cell.
func (o *occupancy) add(p edit.PlotOutcome) {
	b := p.Plot.Bound()
	aligned := !p.Plot.IsAdHoc && p.Plot.SizeMeters == int(o.size) && geometry.IsGridAligned(o.origin, b, o.size)
	if !aligned {
		o.other = append(o.other, b)
		return
	}
	k := o.key(b)
	if p.Cluster == nil && (!p.Available || o.reuseAvailable) {
		o.reusable[k] = p.Plot.ID
		return
	}
	o.blocked[k] = true
}

// free reports whether the grid cell b can take a new plot, and the ID of a
// plot to reuse there if one exists.
func (o *occupancy) free(b orb.Bound) (model.PlotID, bool) {
	k := o.key(b)
	if o.blocked[k] {
		return 0, false
	}
	for _, other := range o.other {
		if geometry.BoundsOverlap(other, b) {
			return 0, false
		}
	}
	return o.reusable[k], true
}

// claim marks a cell as taken by a placement made in this pass.
func (o *occupancy) claim(b orb.Bound) {
	k := o.key(b)
	delete(o.reusable, k)
	o.blocked[k] = true
}
