// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package cluster

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/edit"
	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
)

// Allocator chooses positions for new permanent clusters and temporary
// plots. It holds no per-edit state and is safe for concurrent use when its
// Random is.
type Allocator struct {
	rules model.Rules
	rng   Random
}

// NewAllocator creates an allocator. A nil rng uses GlobalRandom.
func NewAllocator(rules model.Rules, rng Random) *Allocator {
	if rng == nil {
		rng = GlobalRandom{}
	}
	return &Allocator{rules: rules, rng: rng}
}

// Allocate fills in cluster placements and renumbering for every zone in e
// that has fewer usable clusters than its target.
func (a *Allocator) Allocate(e *edit.SiteEdit) error {
	origin := GridOrigin(e.Existing, e.Desired)
	if origin == nil {
		return nil
	}
	outcomes := e.Outcomes()
	occ := newOccupancy(*origin, a.rules, true)
	for _, o := range outcomes {
		occ.add(o)
	}

	for i := range e.ZoneEdits {
		ze := &e.ZoneEdits[i]
		if ze.Kind == edit.Deleted {
			continue
		}
		a.allocateZone(ze, outcomes, occ)
	}
	return nil
}

func (a *Allocator) allocateZone(ze *edit.ZoneEdit, outcomes []edit.PlotOutcome, occ *occupancy) {
	members := make(map[int][]edit.PlotOutcome)
	for _, o := range outcomes {
		if o.Zone == ze.Name && o.Cluster != nil {
			members[*o.Cluster] = append(members[*o.Cluster], o)
		}
	}

	usable := 0
	existingNumbers := make([]int, 0, len(members))
	for n, plots := range members {
		existingNumbers = append(existingNumbers, n)
		if len(plots) != 4 {
			continue
		}
		ok := true
		for _, p := range plots {
			ok = ok && p.Available
		}
		if ok {
			usable++
		}
	}

	need := ze.TargetPermanentClusters - usable
	if need <= 0 || len(ze.AddedRegion) == 0 || ze.Desired == nil {
		return
	}

	chosen := a.chooseSquares(ze, occ, need)
	if len(chosen) == 0 {
		return
	}

	numbers, mapping := Renumber(existingNumbers, len(chosen), a.rng)
	for i, cand := range chosen {
		placement := edit.ClusterPlacement{Number: numbers[i], Square: cand.square}
		for q := 0; q < 4; q++ {
			placement.Plots[q] = edit.PlotPlacement{
				Subplot:     q + 1,
				Subzone:     cand.subzones[q],
				Boundary:    cand.quadrants[q],
				ReusePlotID: cand.reuse[q],
			}
			occ.claim(cand.quadrants[q])
		}
		ze.Placements = append(ze.Placements, placement)
	}

	for from, to := range mapping {
		if from != to {
			ze.Renumbering = append(ze.Renumbering, edit.Renumber{From: from, To: to})
		}
	}
	sort.Slice(ze.Renumbering, func(i, j int) bool { return ze.Renumbering[i].From < ze.Renumbering[j].From })
}

type candidate struct {
	square    orb.Bound
	quadrants [4]orb.Bound
	subzones  [4]string
	reuse     [4]model.PlotID
	reused    int
}

// chooseSquares returns up to need non-overlapping cluster squares inside
// the zone's added region. Candidates are shuffled, then those reusing the
// most leftover plots are tried first.
func (a *Allocator) chooseSquares(ze *edit.ZoneEdit, occ *occupancy, need int) []candidate {
	plotSize := float64(a.rules.PlotSizeMeters)
	squares := geometry.GridSquares(occ.origin, ze.AddedRegion.Bound(), plotSize, 2*plotSize)

	var candidates []candidate
	for _, sq := range squares {
		if !geometry.ContainsBound(ze.AddedRegion, sq) {
			continue
		}
		cand := candidate{square: sq, quadrants: geometry.Quadrants(sq)}
		ok := true
		for q := 0; q < 4 && ok; q++ {
			cand.subzones[q] = subzoneContaining(ze.Desired, cand.quadrants[q])
			if cand.subzones[q] == "" {
				ok = false
				break
			}
			id, free := occ.free(cand.quadrants[q])
			if !free {
				ok = false
				break
			}
			if id != 0 {
				cand.reuse[q] = id
				cand.reused++
			}
		}
		if ok {
			candidates = append(candidates, cand)
		}
	}

	a.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].reused > candidates[j].reused })

	var chosen []candidate
	for _, cand := range candidates {
		if len(chosen) == need {
			break
		}
		overlaps := false
		for _, c := range chosen {
			if geometry.BoundsOverlap(c.square, cand.square) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			chosen = append(chosen, cand)
		}
	}
	return chosen
}

// PlaceTemporaryPlots picks count grid cells in the zone's usable area for
// temporary plots. Cells holding cluster plots or available plots are
// skipped; an unavailable unclustered plot that matches a cell is reused.
// Fewer than count placements are returned when the zone is full.
func (a *Allocator) PlaceTemporaryPlots(site *model.Site, zone *model.Zone, count int) ([]edit.PlotPlacement, error) {
	if count <= 0 || site.GridOrigin == nil {
		return nil, nil
	}
	usable, err := zone.UsableBoundary(site.Exclusion)
	if err != nil {
		return nil, err
	}
	if len(usable) == 0 {
		return nil, nil
	}

	occ := newOccupancy(*site.GridOrigin, a.rules, false)
	for _, ref := range site.AllPlots() {
		o := edit.PlotOutcome{Plot: ref.Plot, Available: ref.Plot.IsAvailable, Cluster: ref.Plot.PermanentCluster}
		occ.add(o)
	}

	plotSize := float64(a.rules.PlotSizeMeters)
	var cells []edit.PlotPlacement
	for _, cell := range geometry.GridSquares(occ.origin, usable.Bound(), plotSize, plotSize) {
		if !geometry.ContainsBound(usable, cell) {
			continue
		}
		subzone := subzoneContaining(zone, cell)
		if subzone == "" {
			continue
		}
		id, free := occ.free(cell)
		if !free {
			continue
		}
		cells = append(cells, edit.PlotPlacement{Subzone: subzone, Boundary: cell, ReusePlotID: id})
	}

	a.rng.Shuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })
	if len(cells) > count {
		cells = cells[:count]
	}
	return cells, nil
}

func subzoneContaining(zone *model.Zone, b orb.Bound) string {
	for i := range zone.Subzones {
		if geometry.ContainsBound(zone.Subzones[i].Boundary, b) {
			return zone.Subzones[i].Name
		}
	}
	return ""
}

// GridOrigin returns the grid origin an edit places plots against: the
// existing origin, else the desired one, else the south-west corner of the
// desired boundary.
func GridOrigin(existing, desired *model.Site) *orb.Point {
	if existing != nil && existing.GridOrigin != nil {
		return existing.GridOrigin
	}
	if desired != nil && desired.GridOrigin != nil {
		return desired.GridOrigin
	}
	if desired != nil && len(desired.Boundary) > 0 {
		sw := desired.Boundary.Bound().Min
		return &sw
	}
	return nil
}
