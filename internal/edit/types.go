// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

// Package edit computes the structural difference between an existing
// planting site and a desired layout.
//
// Calculate is pure: it reads both trees and returns a SiteEdit describing
// which zones and subzones are created, deleted or modified, how much usable
// area each gained or lost, and which existing plots must be re-homed or
// taken out of service. Cluster placements and renumbering are left empty;
// package cluster fills them in before the edit is applied.
package edit

import (
	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/model"
)

// Kind classifies what happens to a zone or subzone.
type Kind int

const (
	Unchanged Kind = iota
	Created
	Deleted
	Modified
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// SiteEdit is the full set of changes needed to turn Existing into Desired.
type SiteEdit struct {
	Existing *model.Site `json:"-"`
	Desired  *model.Site `json:"-"`

	// Kind is Modified when the site boundary or exclusion changed.
	Kind          Kind             `json:"kind"`
	AddedRegion   orb.MultiPolygon `json:"added_region,omitempty"`
	RemovedRegion orb.MultiPolygon `json:"removed_region,omitempty"`

	ZoneEdits []ZoneEdit `json:"zone_edits"`
	PlotEdits []PlotEdit `json:"plot_edits,omitempty"`
}

// ZoneEdit describes the change to one zone, matched by name.
type ZoneEdit struct {
	Kind     Kind        `json:"kind"`
	Name     string      `json:"name"`
	Existing *model.Zone `json:"-"` // Nil when created
	Desired  *model.Zone `json:"-"` // Nil when deleted

	// Usable-area delta (boundary minus exclusion).
	AddedRegion   orb.MultiPolygon `json:"added_region,omitempty"`
	RemovedRegion orb.MultiPolygon `json:"removed_region,omitempty"`

	// ExtraPermanentClusters is the zone's value after the edit.
	ExtraPermanentClusters  int `json:"extra_permanent_clusters"`
	// TargetPermanentClusters is configured plus extra clusters after the edit.
	TargetPermanentClusters int `json:"target_permanent_clusters"`

	SubzoneEdits []SubzoneEdit `json:"subzone_edits"`

	// Filled by the cluster allocator.
	Placements  []ClusterPlacement `json:"placements,omitempty"`
	Renumbering []Renumber         `json:"renumbering,omitempty"`
}

// SubzoneEdit describes the change to one subzone, matched by name within
// its zone.
type SubzoneEdit struct {
	Kind          Kind             `json:"kind"`
	Name          string           `json:"name"`
	Existing      *model.Subzone   `json:"-"`
	Desired       *model.Subzone   `json:"-"`
	AddedRegion   orb.MultiPolygon `json:"added_region,omitempty"`
	RemovedRegion orb.MultiPolygon `json:"removed_region,omitempty"`
}

// AreaIncreased reports whether the edit adds usable area to the subzone.
func (e *SubzoneEdit) AreaIncreased(tolerance float64) bool {
	return e.Kind == Modified && areaOf(e.AddedRegion) > tolerance
}

// PlotEdit changes an existing plot's placement or status. ToZone and
// ToSubzone name the desired subzone; both are empty for exterior plots.
type PlotEdit struct {
	PlotID          model.PlotID `json:"plot_id"`
	Number          int64        `json:"plot_number"`
	FromZone        string       `json:"from_zone,omitempty"`
	FromSubzone     string       `json:"from_subzone,omitempty"`
	ToZone          string       `json:"to_zone,omitempty"`
	ToSubzone       string       `json:"to_subzone,omitempty"`
	Move            bool         `json:"move"`
	MakeUnavailable bool         `json:"make_unavailable"`
	ClearCluster    bool         `json:"clear_cluster"`
}

// Exterior reports whether the plot ends up outside every subzone.
func (e *PlotEdit) Exterior() bool {
	return e.ToSubzone == ""
}

// ClusterPlacement is a new permanent cluster chosen by the allocator.
type ClusterPlacement struct {
	Number int              `json:"number"`
	Square orb.Bound        `json:"square"`
	Plots  [4]PlotPlacement `json:"plots"`
}

// PlotPlacement is one plot of a new cluster or a new temporary plot.
// ReusePlotID is set when an existing plot with the same boundary is
// recycled instead of creating a new row.
type PlotPlacement struct {
	Subplot     int          `json:"subplot,omitempty"`
	Subzone     string       `json:"subzone"`
	Boundary    orb.Bound    `json:"boundary"`
	ReusePlotID model.PlotID `json:"reuse_plot_id,omitempty"`
}

// Renumber moves an existing cluster to a new number.
type Renumber struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// IsNoOp reports whether applying the edit would change nothing.
func (e *SiteEdit) IsNoOp() bool {
	if e.Kind != Unchanged || len(e.PlotEdits) > 0 {
		return false
	}
	for _, ze := range e.ZoneEdits {
		if ze.Kind != Unchanged || len(ze.Placements) > 0 || len(ze.Renumbering) > 0 {
			return false
		}
		if ze.Existing != nil && ze.ExtraPermanentClusters != ze.Existing.ExtraPermanentClusters {
			return false
		}
		for _, se := range ze.SubzoneEdits {
			if se.Kind != Unchanged {
				return false
			}
		}
	}
	return true
}

// ZoneEdit returns the edit for the named zone.
func (e *SiteEdit) ZoneEdit(name string) *ZoneEdit {
	for i := range e.ZoneEdits {
		if e.ZoneEdits[i].Name == name {
			return &e.ZoneEdits[i]
		}
	}
	return nil
}

// Summary counts the changes in an edit.
type Summary struct {
	ZonesCreated       int `json:"zones_created"`
	ZonesDeleted       int `json:"zones_deleted"`
	ZonesModified      int `json:"zones_modified"`
	SubzonesCreated    int `json:"subzones_created"`
	SubzonesDeleted    int `json:"subzones_deleted"`
	SubzonesModified   int `json:"subzones_modified"`
	ClustersPlaced     int `json:"clusters_placed"`
	ClustersRenumbered int `json:"clusters_renumbered"`
	PlotsMoved         int `json:"plots_moved"`
	PlotsUnavailable   int `json:"plots_unavailable"`
}

// Summarize returns the counts for e.
func (e *SiteEdit) Summarize() Summary {
	var s Summary
	for _, ze := range e.ZoneEdits {
		switch ze.Kind {
		case Created:
			s.ZonesCreated++
		case Deleted:
			s.ZonesDeleted++
		case Modified:
			s.ZonesModified++
		}
		for _, se := range ze.SubzoneEdits {
			switch se.Kind {
			case Created:
				s.SubzonesCreated++
			case Deleted:
				s.SubzonesDeleted++
			case Modified:
				s.SubzonesModified++
			}
		}
		s.ClustersPlaced += len(ze.Placements)
		s.ClustersRenumbered += len(ze.Renumbering)
	}
	for _, pe := range e.PlotEdits {
		if pe.Move {
			s.PlotsMoved++
		}
		if pe.MakeUnavailable {
			s.PlotsUnavailable++
		}
	}
	return s
}
