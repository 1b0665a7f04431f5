// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package model

// Identifiers are distinct types so a zone ID cannot be passed where a
// subzone ID is expected. Zero means "not yet persisted".
type (
	OrganizationID   int64
	SiteID           int64
	ZoneID           int64
	SubzoneID        int64
	PlotID           int64
	SpeciesID        int64
	SeasonID         int64
	SiteHistoryID    int64
	ZoneHistoryID    int64
	SubzoneHistoryID int64
	PlotHistoryID    int64
)

// Depth controls how much of the site tree a fetch populates. Levels below
// the requested depth are returned as empty slices.
type Depth int

const (
	DepthSite Depth = iota
	DepthZone
	DepthSubzone
	DepthPlot
)

// String returns the lowercase name of the depth.
func (d Depth) String() string {
	switch d {
	case DepthSite:
		return "site"
	case DepthZone:
		return "zone"
	case DepthSubzone:
		return "subzone"
	case DepthPlot:
		return "plot"
	default:
		return "unknown"
	}
}

// ParseDepth converts a name produced by Depth.String back to a Depth.
func ParseDepth(s string) (Depth, bool) {
	for d := DepthSite; d <= DepthPlot; d++ {
		if d.String() == s {
			return d, true
		}
	}
	return DepthSite, false
}
