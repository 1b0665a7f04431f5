// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package store

import (
	"sort"

	"github.com/tomtom215/plantingsites/internal/model"
)

// zoneRecord and subzoneRecord carry a flat row plus its parent key.
type zoneRecord struct {
	SiteID model.SiteID
	Zone   model.Zone
}

type subzoneRecord struct {
	SiteID  model.SiteID
	ZoneID  model.ZoneID
	Subzone model.Subzone
}

type plotRecord struct {
	SiteID model.SiteID
	Plot   model.Plot
}

// assembleSite hangs flat rows under site down to depth. Zones and subzones
// are ordered by ID, plots by number. Plots whose subzone is nil or missing
// become exterior plots.
func assembleSite(site *model.Site, zones []zoneRecord, subzones []subzoneRecord, plots []plotRecord, depth model.Depth) *model.Site {
	site.Zones = nil
	site.ExteriorPlots = nil
	if depth < model.DepthZone {
		return site
	}

	sort.Slice(zones, func(i, j int) bool { return zones[i].Zone.ID < zones[j].Zone.ID })
	sort.Slice(subzones, func(i, j int) bool { return subzones[i].Subzone.ID < subzones[j].Subzone.ID })

	plotsBySubzone := make(map[model.SubzoneID][]model.Plot)
	known := make(map[model.SubzoneID]bool, len(subzones))
	for _, sr := range subzones {
		known[sr.Subzone.ID] = true
	}
	if depth >= model.DepthPlot {
		for _, pr := range plots {
			p := pr.Plot.Clone()
			if p.SubzoneID == nil || !known[*p.SubzoneID] {
				p.SubzoneID = nil
				site.ExteriorPlots = append(site.ExteriorPlots, p)
				continue
			}
			plotsBySubzone[*p.SubzoneID] = append(plotsBySubzone[*p.SubzoneID], p)
		}
		model.SortPlots(site.ExteriorPlots)
	}

	subzonesByZone := make(map[model.ZoneID][]model.Subzone)
	if depth >= model.DepthSubzone {
		for _, sr := range subzones {
			sz := sr.Subzone.Clone()
			sz.Plots = plotsBySubzone[sz.ID]
			model.SortPlots(sz.Plots)
			subzonesByZone[sr.ZoneID] = append(subzonesByZone[sr.ZoneID], sz)
		}
	}

	for _, zr := range zones {
		z := zr.Zone.Clone()
		z.Subzones = subzonesByZone[z.ID]
		site.Zones = append(site.Zones, z)
	}
	return site
}

// stripSite returns a copy of the site's own columns without child collections.
func stripSite(s *model.Site) model.Site {
	c := s.Clone()
	c.Zones = nil
	c.ExteriorPlots = nil
	c.Seasons = nil
	return *c
}
