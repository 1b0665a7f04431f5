// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package model

import (
	"sort"
	"time"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/geometry"
)

// SiteHistory is one immutable geometric state of a site. Only Name may be
// changed after creation.
type SiteHistory struct {
	ID          SiteHistoryID    `json:"id"`
	SiteID      SiteID           `json:"site_id"`
	CreatedTime time.Time        `json:"created_time"`
	Name        string           `json:"name"`
	Boundary    orb.MultiPolygon `json:"boundary,omitempty"`
	Exclusion   orb.MultiPolygon `json:"exclusion,omitempty"`
	GridOrigin  *orb.Point       `json:"grid_origin,omitempty"`
	AreaHa      *float64         `json:"area_ha,omitempty"`
}

// ZoneHistory snapshots a zone at a site history.
type ZoneHistory struct {
	ID            ZoneHistoryID    `json:"id"`
	SiteHistoryID SiteHistoryID    `json:"site_history_id"`
	ZoneID        *ZoneID          `json:"zone_id,omitempty"` // Nil once the zone is deleted
	Name          string           `json:"name"`
	Boundary      orb.MultiPolygon `json:"boundary"`
	AreaHa        *float64         `json:"area_ha,omitempty"`
}

// SubzoneHistory snapshots a subzone at a site history.
type SubzoneHistory struct {
	ID            SubzoneHistoryID `json:"id"`
	ZoneHistoryID ZoneHistoryID    `json:"zone_history_id"`
	SubzoneID     *SubzoneID       `json:"subzone_id,omitempty"` // Nil once the subzone is deleted
	Name          string           `json:"name"`
	FullName      string           `json:"full_name"`
	Boundary      orb.MultiPolygon `json:"boundary"`
	AreaHa        *float64         `json:"area_ha,omitempty"`
}

// PlotHistory snapshots a plot at a site history.
type PlotHistory struct {
	ID                      PlotHistoryID     `json:"id"`
	SiteHistoryID           SiteHistoryID     `json:"site_history_id"`
	SubzoneHistoryID        *SubzoneHistoryID `json:"subzone_history_id,omitempty"` // Nil for exterior plots
	PlotID                  PlotID            `json:"plot_id"`
	SubzoneID               *SubzoneID        `json:"subzone_id,omitempty"`
	Number                  int64             `json:"plot_number"`
	Boundary                orb.Polygon       `json:"boundary"`
	SizeMeters              int               `json:"size_meters"`
	IsAvailable             bool              `json:"is_available"`
	IsAdHoc                 bool              `json:"is_ad_hoc"`
	PermanentCluster        *int              `json:"permanent_cluster,omitempty"`
	PermanentClusterSubplot *int              `json:"permanent_cluster_subplot,omitempty"`
}

// HistorySnapshot is a site history together with every child row written
// at the same time.
type HistorySnapshot struct {
	Site     SiteHistory      `json:"site"`
	Zones    []ZoneHistory    `json:"zones"`
	Subzones []SubzoneHistory `json:"subzones"`
	Plots    []PlotHistory    `json:"plots"`
}

// ToSite reconstructs the site tree recorded by the snapshot, populated down
// to depth. Live-only attributes (sampling configuration, seasons,
// completion times) are not part of history and are left zero.
func (h *HistorySnapshot) ToSite(depth Depth) *Site {
	historyID := h.Site.ID
	site := &Site{
		ID:          h.Site.SiteID,
		Name:        h.Site.Name,
		Boundary:    cloneMP(h.Site.Boundary),
		Exclusion:   cloneMP(h.Site.Exclusion),
		GridOrigin:  clonePoint(h.Site.GridOrigin),
		AreaHa:      cloneFloat(h.Site.AreaHa),
		HistoryID:   &historyID,
		CreatedTime: h.Site.CreatedTime,
	}
	if depth < DepthZone {
		return site
	}

	subzonesByZone := make(map[ZoneHistoryID][]SubzoneHistory)
	for _, sz := range h.Subzones {
		subzonesByZone[sz.ZoneHistoryID] = append(subzonesByZone[sz.ZoneHistoryID], sz)
	}
	plotsBySubzone := make(map[SubzoneHistoryID][]PlotHistory)
	for _, p := range h.Plots {
		if p.SubzoneHistoryID == nil {
			if depth >= DepthPlot {
				site.ExteriorPlots = append(site.ExteriorPlots, p.toPlot())
			}
			continue
		}
		plotsBySubzone[*p.SubzoneHistoryID] = append(plotsBySubzone[*p.SubzoneHistoryID], p)
	}

	for _, zh := range h.Zones {
		zone := Zone{Name: zh.Name, Boundary: cloneMP(zh.Boundary), AreaHa: cloneFloat(zh.AreaHa)}
		if zh.ZoneID != nil {
			zone.ID = *zh.ZoneID
		}
		if depth >= DepthSubzone {
			for _, szh := range subzonesByZone[zh.ID] {
				sub := Subzone{
					Name:     szh.Name,
					FullName: szh.FullName,
					Boundary: cloneMP(szh.Boundary),
					AreaHa:   cloneFloat(szh.AreaHa),
				}
				if szh.SubzoneID != nil {
					sub.ID = *szh.SubzoneID
				}
				if depth >= DepthPlot {
					for _, ph := range plotsBySubzone[szh.ID] {
						sub.Plots = append(sub.Plots, ph.toPlot())
					}
					sortPlots(sub.Plots)
				}
				zone.Subzones = append(zone.Subzones, sub)
			}
		}
		site.Zones = append(site.Zones, zone)
	}
	sortPlots(site.ExteriorPlots)
	return site
}

func (p PlotHistory) toPlot() Plot {
	plot := Plot{
		ID:                      p.PlotID,
		Number:                  p.Number,
		Boundary:                p.Boundary.Clone(),
		SizeMeters:              p.SizeMeters,
		IsAvailable:             p.IsAvailable,
		IsAdHoc:                 p.IsAdHoc,
		PermanentCluster:        cloneInt(p.PermanentCluster),
		PermanentClusterSubplot: cloneInt(p.PermanentClusterSubplot),
	}
	if p.SubzoneID != nil {
		id := *p.SubzoneID
		plot.SubzoneID = &id
	}
	return plot
}

// Clone returns a deep copy of the snapshot.
func (h *HistorySnapshot) Clone() *HistorySnapshot {
	c := &HistorySnapshot{Site: h.Site}
	c.Site.Boundary = cloneMP(h.Site.Boundary)
	c.Site.Exclusion = cloneMP(h.Site.Exclusion)
	c.Site.GridOrigin = clonePoint(h.Site.GridOrigin)
	c.Site.AreaHa = cloneFloat(h.Site.AreaHa)
	for _, z := range h.Zones {
		z.Boundary = cloneMP(z.Boundary)
		z.AreaHa = cloneFloat(z.AreaHa)
		if z.ZoneID != nil {
			id := *z.ZoneID
			z.ZoneID = &id
		}
		c.Zones = append(c.Zones, z)
	}
	for _, sz := range h.Subzones {
		sz.Boundary = cloneMP(sz.Boundary)
		sz.AreaHa = cloneFloat(sz.AreaHa)
		if sz.SubzoneID != nil {
			id := *sz.SubzoneID
			sz.SubzoneID = &id
		}
		c.Subzones = append(c.Subzones, sz)
	}
	for _, p := range h.Plots {
		p.Boundary = p.Boundary.Clone()
		p.PermanentCluster = cloneInt(p.PermanentCluster)
		p.PermanentClusterSubplot = cloneInt(p.PermanentClusterSubplot)
		if p.SubzoneHistoryID != nil {
			id := *p.SubzoneHistoryID
			p.SubzoneHistoryID = &id
		}
		if p.SubzoneID != nil {
			id := *p.SubzoneID
			p.SubzoneID = &id
		}
		c.Plots = append(c.Plots, p)
	}
	return c
}

// NewHistorySnapshot captures every zone, subzone and plot of site as it is
// now. Zone and subzone history IDs are provisional sequence numbers local to
// the snapshot; stores replace them with persisted IDs on insert.
func NewHistorySnapshot(site *Site, at time.Time) *HistorySnapshot {
	snap := &HistorySnapshot{
		Site: SiteHistory{
			SiteID:      site.ID,
			CreatedTime: at,
			Name:        site.Name,
			Boundary:    cloneMP(site.Boundary),
			Exclusion:   cloneMP(site.Exclusion),
			GridOrigin:  clonePoint(site.GridOrigin),
			AreaHa:      cloneFloat(site.AreaHa),
		},
	}
	var nextZone ZoneHistoryID
	var nextSubzone SubzoneHistoryID
	for i := range site.Zones {
		z := &site.Zones[i]
		nextZone++
		zoneID := z.ID
		snap.Zones = append(snap.Zones, ZoneHistory{
			ID:       nextZone,
			ZoneID:   &zoneID,
			Name:     z.Name,
			Boundary: cloneMP(z.Boundary),
			AreaHa:   cloneFloat(z.AreaHa),
		})
		for j := range z.Subzones {
			sz := &z.Subzones[j]
			nextSubzone++
			subzoneID := sz.ID
			snap.Subzones = append(snap.Subzones, SubzoneHistory{
				ID:            nextSubzone,
				ZoneHistoryID: nextZone,
				SubzoneID:     &subzoneID,
				Name:          sz.Name,
				FullName:      sz.FullName,
				Boundary:      cloneMP(sz.Boundary),
				AreaHa:        cloneFloat(sz.AreaHa),
			})
			for k := range sz.Plots {
				ph := PlotHistoryFrom(&sz.Plots[k])
				shID := nextSubzone
				ph.SubzoneHistoryID = &shID
				snap.Plots = append(snap.Plots, ph)
			}
		}
	}
	for k := range site.ExteriorPlots {
		snap.Plots = append(snap.Plots, PlotHistoryFrom(&site.ExteriorPlots[k]))
	}
	return snap
}

// PlotHistoryFrom copies the geometric state of a live plot.
func PlotHistoryFrom(p *Plot) PlotHistory {
	h := PlotHistory{
		PlotID:                  p.ID,
		Number:                  p.Number,
		Boundary:                p.Boundary.Clone(),
		SizeMeters:              p.SizeMeters,
		IsAvailable:             p.IsAvailable,
		IsAdHoc:                 p.IsAdHoc,
		PermanentCluster:        cloneInt(p.PermanentCluster),
		PermanentClusterSubplot: cloneInt(p.PermanentClusterSubplot),
	}
	if p.SubzoneID != nil {
		id := *p.SubzoneID
		h.SubzoneID = &id
	}
	return h
}

func sortPlots(plots []Plot) {
	sort.Slice(plots, func(i, j int) bool { return plots[i].Number < plots[j].Number })
}

// SortPlots orders plots by plot number.
func SortPlots(plots []Plot) { sortPlots(plots) }

// RecomputeAreas sets AreaHa on the site, every zone and every subzone from
// their boundaries. Zone and subzone areas exclude the site's exclusion.
func RecomputeAreas(site *Site) error {
	usable, err := site.UsableBoundary()
	if err != nil {
		return err
	}
	site.AreaHa = geometry.AreaHectares(usable)
	for i := range site.Zones {
		z := &site.Zones[i]
		zu, err := z.UsableBoundary(site.Exclusion)
		if err != nil {
			return err
		}
		z.AreaHa = geometry.AreaHectares(zu)
		for j := range z.Subzones {
			sz := &z.Subzones[j]
			su, err := geometry.Difference(sz.Boundary, site.Exclusion)
			if err != nil {
				return err
			}
			sz.AreaHa = geometry.AreaHectares(su)
		}
	}
	return nil
}
