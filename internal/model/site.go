// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package model

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/geometry"
)

// Site is the root of a planting site tree.
type Site struct {
	ID             SiteID           `json:"id"`
	OrganizationID OrganizationID   `json:"organization_id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Boundary       orb.MultiPolygon `json:"boundary,omitempty"`     // Site-local meters
	Exclusion      orb.MultiPolygon `json:"exclusion,omitempty"`    // Subtracted from every zone's usable area
	GridOrigin     *orb.Point       `json:"grid_origin,omitempty"`  // Immutable once set
	Anchor         *orb.Point       `json:"anchor,omitempty"`       // WGS84 point at local (0,0)
	AreaHa         *float64         `json:"area_ha,omitempty"`      // Nil below the reporting threshold
	CountryCode    string           `json:"country_code,omitempty"` // ISO 3166-1 alpha-2
	TimeZone       string           `json:"time_zone,omitempty"`    // IANA name
	HistoryID      *SiteHistoryID   `json:"history_id,omitempty"`   // Current history
	Seasons        []PlantingSeason `json:"planting_seasons,omitempty"`
	Zones          []Zone           `json:"zones,omitempty"`
	ExteriorPlots  []Plot           `json:"exterior_plots,omitempty"` // Plots outside every subzone
	CreatedTime    time.Time        `json:"created_time"`
	ModifiedTime   time.Time        `json:"modified_time"`
}

// Zone is the second level of the hierarchy and the unit that carries
// sampling configuration.
type Zone struct {
	ID                     ZoneID           `json:"id"`
	Name                   string           `json:"name"`
	Boundary               orb.MultiPolygon `json:"boundary"`
	AreaHa                 *float64         `json:"area_ha,omitempty"`
	TargetPlantingDensity  float64          `json:"target_planting_density"` // Plants per hectare
	ErrorMargin            float64          `json:"error_margin"`
	StudentsT              float64          `json:"students_t"`
	Variance               float64          `json:"variance"`
	NumPermanentClusters   int              `json:"num_permanent_clusters"`
	NumTemporaryPlots      int              `json:"num_temporary_plots"`
	ExtraPermanentClusters int              `json:"extra_permanent_clusters"` // Added by edits that grew the zone
	BoundaryModifiedTime   time.Time        `json:"boundary_modified_time"`
	Subzones               []Subzone        `json:"subzones,omitempty"`
}

// Subzone is the third level; plantings are recorded against subzones.
type Subzone struct {
	ID                    SubzoneID        `json:"id"`
	Name                  string           `json:"name"`
	FullName              string           `json:"full_name"` // "<zone>-<subzone>"
	Boundary              orb.MultiPolygon `json:"boundary"`
	AreaHa                *float64         `json:"area_ha,omitempty"`
	PlantingCompletedTime *time.Time       `json:"planting_completed_time,omitempty"`
	Plots                 []Plot           `json:"plots,omitempty"`
}

// Plot is a fixed-size monitoring square.
type Plot struct {
	ID                      PlotID      `json:"id"`
	Number                  int64       `json:"plot_number"` // Unique within the site, never reused
	Boundary                orb.Polygon `json:"boundary"`
	SizeMeters              int         `json:"size_meters"`
	IsAvailable             bool        `json:"is_available"`
	IsAdHoc                 bool        `json:"is_ad_hoc"`
	PermanentCluster        *int        `json:"permanent_cluster,omitempty"`
	PermanentClusterSubplot *int        `json:"permanent_cluster_subplot,omitempty"` // 1..4, one per quadrant
	SubzoneID               *SubzoneID  `json:"subzone_id,omitempty"`                // Nil for exterior plots
	CreatedTime             time.Time   `json:"created_time"`
}

// Bound returns the plot's square as a bound.
func (p *Plot) Bound() orb.Bound {
	return p.Boundary.Bound()
}

// InCluster reports whether the plot is a permanent cluster member.
func (p *Plot) InCluster() bool {
	return p.PermanentCluster != nil
}

// IsDetailed reports whether the site has at least one zone. A detailed
// site's boundary is the union of its zones.
func (s *Site) IsDetailed() bool {
	return len(s.Zones) > 0
}

// Frame returns the local frame anchoring the site's coordinates, or nil
// for sites that were created in local coordinates.
func (s *Site) Frame() *geometry.Frame {
	if s.Anchor == nil {
		return nil
	}
	return &geometry.Frame{Anchor: *s.Anchor}
}

// UsableBoundary returns the site boundary minus the exclusion area.
func (s *Site) UsableBoundary() (orb.MultiPolygon, error) {
	return geometry.Difference(s.Boundary, s.Exclusion)
}

// UsableBoundary returns the zone boundary minus the site's exclusion.
func (z *Zone) UsableBoundary(exclusion orb.MultiPolygon) (orb.MultiPolygon, error) {
	return geometry.Difference(z.Boundary, exclusion)
}

// TotalPermanentClusters is the configured cluster count including clusters
// added by edits.
func (z *Zone) TotalPermanentClusters() int {
	return z.NumPermanentClusters + z.ExtraPermanentClusters
}

// FindZone returns the zone with the given name.
func (s *Site) FindZone(name string) *Zone {
	for i := range s.Zones {
		if s.Zones[i].Name == name {
			return &s.Zones[i]
		}
	}
	return nil
}

// ZoneByID returns the zone with the given ID.
func (s *Site) ZoneByID(id ZoneID) *Zone {
	for i := range s.Zones {
		if s.Zones[i].ID == id {
			return &s.Zones[i]
		}
	}
	return nil
}

// SubzoneByID returns the subzone with the given ID and the zone that owns it.
func (s *Site) SubzoneByID(id SubzoneID) (*Zone, *Subzone) {
	for i := range s.Zones {
		z := &s.Zones[i]
		for j := range z.Subzones {
			if z.Subzones[j].ID == id {
				return z, &z.Subzones[j]
			}
		}
	}
	return nil, nil
}

// FindSubzone returns the subzone with the given name.
func (z *Zone) FindSubzone(name string) *Subzone {
	for i := range z.Subzones {
		if z.Subzones[i].Name == name {
			return &z.Subzones[i]
		}
	}
	return nil
}

// Plots returns every plot in the zone.
func (z *Zone) Plots() []Plot {
	var out []Plot
	for i := range z.Subzones {
		out = append(out, z.Subzones[i].Plots...)
	}
	return out
}

// PlotRef locates a plot inside the tree.
type PlotRef struct {
	Zone    *Zone    // Nil for exterior plots
	Subzone *Subzone // Nil for exterior plots
	Plot    *Plot
}

// AllPlots returns references to every plot in the site, zone plots first
// in tree order, then exterior plots.
func (s *Site) AllPlots() []PlotRef {
	var refs []PlotRef
	for i := range s.Zones {
		z := &s.Zones[i]
		for j := range z.Subzones {
			sz := &z.Subzones[j]
			for k := range sz.Plots {
				refs = append(refs, PlotRef{Zone: z, Subzone: sz, Plot: &sz.Plots[k]})
			}
		}
	}
	for k := range s.ExteriorPlots {
		refs = append(refs, PlotRef{Plot: &s.ExteriorPlots[k]})
	}
	return refs
}

// MaxPlotNumber returns the highest plot number in the tree.
func (s *Site) MaxPlotNumber() int64 {
	var maxNumber int64
	for _, ref := range s.AllPlots() {
		if ref.Plot.Number > maxNumber {
			maxNumber = ref.Plot.Number
		}
	}
	return maxNumber
}

// FullSubzoneName builds the display name used for subzones.
func FullSubzoneName(zoneName, subzoneName string) string {
	return fmt.Sprintf("%s-%s", zoneName, subzoneName)
}

// Clone returns a deep copy of the site tree.
func (s *Site) Clone() *Site {
	if s == nil {
		return nil
	}
	c := *s
	c.Boundary = cloneMP(s.Boundary)
	c.Exclusion = cloneMP(s.Exclusion)
	c.GridOrigin = clonePoint(s.GridOrigin)
	c.Anchor = clonePoint(s.Anchor)
	c.AreaHa = cloneFloat(s.AreaHa)
	if s.HistoryID != nil {
		id := *s.HistoryID
		c.HistoryID = &id
	}
	c.Seasons = append([]PlantingSeason(nil), s.Seasons...)
	c.Zones = make([]Zone, len(s.Zones))
	for i := range s.Zones {
		c.Zones[i] = s.Zones[i].Clone()
	}
	if s.Zones == nil {
		c.Zones = nil
	}
	c.ExteriorPlots = clonePlots(s.ExteriorPlots)
	return &c
}

// Clone returns a deep copy of the zone.
func (z Zone) Clone() Zone {
	c := z
	c.Boundary = cloneMP(z.Boundary)
	c.AreaHa = cloneFloat(z.AreaHa)
	if z.Subzones != nil {
		c.Subzones = make([]Subzone, len(z.Subzones))
		for i := range z.Subzones {
			c.Subzones[i] = z.Subzones[i].Clone()
		}
	}
	return c
}

// Clone returns a deep copy of the subzone.
func (sz Subzone) Clone() Subzone {
	c := sz
	c.Boundary = cloneMP(sz.Boundary)
	c.AreaHa = cloneFloat(sz.AreaHa)
	if sz.PlantingCompletedTime != nil {
		t := *sz.PlantingCompletedTime
		c.PlantingCompletedTime = &t
	}
	c.Plots = clonePlots(sz.Plots)
	return c
}

// Clone returns a deep copy of the plot.
func (p Plot) Clone() Plot {
	c := p
	if p.Boundary != nil {
		c.Boundary = p.Boundary.Clone()
	}
	c.PermanentCluster = cloneInt(p.PermanentCluster)
	c.PermanentClusterSubplot = cloneInt(p.PermanentClusterSubplot)
	if p.SubzoneID != nil {
		id := *p.SubzoneID
		c.SubzoneID = &id
	}
	return c
}

func clonePlots(plots []Plot) []Plot {
	if plots == nil {
		return nil
	}
	out := make([]Plot, len(plots))
	for i := range plots {
		out[i] = plots[i].Clone()
	}
	return out
}

func cloneMP(mp orb.MultiPolygon) orb.MultiPolygon {
	if mp == nil {
		return nil
	}
	return mp.Clone()
}

func clonePoint(p *orb.Point) *orb.Point {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
