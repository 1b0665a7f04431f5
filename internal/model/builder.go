// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package model

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/geometry"
)

// SiteBuilder assembles a site tree in canonical coordinates. It is used to
// describe desired layouts and by tests to set up existing ones.
//
//	site, err := model.NewSiteBuilder("Mangroves", boundary).
//	    Zone("North", north, func(z *model.ZoneBuilder) {
//	        z.PermanentClusters(4).Subzone("A", northA).Subzone("B", northB)
//	    }).
//	    Build()
type SiteBuilder struct {
	site     *Site
	rules    Rules
	nextPlot int64
}

// ZoneBuilder configures one zone of a SiteBuilder.
type ZoneBuilder struct {
	parent *SiteBuilder
	zone   *Zone
}

// SubzoneBuilder configures one subzone of a ZoneBuilder.
type SubzoneBuilder struct {
	parent  *SiteBuilder
	subzone *Subzone
}

// NewSiteBuilder starts a site whose grid origin is the south-west corner of
// the boundary's envelope.
func NewSiteBuilder(name string, boundary orb.MultiPolygon) *SiteBuilder {
	site := &Site{Name: name, Boundary: boundary}
	if len(boundary) > 0 {
		origin := boundary.Bound().Min
		site.GridOrigin = &origin
	}
	return &SiteBuilder{site: site, rules: DefaultRules(), nextPlot: 1}
}

// WithRules overrides the plot size used for plots added by the builder.
func (b *SiteBuilder) WithRules(r Rules) *SiteBuilder {
	b.rules = r
	return b
}

// WithExclusion sets the exclusion area.
func (b *SiteBuilder) WithExclusion(mp orb.MultiPolygon) *SiteBuilder {
	b.site.Exclusion = mp
	return b
}

// WithGridOrigin overrides the default grid origin.
func (b *SiteBuilder) WithGridOrigin(p orb.Point) *SiteBuilder {
	b.site.GridOrigin = &p
	return b
}

// WithTimeZone sets the site's IANA time zone.
func (b *SiteBuilder) WithTimeZone(tz string) *SiteBuilder {
	b.site.TimeZone = tz
	return b
}

// WithOrganization sets the owning organization.
func (b *SiteBuilder) WithOrganization(id OrganizationID) *SiteBuilder {
	b.site.OrganizationID = id
	return b
}

// Zone adds a zone. A zone that ends up with no subzones gets a single
// subzone with the zone's name and boundary.
func (b *SiteBuilder) Zone(name string, boundary orb.MultiPolygon, configure ...func(*ZoneBuilder)) *SiteBuilder {
	b.site.Zones = append(b.site.Zones, Zone{
		Name:                  name,
		Boundary:              boundary,
		TargetPlantingDensity: 1500,
		NumPermanentClusters:  0,
	})
	zb := &ZoneBuilder{parent: b, zone: &b.site.Zones[len(b.site.Zones)-1]}
	for _, fn := range configure {
		fn(zb)
	}
	if len(zb.zone.Subzones) == 0 {
		zb.Subzone(name, boundary)
	}
	return b
}

// ExteriorPlot adds a plot outside every subzone.
func (b *SiteBuilder) ExteriorPlot(sw orb.Point) *SiteBuilder {
	p := b.newPlot(sw, b.rules.PlotSizeMeters)
	b.site.ExteriorPlots = append(b.site.ExteriorPlots, p)
	return b
}

// Build computes areas and returns the finished tree. The builder must not
// be reused afterwards.
func (b *SiteBuilder) Build() (*Site, error) {
	if err := RecomputeAreas(b.site); err != nil {
		return nil, err
	}
	return b.site, nil
}

// MustBuild is Build for fixtures; it panics on overlay failure.
func (b *SiteBuilder) MustBuild() *Site {
	site, err := b.Build()
	if err != nil {
		panic(err)
	}
	return site
}

func (b *SiteBuilder) newPlot(sw orb.Point, size int) Plot {
	p := Plot{
		Number:      b.nextPlot,
		Boundary:    geometry.Square(sw, float64(size)).ToPolygon(),
		SizeMeters:  size,
		IsAvailable: true,
	}
	b.nextPlot++
	return p
}

// PermanentClusters sets the configured permanent cluster count.
func (zb *ZoneBuilder) PermanentClusters(n int) *ZoneBuilder {
	zb.zone.NumPermanentClusters = n
	return zb
}

// ExtraPermanentClusters sets the edit-added cluster count.
func (zb *ZoneBuilder) ExtraPermanentClusters(n int) *ZoneBuilder {
	zb.zone.ExtraPermanentClusters = n
	return zb
}

// TemporaryPlots sets the configured temporary plot count.
func (zb *ZoneBuilder) TemporaryPlots(n int) *ZoneBuilder {
	zb.zone.NumTemporaryPlots = n
	return zb
}

// TargetDensity sets the planting density target in plants per hectare.
func (zb *ZoneBuilder) TargetDensity(d float64) *ZoneBuilder {
	zb.zone.TargetPlantingDensity = d
	return zb
}

// Subzone adds a subzone to the zone.
func (zb *ZoneBuilder) Subzone(name string, boundary orb.MultiPolygon, configure ...func(*SubzoneBuilder)) *ZoneBuilder {
	zb.zone.Subzones = append(zb.zone.Subzones, Subzone{
		Name:     name,
		FullName: FullSubzoneName(zb.zone.Name, name),
		Boundary: boundary,
	})
	sb := &SubzoneBuilder{parent: zb.parent, subzone: &zb.zone.Subzones[len(zb.zone.Subzones)-1]}
	for _, fn := range configure {
		fn(sb)
	}
	return zb
}

// Cluster adds a permanent cluster whose south-west corner is sw.
func (sb *SubzoneBuilder) Cluster(number int, sw orb.Point) *SubzoneBuilder {
	size := sb.parent.rules.PlotSizeMeters
	square := geometry.Square(sw, float64(2*size))
	for i, q := range geometry.Quadrants(square) {
		p := sb.parent.newPlot(q.Min, size)
		p.PermanentCluster = IntPtr(number)
		p.PermanentClusterSubplot = IntPtr(i + 1)
		sb.subzone.Plots = append(sb.subzone.Plots, p)
	}
	return sb
}

// Plot adds a single unclustered plot.
func (sb *SubzoneBuilder) Plot(sw orb.Point) *SubzoneBuilder {
	sb.subzone.Plots = append(sb.subzone.Plots, sb.parent.newPlot(sw, sb.parent.rules.PlotSizeMeters))
	return sb
}

// SizedPlot adds a plot with a non-standard edge length.
func (sb *SubzoneBuilder) SizedPlot(sw orb.Point, size int) *SubzoneBuilder {
	sb.subzone.Plots = append(sb.subzone.Plots, sb.parent.newPlot(sw, size))
	return sb
}

// Completed marks the subzone's planting as completed at t.
func (sb *SubzoneBuilder) Completed(t time.Time) *SubzoneBuilder {
	sb.subzone.PlantingCompletedTime = &t
	return sb
}
