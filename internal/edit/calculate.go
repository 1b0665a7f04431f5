// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package edit

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
)

// growthEpsilon keeps an exact multiple of the per-cluster area from being
// rounded up to the next cluster.
const growthEpsilon = 1e-9

type calculator struct {
	existing *model.Site
	desired  *model.Site
	planted  map[model.SubzoneID]bool
	rules    model.Rules

	// desired zone name -> usable boundary after the edit
	desiredUsable map[string]orb.MultiPolygon
	conflicts     model.PlantedAreaConflictError
}

// Calculate computes the edit that turns existing into desired. Zones are
// matched by name, and subzones by name within their zone. Deleting a
// subzone whose ID is in planted fails with *model.PlantedAreaConflictError.
//
// existing must be populated to model.DepthPlot. desired carries no IDs and
// no plots; its zone sampling settings are only used for created zones.
func Calculate(existing, desired *model.Site, planted map[model.SubzoneID]bool, rules model.Rules) (*SiteEdit, error) {
	c := &calculator{
		existing:      existing,
		desired:       desired,
		planted:       planted,
		rules:         rules,
		desiredUsable: make(map[string]orb.MultiPolygon, len(desired.Zones)),
	}

	e := &SiteEdit{Existing: existing, Desired: desired}
	if err := c.siteDelta(e); err != nil {
		return nil, err
	}
	if err := c.zoneEdits(e); err != nil {
		return nil, err
	}
	if len(c.conflicts.SubzoneIDs) > 0 {
		conflict := c.conflicts
		return nil, &conflict
	}
	if err := c.plotEdits(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (c *calculator) siteDelta(e *SiteEdit) error {
	before, err := c.existing.UsableBoundary()
	if err != nil {
		return fmt.Errorf("existing site usable area: %w", err)
	}
	after, err := c.desired.UsableBoundary()
	if err != nil {
		return fmt.Errorf("desired site usable area: %w", err)
	}

	e.AddedRegion, e.RemovedRegion, err = c.delta(before, after)
	if err != nil {
		return err
	}

	boundaryChanged, err := c.differs(c.existing.Boundary, c.desired.Boundary)
	if err != nil {
		return err
	}
	exclusionChanged, err := c.differs(c.existing.Exclusion, c.desired.Exclusion)
	if err != nil {
		return err
	}
	if boundaryChanged || exclusionChanged || e.AddedRegion != nil || e.RemovedRegion != nil {
		e.Kind = Modified
	}
	return nil
}

func (c *calculator) zoneEdits(e *SiteEdit) error {
	matched := make(map[string]bool, len(c.desired.Zones))

	for i := range c.existing.Zones {
		ex := &c.existing.Zones[i]
		de := c.desired.FindZone(ex.Name)
		var (
			ze  ZoneEdit
			err error
		)
		if de == nil {
			ze, err = c.deletedZone(ex)
		} else {
			matched[de.Name] = true
			ze, err = c.matchedZone(ex, de)
		}
		if err != nil {
			return fmt.Errorf("zone %q: %w", ex.Name, err)
		}
		e.ZoneEdits = append(e.ZoneEdits, ze)
	}

	for i := range c.desired.Zones {
		de := &c.desired.Zones[i]
		if matched[de.Name] {
			continue
		}
		ze, err := c.createdZone(de)
		if err != nil {
			return fmt.Errorf("zone %q: %w", de.Name, err)
		}
		e.ZoneEdits = append(e.ZoneEdits, ze)
	}
	return nil
}

func (c *calculator) createdZone(de *model.Zone) (ZoneEdit, error) {
	usable, err := de.UsableBoundary(c.desired.Exclusion)
	if err != nil {
		return ZoneEdit{}, err
	}
	c.desiredUsable[de.Name] = usable

	ze := ZoneEdit{
		Kind:                    Created,
		Name:                    de.Name,
		Desired:                 de,
		AddedRegion:             usable,
		TargetPermanentClusters: de.NumPermanentClusters,
	}
	for i := range de.Subzones {
		sz := &de.Subzones[i]
		su, err := geometry.Difference(sz.Boundary, c.desired.Exclusion)
		if err != nil {
			return ZoneEdit{}, err
		}
		ze.SubzoneEdits = append(ze.SubzoneEdits, SubzoneEdit{
			Kind:        Created,
			Name:        sz.Name,
			Desired:     sz,
			AddedRegion: su,
		})
	}
	return ze, nil
}

func (c *calculator) deletedZone(ex *model.Zone) (ZoneEdit, error) {
	usable, err := ex.UsableBoundary(c.existing.Exclusion)
	if err != nil {
		return ZoneEdit{}, err
	}

	ze := ZoneEdit{
		Kind:                   Deleted,
		Name:                   ex.Name,
		Existing:               ex,
		RemovedRegion:          usable,
		ExtraPermanentClusters: ex.ExtraPermanentClusters,
	}
	for i := range ex.Subzones {
		sz := &ex.Subzones[i]
		c.checkPlanted(sz)
		su, err := geometry.Difference(sz.Boundary, c.existing.Exclusion)
		if err != nil {
			return ZoneEdit{}, err
		}
		ze.SubzoneEdits = append(ze.SubzoneEdits, SubzoneEdit{
			Kind:          Deleted,
			Name:          sz.Name,
			Existing:      sz,
			RemovedRegion: su,
		})
	}
	return ze, nil
}

func (c *calculator) matchedZone(ex, de *model.Zone) (ZoneEdit, error) {
	before, err := ex.UsableBoundary(c.existing.Exclusion)
	if err != nil {
		return ZoneEdit{}, err
	}
	after, err := de.UsableBoundary(c.desired.Exclusion)
	if err != nil {
		return ZoneEdit{}, err
	}
	c.desiredUsable[de.Name] = after

	ze := ZoneEdit{
		Kind:     Unchanged,
		Name:     ex.Name,
		Existing: ex,
		Desired:  de,
	}
	ze.AddedRegion, ze.RemovedRegion, err = c.delta(before, after)
	if err != nil {
		return ZoneEdit{}, err
	}
	changed, err := c.differs(ex.Boundary, de.Boundary)
	if err != nil {
		return ZoneEdit{}, err
	}
	if changed || ze.AddedRegion != nil || ze.RemovedRegion != nil {
		ze.Kind = Modified
	}

	ze.ExtraPermanentClusters = ex.ExtraPermanentClusters + c.clusterGrowth(ex, before, ze.AddedRegion, ze.RemovedRegion)
	ze.TargetPermanentClusters = ex.NumPermanentClusters + ze.ExtraPermanentClusters

	matched := make(map[string]bool, len(de.Subzones))
	for i := range ex.Subzones {
		exs := &ex.Subzones[i]
		des := de.FindSubzone(exs.Name)
		if des == nil {
			c.checkPlanted(exs)
			removed, err := geometry.Difference(exs.Boundary, c.existing.Exclusion)
			if err != nil {
				return ZoneEdit{}, err
			}
			ze.SubzoneEdits = append(ze.SubzoneEdits, SubzoneEdit{
				Kind:          Deleted,
				Name:          exs.Name,
				Existing:      exs,
				RemovedRegion: removed,
			})
			continue
		}
		matched[des.Name] = true
		se, err := c.matchedSubzone(exs, des)
		if err != nil {
			return ZoneEdit{}, fmt.Errorf("subzone %q: %w", exs.Name, err)
		}
		ze.SubzoneEdits = append(ze.SubzoneEdits, se)
	}
	for i := range de.Subzones {
		des := &de.Subzones[i]
		if matched[des.Name] {
			continue
		}
		added, err := geometry.Difference(des.Boundary, c.desired.Exclusion)
		if err != nil {
			return ZoneEdit{}, err
		}
		ze.SubzoneEdits = append(ze.SubzoneEdits, SubzoneEdit{
			Kind:        Created,
			Name:        des.Name,
			Desired:     des,
			AddedRegion: added,
		})
	}
	return ze, nil
}

func (c *calculator) matchedSubzone(ex, de *model.Subzone) (SubzoneEdit, error) {
	before, err := geometry.Difference(ex.Boundary, c.existing.Exclusion)
	if err != nil {
		return SubzoneEdit{}, err
	}
	after, err := geometry.Difference(de.Boundary, c.desired.Exclusion)
	if err != nil {
		return SubzoneEdit{}, err
	}

	se := SubzoneEdit{Kind: Unchanged, Name: ex.Name, Existing: ex, Desired: de}
	se.AddedRegion, se.RemovedRegion, err = c.delta(before, after)
	if err != nil {
		return SubzoneEdit{}, err
	}
	changed, err := c.differs(ex.Boundary, de.Boundary)
	if err != nil {
		return SubzoneEdit{}, err
	}
	if changed || se.AddedRegion != nil || se.RemovedRegion != nil {
		se.Kind = Modified
	}
	return se, nil
}

// clusterGrowth returns how many clusters to add to a zone whose usable area
// grew. Growth below one cluster footprint adds nothing. Otherwise the net
// added area is divided by the area each current cluster covers, rounding
// up. Earlier growth counts in both the area and the cluster total.
func (c *calculator) clusterGrowth(ex *model.Zone, before, added, removed orb.MultiPolygon) int {
	net := areaOf(added) - areaOf(removed)
	footprint := c.rules.ClusterSizeMeters() * c.rules.ClusterSizeMeters()
	if net <= footprint || ex.NumPermanentClusters <= 0 {
		return 0
	}
	perCluster := areaOf(before) / float64(ex.TotalPermanentClusters())
	if perCluster <= 0 {
		return 0
	}
	return int(math.Ceil(net/perCluster - growthEpsilon))
}

func (c *calculator) checkPlanted(sz *model.Subzone) {
	if sz.ID != 0 && c.planted[sz.ID] {
		c.conflicts.SubzoneIDs = append(c.conflicts.SubzoneIDs, sz.ID)
		c.conflicts.Names = append(c.conflicts.Names, sz.FullName)
	}
}

// delta returns the regions gained and lost between two boundaries. Regions
// no larger than the tolerance are reported as nil.
func (c *calculator) delta(before, after orb.MultiPolygon) (orb.MultiPolygon, orb.MultiPolygon, error) {
	if orb.Equal(before, after) {
		return nil, nil, nil
	}
	added, err := geometry.Difference(after, before)
	if err != nil {
		return nil, nil, err
	}
	removed, err := geometry.Difference(before, after)
	if err != nil {
		return nil, nil, err
	}
	if areaOf(added) <= c.rules.ToleranceSquareMeters {
		added = nil
	}
	if areaOf(removed) <= c.rules.ToleranceSquareMeters {
		removed = nil
	}
	return added, removed, nil
}

func (c *calculator) differs(a, b orb.MultiPolygon) (bool, error) {
	if len(a) == 0 && len(b) == 0 {
		return false, nil
	}
	if len(a) == 0 || len(b) == 0 {
		return true, nil
	}
	added, removed, err := c.delta(a, b)
	if err != nil {
		return false, err
	}
	return added != nil || removed != nil, nil
}

func areaOf(mp orb.MultiPolygon) float64 {
	return geometry.AreaSquareMeters(mp)
}
