// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

// Package report rolls recorded plant populations up the site tree and
// derives planting progress against zone density targets.
package report

import (
	"context"
	"math"
	"sort"

	"github.com/tomtom215/plantingsites/internal/model"
)

// Reader is the subset of a store transaction reporting needs.
type Reader interface {
	FetchSite(ctx context.Context, id model.SiteID, depth model.Depth) (*model.Site, error)
	SubzonePopulations(ctx context.Context, siteID model.SiteID) ([]model.SubzonePopulation, error)
	ZonePopulations(ctx context.Context, siteID model.SiteID) ([]model.ZonePopulation, error)
	SitePopulations(ctx context.Context, siteID model.SiteID) ([]model.SitePopulation, error)
}

// SpeciesTotals counts one species at one level of the tree.
type SpeciesTotals struct {
	SpeciesID                  model.SpeciesID `json:"species_id"`
	TotalPlants                int64           `json:"total_plants"`
	PlantsSinceLastObservation int64           `json:"plants_since_last_observation"`
}

// Totals are the sums over every species at one level.
type Totals struct {
	TotalPlants                int64           `json:"total_plants"`
	PlantsSinceLastObservation int64           `json:"plants_since_last_observation"`
	TotalSpecies               int             `json:"total_species"`
	Species                    []SpeciesTotals `json:"species"`
}

// SubzoneTotals is the report row for one subzone.
type SubzoneTotals struct {
	ID       model.SubzoneID `json:"id"`
	Name     string          `json:"name"`
	FullName string          `json:"full_name"`
	Totals
}

// ZoneTotals is the report row for one zone. TargetPlants and
// ProgressPercent are nil when the zone has no area or no density target.
type ZoneTotals struct {
	ID              model.ZoneID    `json:"id"`
	Name            string          `json:"name"`
	AreaHa          *float64        `json:"area_ha,omitempty"`
	TargetPlants    *float64        `json:"target_plants,omitempty"`
	ProgressPercent *int            `json:"progress_percent,omitempty"`
	Subzones        []SubzoneTotals `json:"subzones"`
	Totals
}

// SiteTotals is the root of a plant count report.
type SiteTotals struct {
	ID              model.SiteID `json:"id"`
	Name            string       `json:"name"`
	AreaHa          *float64     `json:"area_ha,omitempty"`
	ProgressPercent *int         `json:"progress_percent,omitempty"`
	Zones           []ZoneTotals `json:"zones"`
	Totals
}

// CountReportedPlants builds the plant count report for a site. Subzone,
// zone and site totals each come from their own population rows.
func CountReportedPlants(ctx context.Context, r Reader, siteID model.SiteID) (*SiteTotals, error) {
	site, err := r.FetchSite(ctx, siteID, model.DepthSubzone)
	if err != nil {
		return nil, err
	}
	subzonePops, err := r.SubzonePopulations(ctx, siteID)
	if err != nil {
		return nil, err
	}
	zonePops, err := r.ZonePopulations(ctx, siteID)
	if err != nil {
		return nil, err
	}
	sitePops, err := r.SitePopulations(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return Build(site, subzonePops, zonePops, sitePops), nil
}

// Build assembles a report from an already-loaded site and its population
// rows. Rows for subzones or zones not in the tree are ignored.
func Build(site *model.Site, subzonePops []model.SubzonePopulation, zonePops []model.ZonePopulation, sitePops []model.SitePopulation) *SiteTotals {
	bySubzone := make(map[model.SubzoneID][]SpeciesTotals)
	for _, p := range subzonePops {
		bySubzone[p.SubzoneID] = append(bySubzone[p.SubzoneID], SpeciesTotals{p.SpeciesID, p.TotalPlants, p.PlantsSinceLastObservation})
	}
	byZone := make(map[model.ZoneID][]SpeciesTotals)
	for _, p := range zonePops {
		byZone[p.ZoneID] = append(byZone[p.ZoneID], SpeciesTotals{p.SpeciesID, p.TotalPlants, p.PlantsSinceLastObservation})
	}
	var siteSpecies []SpeciesTotals
	for _, p := range sitePops {
		siteSpecies = append(siteSpecies, SpeciesTotals{p.SpeciesID, p.TotalPlants, p.PlantsSinceLastObservation})
	}

	out := &SiteTotals{
		ID:     site.ID,
		Name:   site.Name,
		AreaHa: site.AreaHa,
		Zones:  make([]ZoneTotals, 0, len(site.Zones)),
		Totals: sum(siteSpecies),
	}

	var siteTarget float64
	for i := range site.Zones {
		z := &site.Zones[i]
		zt := ZoneTotals{
			ID:       z.ID,
			Name:     z.Name,
			AreaHa:   z.AreaHa,
			Subzones: make([]SubzoneTotals, 0, len(z.Subzones)),
			Totals:   sum(byZone[z.ID]),
		}
		for j := range z.Subzones {
			sz := &z.Subzones[j]
			zt.Subzones = append(zt.Subzones, SubzoneTotals{
				ID:       sz.ID,
				Name:     sz.Name,
				FullName: sz.FullName,
				Totals:   sum(bySubzone[sz.ID]),
			})
		}
		if target := zoneTarget(z); target > 0 {
			zt.TargetPlants = &target
			zt.ProgressPercent = progress(zt.TotalPlants, target)
			siteTarget += target
		}
		out.Zones = append(out.Zones, zt)
	}
	if siteTarget > 0 {
		out.ProgressPercent = progress(out.TotalPlants, siteTarget)
	}
	return out
}

func zoneTarget(z *model.Zone) float64 {
	if z.AreaHa == nil || z.TargetPlantingDensity <= 0 {
		return 0
	}
	return *z.AreaHa * z.TargetPlantingDensity
}

func progress(planted int64, target float64) *int {
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return nil
	}
	pct := int(math.Round(float64(planted) / target * 100))
	return &pct
}

// sum merges rows per species and totals them.
func sum(rows []SpeciesTotals) Totals {
	merged := make(map[model.SpeciesID]*SpeciesTotals, len(rows))
	for _, r := range rows {
		if m, ok := merged[r.SpeciesID]; ok {
			m.TotalPlants += r.TotalPlants
			m.PlantsSinceLastObservation += r.PlantsSinceLastObservation
			continue
		}
		r := r
		merged[r.SpeciesID] = &r
	}

	t := Totals{Species: make([]SpeciesTotals, 0, len(merged))}
	for _, m := range merged {
		t.Species = append(t.Species, *m)
		t.TotalPlants += m.TotalPlants
		t.PlantsSinceLastObservation += m.PlantsSinceLastObservation
		if m.TotalPlants > 0 {
			t.TotalSpecies++
		}
	}
	sort.Slice(t.Species, func(i, j int) bool { return t.Species[i].SpeciesID < t.Species[j].SpeciesID })
	return t
}
