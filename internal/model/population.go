// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package model

// Population rows are recorded independently at each level of the tree.
// Totals at a coarser level are not derived from the finer levels because
// historical plantings may only have been recorded at the coarser level.

// SubzonePopulation counts plants of one species in a subzone.
type SubzonePopulation struct {
	SubzoneID                  SubzoneID `json:"subzone_id"`
	SpeciesID                  SpeciesID `json:"species_id"`
	TotalPlants                int64     `json:"total_plants"`
	PlantsSinceLastObservation int64     `json:"plants_since_last_observation"`
}

// ZonePopulation counts plants of one species in a zone.
type ZonePopulation struct {
	ZoneID                     ZoneID    `json:"zone_id"`
	SpeciesID                  SpeciesID `json:"species_id"`
	TotalPlants                int64     `json:"total_plants"`
	PlantsSinceLastObservation int64     `json:"plants_since_last_observation"`
}

// SitePopulation counts plants of one species across the site.
type SitePopulation struct {
	SiteID                     SiteID    `json:"site_id"`
	SpeciesID                  SpeciesID `json:"species_id"`
	TotalPlants                int64     `json:"total_plants"`
	PlantsSinceLastObservation int64     `json:"plants_since_last_observation"`
}
