// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package sites

import (
	"time"

	"github.com/tomtom215/plantingsites/internal/model"
)

// CreateSiteRequest describes a new site. The layout may be empty; the site
// then has no geometry until its first edit.
type CreateSiteRequest struct {
	OrganizationID model.OrganizationID `json:"organization_id" validate:"required"`
	Name           string               `json:"name" validate:"required,max=100,trimmed"`
	Description    string               `json:"description,omitempty" validate:"max=2000"`
	TimeZone       string               `json:"time_zone,omitempty" validate:"omitempty,timezone"`
	Seasons        []SeasonInput        `json:"planting_seasons,omitempty" validate:"dive"`
	Layout         SiteLayout           `json:"layout"`
}

// SeasonInput is one planting season in a full replacement set. ID is set
// for seasons that already exist.
type SeasonInput struct {
	ID        model.SeasonID `json:"id,omitempty"`
	StartDate time.Time      `json:"start_date" validate:"required"`
	EndDate   time.Time      `json:"end_date" validate:"required"`
}

func (in SeasonInput) toModel() model.PlantingSeason {
	return model.PlantingSeason{
		ID:        in.ID,
		StartDate: model.Date(in.StartDate.Year(), in.StartDate.Month(), in.StartDate.Day()),
		EndDate:   model.Date(in.EndDate.Year(), in.EndDate.Month(), in.EndDate.Day()),
	}
}

func toSeasons(in []SeasonInput) []model.PlantingSeason {
	out := make([]model.PlantingSeason, len(in))
	for i, s := range in {
		out[i] = s.toModel()
	}
	return out
}

// ZoneSettings are a zone's planting target and sampling parameters.
type ZoneSettings struct {
	TargetPlantingDensity float64 `json:"target_planting_density" validate:"gte=0"`
	ErrorMargin           float64 `json:"error_margin" validate:"gte=0"`
	StudentsT             float64 `json:"students_t" validate:"gte=0"`
	Variance              float64 `json:"variance" validate:"gte=0"`
	NumPermanentClusters  int     `json:"num_permanent_clusters" validate:"gte=0"`
	NumTemporaryPlots     int     `json:"num_temporary_plots" validate:"gte=0"`
}

func (zs ZoneSettings) applyTo(z *model.Zone) {
	z.TargetPlantingDensity = zs.TargetPlantingDensity
	z.ErrorMargin = zs.ErrorMargin
	z.StudentsT = zs.StudentsT
	z.Variance = zs.Variance
	z.NumPermanentClusters = zs.NumPermanentClusters
	z.NumTemporaryPlots = zs.NumTemporaryPlots
}

type renameRequest struct {
	Name string `validate:"required,max=100,trimmed"`
}

type seasonsRequest struct {
	Seasons []SeasonInput `validate:"dive"`
}

type plantingRequest struct {
	SpeciesID model.SpeciesID `validate:"required"`
	Count     int64           `validate:"gte=1"`
}

type temporaryPlotsRequest struct {
	Count int `validate:"gte=1,lte=1000"`
}
