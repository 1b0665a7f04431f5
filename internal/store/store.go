// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package store

import (
	"context"
	"time"

	"github.com/tomtom215/plantingsites/internal/model"
)

// Store opens transactions against the site tables.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is a unit of work. Callers must end it with exactly one of Commit or
// Rollback; Rollback after Commit is a no-op.
type Tx interface {
	Commit() error
	Rollback() error

	// Sites. UpdateSite writes the site's own columns and seasons are
	// replaced separately; zones, subzones and plots are never touched.
	FetchSite(ctx context.Context, id model.SiteID, depth model.Depth) (*model.Site, error)
	ListSites(ctx context.Context, org model.OrganizationID) ([]model.Site, error)
	InsertSite(ctx context.Context, site *model.Site) (model.SiteID, error)
	UpdateSite(ctx context.Context, site *model.Site) error
	DeleteSite(ctx context.Context, id model.SiteID) error
	ReplaceSeasons(ctx context.Context, id model.SiteID, seasons []model.PlantingSeason) error

	// Owning site lookups for calls addressed by zone or subzone.
	SiteOfZone(ctx context.Context, id model.ZoneID) (model.SiteID, error)
	SiteOfSubzone(ctx context.Context, id model.SubzoneID) (model.SiteID, error)

	// Zones and subzones. Deleting detaches history rows instead of removing them.
	InsertZone(ctx context.Context, siteID model.SiteID, zone *model.Zone) (model.ZoneID, error)
	UpdateZone(ctx context.Context, zone *model.Zone) error
	DeleteZone(ctx context.Context, id model.ZoneID) error
	InsertSubzone(ctx context.Context, zoneID model.ZoneID, subzone *model.Subzone) (model.SubzoneID, error)
	UpdateSubzone(ctx context.Context, subzone *model.Subzone) error
	DeleteSubzone(ctx context.Context, id model.SubzoneID) error

	// Plots are never deleted individually.
	InsertPlot(ctx context.Context, siteID model.SiteID, plot *model.Plot) (model.PlotID, error)
	UpdatePlot(ctx context.Context, plot *model.Plot) error
	NextPlotNumber(ctx context.Context, siteID model.SiteID) (int64, error)

	// History.
	InsertHistory(ctx context.Context, snapshot *model.HistorySnapshot) (model.SiteHistoryID, error)
	FetchHistory(ctx context.Context, siteID model.SiteID, id model.SiteHistoryID) (*model.HistorySnapshot, error)
	ListHistories(ctx context.Context, siteID model.SiteID) ([]model.SiteHistory, error)
	HistoryAsOf(ctx context.Context, siteID model.SiteID, at time.Time) (*model.HistorySnapshot, error)
	RenameSiteHistory(ctx context.Context, id model.SiteHistoryID, name string) error
	RenameZoneHistory(ctx context.Context, id model.SiteHistoryID, zoneID model.ZoneID, name string) error
	RenameSubzoneHistory(ctx context.Context, id model.SiteHistoryID, subzoneID model.SubzoneID, name, fullName string) error

	// Populations.
	AddPlants(ctx context.Context, subzoneID model.SubzoneID, speciesID model.SpeciesID, count int64) error
	SubzonePopulations(ctx context.Context, siteID model.SiteID) ([]model.SubzonePopulation, error)
	ZonePopulations(ctx context.Context, siteID model.SiteID) ([]model.ZonePopulation, error)
	SitePopulations(ctx context.Context, siteID model.SiteID) ([]model.SitePopulation, error)
	ResetPlantsSinceLastObservation(ctx context.Context, siteID model.SiteID) error
	PlantedSubzoneIDs(ctx context.Context, siteID model.SiteID) (map[model.SubzoneID]bool, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DuckDBStore)(nil)
	_ Tx    = (*memoryTx)(nil)
	_ Tx    = (*duckdbTx)(nil)
)

// WithTx runs fn in a transaction, committing on success. The transaction
// is rolled back whenever it was not committed, including when fn panics;
// the panic is then propagated.
func WithTx(ctx context.Context, s Store, fn func(tx Tx) error) (err error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			rollback(tx, err)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
