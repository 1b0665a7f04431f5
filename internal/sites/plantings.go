// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package sites

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/plantingsites/internal/cluster"
	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/metrics"
	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/reconcile"
	"github.com/tomtom215/plantingsites/internal/report"
	"github.com/tomtom215/plantingsites/internal/store"
	"github.com/tomtom215/plantingsites/internal/validation"
)

// RecordPlanting adds count plants of a species to a subzone's population.
// Subzone, zone and site totals move together.
func (s *Service) RecordPlanting(ctx context.Context, subzoneID model.SubzoneID, speciesID model.SpeciesID, count int64) error {
	if verr := validation.ValidateStruct(&plantingRequest{SpeciesID: speciesID, Count: count}); verr != nil {
		return verr
	}

	return store.WithTx(ctx, s.store, func(tx store.Tx) error {
		siteID, err := tx.SiteOfSubzone(ctx, subzoneID)
		if err != nil {
			return err
		}
		ctx := s.logCtx(ctx, siteID)
		site, err := s.readableSite(ctx, tx, siteID, model.DepthSite)
		if err != nil {
			return err
		}
		if !s.authz.CanRecordPlanting(ctx, site.OrganizationID) {
			return &model.NotAuthorizedError{Action: "record planting in", Entity: "planting subzone", ID: int64(subzoneID)}
		}
		if err := tx.AddPlants(ctx, subzoneID, speciesID, count); err != nil {
			return fmt.Errorf("failed to record planting: %w", err)
		}
		logging.Ctx(ctx).Debug().
			Int64("subzone_id", int64(subzoneID)).
			Int64("species_id", int64(speciesID)).
			Int64("count", count).
			Msg("Recorded planting")
		return nil
	})
}

// ResetPlantsSinceLastObservation zeroes the since-last-observation counts
// at every level of the site. Totals are kept.
func (s *Service) ResetPlantsSinceLastObservation(ctx context.Context, siteID model.SiteID) error {
	ctx = s.logCtx(ctx, siteID)
	return store.WithTx(ctx, s.store, func(tx store.Tx) error {
		if _, err := s.writableSite(ctx, tx, siteID, model.DepthSite, "update", s.authz.CanUpdateSite); err != nil {
			return err
		}
		if err := tx.ResetPlantsSinceLastObservation(ctx, siteID); err != nil {
			return fmt.Errorf("failed to reset plant counts: %w", err)
		}
		logging.Ctx(ctx).Info().Msg("Reset plants since last observation")
		return nil
	})
}

// CountReportedPlants returns planted totals and progress for the site and
// each of its zones and subzones.
func (s *Service) CountReportedPlants(ctx context.Context, siteID model.SiteID) (*report.SiteTotals, error) {
	ctx = s.logCtx(ctx, siteID)
	var totals *report.SiteTotals
	err := s.view(ctx, func(tx store.Tx) error {
		if _, err := s.readableSite(ctx, tx, siteID, model.DepthSite); err != nil {
			return err
		}
		var err error
		totals, err = report.CountReportedPlants(ctx, tx, siteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

// CreateTemporaryPlots places up to count temporary plots in a zone for the
// next observation. Unavailable plots on a chosen grid cell are put back in
// service instead of creating new rows. The site gets a new history when
// any plot changes. Fewer plots than requested are returned when the zone
// has no more free cells.
func (s *Service) CreateTemporaryPlots(ctx context.Context, zoneID model.ZoneID, count int) ([]model.Plot, error) {
	if verr := validation.ValidateStruct(&temporaryPlotsRequest{Count: count}); verr != nil {
		return nil, verr
	}

	var (
		res     *reconcile.Result
		created []model.Plot
	)
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		siteID, err := tx.SiteOfZone(ctx, zoneID)
		if err != nil {
			return err
		}
		ctx := s.logCtx(ctx, siteID)
		site, err := s.writableSite(ctx, tx, siteID, model.DepthPlot, "update", s.authz.CanUpdateSite)
		if err != nil {
			return err
		}
		zone := site.ZoneByID(zoneID)
		if zone == nil {
			return model.NotFound("planting zone", zoneID)
		}

		placements, err := cluster.NewAllocator(s.rules, s.rng).PlaceTemporaryPlots(site, zone, count)
		if err != nil {
			return fmt.Errorf("failed to place temporary plots: %w", err)
		}
		if len(placements) == 0 {
			logging.Ctx(ctx).Warn().Int64("zone_id", int64(zoneID)).Msg("No free cells for temporary plots")
			return nil
		}

		existing := make(map[model.PlotID]*model.Plot)
		for _, ref := range site.AllPlots() {
			existing[ref.Plot.ID] = ref.Plot
		}

		now := s.clock.Now()
		ids := make([]model.PlotID, 0, len(placements))
		for _, pl := range placements {
			sz := zone.FindSubzone(pl.Subzone)
			if sz == nil {
				return fmt.Errorf("placement names unknown subzone %q", pl.Subzone)
			}
			owner := sz.ID

			if p, ok := existing[pl.ReusePlotID]; ok && pl.ReusePlotID != 0 {
				p.IsAvailable = true
				p.SubzoneID = &owner
				if err := tx.UpdatePlot(ctx, p); err != nil {
					return fmt.Errorf("failed to reuse plot %d: %w", p.Number, err)
				}
				ids = append(ids, p.ID)
				continue
			}

			number, err := tx.NextPlotNumber(ctx, siteID)
			if err != nil {
				return err
			}
			p := &model.Plot{
				Number:      number,
				Boundary:    pl.Boundary.ToPolygon(),
				SizeMeters:  s.rules.PlotSizeMeters,
				IsAvailable: true,
				SubzoneID:   &owner,
				CreatedTime: now,
			}
			id, err := tx.InsertPlot(ctx, siteID, p)
			if err != nil {
				return fmt.Errorf("failed to create plot %d: %w", number, err)
			}
			ids = append(ids, id)
		}

		next, err := tx.FetchSite(ctx, siteID, model.DepthPlot)
		if err != nil {
			return err
		}
		historyID, err := tx.InsertHistory(ctx, model.NewHistorySnapshot(next, now))
		if err != nil {
			return fmt.Errorf("failed to record site history: %w", err)
		}
		next.HistoryID = &historyID
		next.ModifiedTime = now
		if err := tx.UpdateSite(ctx, next); err != nil {
			return fmt.Errorf("failed to update planting site: %w", err)
		}

		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		want := make(map[model.PlotID]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
		for _, ref := range next.AllPlots() {
			if want[ref.Plot.ID] {
				created = append(created, ref.Plot.Clone())
			}
		}
		model.SortPlots(created)

		res = &reconcile.Result{Site: next, HistoryID: historyID, NewlyAvailable: ids}
		metrics.RecordTemporaryPlots(len(created))
		logging.Ctx(ctx).Info().
			Int64("zone_id", int64(zoneID)).
			Int("requested", count).
			Int("placed", len(created)).
			Int64("history_id", int64(historyID)).
			Msg("Created temporary plots")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, s.publishEdited(ctx, res)
}
