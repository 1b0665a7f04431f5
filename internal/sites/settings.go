// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package sites

import (
	"context"
	"fmt"

	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/store"
	"github.com/tomtom215/plantingsites/internal/validation"
)

// RenameSite changes the site's name and the name on its current history.
// No new history is recorded.
func (s *Service) RenameSite(ctx context.Context, id model.SiteID, name string) error {
	if verr := validation.ValidateStruct(&renameRequest{Name: name}); verr != nil {
		return verr
	}
	ctx = s.logCtx(ctx, id)

	return store.WithTx(ctx, s.store, func(tx store.Tx) error {
		site, err := s.writableSite(ctx, tx, id, model.DepthSite, "update", s.authz.CanUpdateSite)
		if err != nil {
			return err
		}
		if site.Name == name {
			return nil
		}
		old := site.Name
		site.Name = name
		site.ModifiedTime = s.clock.Now()
		if err := tx.UpdateSite(ctx, site); err != nil {
			return fmt.Errorf("failed to rename planting site: %w", err)
		}
		if site.HistoryID != nil {
			if err := tx.RenameSiteHistory(ctx, *site.HistoryID, name); err != nil {
				return fmt.Errorf("failed to rename planting site history: %w", err)
			}
		}
		logging.Ctx(ctx).Info().Str("from", old).Str("to", name).Msg("Renamed planting site")
		return nil
	})
}

// RenameZone changes a zone's name, the full names of its subzones, and the
// same names on the site's current history.
func (s *Service) RenameZone(ctx context.Context, zoneID model.ZoneID, name string) error {
	if verr := validation.ValidateStruct(&renameRequest{Name: name}); verr != nil {
		return verr
	}

	return store.WithTx(ctx, s.store, func(tx store.Tx) error {
		siteID, err := tx.SiteOfZone(ctx, zoneID)
		if err != nil {
			return err
		}
		ctx := s.logCtx(ctx, siteID)
		site, err := s.writableSite(ctx, tx, siteID, model.DepthSubzone, "update", s.authz.CanUpdateSite)
		if err != nil {
			return err
		}
		zone := site.ZoneByID(zoneID)
		if zone == nil {
			return model.NotFound("planting zone", zoneID)
		}
		if zone.Name == name {
			return nil
		}
		if other := site.FindZone(name); other != nil {
			return &model.MapInvalidError{Problems: []model.MapProblem{
				{Entity: fmt.Sprintf("zone %q", name), Reason: "name is not unique"},
			}}
		}

		old := zone.Name
		zone.Name = name
		if err := tx.UpdateZone(ctx, zone); err != nil {
			return fmt.Errorf("failed to rename planting zone: %w", err)
		}
		for i := range zone.Subzones {
			sz := &zone.Subzones[i]
			sz.FullName = model.FullSubzoneName(name, sz.Name)
			if err := tx.UpdateSubzone(ctx, sz); err != nil {
				return fmt.Errorf("failed to rename planting subzone: %w", err)
			}
		}

		if site.HistoryID != nil {
			if err := tx.RenameZoneHistory(ctx, *site.HistoryID, zoneID, name); err != nil {
				return fmt.Errorf("failed to rename planting zone history: %w", err)
			}
			for _, sz := range zone.Subzones {
				if err := tx.RenameSubzoneHistory(ctx, *site.HistoryID, sz.ID, sz.Name, sz.FullName); err != nil {
					return fmt.Errorf("failed to rename planting subzone history: %w", err)
				}
			}
		}
		logging.Ctx(ctx).Info().Int64("zone_id", int64(zoneID)).Str("from", old).Str("to", name).Msg("Renamed planting zone")
		return nil
	})
}

// RenameSubzone changes a subzone's name and full name, live and on the
// site's current history.
func (s *Service) RenameSubzone(ctx context.Context, subzoneID model.SubzoneID, name string) error {
	if verr := validation.ValidateStruct(&renameRequest{Name: name}); verr != nil {
		return verr
	}

	return store.WithTx(ctx, s.store, func(tx store.Tx) error {
		siteID, err := tx.SiteOfSubzone(ctx, subzoneID)
		if err != nil {
			return err
		}
		ctx := s.logCtx(ctx, siteID)
		site, err := s.writableSite(ctx, tx, siteID, model.DepthSubzone, "update", s.authz.CanUpdateSite)
		if err != nil {
			return err
		}
		zone, sz := site.SubzoneByID(subzoneID)
		if sz == nil {
			return model.NotFound("planting subzone", subzoneID)
		}
		if sz.Name == name {
			return nil
		}
		if other := zone.FindSubzone(name); other != nil {
			return &model.MapInvalidError{Problems: []model.MapProblem{
				{Entity: fmt.Sprintf("subzone %q", model.FullSubzoneName(zone.Name, name)), Reason: "name is not unique within the zone"},
			}}
		}

		old := sz.FullName
		sz.Name = name
		sz.FullName = model.FullSubzoneName(zone.Name, name)
		if err := tx.UpdateSubzone(ctx, sz); err != nil {
			return fmt.Errorf("failed to rename planting subzone: %w", err)
		}
		if site.HistoryID != nil {
			if err := tx.RenameSubzoneHistory(ctx, *site.HistoryID, subzoneID, sz.Name, sz.FullName); err != nil {
				return fmt.Errorf("failed to rename planting subzone history: %w", err)
			}
		}
		logging.Ctx(ctx).Info().Int64("subzone_id", int64(subzoneID)).Str("from", old).Str("to", sz.FullName).Msg("Renamed planting subzone")
		return nil
	})
}

// UpdateZoneSettings replaces a zone's planting target and sampling
// parameters. Geometry and history are untouched.
func (s *Service) UpdateZoneSettings(ctx context.Context, zoneID model.ZoneID, settings ZoneSettings) (*model.Zone, error) {
	if verr := validation.ValidateStruct(&settings); verr != nil {
		return nil, verr
	}

	var zone model.Zone
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		siteID, err := tx.SiteOfZone(ctx, zoneID)
		if err != nil {
			return err
		}
		ctx := s.logCtx(ctx, siteID)
		site, err := s.writableSite(ctx, tx, siteID, model.DepthZone, "update", s.authz.CanUpdateSite)
		if err != nil {
			return err
		}
		z := site.ZoneByID(zoneID)
		if z == nil {
			return model.NotFound("planting zone", zoneID)
		}
		settings.applyTo(z)
		if err := tx.UpdateZone(ctx, z); err != nil {
			return fmt.Errorf("failed to update planting zone: %w", err)
		}
		zone = z.Clone()
		logging.Ctx(ctx).Debug().Int64("zone_id", int64(zoneID)).Msg("Updated planting zone settings")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

// SetSubzoneCompleted marks a subzone's planting as completed at the
// current instant, or clears the mark. Marking an already completed subzone
// keeps the original time.
func (s *Service) SetSubzoneCompleted(ctx context.Context, subzoneID model.SubzoneID, completed bool) error {
	return store.WithTx(ctx, s.store, func(tx store.Tx) error {
		siteID, err := tx.SiteOfSubzone(ctx, subzoneID)
		if err != nil {
			return err
		}
		ctx := s.logCtx(ctx, siteID)
		site, err := s.readableSite(ctx, tx, siteID, model.DepthSubzone)
		if err != nil {
			return err
		}
		if !s.authz.CanUpdateSubzoneCompleted(ctx, site.OrganizationID) {
			return &model.NotAuthorizedError{Action: "update completion of", Entity: "planting subzone", ID: int64(subzoneID)}
		}
		_, sz := site.SubzoneByID(subzoneID)
		if sz == nil {
			return model.NotFound("planting subzone", subzoneID)
		}

		switch {
		case completed && sz.PlantingCompletedTime == nil:
			now := s.clock.Now()
			sz.PlantingCompletedTime = &now
		case !completed && sz.PlantingCompletedTime != nil:
			sz.PlantingCompletedTime = nil
		default:
			return nil
		}
		if err := tx.UpdateSubzone(ctx, sz); err != nil {
			return fmt.Errorf("failed to update planting subzone: %w", err)
		}
		logging.Ctx(ctx).Info().Int64("subzone_id", int64(subzoneID)).Bool("completed", completed).Msg("Updated planting completion")
		return nil
	})
}

// UpdatePlantingSeasons replaces the site's planting seasons. Seasons whose
// dates are unchanged may lie in the past; new or changed seasons may not.
func (s *Service) UpdatePlantingSeasons(ctx context.Context, siteID model.SiteID, seasons []SeasonInput) ([]model.PlantingSeason, error) {
	if verr := validation.ValidateStruct(&seasonsRequest{Seasons: seasons}); verr != nil {
		return nil, verr
	}
	ctx = s.logCtx(ctx, siteID)

	var out []model.PlantingSeason
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		site, err := s.writableSite(ctx, tx, siteID, model.DepthSite, "update", s.authz.CanUpdateSite)
		if err != nil {
			return err
		}
		today := model.Today(s.clock.Now(), site.TimeZone)
		out, err = model.ValidateSeasons(toSeasons(seasons), site.Seasons, s.seasonRules, today)
		if err != nil {
			return err
		}
		if err := tx.ReplaceSeasons(ctx, siteID, out); err != nil {
			return fmt.Errorf("failed to save planting seasons: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Re-read so new seasons carry their assigned IDs.
	site, err := s.FetchSite(ctx, siteID, model.DepthSite)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Int("seasons", len(site.Seasons)).Msg("Updated planting seasons")
	return site.Seasons, nil
}
