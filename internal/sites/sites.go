// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package sites

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/reconcile"
	"github.com/tomtom215/plantingsites/internal/store"
	"github.com/tomtom215/plantingsites/internal/validation"
)

// view runs fn in a transaction that is always rolled back.
func (s *Service) view(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	return fn(tx)
}

// CreateSite inserts a bare site and applies the request's layout to it
// through the edit pipeline, so the first geometric state is recorded as
// the site's first history. Sites in geographic coordinates are anchored at
// the south-west corner of their layout.
//
// A *events.PublishError is returned together with the committed result when
// only the notification failed.
func (s *Service) CreateSite(ctx context.Context, req CreateSiteRequest) (*reconcile.Result, error) {
	if verr := validation.ValidateStruct(&req); verr != nil {
		return nil, verr
	}
	if !s.authz.CanCreateSite(ctx, req.OrganizationID) {
		return nil, &model.NotAuthorizedError{Action: "create", Entity: siteEntity}
	}
	ctx = s.logCtx(ctx, 0)

	anchor, err := req.Layout.anchor()
	if err != nil {
		return nil, err
	}
	var frame *geometry.Frame
	if anchor != nil {
		frame = &geometry.Frame{Anchor: *anchor}
	}
	desired, err := req.Layout.toSite(req.Name, frame)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	seasons, err := model.ValidateSeasons(toSeasons(req.Seasons), nil, s.seasonRules, model.Today(now, req.TimeZone))
	if err != nil {
		return nil, err
	}

	var res *reconcile.Result
	err = store.WithTx(ctx, s.store, func(tx store.Tx) error {
		id, err := tx.InsertSite(ctx, &model.Site{
			OrganizationID: req.OrganizationID,
			Name:           req.Name,
			Description:    req.Description,
			TimeZone:       req.TimeZone,
			Anchor:         anchor,
			CreatedTime:    now,
			ModifiedTime:   now,
		})
		if err != nil {
			return fmt.Errorf("failed to create planting site: %w", err)
		}
		if len(seasons) > 0 {
			if err := tx.ReplaceSeasons(ctx, id, seasons); err != nil {
				return fmt.Errorf("failed to save planting seasons: %w", err)
			}
		}

		existing, err := tx.FetchSite(ctx, id, model.DepthPlot)
		if err != nil {
			return err
		}
		e, err := s.calculate(ctx, tx, existing, desired)
		if err != nil {
			return err
		}
		res, err = s.applier.Apply(ctx, tx, e, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	ctx = logging.ContextWithSite(ctx, int64(res.Site.ID))
	logging.Ctx(ctx).Info().
		Int64("organization_id", int64(req.OrganizationID)).
		Str("name", req.Name).
		Int("zones", len(res.Site.Zones)).
		Msg("Created planting site")
	return res, s.publishEdited(ctx, res)
}

// DeleteSite removes a site with its zones, subzones, plots, histories and
// populations, then publishes SiteDeleted.
func (s *Service) DeleteSite(ctx context.Context, id model.SiteID) error {
	ctx = s.logCtx(ctx, id)

	var site *model.Site
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		var err error
		site, err = s.writableSite(ctx, tx, id, model.DepthSite, "delete", s.authz.CanDeleteSite)
		if err != nil {
			return err
		}
		return tx.DeleteSite(ctx, id)
	})
	if err != nil {
		return err
	}

	logging.Ctx(ctx).Info().Str("name", site.Name).Msg("Deleted planting site")
	return s.publishDeleted(ctx, site)
}

// FetchSite returns the live site populated down to depth, with each
// season's IsActive computed for today in the site's time zone.
func (s *Service) FetchSite(ctx context.Context, id model.SiteID, depth model.Depth) (*model.Site, error) {
	var site *model.Site
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		site, err = s.readableSite(ctx, tx, id, depth)
		return err
	})
	if err != nil {
		return nil, err
	}
	model.RefreshActive(site.Seasons, model.Today(s.clock.Now(), site.TimeZone))
	return site, nil
}

// ListSites returns the sites of org the caller may read, without zones.
// Organization 0 lists every readable site.
func (s *Service) ListSites(ctx context.Context, org model.OrganizationID) ([]model.Site, error) {
	var sites []model.Site
	err := s.view(ctx, func(tx store.Tx) error {
		all, err := tx.ListSites(ctx, org)
		if err != nil {
			return err
		}
		for _, site := range all {
			if s.authz.CanReadSite(ctx, site.OrganizationID) {
				sites = append(sites, site)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for i := range sites {
		model.RefreshActive(sites[i].Seasons, model.Today(now, sites[i].TimeZone))
	}
	return sites, nil
}

// FetchSiteHistory reconstructs the site as recorded by one history.
func (s *Service) FetchSiteHistory(ctx context.Context, siteID model.SiteID, historyID model.SiteHistoryID, depth model.Depth) (*model.Site, error) {
	var site *model.Site
	err := s.view(ctx, func(tx store.Tx) error {
		live, err := s.readableSite(ctx, tx, siteID, model.DepthSite)
		if err != nil {
			return err
		}
		snapshot, err := tx.FetchHistory(ctx, siteID, historyID)
		if err != nil {
			return err
		}
		site = fromSnapshot(snapshot, live, depth)
		return nil
	})
	return site, err
}

// FetchSiteAsOf reconstructs the site as it was at the given instant: the
// latest history created at or before it.
func (s *Service) FetchSiteAsOf(ctx context.Context, siteID model.SiteID, at time.Time, depth model.Depth) (*model.Site, error) {
	var site *model.Site
	err := s.view(ctx, func(tx store.Tx) error {
		live, err := s.readableSite(ctx, tx, siteID, model.DepthSite)
		if err != nil {
			return err
		}
		snapshot, err := tx.HistoryAsOf(ctx, siteID, at)
		if err != nil {
			return err
		}
		site = fromSnapshot(snapshot, live, depth)
		return nil
	})
	return site, err
}

// ListSiteHistories returns the site's histories, oldest first.
func (s *Service) ListSiteHistories(ctx context.Context, siteID model.SiteID) ([]model.SiteHistory, error) {
	var histories []model.SiteHistory
	err := s.view(ctx, func(tx store.Tx) error {
		if _, err := s.readableSite(ctx, tx, siteID, model.DepthSite); err != nil {
			return err
		}
		var err error
		histories, err = tx.ListHistories(ctx, siteID)
		return err
	})
	return histories, err
}

// fromSnapshot rebuilds a historical tree and fills the identity columns
// history does not record from the live site.
func fromSnapshot(snapshot *model.HistorySnapshot, live *model.Site, depth model.Depth) *model.Site {
	site := snapshot.ToSite(depth)
	site.OrganizationID = live.OrganizationID
	site.Anchor = live.Anchor
	site.TimeZone = live.TimeZone
	site.CountryCode = live.CountryCode
	return site
}
