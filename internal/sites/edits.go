// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package sites

import (
	"context"

	"github.com/tomtom215/plantingsites/internal/edit"
	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/reconcile"
	"github.com/tomtom215/plantingsites/internal/store"
	"github.com/tomtom215/plantingsites/internal/validation"
)

// PreviewEdit calculates and allocates the edit that layout would cause
// without writing anything. Cluster placement is random, so applying the
// same layout afterwards may place clusters elsewhere.
func (s *Service) PreviewEdit(ctx context.Context, siteID model.SiteID, layout SiteLayout) (*edit.SiteEdit, error) {
	if verr := validation.ValidateStruct(&layout); verr != nil {
		return nil, verr
	}
	ctx = s.logCtx(ctx, siteID)

	var e *edit.SiteEdit
	err := s.view(ctx, func(tx store.Tx) error {
		existing, err := s.writableSite(ctx, tx, siteID, model.DepthPlot, "update", s.authz.CanUpdateSite)
		if err != nil {
			return err
		}
		desired, err := layout.toSite(existing.Name, existing.Frame())
		if err != nil {
			return err
		}
		e, err = s.calculate(ctx, tx, existing, desired)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// EditSite changes a site's geometry to layout. Subzones in forceIncomplete
// whose area grows have their planting-completed time cleared. Deleting a
// subzone with recorded plantings fails with *model.PlantedAreaConflictError
// and nothing is written.
//
// A *events.PublishError is returned together with the committed result when
// only the notification failed.
func (s *Service) EditSite(ctx context.Context, siteID model.SiteID, layout SiteLayout, forceIncomplete []model.SubzoneID) (*reconcile.Result, error) {
	if verr := validation.ValidateStruct(&layout); verr != nil {
		return nil, verr
	}
	ctx = s.logCtx(ctx, siteID)

	force := make(map[model.SubzoneID]bool, len(forceIncomplete))
	for _, id := range forceIncomplete {
		force[id] = true
	}

	var res *reconcile.Result
	err := store.WithTx(ctx, s.store, func(tx store.Tx) error {
		existing, err := s.writableSite(ctx, tx, siteID, model.DepthPlot, "update", s.authz.CanUpdateSite)
		if err != nil {
			return err
		}
		desired, err := layout.toSite(existing.Name, existing.Frame())
		if err != nil {
			return err
		}
		e, err := s.calculate(ctx, tx, existing, desired)
		if err != nil {
			return err
		}
		res, err = s.applier.Apply(ctx, tx, e, force)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, s.publishEdited(ctx, res)
}
