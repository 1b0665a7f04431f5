// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

/*
Package sites is the entry point callers use to manage planting sites.

A Service wraps the store, authorization, the edit pipeline and event
publishing. Every call runs in one store transaction:

	svc := sites.New(st, authorizer,
		sites.WithPublisher(bus),
		sites.WithCountryDetector(detector),
	)

	res, err := svc.EditSite(ctx, siteID, layout, nil)
	var perr *events.PublishError
	if errors.As(err, &perr) {
		// committed; only the notification failed
	}

Geometric changes (CreateSite, EditSite, CreateTemporaryPlots) go through
edit calculation, cluster allocation and reconciliation and record a new
site history. Renames, zone settings, completion flags, seasons and plantings
change live rows only.

Sites the caller may not read are reported as not found. A caller who can
read a site but lacks the capability for a change gets a
*model.NotAuthorizedError.
*/
package sites
