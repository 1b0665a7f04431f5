// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

/*
Package model defines the planting site hierarchy and its structural rules.

A Site owns a slice of Zones, each Zone owns a slice of Subzones, and each
Subzone owns the monitoring Plots that fall inside it. Plots that no longer
fall inside any subzone are kept on the site as exterior plots so their
observation history survives. There are no back-references; callers walk the
tree from the site down.

Key Components:

  - Site, Zone, Subzone, Plot: the live tree, populated to a requested Depth
  - SiteHistory, ZoneHistory, SubzoneHistory, PlotHistory: append-only snapshots
  - PlantingSeason: date ranges with a derived IsActive flag
  - Population rows: per-species plant totals recorded at each level
  - Validate: the structural validator run before any edit is persisted
  - Builder: fluent construction of site trees for callers and tests

Error Kinds:

Every failure the engine can report is a concrete error type in this package
(NotFoundError, NotAuthorizedError, MapInvalidError, PlantedAreaConflictError,
SeasonError). Each matches a sentinel with errors.Is, so callers can branch on
the kind without a type switch:

	if errors.Is(err, model.ErrPlantedAreaConflict) {
	    // ask the user to move plantings first
	}

Geometry is always expressed in site-local planar meters; see package
geometry for the conversions.
*/
package model
