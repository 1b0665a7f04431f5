// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

/*
Package store persists planting sites, their history snapshots and their
recorded plant populations.

Every read and write goes through a Tx obtained from Store.Begin. The
reconciliation applier drives one Tx per edit so a concurrent reader never
observes a half-applied edit.

Key Components:

  - Store / Tx: transactional interface consumed by the applier and services
  - MemoryStore: process-local implementation used by tests and the CLI dry run
  - DuckDBStore: database/sql implementation over DuckDB with versioned migrations

Geometry:

Boundaries are stored as WKT next to the SRID they were written in. Rows in
any SRID other than the canonical site-local frame are reprojected on read
through the site's anchor, so callers always see site-local meters.

Depth:

FetchSite takes a model.Depth. Collections below the requested depth are left
empty; the returned type is always *model.Site.
*/
package store
