// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

/*
Package reconcile applies a calculated and allocated edit to the persisted
site tree.

Apply runs inside a caller-owned store transaction. It builds the post-edit
tree in memory, validates it, and only then writes:

 1. the site boundary (the union of zone boundaries for detailed sites)
 2. created, modified and deleted zones and subzones
 3. cleared completion times for grown subzones the caller asked to reset
 4. new cluster plots, reused plots and renumbered clusters
 5. plots re-homed or taken out of service
 6. one site history row with a full snapshot of every zone, subzone and plot

A no-op edit writes nothing and produces no history. Any validation failure
is returned before the first write so the caller's rollback leaves the store
untouched.
*/
package reconcile
