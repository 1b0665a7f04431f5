// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

/*
Package authz answers the capability questions the site service asks before
any mutation: may the caller create, read, update or delete a site, and may
they mark a subzone's planting complete.

Callers are identified by a Principal carried in the context. A principal
holds one role per organization, optionally with a global role that applies
everywhere (operator tooling uses this). Decisions are made by a Casbin
enforcer over the caller's role for the organization that owns the
resource:

	viewer       read sites
	contributor  viewer + complete subzones, record plantings
	manager      contributor + create, update and delete sites
	admin        everything

The model and policy are embedded; EnforcerConfig can point at files on disk
instead. Decisions are cached per (role, object, action) for CacheTTL.

A context without a principal is denied everything. AllowAll grants every
request and exists for tests and single-user tools.
*/
package authz
