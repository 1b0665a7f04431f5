// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

/*
Package cluster places permanent plot clusters and temporary plots on a
site's plot grid.

A permanent cluster is a square two plots wide whose four quadrants are
grid-aligned plots, numbered 1 (south-west) through 4 (north-west). When an
edit leaves a zone with fewer usable clusters than its target, the Allocator
searches the area the edit added to the zone for squares where all four
quadrants fit inside a single subzone each and do not collide with existing
plots. Squares whose quadrants line up exactly with leftover unclustered
plots are preferred so those plots' observation history carries over.

New clusters are numbered with Renumber: each new cluster lands on a
uniformly random position among the zone's final cluster count and the
existing clusters shift up around them, preserving their relative order.

Randomness is injected through the Random interface so tests can use a
seeded generator:

	alloc := cluster.NewAllocator(model.DefaultRules(), cluster.NewSeeded(42))
	if err := alloc.Allocate(siteEdit); err != nil {
	    return err
	}

When a zone cannot fit its full target, the allocator places as many
clusters as fit and leaves the shortfall unfilled.
*/
package cluster
