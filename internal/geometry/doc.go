// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

/*
Package geometry provides the geometric primitives used by planting site
layouts: area in hectares, grid-aligned monitoring plot squares, coordinate
reference system normalization, containment tests, and polygon overlay
operations.

# Coordinate Systems

All geometry handled by the rest of the application is expressed in the
canonical CRS: site-local planar meters (SRID 0). Boundaries supplied in WGS84
(EPSG:4326) or Web Mercator (EPSG:3857) are converted through a Frame, an
equirectangular projection anchored at a WGS84 point. At the scale of a
planting site (a few kilometers) the distortion of this projection is well
below the plot grid resolution.

	frame := geometry.Frame{Anchor: orb.Point{-122.4, 37.7}}
	local, err := geometry.Reproject(boundary, geometry.SRIDWGS84, geometry.Canonical, &frame)

# Libraries

  - github.com/paulmach/orb: geometry types, planar area and containment,
    projections, WKT encoding
  - github.com/peterstace/simplefeatures: union, intersection and difference

Overlay operations exchange WKT with simplefeatures so both libraries keep
full float64 precision.

# Plot Grid

Every site has a grid origin. Monitoring plots are squares whose corners sit
on the lattice origin + (i*size, j*size). AlignToGrid snaps an arbitrary square
onto that lattice; IsGridAligned reports whether a plot already sits on it.
*/
package geometry
