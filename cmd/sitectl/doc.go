// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

/*
Command sitectl operates on planting sites stored in DuckDB.

Usage:

	sitectl [-config path] <command> [flags]

Commands:

	migrate                                   apply pending schema migrations
	create  -f site.json                      create a site from a document
	edit    -site ID -f desired.json [-apply] preview or apply a geometry edit
	        [-force-incomplete 1,2]           subzones whose completion is cleared if they grow
	delete  -site ID                          delete a site and everything under it
	report  -site ID                          print planted totals and progress
	history -site ID [-id N | -at RFC3339]    list histories, or print one

Without -apply, edit prints the calculated edit and writes nothing.

# Documents

Site documents are JSON. Geometries are GeoJSON Polygon or MultiPolygon
objects in the coordinate system named by srid (0 for site-local meters,
4326 or 3857):

	{
	  "organization_id": 1,
	  "name": "North Ridge",
	  "time_zone": "America/Bogota",
	  "srid": 4326,
	  "planting_seasons": [{"start_date": "2026-09-01", "end_date": "2026-11-30"}],
	  "zones": [{
	    "name": "Z1",
	    "boundary": {"type": "Polygon", "coordinates": [...]},
	    "target_planting_density": 1500,
	    "num_permanent_clusters": 3,
	    "subzones": [{"name": "A", "boundary": {...}}]
	  }]
	}

Edit documents use the same layout fields; identity fields are ignored.

# Configuration

Configuration is loaded with koanf from defaults, then the YAML file given by
-config (or CONFIG_PATH, or ./config.yaml), then environment variables such
as DUCKDB_PATH, LOG_LEVEL, EVENTS_BACKEND and NATS_URL.

sitectl runs with the admin role in every organization.
*/
package main
