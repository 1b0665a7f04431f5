// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
)

var suiteNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func rect(minX, minY, maxX, maxY float64) orb.MultiPolygon {
	return geometry.BoundToMultiPolygon(orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}})
}

// fixtureSite builds a 150x60 site with one zone, two subzones, a cluster in
// the west subzone and one exterior plot.
func fixtureSite() *model.Site {
	site := model.NewSiteBuilder("Riverbend", rect(0, 0, 150, 60)).
		WithTimeZone("America/Bogota").
		WithOrganization(7).
		Zone("North", rect(0, 0, 150, 60), func(z *model.ZoneBuilder) {
			z.PermanentClusters(1).
				Subzone("West", rect(0, 0, 90, 60), func(s *model.SubzoneBuilder) {
					s.Cluster(1, orb.Point{0, 0})
				}).
				Subzone("East", rect(90, 0, 150, 60))
		}).
		MustBuild()
	site.ExteriorPlots = append(site.ExteriorPlots, model.Plot{
		Number:      99,
		Boundary:    geometry.Square(orb.Point{300, 300}, 30).ToPolygon(),
		SizeMeters:  30,
		IsAvailable: false,
	})
	return site
}

// insertTree persists a built tree through tx and writes the assigned IDs back.
func insertTree(t *testing.T, ctx context.Context, tx Tx, site *model.Site) {
	t.Helper()

	site.CreatedTime = suiteNow
	site.ModifiedTime = suiteNow
	id, err := tx.InsertSite(ctx, site)
	if err != nil {
		t.Fatalf("InsertSite failed: %v", err)
	}
	site.ID = id
	for i := range site.Zones {
		z := &site.Zones[i]
		z.BoundaryModifiedTime = suiteNow
		if z.ID, err = tx.InsertZone(ctx, id, z); err != nil {
			t.Fatalf("InsertZone failed: %v", err)
		}
		for j := range z.Subzones {
			sz := &z.Subzones[j]
			if sz.ID, err = tx.InsertSubzone(ctx, z.ID, sz); err != nil {
				t.Fatalf("InsertSubzone failed: %v", err)
			}
			for k := range sz.Plots {
				p := &sz.Plots[k]
				szID := sz.ID
				p.SubzoneID = &szID
				p.CreatedTime = suiteNow
				if p.ID, err = tx.InsertPlot(ctx, id, p); err != nil {
					t.Fatalf("InsertPlot failed: %v", err)
				}
			}
		}
	}
	for k := range site.ExteriorPlots {
		p := &site.ExteriorPlots[k]
		p.CreatedTime = suiteNow
		if p.ID, err = tx.InsertPlot(ctx, id, p); err != nil {
			t.Fatalf("InsertPlot failed: %v", err)
		}
	}
}

func begin(t *testing.T, s Store) Tx {
	t.Helper()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	return tx
}

func commit(t *testing.T, tx Tx) {
	t.Helper()
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

// runStoreSuite exercises behavior every Store implementation must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("fetch by depth", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tx := begin(t, s)
		site := fixtureSite()
		insertTree(t, ctx, tx, site)
		commit(t, tx)

		tx = begin(t, s)
		defer func() { _ = tx.Rollback() }()

		tests := []struct {
			depth    model.Depth
			zones    int
			subzones int
			plots    int
			exterior int
		}{
			{model.DepthSite, 0, 0, 0, 0},
			{model.DepthZone, 1, 0, 0, 0},
			{model.DepthSubzone, 1, 2, 0, 0},
			{model.DepthPlot, 1, 2, 4, 1},
		}
		for _, tt := range tests {
			got, err := tx.FetchSite(ctx, site.ID, tt.depth)
			if err != nil {
				t.Fatalf("FetchSite(%s) failed: %v", tt.depth, err)
			}
			subzones, plots := 0, 0
			for _, z := range got.Zones {
				subzones += len(z.Subzones)
				plots += len(z.Plots())
			}
			if len(got.Zones) != tt.zones || subzones != tt.subzones || plots != tt.plots || len(got.ExteriorPlots) != tt.exterior {
				t.Errorf("depth %s: expected %d/%d/%d/%d, got %d/%d/%d/%d", tt.depth,
					tt.zones, tt.subzones, tt.plots, tt.exterior,
					len(got.Zones), subzones, plots, len(got.ExteriorPlots))
			}
		}

		got, err := tx.FetchSite(ctx, site.ID, model.DepthPlot)
		if err != nil {
			t.Fatalf("FetchSite failed: %v", err)
		}
		if got.Name != "Riverbend" || got.TimeZone != "America/Bogota" || got.OrganizationID != 7 {
			t.Errorf("site columns not round-tripped: %+v", got)
		}
		if got.GridOrigin == nil || *got.GridOrigin != (orb.Point{0, 0}) {
			t.Errorf("expected grid origin (0,0), got %v", got.GridOrigin)
		}
		if got.AreaHa == nil || *got.AreaHa != 0.9 {
			t.Errorf("expected 0.9 ha, got %v", got.AreaHa)
		}
		west := got.Zones[0].FindSubzone("West")
		if west == nil || len(west.Plots) != 4 {
			t.Fatalf("expected 4 plots in West, got %+v", west)
		}
		for i, p := range west.Plots {
			if p.PermanentCluster == nil || *p.PermanentCluster != 1 {
				t.Errorf("plot %d: expected cluster 1, got %v", p.Number, p.PermanentCluster)
			}
			if p.PermanentClusterSubplot == nil || *p.PermanentClusterSubplot != i+1 {
				t.Errorf("plot %d: expected subplot %d, got %v", p.Number, i+1, p.PermanentClusterSubplot)
			}
			if !geometry.SameSquare(p.Bound(), site.Zones[0].Subzones[0].Plots[i].Bound()) {
				t.Errorf("plot %d: boundary changed on round trip", p.Number)
			}
		}
		if err := model.Validate(got, model.DefaultRules()); err != nil {
			t.Errorf("fetched site should be valid, got %v", err)
		}
	})

	t.Run("missing site", func(t *testing.T) {
		s := newStore(t)
		tx := begin(t, s)
		defer func() { _ = tx.Rollback() }()

		_, err := tx.FetchSite(context.Background(), 12345, model.DepthSite)
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("owning site lookups", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tx := begin(t, s)
		defer func() { _ = tx.Rollback() }()
		site := fixtureSite()
		insertTree(t, ctx, tx, site)

		if got, err := tx.SiteOfZone(ctx, site.Zones[0].ID); err != nil || got != site.ID {
			t.Errorf("SiteOfZone: expected %d, got %d (err %v)", site.ID, got, err)
		}
		if got, err := tx.SiteOfSubzone(ctx, site.Zones[0].Subzones[1].ID); err != nil || got != site.ID {
			t.Errorf("SiteOfSubzone: expected %d, got %d (err %v)", site.ID, got, err)
		}
		if _, err := tx.SiteOfZone(ctx, 98765); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing zone, got %v", err)
		}
		if _, err := tx.SiteOfSubzone(ctx, 98765); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing subzone, got %v", err)
		}
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tx := begin(t, s)
		site := fixtureSite()
		insertTree(t, ctx, tx, site)
		if err := tx.Rollback(); err != nil {
			t.Fatalf("Rollback failed: %v", err)
		}
		if err := tx.Rollback(); !errors.Is(err, ErrTxDone) {
			t.Errorf("expected ErrTxDone on second rollback, got %v", err)
		}

		tx = begin(t, s)
		defer func() { _ = tx.Rollback() }()
		sites, err := tx.ListSites(ctx, 0)
		if err != nil {
			t.Fatalf("ListSites failed: %v", err)
		}
		if len(sites) != 0 {
			t.Errorf("expected no sites after rollback, got %d", len(sites))
		}
	})

	t.Run("plot numbers", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tx := begin(t, s)
		defer func() { _ = tx.Rollback() }()

		site := fixtureSite()
		insertTree(t, ctx, tx, site)
		n, err := tx.NextPlotNumber(ctx, site.ID)
		if err != nil {
			t.Fatalf("NextPlotNumber failed: %v", err)
		}
		if n != 100 {
			t.Errorf("expected next plot number 100 after plot 99, got %d", n)
		}
		n, _ = tx.NextPlotNumber(ctx, site.ID)
		if n != 101 {
			t.Errorf("expected 101, got %d", n)
		}
	})

	t.Run("history", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tx := begin(t, s)
		site := fixtureSite()
		insertTree(t, ctx, tx, site)

		first, err := tx.InsertHistory(ctx, model.NewHistorySnapshot(site, suiteNow))
		if err != nil {
			t.Fatalf("InsertHistory failed: %v", err)
		}
		site.Name = "Riverbend II"
		second, err := tx.InsertHistory(ctx, model.NewHistorySnapshot(site, suiteNow.Add(time.Hour)))
		if err != nil {
			t.Fatalf("InsertHistory failed: %v", err)
		}
		site.HistoryID = &second
		if err := tx.UpdateSite(ctx, site); err != nil {
			t.Fatalf("UpdateSite failed: %v", err)
		}
		commit(t, tx)

		tx = begin(t, s)
		defer func() { _ = tx.Rollback() }()

		list, err := tx.ListHistories(ctx, site.ID)
		if err != nil {
			t.Fatalf("ListHistories failed: %v", err)
		}
		if len(list) != 2 || list[0].ID != first || list[1].ID != second {
			t.Fatalf("expected histories [%d %d], got %+v", first, second, list)
		}

		snap, err := tx.FetchHistory(ctx, site.ID, first)
		if err != nil {
			t.Fatalf("FetchHistory failed: %v", err)
		}
		if len(snap.Zones) != 1 || len(snap.Subzones) != 2 || len(snap.Plots) != 5 {
			t.Errorf("expected 1/2/5 history rows, got %d/%d/%d", len(snap.Zones), len(snap.Subzones), len(snap.Plots))
		}
		old := snap.ToSite(model.DepthPlot)
		if old.Name != "Riverbend" || len(old.ExteriorPlots) != 1 || len(old.Zones[0].Plots()) != 4 {
			t.Errorf("history did not reconstruct the first state: %+v", old)
		}

		asOf, err := tx.HistoryAsOf(ctx, site.ID, suiteNow.Add(30*time.Minute))
		if err != nil {
			t.Fatalf("HistoryAsOf failed: %v", err)
		}
		if asOf.Site.ID != first {
			t.Errorf("expected history %d as of +30m, got %d", first, asOf.Site.ID)
		}
		if _, err := tx.HistoryAsOf(ctx, site.ID, suiteNow.Add(-time.Hour)); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound before the first history, got %v", err)
		}

		if err := tx.RenameZoneHistory(ctx, second, site.Zones[0].ID, "Upper"); err != nil {
			t.Fatalf("RenameZoneHistory failed: %v", err)
		}
		if err := tx.RenameSubzoneHistory(ctx, second, site.Zones[0].Subzones[0].ID, "W", "Upper-W"); err != nil {
			t.Fatalf("RenameSubzoneHistory failed: %v", err)
		}
		latest, err := tx.FetchHistory(ctx, site.ID, second)
		if err != nil {
			t.Fatalf("FetchHistory failed: %v", err)
		}
		if latest.Zones[0].Name != "Upper" || latest.Subzones[0].FullName != "Upper-W" {
			t.Errorf("renames not applied to current history: %+v", latest.Subzones[0])
		}
		if prior, _ := tx.FetchHistory(ctx, site.ID, first); prior.Zones[0].Name != "North" {
			t.Errorf("rename must not touch older history, got %q", prior.Zones[0].Name)
		}
	})

	t.Run("delete zone detaches history", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tx := begin(t, s)
		defer func() { _ = tx.Rollback() }()

		site := fixtureSite()
		insertTree(t, ctx, tx, site)
		hid, err := tx.InsertHistory(ctx, model.NewHistorySnapshot(site, suiteNow))
		if err != nil {
			t.Fatalf("InsertHistory failed: %v", err)
		}
		if err := tx.DeleteZone(ctx, site.Zones[0].ID); err != nil {
			t.Fatalf("DeleteZone failed: %v", err)
		}

		got, err := tx.FetchSite(ctx, site.ID, model.DepthPlot)
		if err != nil {
			t.Fatalf("FetchSite failed: %v", err)
		}
		if len(got.Zones) != 0 {
			t.Errorf("expected no zones, got %d", len(got.Zones))
		}
		if len(got.ExteriorPlots) != 5 {
			t.Errorf("expected 5 exterior plots after zone deletion, got %d", len(got.ExteriorPlots))
		}
		snap, err := tx.FetchHistory(ctx, site.ID, hid)
		if err != nil {
			t.Fatalf("FetchHistory failed: %v", err)
		}
		if snap.Zones[0].ZoneID != nil {
			t.Errorf("expected zone history detached, got zone %d", *snap.Zones[0].ZoneID)
		}
		for _, sz := range snap.Subzones {
			if sz.SubzoneID != nil {
				t.Errorf("expected subzone history detached, got subzone %d", *sz.SubzoneID)
			}
		}
	})

	t.Run("populations", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tx := begin(t, s)
		defer func() { _ = tx.Rollback() }()

		site := fixtureSite()
		insertTree(t, ctx, tx, site)
		west := site.Zones[0].Subzones[0].ID
		east := site.Zones[0].Subzones[1].ID

		if err := tx.AddPlants(ctx, west, 1, 100); err != nil {
			t.Fatalf("AddPlants failed: %v", err)
		}
		if err := tx.AddPlants(ctx, west, 1, 50); err != nil {
			t.Fatalf("AddPlants failed: %v", err)
		}
		if err := tx.AddPlants(ctx, east, 2, 30); err != nil {
			t.Fatalf("AddPlants failed: %v", err)
		}

		subzones, err := tx.SubzonePopulations(ctx, site.ID)
		if err != nil {
			t.Fatalf("SubzonePopulations failed: %v", err)
		}
		if len(subzones) != 2 || subzones[0].TotalPlants != 150 || subzones[1].TotalPlants != 30 {
			t.Errorf("unexpected subzone populations: %+v", subzones)
		}
		zones, _ := tx.ZonePopulations(ctx, site.ID)
		if len(zones) != 2 || zones[0].TotalPlants+zones[1].TotalPlants != 180 {
			t.Errorf("unexpected zone populations: %+v", zones)
		}
		sites, _ := tx.SitePopulations(ctx, site.ID)
		if len(sites) != 2 || sites[0].SpeciesID != 1 || sites[0].TotalPlants != 150 {
			t.Errorf("unexpected site populations: %+v", sites)
		}

		planted, err := tx.PlantedSubzoneIDs(ctx, site.ID)
		if err != nil {
			t.Fatalf("PlantedSubzoneIDs failed: %v", err)
		}
		if !planted[west] || !planted[east] || len(planted) != 2 {
			t.Errorf("expected both subzones planted, got %v", planted)
		}

		if err := tx.ResetPlantsSinceLastObservation(ctx, site.ID); err != nil {
			t.Fatalf("ResetPlantsSinceLastObservation failed: %v", err)
		}
		sites, _ = tx.SitePopulations(ctx, site.ID)
		for _, p := range sites {
			if p.PlantsSinceLastObservation != 0 || p.TotalPlants == 0 {
				t.Errorf("expected since-last-observation reset only, got %+v", p)
			}
		}

		if err := tx.AddPlants(ctx, 999999, 1, 1); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown subzone, got %v", err)
		}
	})

	t.Run("seasons", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tx := begin(t, s)
		defer func() { _ = tx.Rollback() }()

		site := fixtureSite()
		insertTree(t, ctx, tx, site)
		seasons := []model.PlantingSeason{
			{StartDate: model.Date(2026, 9, 1), EndDate: model.Date(2026, 11, 30)},
			{StartDate: model.Date(2026, 3, 1), EndDate: model.Date(2026, 5, 31), IsActive: true},
		}
		if err := tx.ReplaceSeasons(ctx, site.ID, seasons); err != nil {
			t.Fatalf("ReplaceSeasons failed: %v", err)
		}
		got, err := tx.FetchSite(ctx, site.ID, model.DepthSite)
		if err != nil {
			t.Fatalf("FetchSite failed: %v", err)
		}
		if len(got.Seasons) != 2 {
			t.Fatalf("expected 2 seasons, got %d", len(got.Seasons))
		}
		if !got.Seasons[0].StartDate.Equal(model.Date(2026, 3, 1)) || !got.Seasons[0].IsActive || got.Seasons[0].ID == 0 {
			t.Errorf("expected seasons ordered by start with IDs assigned, got %+v", got.Seasons)
		}
	})

	t.Run("delete site cascades", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tx := begin(t, s)
		defer func() { _ = tx.Rollback() }()

		site := fixtureSite()
		insertTree(t, ctx, tx, site)
		hid, _ := tx.InsertHistory(ctx, model.NewHistorySnapshot(site, suiteNow))
		_ = tx.AddPlants(ctx, site.Zones[0].Subzones[0].ID, 1, 10)

		if err := tx.DeleteSite(ctx, site.ID); err != nil {
			t.Fatalf("DeleteSite failed: %v", err)
		}
		if _, err := tx.FetchSite(ctx, site.ID, model.DepthPlot); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if _, err := tx.FetchHistory(ctx, site.ID, hid); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected history removed, got %v", err)
		}
		if pops, _ := tx.SitePopulations(ctx, site.ID); len(pops) != 0 {
			t.Errorf("expected populations removed, got %+v", pops)
		}
		if err := tx.DeleteSite(ctx, site.ID); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting twice, got %v", err)
		}
	})
}
