// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package sites

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/validation"
)

func TestRecordPlantingAndReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, twoZoneLayout())
	s1 := subzoneNamed(t, created.Site, "Z1", "S1")
	s2 := subzoneNamed(t, created.Site, "Z1", "S2")
	z2s1 := subzoneNamed(t, created.Site, "Z2", "S1")

	for _, p := range []struct {
		subzone model.SubzoneID
		species model.SpeciesID
		count   int64
	}{
		{s1.ID, 1, 100},
		{s1.ID, 2, 50},
		{s2.ID, 1, 25},
		{z2s1.ID, 3, 10},
	} {
		if err := f.svc.RecordPlanting(ctx, p.subzone, p.species, p.count); err != nil {
			t.Fatalf("RecordPlanting: %v", err)
		}
	}

	totals, err := f.svc.CountReportedPlants(ctx, created.Site.ID)
	if err != nil {
		t.Fatalf("CountReportedPlants: %v", err)
	}
	if totals.TotalPlants != 185 || totals.TotalSpecies != 3 {
		t.Errorf("site totals = %d plants / %d species, want 185 / 3", totals.TotalPlants, totals.TotalSpecies)
	}
	if len(totals.Zones) != 2 {
		t.Fatalf("expected 2 zone rows, got %d", len(totals.Zones))
	}
	for _, z := range totals.Zones {
		switch z.Name {
		case "Z1":
			if z.TotalPlants != 175 || z.TotalSpecies != 2 {
				t.Errorf("Z1 = %d plants / %d species, want 175 / 2", z.TotalPlants, z.TotalSpecies)
			}
			if z.TargetPlants == nil || z.ProgressPercent == nil {
				t.Error("expected Z1 to report a target and progress")
			}
		case "Z2":
			if z.TotalPlants != 10 {
				t.Errorf("Z2 = %d plants, want 10", z.TotalPlants)
			}
		}
	}

	if err := f.svc.ResetPlantsSinceLastObservation(ctx, created.Site.ID); err != nil {
		t.Fatalf("ResetPlantsSinceLastObservation: %v", err)
	}
	totals, err = f.svc.CountReportedPlants(ctx, created.Site.ID)
	if err != nil {
		t.Fatalf("CountReportedPlants: %v", err)
	}
	if totals.PlantsSinceLastObservation != 0 || totals.TotalPlants != 185 {
		t.Errorf("after reset: since=%d total=%d, want 0 / 185", totals.PlantsSinceLastObservation, totals.TotalPlants)
	}
}

func TestRecordPlanting_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, basicLayout())
	s1 := subzoneNamed(t, created.Site, "Z1", "S1")

	if err := f.svc.RecordPlanting(ctx, s1.ID, 1, 0); !errors.Is(err, validation.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for zero plants, got %v", err)
	}
	if err := f.svc.RecordPlanting(ctx, 999, 1, 5); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for an unknown subzone, got %v", err)
	}

	f.authz.deny["plant"] = true
	if err := f.svc.RecordPlanting(ctx, s1.ID, 1, 5); !errors.Is(err, model.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestResetPlants_RequiresUpdate(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, basicLayout())
	f.authz.deny["update"] = true

	err := f.svc.ResetPlantsSinceLastObservation(context.Background(), created.Site.ID)
	if !errors.Is(err, model.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestCreateTemporaryPlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, basicLayout())
	zoneID := created.Site.Zones[0].ID
	before := f.fetch(t, created.Site.ID)
	maxNumber := before.MaxPlotNumber()

	f.clock.Advance(time.Hour)
	plots, err := f.svc.CreateTemporaryPlots(ctx, zoneID, 3)
	if err != nil {
		t.Fatalf("CreateTemporaryPlots: %v", err)
	}
	if len(plots) != 3 {
		t.Fatalf("expected 3 plots, got %d", len(plots))
	}
	for _, p := range plots {
		if !p.IsAvailable || p.InCluster() || p.SubzoneID == nil {
			t.Errorf("unexpected temporary plot: %+v", p)
		}
		if p.Number <= maxNumber {
			t.Errorf("plot number %d reuses a number at or below %d", p.Number, maxNumber)
		}
		if p.SizeMeters != model.DefaultRules().PlotSizeMeters {
			t.Errorf("SizeMeters = %d", p.SizeMeters)
		}
	}

	after := f.fetch(t, created.Site.ID)
	if len(after.AllPlots()) != len(before.AllPlots())+3 {
		t.Errorf("expected 3 more plots, got %d -> %d", len(before.AllPlots()), len(after.AllPlots()))
	}
	if after.HistoryID == nil || *after.HistoryID == created.HistoryID {
		t.Error("expected a new history for the temporary plots")
	}

	edited := f.pub.Edited()
	if len(edited) != 2 {
		t.Fatalf("expected 2 SiteEdited events, got %d", len(edited))
	}
	if len(edited[1].NewlyAvailable) != 3 {
		t.Errorf("NewlyAvailable = %v, want the 3 new plots", edited[1].NewlyAvailable)
	}
}

func TestCreateTemporaryPlots_FullZone(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, basicLayout())

	// 180x180 m holds 36 plots; the clusters already use some of them.
	plots, err := f.svc.CreateTemporaryPlots(context.Background(), created.Site.Zones[0].ID, 100)
	if err != nil {
		t.Fatalf("CreateTemporaryPlots: %v", err)
	}
	want := 36 - countClusterPlots(created.Site)
	if len(plots) != want {
		t.Errorf("expected %d plots in the remaining cells, got %d", want, len(plots))
	}

	again, err := f.svc.CreateTemporaryPlots(context.Background(), created.Site.Zones[0].ID, 1)
	if err != nil {
		t.Fatalf("CreateTemporaryPlots: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected a full zone to yield no plots, got %d", len(again))
	}
	if len(f.pub.Edited()) != 2 {
		t.Errorf("expected no event when nothing was placed, got %d events", len(f.pub.Edited()))
	}
}

func TestCreateTemporaryPlots_Invalid(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, basicLayout())

	_, err := f.svc.CreateTemporaryPlots(context.Background(), created.Site.Zones[0].ID, 0)
	if !errors.Is(err, validation.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	_, err = f.svc.CreateTemporaryPlots(context.Background(), 999, 1)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
