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

func twoZoneLayout() SiteLayout {
	return SiteLayout{Zones: []ZoneLayout{
		zoneLayout("Z1", 0, 180, "S1", "S2"),
		zoneLayout("Z2", 180, 360, "S1"),
	}}
}

func TestRenameSite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, basicLayout())

	if err := f.svc.RenameSite(ctx, created.Site.ID, "North Ridge"); err != nil {
		t.Fatalf("RenameSite: %v", err)
	}
	if got := f.fetch(t, created.Site.ID).Name; got != "North Ridge" {
		t.Errorf("Name = %q", got)
	}
	history, err := f.svc.FetchSiteHistory(ctx, created.Site.ID, created.HistoryID, model.DepthSite)
	if err != nil {
		t.Fatalf("FetchSiteHistory: %v", err)
	}
	if history.Name != "North Ridge" {
		t.Errorf("history name = %q, want the new name", history.Name)
	}

	histories, _ := f.svc.ListSiteHistories(ctx, created.Site.ID)
	if len(histories) != 1 {
		t.Errorf("rename must not record a history, got %d", len(histories))
	}

	err = f.svc.RenameSite(ctx, created.Site.ID, "")
	if !errors.Is(err, validation.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for an empty name, got %v", err)
	}
}

func TestRenameZone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, twoZoneLayout())
	z1 := created.Site.FindZone("Z1")

	if err := f.svc.RenameZone(ctx, z1.ID, "East"); err != nil {
		t.Fatalf("RenameZone: %v", err)
	}

	site := f.fetch(t, created.Site.ID)
	zone := site.ZoneByID(z1.ID)
	if zone.Name != "East" {
		t.Fatalf("zone name = %q", zone.Name)
	}
	for _, sz := range zone.Subzones {
		if want := model.FullSubzoneName("East", sz.Name); sz.FullName != want {
			t.Errorf("FullName = %q, want %q", sz.FullName, want)
		}
	}

	history, err := f.svc.FetchSiteHistory(ctx, created.Site.ID, created.HistoryID, model.DepthSubzone)
	if err != nil {
		t.Fatalf("FetchSiteHistory: %v", err)
	}
	hz := history.FindZone("East")
	if hz == nil {
		t.Fatal("expected the history zone to be renamed")
	}
	if hz.FindSubzone("S1").FullName != "East-S1" {
		t.Errorf("history FullName = %q", hz.FindSubzone("S1").FullName)
	}

	err = f.svc.RenameZone(ctx, z1.ID, "Z2")
	if !errors.Is(err, model.ErrMapInvalid) {
		t.Errorf("expected ErrMapInvalid for a duplicate name, got %v", err)
	}
	if err := f.svc.RenameZone(ctx, 999, "Other"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for an unknown zone, got %v", err)
	}
}

func TestRenameSubzone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, twoZoneLayout())
	s1 := subzoneNamed(t, created.Site, "Z1", "S1")

	if err := f.svc.RenameSubzone(ctx, s1.ID, "West"); err != nil {
		t.Fatalf("RenameSubzone: %v", err)
	}
	got := subzoneNamed(t, f.fetch(t, created.Site.ID), "Z1", "West")
	if got.FullName != "Z1-West" {
		t.Errorf("FullName = %q, want Z1-West", got.FullName)
	}

	history, err := f.svc.FetchSiteHistory(ctx, created.Site.ID, created.HistoryID, model.DepthSubzone)
	if err != nil {
		t.Fatalf("FetchSiteHistory: %v", err)
	}
	if sz := history.FindZone("Z1").FindSubzone("West"); sz == nil || sz.FullName != "Z1-West" {
		t.Errorf("expected history subzone to be renamed, got %+v", sz)
	}

	if err := f.svc.RenameSubzone(ctx, s1.ID, "S2"); !errors.Is(err, model.ErrMapInvalid) {
		t.Errorf("expected ErrMapInvalid for a duplicate within the zone, got %v", err)
	}
	// Names only need to be unique within their zone.
	z2s1 := subzoneNamed(t, created.Site, "Z2", "S1")
	if err := f.svc.RenameSubzone(ctx, z2s1.ID, "S2"); err != nil {
		t.Errorf("expected rename in another zone to succeed, got %v", err)
	}
}

func TestUpdateZoneSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, basicLayout())
	zoneID := created.Site.Zones[0].ID

	settings := ZoneSettings{
		TargetPlantingDensity: 2200,
		ErrorMargin:           100,
		StudentsT:             1.645,
		Variance:              40000,
		NumPermanentClusters:  3,
		NumTemporaryPlots:     5,
	}
	zone, err := f.svc.UpdateZoneSettings(ctx, zoneID, settings)
	if err != nil {
		t.Fatalf("UpdateZoneSettings: %v", err)
	}
	if zone.TargetPlantingDensity != 2200 || zone.NumTemporaryPlots != 5 {
		t.Errorf("unexpected zone: %+v", zone)
	}

	stored := f.fetch(t, created.Site.ID).ZoneByID(zoneID)
	if stored.StudentsT != 1.645 || stored.NumPermanentClusters != 3 {
		t.Errorf("settings not persisted: %+v", stored)
	}

	settings.Variance = -1
	if _, err := f.svc.UpdateZoneSettings(ctx, zoneID, settings); !errors.Is(err, validation.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSetSubzoneCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, basicLayout())
	s1 := subzoneNamed(t, created.Site, "Z1", "S1")

	if err := f.svc.SetSubzoneCompleted(ctx, s1.ID, true); err != nil {
		t.Fatalf("SetSubzoneCompleted: %v", err)
	}
	first := f.clock.Now()

	f.clock.Advance(48 * time.Hour)
	if err := f.svc.SetSubzoneCompleted(ctx, s1.ID, true); err != nil {
		t.Fatalf("SetSubzoneCompleted: %v", err)
	}
	got := subzoneNamed(t, f.fetch(t, created.Site.ID), "Z1", "S1").PlantingCompletedTime
	if got == nil || !got.Equal(first) {
		t.Errorf("expected the original completion time %v, got %v", first, got)
	}

	if err := f.svc.SetSubzoneCompleted(ctx, s1.ID, false); err != nil {
		t.Fatalf("SetSubzoneCompleted: %v", err)
	}
	if got := subzoneNamed(t, f.fetch(t, created.Site.ID), "Z1", "S1").PlantingCompletedTime; got != nil {
		t.Errorf("expected completion to be cleared, got %v", got)
	}

	f.authz.deny["complete"] = true
	err := f.svc.SetSubzoneCompleted(ctx, s1.ID, true)
	var nerr *model.NotAuthorizedError
	if !errors.As(err, &nerr) || nerr.Entity != "planting subzone" {
		t.Errorf("expected NotAuthorizedError on the subzone, got %v", err)
	}
}

func TestUpdatePlantingSeasons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.create(t, basicLayout())
	siteID := created.Site.ID

	spring := SeasonInput{StartDate: model.Date(2026, 4, 1), EndDate: model.Date(2026, 5, 31)}
	autumn := SeasonInput{StartDate: model.Date(2026, 9, 1), EndDate: model.Date(2026, 10, 31)}
	seasons, err := f.svc.UpdatePlantingSeasons(ctx, siteID, []SeasonInput{autumn, spring})
	if err != nil {
		t.Fatalf("UpdatePlantingSeasons: %v", err)
	}
	if len(seasons) != 2 {
		t.Fatalf("expected 2 seasons, got %d", len(seasons))
	}
	if !seasons[0].StartDate.Equal(spring.StartDate) || !seasons[0].IsActive || seasons[1].IsActive {
		t.Errorf("expected spring first and active, got %+v", seasons)
	}
	for _, s := range seasons {
		if s.ID == 0 {
			t.Error("expected season IDs to be assigned")
		}
	}

	// Once spring is over it can be resubmitted unchanged but not moved.
	f.clock.Set(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	kept := SeasonInput{ID: seasons[0].ID, StartDate: spring.StartDate, EndDate: spring.EndDate}
	if _, err := f.svc.UpdatePlantingSeasons(ctx, siteID, []SeasonInput{kept, autumn}); err != nil {
		t.Errorf("expected unchanged past season to be accepted, got %v", err)
	}
	kept.EndDate = model.Date(2026, 6, 15)
	_, err = f.svc.UpdatePlantingSeasons(ctx, siteID, []SeasonInput{kept, autumn})
	var serr *model.SeasonError
	if !errors.As(err, &serr) || serr.Problem != model.SeasonEndsInPast {
		t.Errorf("expected SeasonEndsInPast, got %v", err)
	}

	overlapping := SeasonInput{StartDate: model.Date(2026, 10, 1), EndDate: model.Date(2026, 11, 30)}
	if _, err := f.svc.UpdatePlantingSeasons(ctx, siteID, []SeasonInput{autumn, overlapping}); !errors.Is(err, model.ErrSeasonConflict) {
		t.Errorf("expected ErrSeasonConflict for overlapping seasons, got %v", err)
	}

	missing := []SeasonInput{{StartDate: model.Date(2026, 9, 1)}}
	if _, err := f.svc.UpdatePlantingSeasons(ctx, siteID, missing); !errors.Is(err, validation.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for a missing end date, got %v", err)
	}
}
