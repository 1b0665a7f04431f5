// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package sites

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/events"
	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/validation"
)

func TestCreateSite(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, basicLayout())

	if res.Site.ID == 0 {
		t.Fatal("expected site ID to be assigned")
	}
	if res.HistoryID == 0 || res.Site.HistoryID == nil || *res.Site.HistoryID != res.HistoryID {
		t.Errorf("expected first history to be current, got %d / %v", res.HistoryID, res.Site.HistoryID)
	}
	if len(res.Site.Zones) != 1 || len(res.Site.Zones[0].Subzones) != 2 {
		t.Fatalf("unexpected tree: %+v", res.Site.Zones)
	}
	if got := res.Site.Zones[0].Subzones[1].FullName; got != "Z1-S2" {
		t.Errorf("FullName = %q, want Z1-S2", got)
	}
	if res.Summary.ClustersPlaced == 0 {
		t.Error("expected permanent clusters to be placed")
	}

	site := f.fetch(t, res.Site.ID)
	if got, want := countClusterPlots(site), 4*res.Summary.ClustersPlaced; got != want {
		t.Errorf("cluster plots = %d, want %d", got, want)
	}
	if site.GridOrigin == nil || *site.GridOrigin != (orb.Point{0, 0}) {
		t.Errorf("GridOrigin = %v, want south-west corner", site.GridOrigin)
	}
	if site.OrganizationID != testOrg || site.TimeZone != "UTC" {
		t.Errorf("unexpected site columns: org=%d tz=%q", site.OrganizationID, site.TimeZone)
	}

	published := f.pub.Edited()
	if len(published) != 1 {
		t.Fatalf("expected 1 SiteEdited event, got %d", len(published))
	}
	if published[0].SiteID != res.Site.ID || published[0].HistoryID != res.HistoryID {
		t.Errorf("event does not match result: %+v", published[0])
	}
	if len(published[0].NewlyAvailable) != countClusterPlots(site) {
		t.Errorf("NewlyAvailable = %d plots, want %d", len(published[0].NewlyAvailable), countClusterPlots(site))
	}
}

func TestCreateSite_SimpleWithoutGeometry(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, SiteLayout{})

	if !res.NoOp {
		t.Error("expected a site without geometry to record no edit")
	}
	if res.Site.ID == 0 {
		t.Error("expected site to be inserted")
	}
	if len(f.pub.Edited()) != 0 {
		t.Error("expected no event for a no-op edit")
	}
}

func TestCreateSite_BoundaryDefaultsToZoneUnion(t *testing.T) {
	f := newFixture(t)
	layout := SiteLayout{Zones: []ZoneLayout{
		zoneLayout("Z1", 0, 180, "S1"),
		zoneLayout("Z2", 180, 360, "S1"),
	}}
	res := f.create(t, layout)

	b := res.Site.Boundary.Bound()
	if b.Min != (orb.Point{0, 0}) || b.Max != (orb.Point{360, 180}) {
		t.Errorf("boundary bound = %v, want [0 0]-[360 180]", b)
	}
}

func TestCreateSite_Geographic(t *testing.T) {
	f := newFixture(t)
	sw := orb.Point{-74.08, 4.60}
	layout := SiteLayout{
		SRID:     geometry.SRIDWGS84,
		Boundary: rect(sw[0], sw[1], sw[0]+0.002, sw[1]+0.002),
	}
	res := f.create(t, layout)

	if res.Site.Anchor == nil {
		t.Fatal("expected anchor for geographic input")
	}
	if math.Abs(res.Site.Anchor[0]-sw[0]) > 1e-9 || math.Abs(res.Site.Anchor[1]-sw[1]) > 1e-9 {
		t.Errorf("Anchor = %v, want %v", *res.Site.Anchor, sw)
	}
	b := res.Site.Boundary.Bound()
	if math.Abs(b.Min[0]) > 0.01 || math.Abs(b.Min[1]) > 0.01 {
		t.Errorf("local boundary should start at the origin, got %v", b.Min)
	}
	if b.Max[0] < 200 || b.Max[0] > 250 || b.Max[1] < 200 || b.Max[1] > 250 {
		t.Errorf("0.002 degrees near the equator should be about 220 m, got %v", b.Max)
	}
}

func TestCreateSite_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		req   func() CreateSiteRequest
		field string
	}{
		{
			name:  "missing name",
			req:   func() CreateSiteRequest { return createRequest("", basicLayout()) },
			field: "Name",
		},
		{
			name:  "untrimmed name",
			req:   func() CreateSiteRequest { return createRequest(" Site", basicLayout()) },
			field: "Name",
		},
		{
			name: "unknown time zone",
			req: func() CreateSiteRequest {
				r := createRequest("Site", basicLayout())
				r.TimeZone = "Mars/Olympus"
				return r
			},
			field: "TimeZone",
		},
		{
			name: "duplicate zone names",
			req: func() CreateSiteRequest {
				l := SiteLayout{Zones: []ZoneLayout{zoneLayout("Z1", 0, 180, "S1"), zoneLayout("Z1", 180, 360, "S1")}}
				return createRequest("Site", l)
			},
			field: "Zones",
		},
		{
			name: "unknown srid",
			req: func() CreateSiteRequest {
				l := basicLayout()
				l.SRID = 27700
				return createRequest("Site", l)
			},
			field: "SRID",
		},
		{
			name: "negative settings",
			req: func() CreateSiteRequest {
				l := basicLayout()
				l.Zones[0].NumPermanentClusters = -1
				return createRequest("Site", l)
			},
			field: "NumPermanentClusters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateSite(context.Background(), tt.req())
			if !errors.Is(err, validation.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			var verr *validation.RequestValidationError
			if !errors.As(err, &verr) || !verr.HasField(tt.field) {
				t.Errorf("expected failure on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestCreateSite_InvalidMap(t *testing.T) {
	f := newFixture(t)
	layout := SiteLayout{Zones: []ZoneLayout{
		zoneLayout("Z1", 0, 150, "S1"),
		zoneLayout("Z2", 100, 250, "S1"),
	}}
	_, err := f.svc.CreateSite(context.Background(), createRequest("Site", layout))
	if !errors.Is(err, model.ErrMapInvalid) {
		t.Fatalf("expected ErrMapInvalid for overlapping zones, got %v", err)
	}

	sites, err := f.svc.ListSites(context.Background(), testOrg)
	if err != nil {
		t.Fatalf("ListSites: %v", err)
	}
	if len(sites) != 0 {
		t.Errorf("expected rollback to leave no site, got %d", len(sites))
	}
}

func TestCreateSite_NotAuthorized(t *testing.T) {
	f := newFixture(t)
	f.authz.deny["create"] = true

	_, err := f.svc.CreateSite(context.Background(), createRequest("Site", basicLayout()))
	if !errors.Is(err, model.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestCreateSite_SeasonInPast(t *testing.T) {
	f := newFixture(t)
	req := createRequest("Site", basicLayout())
	req.Seasons = []SeasonInput{{StartDate: model.Date(2025, 1, 1), EndDate: model.Date(2025, 3, 1)}}

	_, err := f.svc.CreateSite(context.Background(), req)
	if !errors.Is(err, model.ErrSeasonConflict) {
		t.Fatalf("expected ErrSeasonConflict, got %v", err)
	}
}

func TestCreateSite_PublishFailureKeepsSite(t *testing.T) {
	f := newFixture(t)
	f.pub.Err = errors.New("broker down")

	res, err := f.svc.CreateSite(context.Background(), createRequest("Site", basicLayout()))
	var perr *events.PublishError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *events.PublishError, got %v", err)
	}
	if perr.Topic != events.TopicSiteEdited {
		t.Errorf("Topic = %q", perr.Topic)
	}
	if res == nil || res.Site == nil {
		t.Fatal("expected committed result alongside the publish error")
	}
	f.fetch(t, res.Site.ID)
}

func TestDeleteSite(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, basicLayout())
	ctx := context.Background()

	if err := f.svc.DeleteSite(ctx, res.Site.ID); err != nil {
		t.Fatalf("DeleteSite: %v", err)
	}
	if _, err := f.svc.FetchSite(ctx, res.Site.ID, model.DepthSite); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	deleted := f.pub.Deleted()
	if len(deleted) != 1 || deleted[0].SiteID != res.Site.ID || deleted[0].OrganizationID != testOrg {
		t.Errorf("unexpected SiteDeleted events: %+v", deleted)
	}
	if err := f.svc.DeleteSite(ctx, res.Site.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected second delete to report ErrNotFound, got %v", err)
	}
}

func TestAccessChecks(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, basicLayout())
	ctx := context.Background()

	t.Run("missing capability", func(t *testing.T) {
		f.authz.deny["delete"] = true
		t.Cleanup(func() { delete(f.authz.deny, "delete") })

		err := f.svc.DeleteSite(ctx, res.Site.ID)
		var nerr *model.NotAuthorizedError
		if !errors.As(err, &nerr) {
			t.Fatalf("expected *model.NotAuthorizedError, got %v", err)
		}
		if nerr.Action != "delete" || nerr.ID != int64(res.Site.ID) {
			t.Errorf("unexpected error details: %+v", nerr)
		}
	})

	t.Run("hidden organization", func(t *testing.T) {
		f.authz.hidden[testOrg] = true
		t.Cleanup(func() { delete(f.authz.hidden, testOrg) })

		if _, err := f.svc.FetchSite(ctx, res.Site.ID, model.DepthSite); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("FetchSite: expected ErrNotFound, got %v", err)
		}
		if err := f.svc.DeleteSite(ctx, res.Site.ID); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("DeleteSite: expected ErrNotFound, got %v", err)
		}
	})
}

func TestListSites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, basicLayout())
	other := createRequest("Other", basicLayout())
	other.OrganizationID = 8
	if _, err := f.svc.CreateSite(ctx, other); err != nil {
		t.Fatalf("CreateSite: %v", err)
	}

	all, err := f.svc.ListSites(ctx, 0)
	if err != nil {
		t.Fatalf("ListSites: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 sites, got %d", len(all))
	}

	f.authz.hidden[8] = true
	visible, err := f.svc.ListSites(ctx, 0)
	if err != nil {
		t.Fatalf("ListSites: %v", err)
	}
	if len(visible) != 1 || visible[0].OrganizationID != testOrg {
		t.Errorf("expected only the visible organization, got %+v", visible)
	}
}

func TestFetchSite_ActiveSeason(t *testing.T) {
	f := newFixture(t)
	req := createRequest("Site", basicLayout())
	req.Seasons = []SeasonInput{{StartDate: model.Date(2026, 4, 1), EndDate: model.Date(2026, 6, 30)}}
	res, err := f.svc.CreateSite(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateSite: %v", err)
	}

	site := f.fetch(t, res.Site.ID)
	if len(site.Seasons) != 1 || !site.Seasons[0].IsActive {
		t.Fatalf("expected one active season, got %+v", site.Seasons)
	}

	f.clock.Set(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	site = f.fetch(t, res.Site.ID)
	if site.Seasons[0].IsActive {
		t.Error("expected season to be inactive after it ends")
	}
}

func TestSiteHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.create(t, basicLayout())
	siteID := res.Site.ID

	f.clock.Advance(24 * time.Hour)
	wider := SiteLayout{Zones: []ZoneLayout{zoneLayout("Z1", 0, 360, "S1", "S2")}}
	edited, err := f.svc.EditSite(ctx, siteID, wider, nil)
	if err != nil {
		t.Fatalf("EditSite: %v", err)
	}

	histories, err := f.svc.ListSiteHistories(ctx, siteID)
	if err != nil {
		t.Fatalf("ListSiteHistories: %v", err)
	}
	if len(histories) != 2 {
		t.Fatalf("expected 2 histories, got %d", len(histories))
	}

	first, err := f.svc.FetchSiteHistory(ctx, siteID, res.HistoryID, model.DepthSubzone)
	if err != nil {
		t.Fatalf("FetchSiteHistory: %v", err)
	}
	if got := first.Boundary.Bound().Max[0]; got != 180 {
		t.Errorf("first history should keep the original boundary, max x = %v", got)
	}
	if first.TimeZone != "UTC" || first.OrganizationID != testOrg {
		t.Errorf("expected live-only columns to be filled in, got tz=%q org=%d", first.TimeZone, first.OrganizationID)
	}

	asOf, err := f.svc.FetchSiteAsOf(ctx, siteID, createTime.Add(time.Hour), model.DepthZone)
	if err != nil {
		t.Fatalf("FetchSiteAsOf: %v", err)
	}
	if asOf.HistoryID == nil || *asOf.HistoryID != res.HistoryID {
		t.Errorf("expected the creation history, got %v", asOf.HistoryID)
	}

	latest, err := f.svc.FetchSiteAsOf(ctx, siteID, f.clock.Now(), model.DepthZone)
	if err != nil {
		t.Fatalf("FetchSiteAsOf: %v", err)
	}
	if latest.HistoryID == nil || *latest.HistoryID != edited.HistoryID {
		t.Errorf("expected the edit history, got %v", latest.HistoryID)
	}

	if _, err := f.svc.FetchSiteAsOf(ctx, siteID, createTime.Add(-time.Hour), model.DepthSite); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound before the first history, got %v", err)
	}
}
