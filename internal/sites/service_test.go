// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package sites

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/clock"
	"github.com/tomtom215/plantingsites/internal/cluster"
	"github.com/tomtom215/plantingsites/internal/events"
	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
	"github.com/tomtom215/plantingsites/internal/reconcile"
	"github.com/tomtom215/plantingsites/internal/store"
)

const testOrg model.OrganizationID = 7

var createTime = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func rect(x0, y0, x1, y1 float64) orb.MultiPolygon {
	return geometry.BoundToMultiPolygon(orb.Bound{Min: orb.Point{x0, y0}, Max: orb.Point{x1, y1}})
}

// fakeAuthz allows everything except the listed capabilities, and hides
// the listed organizations entirely.
type fakeAuthz struct {
	deny   map[string]bool
	hidden map[model.OrganizationID]bool
}

func (a *fakeAuthz) can(action string, org model.OrganizationID) bool {
	return !a.deny[action] && !a.hidden[org]
}

func (a *fakeAuthz) CanCreateSite(_ context.Context, org model.OrganizationID) bool {
	return a.can("create", org)
}

func (a *fakeAuthz) CanReadSite(_ context.Context, org model.OrganizationID) bool {
	return a.can("read", org)
}

func (a *fakeAuthz) CanUpdateSite(_ context.Context, org model.OrganizationID) bool {
	return a.can("update", org)
}

func (a *fakeAuthz) CanDeleteSite(_ context.Context, org model.OrganizationID) bool {
	return a.can("delete", org)
}

func (a *fakeAuthz) CanUpdateSubzoneCompleted(_ context.Context, org model.OrganizationID) bool {
	return a.can("complete", org)
}

func (a *fakeAuthz) CanRecordPlanting(_ context.Context, org model.OrganizationID) bool {
	return a.can("plant", org)
}

// depthStore records the depth of every site fetch made through it.
type depthStore struct {
	store.Store
	mu     sync.Mutex
	depths []model.Depth
}

func (d *depthStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := d.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &depthTx{Tx: tx, s: d}, nil
}

func (d *depthStore) fetched() []model.Depth {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Depth(nil), d.depths...)
}

type depthTx struct {
	store.Tx
	s *depthStore
}

func (t *depthTx) FetchSite(ctx context.Context, id model.SiteID, depth model.Depth) (*model.Site, error) {
	t.s.mu.Lock()
	t.s.depths = append(t.s.depths, depth)
	t.s.mu.Unlock()
	return t.Tx.FetchSite(ctx, id, depth)
}

type fixture struct {
	svc   *Service
	store *store.MemoryStore
	clock *clock.Fixed
	pub   *events.RecordingPublisher
	authz *fakeAuthz
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: store.NewMemoryStore(),
		clock: clock.NewFixed(createTime),
		pub:   &events.RecordingPublisher{},
		authz: &fakeAuthz{deny: map[string]bool{}, hidden: map[model.OrganizationID]bool{}},
	}
	f.svc = New(f.store, f.authz,
		WithPublisher(f.pub),
		WithClock(f.clock),
		WithRandom(cluster.NewSeeded(42)),
	)
	t.Cleanup(func() { _ = f.store.Close() })
	return f
}

// zoneLayout returns a 180 m tall zone with two permanent clusters, split
// into subzones of equal width.
func zoneLayout(name string, x0, x1 float64, subzones ...string) ZoneLayout {
	z := ZoneLayout{
		Name:     name,
		Boundary: rect(x0, 0, x1, 180),
		ZoneSettings: ZoneSettings{
			TargetPlantingDensity: 1500,
			NumPermanentClusters:  2,
			NumTemporaryPlots:     2,
		},
	}
	width := (x1 - x0) / float64(len(subzones))
	for i, sz := range subzones {
		left := x0 + float64(i)*width
		z.Subzones = append(z.Subzones, SubzoneLayout{Name: sz, Boundary: rect(left, 0, left+width, 180)})
	}
	return z
}

// basicLayout is one 180x180 m zone with subzones S1 and S2.
func basicLayout() SiteLayout {
	return SiteLayout{Zones: []ZoneLayout{zoneLayout("Z1", 0, 180, "S1", "S2")}}
}

func createRequest(name string, layout SiteLayout) CreateSiteRequest {
	return CreateSiteRequest{
		OrganizationID: testOrg,
		Name:           name,
		TimeZone:       "UTC",
		Layout:         layout,
	}
}

func (f *fixture) create(t *testing.T, layout SiteLayout) *reconcile.Result {
	t.Helper()
	res, err := f.svc.CreateSite(context.Background(), createRequest("Site", layout))
	if err != nil {
		t.Fatalf("CreateSite: %v", err)
	}
	return res
}

func (f *fixture) fetch(t *testing.T, id model.SiteID) *model.Site {
	t.Helper()
	site, err := f.svc.FetchSite(context.Background(), id, model.DepthPlot)
	if err != nil {
		t.Fatalf("FetchSite: %v", err)
	}
	return site
}

func subzoneNamed(t *testing.T, site *model.Site, zone, subzone string) *model.Subzone {
	t.Helper()
	z := site.FindZone(zone)
	if z == nil {
		t.Fatalf("zone %q not found", zone)
	}
	sz := z.FindSubzone(subzone)
	if sz == nil {
		t.Fatalf("subzone %q not found in %q", subzone, zone)
	}
	return sz
}

func countClusterPlots(site *model.Site) int {
	n := 0
	for _, ref := range site.AllPlots() {
		if ref.Plot.InCluster() && ref.Plot.IsAvailable {
			n++
		}
	}
	return n
}
