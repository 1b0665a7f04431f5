// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/plantingsites/internal/model"
)

// MemoryStore implements Store in process memory.
// A transaction holds the store's lock from Begin until Commit or Rollback
// and works on a private copy, so writers are serialized and readers never
// see uncommitted rows. Data is lost on restart.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryTables
}

type memorySite struct {
	site           model.Site // Own columns only
	seasons        []model.PlantingSeason
	nextPlotNumber int64
}

type populationKey struct {
	id      int64
	species model.SpeciesID
}

type memoryPopulation struct {
	siteID model.SiteID
	zoneID model.ZoneID
	total  int64
	since  int64
}

type memoryTables struct {
	nextID      int64
	sites       map[model.SiteID]*memorySite
	zones       map[model.ZoneID]*zoneRecord
	subzones    map[model.SubzoneID]*subzoneRecord
	plots       map[model.PlotID]*plotRecord
	histories   map[model.SiteHistoryID]*model.HistorySnapshot
	subzonePops map[populationKey]*memoryPopulation
	zonePops    map[populationKey]*memoryPopulation
	sitePops    map[populationKey]*memoryPopulation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryTables{
		sites:       make(map[model.SiteID]*memorySite),
		zones:       make(map[model.ZoneID]*zoneRecord),
		subzones:    make(map[model.SubzoneID]*subzoneRecord),
		plots:       make(map[model.PlotID]*plotRecord),
		histories:   make(map[model.SiteHistoryID]*model.HistorySnapshot),
		subzonePops: make(map[populationKey]*memoryPopulation),
		zonePops:    make(map[populationKey]*memoryPopulation),
		sitePops:    make(map[populationKey]*memoryPopulation),
	}}
}

// Begin starts a transaction. It blocks while another transaction is open.
func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &memoryTx{store: s, data: s.data.clone()}, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (d *memoryTables) clone() *memoryTables {
	c := &memoryTables{
		nextID:      d.nextID,
		sites:       make(map[model.SiteID]*memorySite, len(d.sites)),
		zones:       make(map[model.ZoneID]*zoneRecord, len(d.zones)),
		subzones:    make(map[model.SubzoneID]*subzoneRecord, len(d.subzones)),
		plots:       make(map[model.PlotID]*plotRecord, len(d.plots)),
		histories:   make(map[model.SiteHistoryID]*model.HistorySnapshot, len(d.histories)),
		subzonePops: clonePopulations(d.subzonePops),
		zonePops:    clonePopulations(d.zonePops),
		sitePops:    clonePopulations(d.sitePops),
	}
	for id, s := range d.sites {
		c.sites[id] = &memorySite{
			site:           stripSite(&s.site),
			seasons:        append([]model.PlantingSeason(nil), s.seasons...),
			nextPlotNumber: s.nextPlotNumber,
		}
	}
	for id, z := range d.zones {
		c.zones[id] = &zoneRecord{SiteID: z.SiteID, Zone: z.Zone.Clone()}
	}
	for id, sz := range d.subzones {
		c.subzones[id] = &subzoneRecord{SiteID: sz.SiteID, ZoneID: sz.ZoneID, Subzone: sz.Subzone.Clone()}
	}
	for id, p := range d.plots {
		c.plots[id] = &plotRecord{SiteID: p.SiteID, Plot: p.Plot.Clone()}
	}
	for id, h := range d.histories {
		c.histories[id] = h.Clone()
	}
	return c
}

func clonePopulations(m map[populationKey]*memoryPopulation) map[populationKey]*memoryPopulation {
	c := make(map[populationKey]*memoryPopulation, len(m))
	for k, v := range m {
		p := *v
		c[k] = &p
	}
	return c
}

type memoryTx struct {
	store *MemoryStore
	data  *memoryTables
	done  bool
}

func (t *memoryTx) newID() int64 {
	t.data.nextID++
	return t.data.nextID
}

func (t *memoryTx) check(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	return ctx.Err()
}

// Commit publishes the transaction's copy and releases the store.
func (t *memoryTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.store.data = t.data
	t.store.mu.Unlock()
	return nil
}

// Rollback discards the transaction's copy and releases the store.
func (t *memoryTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.data = nil
	t.store.mu.Unlock()
	return nil
}

func (t *memoryTx) site(id model.SiteID) (*memorySite, error) {
	s, ok := t.data.sites[id]
	if !ok {
		return nil, model.NotFound("planting site", id)
	}
	return s, nil
}

func (t *memoryTx) FetchSite(ctx context.Context, id model.SiteID, depth model.Depth) (*model.Site, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	ms, err := t.site(id)
	if err != nil {
		return nil, err
	}
	site := stripSite(&ms.site)
	site.Seasons = append([]model.PlantingSeason(nil), ms.seasons...)

	var zones []zoneRecord
	for _, z := range t.data.zones {
		if z.SiteID == id {
			zones = append(zones, *z)
		}
	}
	var subzones []subzoneRecord
	for _, sz := range t.data.subzones {
		if sz.SiteID == id {
			subzones = append(subzones, *sz)
		}
	}
	var plots []plotRecord
	for _, p := range t.data.plots {
		if p.SiteID == id {
			plots = append(plots, *p)
		}
	}
	return assembleSite(&site, zones, subzones, plots, depth), nil
}

func (t *memoryTx) ListSites(ctx context.Context, org model.OrganizationID) ([]model.Site, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	var sites []model.Site
	for _, ms := range t.data.sites {
		if org != 0 && ms.site.OrganizationID != org {
			continue
		}
		s := stripSite(&ms.site)
		s.Seasons = append([]model.PlantingSeason(nil), ms.seasons...)
		sites = append(sites, s)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID < sites[j].ID })
	return sites, nil
}

func (t *memoryTx) InsertSite(ctx context.Context, site *model.Site) (model.SiteID, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	id := model.SiteID(t.newID())
	row := stripSite(site)
	row.ID = id
	t.data.sites[id] = &memorySite{site: row, nextPlotNumber: 1}
	return id, nil
}

func (t *memoryTx) UpdateSite(ctx context.Context, site *model.Site) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	ms, err := t.site(site.ID)
	if err != nil {
		return err
	}
	ms.site = stripSite(site)
	return nil
}

func (t *memoryTx) DeleteSite(ctx context.Context, id model.SiteID) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	if _, err := t.site(id); err != nil {
		return err
	}
	delete(t.data.sites, id)
	for zid, z := range t.data.zones {
		if z.SiteID == id {
			delete(t.data.zones, zid)
		}
	}
	for sid, sz := range t.data.subzones {
		if sz.SiteID == id {
			delete(t.data.subzones, sid)
		}
	}
	for pid, p := range t.data.plots {
		if p.SiteID == id {
			delete(t.data.plots, pid)
		}
	}
	for hid, h := range t.data.histories {
		if h.Site.SiteID == id {
			delete(t.data.histories, hid)
		}
	}
	for _, pops := range []map[populationKey]*memoryPopulation{t.data.subzonePops, t.data.zonePops, t.data.sitePops} {
		for k, p := range pops {
			if p.siteID == id {
				delete(pops, k)
			}
		}
	}
	return nil
}

func (t *memoryTx) ReplaceSeasons(ctx context.Context, id model.SiteID, seasons []model.PlantingSeason) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	ms, err := t.site(id)
	if err != nil {
		return err
	}
	out := make([]model.PlantingSeason, len(seasons))
	for i, season := range seasons {
		if season.ID == 0 {
			season.ID = model.SeasonID(t.newID())
		}
		out[i] = season
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	ms.seasons = out
	return nil
}

func (t *memoryTx) SiteOfZone(ctx context.Context, id model.ZoneID) (model.SiteID, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	zr, ok := t.data.zones[id]
	if !ok {
		return 0, model.NotFound("planting zone", id)
	}
	return zr.SiteID, nil
}

func (t *memoryTx) SiteOfSubzone(ctx context.Context, id model.SubzoneID) (model.SiteID, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	sr, ok := t.data.subzones[id]
	if !ok {
		return 0, model.NotFound("planting subzone", id)
	}
	return sr.SiteID, nil
}

func (t *memoryTx) InsertZone(ctx context.Context, siteID model.SiteID, zone *model.Zone) (model.ZoneID, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	if _, err := t.site(siteID); err != nil {
		return 0, err
	}
	id := model.ZoneID(t.newID())
	row := zone.Clone()
	row.ID = id
	row.Subzones = nil
	t.data.zones[id] = &zoneRecord{SiteID: siteID, Zone: row}
	return id, nil
}

func (t *memoryTx) UpdateZone(ctx context.Context, zone *model.Zone) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	zr, ok := t.data.zones[zone.ID]
	if !ok {
		return model.NotFound("planting zone", zone.ID)
	}
	row := zone.Clone()
	row.Subzones = nil
	zr.Zone = row
	return nil
}

func (t *memoryTx) DeleteZone(ctx context.Context, id model.ZoneID) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	if _, ok := t.data.zones[id]; !ok {
		return model.NotFound("planting zone", id)
	}
	for sid, sz := range t.data.subzones {
		if sz.ZoneID == id {
			t.deleteSubzone(sid)
		}
	}
	delete(t.data.zones, id)
	for k := range t.data.zonePops {
		if model.ZoneID(k.id) == id {
			delete(t.data.zonePops, k)
		}
	}
	for _, h := range t.data.histories {
		for i := range h.Zones {
			if h.Zones[i].ZoneID != nil && *h.Zones[i].ZoneID == id {
				h.Zones[i].ZoneID = nil
			}
		}
	}
	return nil
}

func (t *memoryTx) InsertSubzone(ctx context.Context, zoneID model.ZoneID, subzone *model.Subzone) (model.SubzoneID, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	zr, ok := t.data.zones[zoneID]
	if !ok {
		return 0, model.NotFound("planting zone", zoneID)
	}
	id := model.SubzoneID(t.newID())
	row := subzone.Clone()
	row.ID = id
	row.Plots = nil
	t.data.subzones[id] = &subzoneRecord{SiteID: zr.SiteID, ZoneID: zoneID, Subzone: row}
	return id, nil
}

func (t *memoryTx) UpdateSubzone(ctx context.Context, subzone *model.Subzone) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	sr, ok := t.data.subzones[subzone.ID]
	if !ok {
		return model.NotFound("planting subzone", subzone.ID)
	}
	row := subzone.Clone()
	row.Plots = nil
	sr.Subzone = row
	return nil
}

func (t *memoryTx) DeleteSubzone(ctx context.Context, id model.SubzoneID) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	if _, ok := t.data.subzones[id]; !ok {
		return model.NotFound("planting subzone", id)
	}
	t.deleteSubzone(id)
	return nil
}

// deleteSubzone removes the row, detaches its plots and history rows and
// drops its population rows.
func (t *memoryTx) deleteSubzone(id model.SubzoneID) {
	delete(t.data.subzones, id)
	for _, p := range t.data.plots {
		if p.Plot.SubzoneID != nil && *p.Plot.SubzoneID == id {
			p.Plot.SubzoneID = nil
		}
	}
	for k := range t.data.subzonePops {
		if model.SubzoneID(k.id) == id {
			delete(t.data.subzonePops, k)
		}
	}
	for _, h := range t.data.histories {
		for i := range h.Subzones {
			if h.Subzones[i].SubzoneID != nil && *h.Subzones[i].SubzoneID == id {
				h.Subzones[i].SubzoneID = nil
			}
		}
		for i := range h.Plots {
			if h.Plots[i].SubzoneID != nil && *h.Plots[i].SubzoneID == id {
				h.Plots[i].SubzoneID = nil
			}
		}
	}
}

func (t *memoryTx) InsertPlot(ctx context.Context, siteID model.SiteID, plot *model.Plot) (model.PlotID, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	ms, err := t.site(siteID)
	if err != nil {
		return 0, err
	}
	if plot.SubzoneID != nil {
		if sr, ok := t.data.subzones[*plot.SubzoneID]; !ok || sr.SiteID != siteID {
			return 0, model.NotFound("planting subzone", *plot.SubzoneID)
		}
	}
	id := model.PlotID(t.newID())
	row := plot.Clone()
	row.ID = id
	t.data.plots[id] = &plotRecord{SiteID: siteID, Plot: row}
	if plot.Number >= ms.nextPlotNumber {
		ms.nextPlotNumber = plot.Number + 1
	}
	return id, nil
}

func (t *memoryTx) UpdatePlot(ctx context.Context, plot *model.Plot) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	pr, ok := t.data.plots[plot.ID]
	if !ok {
		return model.NotFound("monitoring plot", plot.ID)
	}
	if plot.SubzoneID != nil {
		if sr, ok := t.data.subzones[*plot.SubzoneID]; !ok || sr.SiteID != pr.SiteID {
			return model.NotFound("planting subzone", *plot.SubzoneID)
		}
	}
	pr.Plot = plot.Clone()
	return nil
}

func (t *memoryTx) NextPlotNumber(ctx context.Context, siteID model.SiteID) (int64, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	ms, err := t.site(siteID)
	if err != nil {
		return 0, err
	}
	n := ms.nextPlotNumber
	ms.nextPlotNumber++
	return n, nil
}

func (t *memoryTx) InsertHistory(ctx context.Context, snapshot *model.HistorySnapshot) (model.SiteHistoryID, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	if _, err := t.site(snapshot.Site.SiteID); err != nil {
		return 0, err
	}
	h := snapshot.Clone()
	h.Site.ID = model.SiteHistoryID(t.newID())

	zoneIDs := make(map[model.ZoneHistoryID]model.ZoneHistoryID, len(h.Zones))
	for i := range h.Zones {
		id := model.ZoneHistoryID(t.newID())
		zoneIDs[h.Zones[i].ID] = id
		h.Zones[i].ID = id
		h.Zones[i].SiteHistoryID = h.Site.ID
	}
	subzoneIDs := make(map[model.SubzoneHistoryID]model.SubzoneHistoryID, len(h.Subzones))
	for i := range h.Subzones {
		id := model.SubzoneHistoryID(t.newID())
		subzoneIDs[h.Subzones[i].ID] = id
		h.Subzones[i].ID = id
		h.Subzones[i].ZoneHistoryID = zoneIDs[h.Subzones[i].ZoneHistoryID]
	}
	for i := range h.Plots {
		h.Plots[i].ID = model.PlotHistoryID(t.newID())
		h.Plots[i].SiteHistoryID = h.Site.ID
		if h.Plots[i].SubzoneHistoryID != nil {
			id := subzoneIDs[*h.Plots[i].SubzoneHistoryID]
			h.Plots[i].SubzoneHistoryID = &id
		}
	}
	t.data.histories[h.Site.ID] = h
	return h.Site.ID, nil
}

func (t *memoryTx) history(siteID model.SiteID, id model.SiteHistoryID) (*model.HistorySnapshot, error) {
	h, ok := t.data.histories[id]
	if !ok || h.Site.SiteID != siteID {
		return nil, model.NotFound("planting site history", id)
	}
	return h, nil
}

func (t *memoryTx) FetchHistory(ctx context.Context, siteID model.SiteID, id model.SiteHistoryID) (*model.HistorySnapshot, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	h, err := t.history(siteID, id)
	if err != nil {
		return nil, err
	}
	return h.Clone(), nil
}

func (t *memoryTx) ListHistories(ctx context.Context, siteID model.SiteID) ([]model.SiteHistory, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	if _, err := t.site(siteID); err != nil {
		return nil, err
	}
	var out []model.SiteHistory
	for _, h := range t.data.histories {
		if h.Site.SiteID == siteID {
			out = append(out, h.Clone().Site)
		}
	}
	sortHistories(out)
	return out, nil
}

func (t *memoryTx) HistoryAsOf(ctx context.Context, siteID model.SiteID, at time.Time) (*model.HistorySnapshot, error) {
	histories, err := t.ListHistories(ctx, siteID)
	if err != nil {
		return nil, err
	}
	h, ok := latestAsOf(histories, at)
	if !ok {
		return nil, model.NotFound("planting site history", siteID)
	}
	return t.FetchHistory(ctx, siteID, h.ID)
}

func (t *memoryTx) RenameSiteHistory(ctx context.Context, id model.SiteHistoryID, name string) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	h, ok := t.data.histories[id]
	if !ok {
		return model.NotFound("planting site history", id)
	}
	h.Site.Name = name
	return nil
}

func (t *memoryTx) RenameZoneHistory(ctx context.Context, id model.SiteHistoryID, zoneID model.ZoneID, name string) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	h, ok := t.data.histories[id]
	if !ok {
		return model.NotFound("planting site history", id)
	}
	for i := range h.Zones {
		if h.Zones[i].ZoneID != nil && *h.Zones[i].ZoneID == zoneID {
			h.Zones[i].Name = name
		}
	}
	return nil
}

func (t *memoryTx) RenameSubzoneHistory(ctx context.Context, id model.SiteHistoryID, subzoneID model.SubzoneID, name, fullName string) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	h, ok := t.data.histories[id]
	if !ok {
		return model.NotFound("planting site history", id)
	}
	for i := range h.Subzones {
		if h.Subzones[i].SubzoneID != nil && *h.Subzones[i].SubzoneID == subzoneID {
			h.Subzones[i].Name = name
			h.Subzones[i].FullName = fullName
		}
	}
	return nil
}

func (t *memoryTx) AddPlants(ctx context.Context, subzoneID model.SubzoneID, speciesID model.SpeciesID, count int64) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	sr, ok := t.data.subzones[subzoneID]
	if !ok {
		return model.NotFound("planting subzone", subzoneID)
	}
	add := func(pops map[populationKey]*memoryPopulation, id int64) {
		key := populationKey{id: id, species: speciesID}
		p, ok := pops[key]
		if !ok {
			p = &memoryPopulation{siteID: sr.SiteID, zoneID: sr.ZoneID}
			pops[key] = p
		}
		p.total += count
		p.since += count
	}
	add(t.data.subzonePops, int64(subzoneID))
	add(t.data.zonePops, int64(sr.ZoneID))
	add(t.data.sitePops, int64(sr.SiteID))
	return nil
}

func (t *memoryTx) SubzonePopulations(ctx context.Context, siteID model.SiteID) ([]model.SubzonePopulation, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	var out []model.SubzonePopulation
	for k, p := range t.data.subzonePops {
		if p.siteID == siteID {
			out = append(out, model.SubzonePopulation{
				SubzoneID:                  model.SubzoneID(k.id),
				SpeciesID:                  k.species,
				TotalPlants:                p.total,
				PlantsSinceLastObservation: p.since,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubzoneID != out[j].SubzoneID {
			return out[i].SubzoneID < out[j].SubzoneID
		}
		return out[i].SpeciesID < out[j].SpeciesID
	})
	return out, nil
}

func (t *memoryTx) ZonePopulations(ctx context.Context, siteID model.SiteID) ([]model.ZonePopulation, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	var out []model.ZonePopulation
	for k, p := range t.data.zonePops {
		if p.siteID == siteID {
			out = append(out, model.ZonePopulation{
				ZoneID:                     model.ZoneID(k.id),
				SpeciesID:                  k.species,
				TotalPlants:                p.total,
				PlantsSinceLastObservation: p.since,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZoneID != out[j].ZoneID {
			return out[i].ZoneID < out[j].ZoneID
		}
		return out[i].SpeciesID < out[j].SpeciesID
	})
	return out, nil
}

func (t *memoryTx) SitePopulations(ctx context.Context, siteID model.SiteID) ([]model.SitePopulation, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	var out []model.SitePopulation
	for k, p := range t.data.sitePops {
		if p.siteID == siteID {
			out = append(out, model.SitePopulation{
				SiteID:                     siteID,
				SpeciesID:                  k.species,
				TotalPlants:                p.total,
				PlantsSinceLastObservation: p.since,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpeciesID < out[j].SpeciesID })
	return out, nil
}

func (t *memoryTx) ResetPlantsSinceLastObservation(ctx context.Context, siteID model.SiteID) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	if _, err := t.site(siteID); err != nil {
		return err
	}
	for _, pops := range []map[populationKey]*memoryPopulation{t.data.subzonePops, t.data.zonePops, t.data.sitePops} {
		for _, p := range pops {
			if p.siteID == siteID {
				p.since = 0
			}
		}
	}
	return nil
}

func (t *memoryTx) PlantedSubzoneIDs(ctx context.Context, siteID model.SiteID) (map[model.SubzoneID]bool, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	planted := make(map[model.SubzoneID]bool)
	for k, p := range t.data.subzonePops {
		if p.siteID == siteID && p.total > 0 {
			planted[model.SubzoneID(k.id)] = true
		}
	}
	return planted, nil
}

func sortHistories(h []model.SiteHistory) {
	sort.Slice(h, func(i, j int) bool {
		if !h[i].CreatedTime.Equal(h[j].CreatedTime) {
			return h[i].CreatedTime.Before(h[j].CreatedTime)
		}
		return h[i].ID < h[j].ID
	})
}

// latestAsOf returns the newest history created at or before at. histories
// must be sorted oldest first.
func latestAsOf(histories []model.SiteHistory, at time.Time) (model.SiteHistory, bool) {
	for i := len(histories) - 1; i >= 0; i-- {
		if !histories[i].CreatedTime.After(at) {
			return histories[i], true
		}
	}
	return model.SiteHistory{}, false
}
