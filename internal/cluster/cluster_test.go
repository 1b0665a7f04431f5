// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package cluster

import (
	"sort"
	"testing"

	"github.com/paulmach/orb"

	"github.com/tomtom215/plantingsites/internal/edit"
	"github.com/tomtom215/plantingsites/internal/geometry"
	"github.com/tomtom215/plantingsites/internal/model"
)

func rect(x0, y0, x1, y1 float64) orb.MultiPolygon {
	return geometry.BoundToMultiPolygon(orb.Bound{Min: orb.Point{x0, y0}, Max: orb.Point{x1, y1}})
}

func existingSite() *model.Site {
	return model.NewSiteBuilder("Site", rect(0, 0, 150, 150)).
		Zone("Z1", rect(0, 0, 150, 150), func(z *model.ZoneBuilder) {
			z.PermanentClusters(2).Subzone("S1", rect(0, 0, 150, 150), func(s *model.SubzoneBuilder) {
				s.Cluster(1, orb.Point{0, 0}).Cluster(2, orb.Point{90, 90})
			})
		}).
		MustBuild()
}

func widenedSite() *model.Site {
	return model.NewSiteBuilder("Site", rect(0, 0, 300, 150)).
		Zone("Z1", rect(0, 0, 300, 150), func(z *model.ZoneBuilder) {
			z.Subzone("S1", rect(0, 0, 300, 150))
		}).
		MustBuild()
}

func allocate(t *testing.T, existing, desired *model.Site, rng Random) *edit.SiteEdit {
	t.Helper()
	rules := model.DefaultRules()
	e, err := edit.Calculate(existing, desired, nil, rules)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if err := NewAllocator(rules, rng).Allocate(e); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	return e
}

func TestAllocate_WidenedSite(t *testing.T) {
	e := allocate(t, existingSite(), widenedSite(), NewSeeded(1))
	ze := e.ZoneEdit("Z1")

	if len(ze.Placements) != 2 {
		t.Fatalf("placements = %d, want 2", len(ze.Placements))
	}
	origin := orb.Point{0, 0}
	for _, p := range ze.Placements {
		if p.Square.Min.X() < 150 {
			t.Errorf("cluster %d at %v is outside the added area", p.Number, p.Square)
		}
		for q, plot := range p.Plots {
			if plot.Subplot != q+1 {
				t.Errorf("subplot = %d, want %d", plot.Subplot, q+1)
			}
			if plot.Subzone != "S1" {
				t.Errorf("subzone = %q, want S1", plot.Subzone)
			}
			if !geometry.IsGridAligned(origin, plot.Boundary, 30) {
				t.Errorf("plot %v not grid aligned", plot.Boundary)
			}
		}
	}
	if geometry.BoundsOverlap(ze.Placements[0].Square, ze.Placements[1].Square) {
		t.Error("placed clusters overlap")
	}

	final := map[int]bool{}
	for _, p := range ze.Placements {
		final[p.Number] = true
	}
	renumbered := map[int]int{1: 1, 2: 2}
	for _, r := range ze.Renumbering {
		renumbered[r.From] = r.To
	}
	for _, n := range renumbered {
		final[n] = true
	}
	for n := 1; n <= 4; n++ {
		if !final[n] {
			t.Errorf("cluster number %d unused; numbers = %v", n, final)
		}
	}
	if renumbered[1] >= renumbered[2] {
		t.Errorf("existing clusters changed relative order: %v", renumbered)
	}
}

func TestAllocate_RenumberingIsUnbiased(t *testing.T) {
	newSeen := map[int]bool{}
	originalSeen := map[int]bool{}

	for seed := uint64(1); seed <= 100; seed++ {
		e := allocate(t, existingSite(), widenedSite(), NewSeeded(seed))
		ze := e.ZoneEdit("Z1")
		for _, p := range ze.Placements {
			newSeen[p.Number] = true
		}
		final := map[int]int{1: 1, 2: 2}
		for _, r := range ze.Renumbering {
			final[r.From] = r.To
		}
		for _, n := range final {
			originalSeen[n] = true
		}
	}

	for n := 1; n <= 4; n++ {
		if !newSeen[n] {
			t.Errorf("number %d never assigned to a new cluster", n)
		}
		if !originalSeen[n] {
			t.Errorf("number %d never retained by an original cluster", n)
		}
	}
}

func TestAllocate_ExclusionCreatesNoReplacement(t *testing.T) {
	desired := model.NewSiteBuilder("Site", rect(0, 0, 150, 150)).
		WithExclusion(rect(0, 0, 60, 60)).
		Zone("Z1", rect(0, 0, 150, 150), func(z *model.ZoneBuilder) {
			z.Subzone("S1", rect(0, 0, 150, 150))
		}).
		MustBuild()

	e := allocate(t, existingSite(), desired, NewSeeded(7))
	ze := e.ZoneEdit("Z1")
	if len(ze.Placements) != 0 || len(ze.Renumbering) != 0 {
		t.Errorf("placements = %v, renumbering = %v, want none", ze.Placements, ze.Renumbering)
	}
}

func TestAllocate_ShortfallIsNotAnError(t *testing.T) {
	existing := model.NewSiteBuilder("Site", rect(0, 0, 120, 60)).MustBuild()
	desired := model.NewSiteBuilder("Site", rect(0, 0, 120, 60)).
		Zone("Z1", rect(0, 0, 120, 60), func(z *model.ZoneBuilder) {
			z.PermanentClusters(5)
		}).
		MustBuild()

	for seed := uint64(1); seed <= 20; seed++ {
		e := allocate(t, existing, desired, NewSeeded(seed))
		ze := e.ZoneEdit("Z1")
		if len(ze.Placements) < 1 || len(ze.Placements) > 2 {
			t.Fatalf("seed %d: placements = %d, want 1 or 2", seed, len(ze.Placements))
		}
		numbers := []int{}
		for _, p := range ze.Placements {
			numbers = append(numbers, p.Number)
		}
		sort.Ints(numbers)
		for i, n := range numbers {
			if n != i+1 {
				t.Errorf("seed %d: numbers = %v, want 1..%d", seed, numbers, len(numbers))
			}
		}
	}
}

func TestAllocate_QuadrantsMustShareSubzone(t *testing.T) {
	existing := model.NewSiteBuilder("Site", rect(0, 0, 90, 60)).MustBuild()
	// Subzone boundary at x=45 splits every 30 m cell column it crosses.
	desired := model.NewSiteBuilder("Site", rect(0, 0, 90, 60)).
		Zone("Z1", rect(0, 0, 90, 60), func(z *model.ZoneBuilder) {
			z.PermanentClusters(1).Subzone("A", rect(0, 0, 45, 60)).Subzone("B", rect(45, 0, 90, 60))
		}).
		MustBuild()

	e := allocate(t, existing, desired, NewSeeded(3))
	if n := len(e.ZoneEdit("Z1").Placements); n != 0 {
		t.Errorf("placements = %d, want 0", n)
	}
}

func TestAllocate_ReusesLeftoverPlot(t *testing.T) {
	existing := existingSite()
	existing.ExteriorPlots = []model.Plot{{
		ID:          42,
		Number:      9,
		Boundary:    geometry.Square(orb.Point{150, 0}, 30).ToPolygon(),
		SizeMeters:  30,
		IsAvailable: true,
	}}

	e := allocate(t, existing, widenedSite(), NewSeeded(11))
	reused := false
	for _, p := range e.ZoneEdit("Z1").Placements {
		for _, plot := range p.Plots {
			if plot.ReusePlotID == 42 {
				reused = true
				if !geometry.SameSquare(plot.Boundary, geometry.Square(orb.Point{150, 0}, 30)) {
					t.Errorf("reused plot boundary = %v", plot.Boundary)
				}
			}
		}
	}
	if !reused {
		t.Error("leftover plot was not reused")
	}
}

func TestRenumber(t *testing.T) {
	t.Run("no additions keeps numbers", func(t *testing.T) {
		numbers, mapping := Renumber([]int{3, 1}, 0, NewSeeded(1))
		if numbers != nil {
			t.Errorf("numbers = %v, want nil", numbers)
		}
		if mapping[1] != 1 || mapping[3] != 3 {
			t.Errorf("mapping = %v", mapping)
		}
	})

	t.Run("fills gaps in order", func(t *testing.T) {
		for seed := uint64(1); seed <= 50; seed++ {
			numbers, mapping := Renumber([]int{2, 5, 9}, 2, NewSeeded(seed))
			used := map[int]bool{}
			for _, n := range numbers {
				used[n] = true
			}
			for _, n := range mapping {
				if used[n] {
					t.Fatalf("seed %d: number %d assigned twice", seed, n)
				}
				used[n] = true
			}
			if len(used) != 5 {
				t.Fatalf("seed %d: used = %v", seed, used)
			}
			for n := 1; n <= 5; n++ {
				if !used[n] {
					t.Fatalf("seed %d: number %d unused", seed, n)
				}
			}
			if !(mapping[2] < mapping[5] && mapping[5] < mapping[9]) {
				t.Errorf("seed %d: order not preserved: %v", seed, mapping)
			}
		}
	})
}

func TestPlaceTemporaryPlots(t *testing.T) {
	site := model.NewSiteBuilder("Site", rect(0, 0, 90, 90)).
		Zone("Z1", rect(0, 0, 90, 90), func(z *model.ZoneBuilder) {
			z.Subzone("S1", rect(0, 0, 90, 90), func(s *model.SubzoneBuilder) {
				s.Cluster(1, orb.Point{0, 0})
			})
		}).
		MustBuild()
	site.Zones[0].Subzones[0].Plots = append(site.Zones[0].Subzones[0].Plots, model.Plot{
		ID:         77,
		Number:     5,
		Boundary:   geometry.Square(orb.Point{60, 60}, 30).ToPolygon(),
		SizeMeters: 30,
	})
	zone := &site.Zones[0]
	alloc := NewAllocator(model.DefaultRules(), NewSeeded(5))

	placements, err := alloc.PlaceTemporaryPlots(site, zone, 10)
	if err != nil {
		t.Fatalf("PlaceTemporaryPlots() error = %v", err)
	}
	// 9 cells minus 4 cluster cells.
	if len(placements) != 5 {
		t.Fatalf("placements = %d, want 5", len(placements))
	}
	reused := 0
	seen := map[orb.Point]bool{}
	for _, p := range placements {
		if seen[p.Boundary.Min] {
			t.Errorf("cell %v placed twice", p.Boundary.Min)
		}
		seen[p.Boundary.Min] = true
		if p.Boundary.Min.X() < 60 && p.Boundary.Min.Y() < 60 {
			t.Errorf("cell %v overlaps the cluster", p.Boundary.Min)
		}
		if p.ReusePlotID == 77 {
			reused++
		}
	}
	if reused != 1 {
		t.Errorf("reused plots = %d, want 1", reused)
	}

	placements, err = alloc.PlaceTemporaryPlots(site, zone, 2)
	if err != nil || len(placements) != 2 {
		t.Errorf("PlaceTemporaryPlots(2) = %d, %v", len(placements), err)
	}
}
