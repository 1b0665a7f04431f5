// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package cluster

import "sort"

// Renumber assigns final numbers when added new clusters join the existing
// ones. The new clusters take uniformly random positions among 1..N, where N
// is the final cluster count; the existing clusters fill the remaining
// positions in their original order. Only the positions of the new clusters
// are random.
//
// It returns the numbers for the new clusters (in placement order) and a map
// from each existing number to its final number.
func Renumber(existing []int, added int, rng Random) ([]int, map[int]int) {
	sorted := append([]int(nil), existing...)
	sort.Ints(sorted)
	sorted = dedupe(sorted)

	mapping := make(map[int]int, len(sorted))
	if added <= 0 {
		for _, n := range sorted {
			mapping[n] = n
		}
		return nil, mapping
	}

	total := len(sorted) + added
	taken := make([]bool, total+1)
	newNumbers := make([]int, added)
	for i, pos := range rng.Perm(total)[:added] {
		newNumbers[i] = pos + 1
		taken[pos+1] = true
	}

	next := 1
	for _, n := range sorted {
		for taken[next] {
			next++
		}
		mapping[n] = next
		next++
	}
	return newNumbers, mapping
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for _, n := range sorted {
		if len(out) == 0 || n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}
