// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package cluster

import "math/rand/v2"

// Random is the subset of *rand.Rand the allocator needs. Tests pass a
// seeded *rand.Rand; production uses the process-wide source.
type Random interface {
	Perm(n int) []int
	Shuffle(n int, swap func(i, j int))
}

// GlobalRandom draws from math/rand/v2's process-wide source, which is safe
// for concurrent use.
type GlobalRandom struct{}

// Perm returns a random permutation of [0, n).
func (GlobalRandom) Perm(n int) []int { return rand.Perm(n) }

// Shuffle randomizes the order of n elements.
func (GlobalRandom) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// NewSeeded returns a deterministic source for tests and reproducible runs.
func NewSeeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
