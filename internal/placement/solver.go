/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package placement finds a free spot for a new or relocated asset.
//
// The search runs in two phases. The first probes a fixed grid of candidate
// centers around the room center so the outcome is reproducible for a given
// list of existing assets. The second samples uniformly inside the room.
// The total number of probes is capped, so the worst case is
// O(MaxAttempts × len(existing)) no matter how full the room is.
package placement

import (
	"math"
	"math/rand/v2"

	"roomplanner/internal/geom"
)

const (
	// DefaultMaxAttempts caps the number of candidates probed per search.
	DefaultMaxAttempts = 50
	// GridAttempts is the number of leading attempts taken from the fixed grid.
	GridAttempts = 20
	// GridColumns is the number of grid cells per row.
	GridColumns = 5
	// GridSpacing is the distance between neighboring grid cells in meters.
	GridSpacing = 1.5
	// FallbackStep is the X offset per existing asset used when every
	// attempt failed.
	FallbackStep = 0.5
)

// Phase identifies which stage produced a position.
type Phase string

const (
	PhaseGrid     Phase = "grid"
	PhaseRandom   Phase = "random"
	PhaseFallback Phase = "fallback"
)

// Result is the outcome of a search. Warning is geom.ErrExhaustedPlacement
// when no candidate was free and Position is a best-effort spot that may
// collide.
type Result struct {
	Position geom.Vec3
	Phase    Phase
	Attempts int
	Warning  error
}

// OK reports whether Position is free of collisions.
func (r Result) OK() bool { return r.Warning == nil }

// Solver holds the search parameters. The zero value uses the built-in
// defaults and a randomly seeded source for the second phase.
type Solver struct {
	Catalog     *geom.Catalog
	Padding     float64
	MaxAttempts int
	// Rand drives the random phase. Seed it for reproducible runs.
	Rand *rand.Rand
}

// New returns a Solver with default padding and attempt count.
func New(catalog *geom.Catalog, rng *rand.Rand) *Solver {
	return &Solver{Catalog: catalog, Padding: geom.DefaultPadding, MaxAttempts: DefaultMaxAttempts, Rand: rng}
}

// FindPosition searches a position for a new, unrotated asset of assetType.
func (s *Solver) FindPosition(existing []geom.Asset, assetType string, bounds geom.RoomBounds) Result {
	d, _ := s.Catalog.Lookup(assetType)
	return s.search(existing, geom.Effective(d, 0, geom.Vec3{}), "", bounds)
}

// Relocate searches a new position for moving, keeping its rotation and
// scale and ignoring its own entry in existing.
func (s *Solver) Relocate(existing []geom.Asset, moving geom.Asset, bounds geom.RoomBounds) Result {
	return s.search(existing, s.Catalog.EffectiveOf(moving), moving.ID, bounds)
}

func (s *Solver) search(existing []geom.Asset, eff geom.EffectiveDimensions, skipID string, bounds geom.RoomBounds) Result {
	obstacles := make([]geom.Box, 0, len(existing))
	for _, a := range existing {
		if skipID != "" && a.ID == skipID {
			continue
		}
		obstacles = append(obstacles, s.Catalog.BoxOf(a))
	}
	room := bounds.Box()
	padding := s.Padding
	if padding < 0 {
		padding = 0
	}
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var cand geom.Vec3
		phase := PhaseGrid
		if attempt < GridAttempts {
			cand = gridCandidate(attempt, bounds.Center)
		} else {
			phase = PhaseRandom
			cand = s.randomCandidate(eff, bounds)
		}
		box := eff.BoxAt(cand)
		if !box.Within(room) {
			continue
		}
		if geom.CollidesAny(box, obstacles, padding) >= 0 {
			continue
		}
		return Result{Position: cand, Phase: phase, Attempts: attempt + 1}
	}

	return Result{
		Position: fallback(len(obstacles), eff, bounds),
		Phase:    PhaseFallback,
		Attempts: maxAttempts,
		Warning:  geom.ErrExhaustedPlacement,
	}
}

// gridCandidate returns the attempt-th cell of the 5-column grid centered
// on c, scanning row by row from the south-west. With GridAttempts = 20 the
// fifth row is never reached.
func gridCandidate(attempt int, c geom.Point) geom.Vec3 {
	col := attempt % GridColumns
	row := attempt / GridColumns
	half := GridColumns / 2
	return geom.Vec3{
		X: c.X + float64(col-half)*GridSpacing,
		Z: c.Z + float64(row-half)*GridSpacing,
	}
}

func (s *Solver) randomCandidate(eff geom.EffectiveDimensions, bounds geom.RoomBounds) geom.Vec3 {
	rx := math.Max(0, (bounds.Width-eff.Width)/2)
	rz := math.Max(0, (bounds.Depth-eff.Depth)/2)
	return geom.Vec3{
		X: bounds.Center.X + (s.float()*2-1)*rx,
		Z: bounds.Center.Z + (s.float()*2-1)*rz,
	}
}

func (s *Solver) float() float64 {
	if s.Rand != nil {
		return s.Rand.Float64()
	}
	return rand.Float64()
}

func fallback(n int, eff geom.EffectiveDimensions, bounds geom.RoomBounds) geom.Vec3 {
	x := bounds.Center.X + float64(n)*FallbackStep
	lo := bounds.MinX() + eff.Width/2
	hi := bounds.MaxX() - eff.Width/2
	if lo > hi {
		return geom.Vec3{X: bounds.Center.X, Z: bounds.Center.Z}
	}
	return geom.Vec3{X: math.Min(math.Max(x, lo), hi), Z: bounds.Center.Z}
}
