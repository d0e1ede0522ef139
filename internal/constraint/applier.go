/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package constraint turns a raw candidate position for a moving asset into
// an allowed one. It runs once per pointer event while dragging: clamp into
// the room, then test for collisions, then either accept or hold the last
// valid position. Overlaps are never resolved by pushing other assets away.
package constraint

import (
	"math"

	"roomplanner/internal/geom"
)

// DefaultWallMargin is the clearance kept between an asset and the walls.
const DefaultWallMargin = 0.1

// Result of one constraint pass.
type Result struct {
	// Position is the clamped candidate when Valid, otherwise the caller's
	// last valid position.
	Position geom.Vec3
	Valid    bool
	// Clamped is set when the candidate had to be pulled back inside the room.
	Clamped bool
	// CollidesWith is the ID of the first blocking asset when not Valid.
	CollidesWith string
	// SupportID is the asset the position rests on when stacking applied.
	SupportID string
}

// Applier holds the constraint parameters. The zero value uses no padding
// and no wall margin; use New for the defaults.
type Applier struct {
	Catalog    *geom.Catalog
	Padding    float64
	WallMargin float64
	// Stacking enables the vertical stage: a candidate above another asset
	// rests on its top surface instead of the floor. It does not change how
	// X and Z are resolved.
	Stacking bool
}

// New returns an Applier with default padding and wall margin.
func New(catalog *geom.Catalog) *Applier {
	return &Applier{Catalog: catalog, Padding: geom.DefaultPadding, WallMargin: DefaultWallMargin}
}

// Apply constrains candidate for moving. others may contain moving itself;
// entries with the same ID are skipped.
func (a *Applier) Apply(candidate geom.Vec3, moving geom.Asset, others []geom.Asset, bounds geom.RoomBounds, lastValid geom.Vec3) Result {
	eff := a.Catalog.EffectiveOf(moving)

	pos, clamped := a.Clamp(candidate, eff, bounds)

	supportID := ""
	if a.Stacking {
		pos.Y, supportID = a.surfaceBelow(pos.XZ(), moving.ID, others)
	}

	box := eff.BoxAt(pos)
	for _, o := range others {
		if o.ID == moving.ID || (supportID != "" && o.ID == supportID) {
			continue
		}
		if geom.Collides(box, a.Catalog.BoxOf(o), a.Padding) {
			return Result{Position: lastValid, Valid: false, Clamped: clamped, CollidesWith: o.ID}
		}
	}
	return Result{Position: pos, Valid: true, Clamped: clamped, SupportID: supportID}
}

// Clamp pulls candidate so a footprint of eff stays inside bounds shrunk by
// the wall margin. Footprints wider than the usable room are centered on
// that axis. It reports whether anything changed.
func (a *Applier) Clamp(candidate geom.Vec3, eff geom.EffectiveDimensions, bounds geom.RoomBounds) (geom.Vec3, bool) {
	usable := bounds.Box().Inset(math.Max(0, a.WallMargin))
	x := clampAxis(candidate.X, usable.MinX()+eff.Width/2, usable.MaxX()-eff.Width/2, bounds.Center.X)
	z := clampAxis(candidate.Z, usable.MinZ()+eff.Depth/2, usable.MaxZ()-eff.Depth/2, bounds.Center.Z)
	out := geom.Vec3{X: x, Y: candidate.Y, Z: z}
	return out, out.X != candidate.X || out.Z != candidate.Z
}

func clampAxis(v, lo, hi, center float64) float64 {
	if lo > hi {
		return center
	}
	if math.IsNaN(v) {
		return center
	}
	return math.Min(math.Max(v, lo), hi)
}

// surfaceBelow casts a ray straight down at p and returns the height of the
// highest top surface it meets, or the floor (0).
func (a *Applier) surfaceBelow(p geom.Point, skipID string, others []geom.Asset) (float64, string) {
	best, id := 0.0, ""
	for _, o := range others {
		if o.ID == skipID {
			continue
		}
		if !a.Catalog.BoxOf(o).Contains(p) {
			continue
		}
		top := o.Position.Y + a.Catalog.EffectiveOf(o).Height
		if top > best {
			best, id = top, o.ID
		}
	}
	return best, id
}
