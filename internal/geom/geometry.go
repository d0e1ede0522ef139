/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the pure placement geometry: positions, footprints,
// room bounds, collision testing and grid snapping. Nothing in here performs
// I/O or logging so every function can be called from an input handler.
//
// Placement is a 2.5-D problem. All overlap logic works in the XZ floor plane;
// Y is vertical and only carried through.
package geom

import "math"

// Vec3 is a position or per-axis factor in meters. Y is vertical.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// V returns a Vec3.
func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// XZ projects v onto the floor plane.
func (v Vec3) XZ() Point { return Point{X: v.X, Z: v.Z} }

// Finite reports whether all components are finite numbers.
func (v Vec3) Finite() bool { return finite(v.X) && finite(v.Y) && finite(v.Z) }

// Point is a position in the XZ floor plane.
type Point struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Wall is a straight wall segment in the XZ plane.
type Wall struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// Room describes the space assets are placed in: either explicit dimensions
// or an ordered list of wall segments. Walls take precedence when present.
type Room struct {
	Width float64 `json:"width,omitempty"`
	Depth float64 `json:"depth,omitempty"`
	Walls []Wall  `json:"walls,omitempty"`
}

// Box is an axis-aligned footprint: center plus half extents.
type Box struct {
	CX, CZ float64
	HW, HD float64
}

// MinX etc. return the box edges.
func (b Box) MinX() float64 { return b.CX - b.HW }
func (b Box) MaxX() float64 { return b.CX + b.HW }
func (b Box) MinZ() float64 { return b.CZ - b.HD }
func (b Box) MaxZ() float64 { return b.CZ + b.HD }

// Contains reports whether p lies inside or on the edge of the box.
func (b Box) Contains(p Point) bool {
	return p.X >= b.MinX() && p.X <= b.MaxX() && p.Z >= b.MinZ() && p.Z <= b.MaxZ()
}

// Within reports whether b lies fully inside outer (touching edges allowed).
func (b Box) Within(outer Box) bool {
	const eps = 1e-9
	return b.MinX() >= outer.MinX()-eps && b.MaxX() <= outer.MaxX()+eps &&
		b.MinZ() >= outer.MinZ()-eps && b.MaxZ() <= outer.MaxZ()+eps
}

// Inset shrinks the box by m on every side (negative grows). Half extents
// never go below zero.
func (b Box) Inset(m float64) Box {
	return Box{CX: b.CX, CZ: b.CZ, HW: math.Max(0, b.HW-m), HD: math.Max(0, b.HD-m)}
}

// Asset is one placed object. Scale components of zero mean 1.
type Asset struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Position Vec3    `json:"position"`
	Rotation float64 `json:"rotation"`
	Scale    Vec3    `json:"scale"`
	Category string  `json:"category,omitempty"`
}

// EffectiveScale returns Scale with unset components replaced by 1.
func (a Asset) EffectiveScale() Vec3 { return a.Scale.unitDefault() }

func (v Vec3) unitDefault() Vec3 {
	if v.X == 0 {
		v.X = 1
	}
	if v.Y == 0 {
		v.Y = 1
	}
	if v.Z == 0 {
		v.Z = 1
	}
	return v
}

// NormalizeRotation maps r into (-π, π].
func NormalizeRotation(r float64) float64 {
	if !finite(r) {
		return 0
	}
	r = math.Mod(r, 2*math.Pi)
	if r <= -math.Pi {
		r += 2 * math.Pi
	} else if r > math.Pi {
		r -= 2 * math.Pi
	}
	return r
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
