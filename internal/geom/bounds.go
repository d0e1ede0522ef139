/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "github.com/paulmach/orb"

// DefaultRoomSize is substituted for rooms whose extent cannot be derived.
const DefaultRoomSize = 10.0

// RoomBounds is the rectangular extent of a room in the floor plane.
type RoomBounds struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Center Point   `json:"center"`
	// Defaulted is set when the input was degenerate and the default
	// DefaultRoomSize square was substituted.
	Defaulted bool `json:"defaulted,omitempty"`
}

// DefaultBounds returns the fallback room centered on the origin.
func DefaultBounds() RoomBounds {
	return RoomBounds{Width: DefaultRoomSize, Depth: DefaultRoomSize, Defaulted: true}
}

func (r RoomBounds) MinX() float64 { return r.Center.X - r.Width/2 }
func (r RoomBounds) MaxX() float64 { return r.Center.X + r.Width/2 }
func (r RoomBounds) MinZ() float64 { return r.Center.Z - r.Depth/2 }
func (r RoomBounds) MaxZ() float64 { return r.Center.Z + r.Depth/2 }

// Box returns the room as a footprint.
func (r RoomBounds) Box() Box {
	return Box{CX: r.Center.X, CZ: r.Center.Z, HW: r.Width / 2, HD: r.Depth / 2}
}

// Err returns ErrInvalidRoomBounds when the bounds were defaulted.
func (r RoomBounds) Err() error {
	if r.Defaulted {
		return ErrInvalidRoomBounds
	}
	return nil
}

// BoundsFromDims returns a width×depth room centered on the origin.
// Non-positive or non-finite sizes yield DefaultBounds.
func BoundsFromDims(width, depth float64) RoomBounds {
	if !(width > 0) || !(depth > 0) || !finite(width) || !finite(depth) {
		return DefaultBounds()
	}
	return RoomBounds{Width: width, Depth: depth}
}

// BoundsFromWalls returns the bounding rectangle of every wall end point.
//
// The walls are assumed to form a closed rectangle. Any other shape,
// including L-shaped or open wall sets, degrades to the bounding box of its
// points; the true footprint is not reconstructed. Fewer than two distinct
// points, a zero-length range or non-finite coordinates yield DefaultBounds.
func BoundsFromWalls(walls []Wall) RoomBounds {
	pts := make(orb.MultiPoint, 0, 2*len(walls))
	distinct := make(map[orb.Point]struct{}, 2*len(walls))
	for _, w := range walls {
		for _, p := range [2]Point{w.Start, w.End} {
			if !finite(p.X) || !finite(p.Z) {
				return DefaultBounds()
			}
			op := orb.Point{p.X, p.Z}
			pts = append(pts, op)
			distinct[op] = struct{}{}
		}
	}
	if len(distinct) < 2 {
		return DefaultBounds()
	}
	b := pts.Bound()
	width := b.Max[0] - b.Min[0]
	depth := b.Max[1] - b.Min[1]
	if !(width > 0) || !(depth > 0) {
		return DefaultBounds()
	}
	c := b.Center()
	return RoomBounds{Width: width, Depth: depth, Center: Point{X: c[0], Z: c[1]}}
}

// ComputeBounds derives the extent of room, preferring walls when present.
func ComputeBounds(room Room) RoomBounds {
	if len(room.Walls) > 0 {
		return BoundsFromWalls(room.Walls)
	}
	return BoundsFromDims(room.Width, room.Depth)
}

// RectWalls returns four walls enclosing a width×depth room centered on c,
// in counter-clockwise order starting at the south-west corner.
func RectWalls(width, depth float64, c Point) []Wall {
	x0, x1 := c.X-width/2, c.X+width/2
	z0, z1 := c.Z-depth/2, c.Z+depth/2
	return []Wall{
		{Start: Point{x0, z0}, End: Point{x1, z0}},
		{Start: Point{x1, z0}, End: Point{x1, z1}},
		{Start: Point{x1, z1}, End: Point{x0, z1}},
		{Start: Point{x0, z1}, End: Point{x0, z0}},
	}
}
