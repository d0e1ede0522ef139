/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the layout document: one room and the assets placed in
// it. It is what the storage layer reads and writes as layout.json.

import (
	"fmt"
	"strings"

	"roomplanner/internal/geom"
)

// Layout is a room and its assets.
type Layout struct {
	Name     string       `json:"name"`
	Room     Room         `json:"room"`
	Assets   []geom.Asset `json:"assets"`
	Metadata Metadata     `json:"metadata,omitempty"`
}

// Metadata contains optional descriptive fields.
type Metadata struct {
	Site  string `json:"site,omitempty"`
	Floor string `json:"floor,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Room as stored on disk. Wall coordinates are optional in the encoding so a
// missing value is detected instead of silently read as zero.
type Room struct {
	Width float64 `json:"width,omitempty"`
	Depth float64 `json:"depth,omitempty"`
	Walls []Wall  `json:"walls,omitempty"`
}

type Wall struct {
	Start Coord `json:"start"`
	End   Coord `json:"end"`
}

type Coord struct {
	X *float64 `json:"x"`
	Z *float64 `json:"z"`
}

// C returns a fully set Coord.
func C(x, z float64) Coord { return Coord{X: &x, Z: &z} }

// RoomFromGeometry converts a geometry room to its stored form.
func RoomFromGeometry(r geom.Room) Room {
	out := Room{Width: r.Width, Depth: r.Depth}
	for _, w := range r.Walls {
		out.Walls = append(out.Walls, Wall{Start: C(w.Start.X, w.Start.Z), End: C(w.End.X, w.End.Z)})
	}
	return out
}

// Geometry converts r to a geom.Room. A wall with a missing coordinate is a
// structural error; the room is not converted.
func (r Room) Geometry() (geom.Room, error) {
	out := geom.Room{Width: r.Width, Depth: r.Depth}
	for i, w := range r.Walls {
		start, err := w.Start.point(fmt.Sprintf("room.walls[%d].start", i))
		if err != nil {
			return geom.Room{}, err
		}
		end, err := w.End.point(fmt.Sprintf("room.walls[%d].end", i))
		if err != nil {
			return geom.Room{}, err
		}
		out.Walls = append(out.Walls, geom.Wall{Start: start, End: end})
	}
	return out, nil
}

func (c Coord) point(field string) (geom.Point, error) {
	if c.X == nil {
		return geom.Point{}, geom.Structural(field+".x", "missing coordinate")
	}
	if c.Z == nil {
		return geom.Point{}, geom.Structural(field+".z", "missing coordinate")
	}
	p := geom.Point{X: *c.X, Z: *c.Z}
	if !(geom.Vec3{X: p.X, Z: p.Z}).Finite() {
		return geom.Point{}, geom.Structural(field, "coordinate is not finite")
	}
	return p, nil
}

// Validate checks the layout for malformed geometry: missing or non-finite
// wall coordinates, assets without ID or with non-finite positions, and
// duplicate IDs. Unknown asset types are not an error.
func (l Layout) Validate() error {
	if _, err := l.Room.Geometry(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(l.Assets))
	for i, a := range l.Assets {
		field := fmt.Sprintf("assets[%d]", i)
		if strings.TrimSpace(a.ID) == "" {
			return geom.Structural(field+".id", "missing id")
		}
		if _, dup := seen[a.ID]; dup {
			return geom.Structural(field+".id", "duplicate id "+a.ID)
		}
		seen[a.ID] = struct{}{}
		if !a.Position.Finite() {
			return geom.Structural(field+".position", "position is not finite")
		}
		if !a.Scale.Finite() {
			return geom.Structural(field+".scale", "scale is not finite")
		}
	}
	return nil
}

// Bounds returns the room extent. Malformed walls are reported as error.
func (l Layout) Bounds() (geom.RoomBounds, error) {
	r, err := l.Room.Geometry()
	if err != nil {
		return geom.RoomBounds{}, err
	}
	return geom.ComputeBounds(r), nil
}

// Asset returns the index of the asset with id, or -1.
func (l Layout) Asset(id string) int {
	for i := range l.Assets {
		if l.Assets[i].ID == id {
			return i
		}
	}
	return -1
}
