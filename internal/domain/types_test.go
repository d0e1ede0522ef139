/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"roomplanner/internal/geom"
)

func TestLayoutJSONKeepsWallCoordinates(t *testing.T) {
	l := Layout{
		Name: "RoundTrip",
		Room: RoomFromGeometry(geom.Room{Walls: geom.RectWalls(10, 10, geom.Point{})}),
		Assets: []geom.Asset{
			{ID: "a1", Type: "desk", Position: geom.V(1, 0, 2), Rotation: math.Pi / 2, Category: "office"},
		},
	}
	b, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Layout
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	bounds, err := got.Bounds()
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	if bounds.Width != 10 || bounds.Depth != 10 || bounds.Center != (geom.Point{}) {
		t.Fatalf("unexpected bounds: %+v", bounds)
	}
	if got.Asset("a1") != 0 || got.Asset("nope") != -1 {
		t.Fatalf("asset lookup failed")
	}
}

func TestMissingWallCoordinateIsStructural(t *testing.T) {
	raw := `{"name":"x","room":{"walls":[{"start":{"x":0,"z":0},"end":{"x":5}}]},"assets":[]}`
	var l Layout
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	err := l.Validate()
	if !errors.Is(err, geom.ErrStructuralInput) {
		t.Fatalf("expected structural error, got %v", err)
	}
	var se *geom.StructuralError
	if !errors.As(err, &se) || se.Field != "room.walls[0].end.z" {
		t.Fatalf("unexpected field: %v", err)
	}
	if _, err := l.Bounds(); err == nil {
		t.Fatalf("bounds must refuse malformed walls")
	}
}

func TestValidateAssets(t *testing.T) {
	base := Layout{Room: Room{Width: 4, Depth: 4}}

	l := base
	l.Assets = []geom.Asset{{ID: "", Type: "desk"}}
	if err := l.Validate(); !errors.Is(err, geom.ErrStructuralInput) {
		t.Fatalf("missing id: %v", err)
	}

	l.Assets = []geom.Asset{{ID: "a", Type: "desk"}, {ID: "a", Type: "chair"}}
	if err := l.Validate(); !errors.Is(err, geom.ErrStructuralInput) {
		t.Fatalf("duplicate id: %v", err)
	}

	l.Assets = []geom.Asset{{ID: "a", Type: "desk", Position: geom.V(math.Inf(1), 0, 0)}}
	if err := l.Validate(); !errors.Is(err, geom.ErrStructuralInput) {
		t.Fatalf("infinite position: %v", err)
	}

	l.Assets = []geom.Asset{{ID: "a", Type: "unknown-thing"}}
	if err := l.Validate(); err != nil {
		t.Fatalf("unknown types are not structural: %v", err)
	}
}
