/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package constraint

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomplanner/internal/geom"
)

func testCatalog() *geom.Catalog {
	return geom.NewCatalog(map[string]geom.Dimensions{
		"cube":  {Width: 1, Depth: 1, Height: 1},
		"plank": {Width: 2, Depth: 0.5, Height: 0.2},
	})
}

func TestClampWestWall(t *testing.T) {
	a := New(testCatalog())
	bounds := geom.BoundsFromDims(10, 10)
	moving := geom.Asset{ID: "m", Type: "cube"}

	res := a.Apply(geom.V(-7, 0, 0), moving, nil, bounds, geom.Vec3{})
	require.True(t, res.Valid)
	assert.True(t, res.Clamped)
	assert.InDelta(t, -5+0.5+0.1, res.Position.X, 1e-9)
	assert.InDelta(t, 0, res.Position.Z, 1e-9)
}

func TestClampContainment(t *testing.T) {
	cat := testCatalog()
	a := New(cat)
	rng := rand.New(rand.NewPCG(9, 9))
	bounds := geom.BoundsFromDims(8, 6)
	inner := bounds.Box().Inset(a.WallMargin)

	for i := 0; i < 1000; i++ {
		moving := geom.Asset{
			ID:       "m",
			Type:     []string{"cube", "plank", "desk"}[i%3],
			Rotation: rng.Float64()*2*math.Pi - math.Pi,
		}
		cand := geom.V(rng.Float64()*40-20, 0, rng.Float64()*40-20)
		res := a.Apply(cand, moving, nil, bounds, geom.Vec3{})
		require.True(t, res.Valid)
		box := cat.EffectiveOf(moving).BoxAt(res.Position)
		require.True(t, box.Within(inner), "cand=%+v got=%+v box=%+v", cand, res.Position, box)
	}
}

func TestClampCentersOversized(t *testing.T) {
	a := New(testCatalog())
	bounds := geom.RoomBounds{Width: 1, Depth: 4, Center: geom.Point{X: 3, Z: 1}}
	res := a.Apply(geom.V(10, 0, 1.2), geom.Asset{ID: "m", Type: "plank"}, nil, bounds, geom.Vec3{})
	assert.Equal(t, 3.0, res.Position.X)
	assert.InDelta(t, 1.2, res.Position.Z, 1e-12)
}

func TestRejectAndHold(t *testing.T) {
	a := New(testCatalog())
	bounds := geom.BoundsFromDims(10, 10)
	moving := geom.Asset{ID: "m", Type: "cube", Position: geom.V(-3, 0, 0)}
	others := []geom.Asset{
		moving,
		{ID: "o", Type: "cube", Position: geom.V(2, 0, 0)},
	}
	last := geom.V(-2.5, 0, 0)

	res := a.Apply(geom.V(2.3, 0, 0.1), moving, others, bounds, last)
	assert.False(t, res.Valid)
	assert.Equal(t, last, res.Position)
	assert.Equal(t, "o", res.CollidesWith)

	res = a.Apply(geom.V(-1, 0, 0), moving, others, bounds, last)
	assert.True(t, res.Valid, "moving asset must not collide with itself")
	assert.Equal(t, geom.V(-1, 0, 0), res.Position)
}

func TestClampHappensBeforeCollision(t *testing.T) {
	a := New(testCatalog())
	bounds := geom.BoundsFromDims(10, 10)
	moving := geom.Asset{ID: "m", Type: "cube"}
	blocker := geom.Asset{ID: "b", Type: "cube", Position: geom.V(-4.4, 0, 0)}

	res := a.Apply(geom.V(-9, 0, 0), moving, []geom.Asset{blocker}, bounds, geom.V(1, 0, 1))
	assert.False(t, res.Valid, "clamped spot is occupied")
	assert.True(t, res.Clamped)
	assert.Equal(t, geom.V(1, 0, 1), res.Position)
}

func TestStackingRestsOnTopSurface(t *testing.T) {
	a := New(testCatalog())
	a.Stacking = true
	bounds := geom.BoundsFromDims(10, 10)
	table := geom.Asset{ID: "t", Type: "table", Position: geom.V(0, 0, 0)}
	shelf := geom.Asset{ID: "s", Type: "cube", Position: geom.V(3, 0.5, 0)}
	moving := geom.Asset{ID: "m", Type: "monitor", Position: geom.V(-3, 0, -3)}
	others := []geom.Asset{table, shelf, moving}

	res := a.Apply(geom.V(0.2, 0, 0.1), moving, others, bounds, moving.Position)
	require.True(t, res.Valid)
	assert.Equal(t, "t", res.SupportID)
	assert.InDelta(t, 0.75, res.Position.Y, 1e-12)

	res = a.Apply(geom.V(3, 0, 0), moving, others, bounds, moving.Position)
	require.True(t, res.Valid)
	assert.Equal(t, "s", res.SupportID)
	assert.InDelta(t, 1.5, res.Position.Y, 1e-12)

	res = a.Apply(geom.V(-3, 2, 3), moving, others, bounds, moving.Position)
	require.True(t, res.Valid)
	assert.Empty(t, res.SupportID)
	assert.Equal(t, 0.0, res.Position.Y, "back on the floor")
}

func TestStackingDisabledKeepsY(t *testing.T) {
	a := New(testCatalog())
	bounds := geom.BoundsFromDims(10, 10)
	res := a.Apply(geom.V(-3, 0.4, 3), geom.Asset{ID: "m", Type: "cube"}, nil, bounds, geom.Vec3{})
	assert.Equal(t, 0.4, res.Position.Y)
}
