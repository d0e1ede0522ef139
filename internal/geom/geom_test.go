/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollidesSymmetry(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 2000; i++ {
		a := Box{CX: rng.Float64()*10 - 5, CZ: rng.Float64()*10 - 5, HW: rng.Float64() * 2, HD: rng.Float64() * 2}
		b := Box{CX: rng.Float64()*10 - 5, CZ: rng.Float64()*10 - 5, HW: rng.Float64() * 2, HD: rng.Float64() * 2}
		p := rng.Float64()
		require.Equal(t, Collides(a, b, p), Collides(b, a, p), "a=%+v b=%+v p=%v", a, b, p)
	}
}

func TestCollidesPadding(t *testing.T) {
	a := Box{CX: 0, CZ: 0, HW: 0.5, HD: 0.5}
	b := Box{CX: 1.1, CZ: 0, HW: 0.5, HD: 0.5}

	assert.False(t, Collides(a, b, 0), "0.1m gap without padding")
	assert.True(t, Collides(a, b, DefaultPadding), "0.1m gap is inside 0.2m padding")
	assert.False(t, Collides(a, b, -1), "negative padding acts as zero")

	// touching edges do not overlap
	c := Box{CX: 1, CZ: 0, HW: 0.5, HD: 0.5}
	assert.False(t, Collides(a, c, 0))
}

func TestCollidesIgnoresOneAxisOverlap(t *testing.T) {
	a := Box{CX: 0, CZ: 0, HW: 1, HD: 1}
	b := Box{CX: 0.5, CZ: 5, HW: 1, HD: 1}
	assert.False(t, Collides(a, b, DefaultPadding))
	assert.Equal(t, -1, CollidesAny(a, []Box{b}, 0))
	assert.Equal(t, 1, CollidesAny(a, []Box{b, {CX: 0.5, HW: 1, HD: 1}}, 0))
}

func TestSnapIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	grids := []float64{0.1, 0.25, 0.5, 1, 1.5, 0.3333}
	for i := 0; i < 2000; i++ {
		p := V(rng.Float64()*40-20, rng.Float64()*3, rng.Float64()*40-20)
		g := grids[i%len(grids)]
		once := Snap(p, g)
		require.Equal(t, once, Snap(once, g), "p=%+v g=%v", p, g)
		assert.Equal(t, p.Y, once.Y)
	}
}

func TestSnapRounding(t *testing.T) {
	got := Snap(V(1.12, 0.7, -0.37), 0.25)
	assert.InDelta(t, 1.0, got.X, 1e-12)
	assert.InDelta(t, 0.7, got.Y, 1e-12)
	assert.InDelta(t, -0.25, got.Z, 1e-12)

	p := V(1.23, 0, 4.56)
	assert.Equal(t, p, Snap(p, 0), "no default pitch")
	assert.Equal(t, p, Snap(p, -1))
	assert.Equal(t, p, Snap(p, math.Inf(1)))
	assert.False(t, math.Signbit(Snap(V(-0.1, 0, 0), 1).X), "no negative zero")
}

func TestEffectiveRotationSwap(t *testing.T) {
	d := Dimensions{Width: 2, Depth: 1, Height: 0.5}

	e := Effective(d, 0, Vec3{})
	assert.InDelta(t, 2.0, e.Width, 1e-12)
	assert.InDelta(t, 1.0, e.Depth, 1e-12)

	e = Effective(d, math.Pi/2, Vec3{})
	assert.InDelta(t, 1.0, e.Width, 1e-12)
	assert.InDelta(t, 2.0, e.Depth, 1e-12)

	e = Effective(d, -math.Pi/2, Vec3{})
	assert.InDelta(t, 1.0, e.Width, 1e-12)

	e = Effective(d, math.Pi, Vec3{})
	assert.InDelta(t, 2.0, e.Width, 1e-12)

	// within tolerance of 90°
	e = Effective(d, math.Pi/2+0.3, Vec3{})
	assert.InDelta(t, 1.0, e.Width, 1e-12)
	// closer to 0° than 90°
	e = Effective(d, 0.7, Vec3{})
	assert.InDelta(t, 2.0, e.Width, 1e-12)

	e = Effective(d, 3*math.Pi/2, V(2, 3, 1))
	assert.InDelta(t, 1.0, e.Width, 1e-12, "depth*scaleZ moves to width")
	assert.InDelta(t, 4.0, e.Depth, 1e-12, "width*scaleX moves to depth")
	assert.InDelta(t, 1.5, e.Height, 1e-12)
}

func TestNormalizeRotation(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{5 * math.Pi / 2, math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{math.NaN(), 0},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, NormalizeRotation(c.in), 1e-9, "in=%v", c.in)
	}
}

func TestCatalogLookup(t *testing.T) {
	c := NewCatalog(map[string]Dimensions{
		"Kiosk":  {Width: 1.2, Depth: 1.2, Height: 2.1},
		"broken": {Width: 0, Depth: 1, Height: 1},
	})

	d, ok := c.Lookup("desk")
	require.True(t, ok)
	assert.Equal(t, 1.5, d.Width)
	assert.Equal(t, 0.8, d.Depth)

	d, ok = c.Lookup("  KIOSK ")
	require.True(t, ok)
	assert.Equal(t, 1.2, d.Width)

	d, ok = c.Lookup("broken")
	assert.False(t, ok, "invalid extra entries are skipped")
	assert.Equal(t, DefaultDimensions, d)

	var zero Catalog
	d, ok = zero.Lookup("desk")
	assert.False(t, ok)
	assert.Equal(t, DefaultDimensions, d)

	var nilCat *Catalog
	d, _ = nilCat.Lookup("desk")
	assert.Equal(t, DefaultDimensions, d)
	assert.Contains(t, c.Types(), "kiosk")
}

func TestCatalogBoxOf(t *testing.T) {
	c := NewCatalog(nil)
	b := c.BoxOf(Asset{Type: "desk", Position: V(1, 0, 2), Rotation: math.Pi / 2})
	assert.Equal(t, 1.0, b.CX)
	assert.Equal(t, 2.0, b.CZ)
	assert.InDelta(t, 0.4, b.HW, 1e-12)
	assert.InDelta(t, 0.75, b.HD, 1e-12)
}

func TestBoundsFromWallsSquare(t *testing.T) {
	walls := []Wall{
		{Start: Point{-5, -5}, End: Point{5, -5}},
		{Start: Point{5, -5}, End: Point{5, 5}},
		{Start: Point{5, 5}, End: Point{-5, 5}},
		{Start: Point{-5, 5}, End: Point{-5, -5}},
	}
	b := BoundsFromWalls(walls)
	assert.Equal(t, RoomBounds{Width: 10, Depth: 10, Center: Point{0, 0}}, b)
	assert.NoError(t, b.Err())
}

func TestBoundsFromWallsOffsetAndOpen(t *testing.T) {
	b := BoundsFromWalls(RectWalls(6, 4, Point{X: 10, Z: -2}))
	assert.InDelta(t, 6, b.Width, 1e-12)
	assert.InDelta(t, 4, b.Depth, 1e-12)
	assert.InDelta(t, 10, b.Center.X, 1e-12)
	assert.InDelta(t, -2, b.Center.Z, 1e-12)

	// an open L-shape degrades to its bounding rectangle
	l := []Wall{
		{Start: Point{0, 0}, End: Point{8, 0}},
		{Start: Point{8, 0}, End: Point{8, 3}},
	}
	b = BoundsFromWalls(l)
	assert.Equal(t, RoomBounds{Width: 8, Depth: 3, Center: Point{4, 1.5}}, b)
}

func TestBoundsDegenerate(t *testing.T) {
	assert.Equal(t, DefaultBounds(), BoundsFromWalls(nil))
	assert.Equal(t, DefaultBounds(), BoundsFromWalls([]Wall{{Start: Point{1, 1}, End: Point{1, 1}}}))
	assert.Equal(t, DefaultBounds(), BoundsFromWalls([]Wall{{Start: Point{0, 0}, End: Point{5, 0}}}), "zero depth")
	assert.Equal(t, DefaultBounds(), BoundsFromWalls([]Wall{{Start: Point{math.NaN(), 0}, End: Point{5, 5}}}))

	b := BoundsFromDims(-3, 4)
	assert.True(t, b.Defaulted)
	assert.True(t, errors.Is(b.Err(), ErrInvalidRoomBounds))
	assert.Equal(t, 10.0, b.Width)

	b = BoundsFromDims(6, 4)
	assert.Equal(t, RoomBounds{Width: 6, Depth: 4}, b)
	assert.Equal(t, -3.0, b.MinX())
	assert.Equal(t, 2.0, b.MaxZ())
}

func TestComputeBoundsPrefersWalls(t *testing.T) {
	r := Room{Width: 3, Depth: 3, Walls: RectWalls(8, 6, Point{})}
	b := ComputeBounds(r)
	assert.Equal(t, 8.0, b.Width)
	assert.Equal(t, 6.0, b.Depth)

	b = ComputeBounds(Room{Width: 3, Depth: 2})
	assert.Equal(t, 3.0, b.Width)
}

func TestStructuralError(t *testing.T) {
	err := Structural("room.walls[1].end.z", "missing coordinate")
	assert.True(t, errors.Is(err, ErrStructuralInput))
	var se *StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "room.walls[1].end.z", se.Field)
	assert.Contains(t, err.Error(), "missing coordinate")
}

func TestBoxWithinAndInset(t *testing.T) {
	room := BoundsFromDims(10, 10).Box()
	assert.True(t, Box{CX: -4.5, HW: 0.5, HD: 0.5}.Within(room))
	assert.False(t, Box{CX: -4.6, HW: 0.5, HD: 0.5}.Within(room))
	in := room.Inset(0.1)
	assert.InDelta(t, 4.9, in.HW, 1e-12)
	assert.Equal(t, 0.0, Box{HW: 0.05, HD: 1}.Inset(0.1).HW)
}

func TestVec3Sub(t *testing.T) {
	d := V(1.4, 0, 0.7).Sub(V(1, 0.5, 1))
	assert.InDelta(t, 0.4, d.X, 1e-9)
	assert.Equal(t, -0.5, d.Y)
	assert.InDelta(t, -0.3, d.Z, 1e-9)
}
