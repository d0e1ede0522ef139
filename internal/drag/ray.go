/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"math"

	"roomplanner/internal/geom"
)

// Ray is a pointer ray in world space, typically unprojected from the
// camera through the cursor.
type Ray struct {
	Origin geom.Vec3
	Dir    geom.Vec3
}

// Down returns a ray pointing straight down through (x, z), as a top-down
// view would produce.
func Down(x, z float64) Ray {
	return Ray{Origin: geom.Vec3{X: x, Y: 100, Z: z}, Dir: geom.Vec3{Y: -1}}
}

// IntersectPlane returns where r crosses the horizontal plane at height y.
// It reports false for rays parallel to the plane or pointing away from it.
func (r Ray) IntersectPlane(y float64) (geom.Vec3, bool) {
	if math.Abs(r.Dir.Y) < 1e-12 {
		return geom.Vec3{}, false
	}
	t := (y - r.Origin.Y) / r.Dir.Y
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return geom.Vec3{}, false
	}
	return geom.Vec3{
		X: r.Origin.X + t*r.Dir.X,
		Y: y,
		Z: r.Origin.Z + t*r.Dir.Z,
	}, true
}
