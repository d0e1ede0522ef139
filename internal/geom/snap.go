/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "math"

// Snap rounds X and Z of p to the nearest multiple of gridSize and leaves Y
// untouched. A non-positive or non-finite gridSize returns p as is; there is
// no built-in pitch.
func Snap(p Vec3, gridSize float64) Vec3 {
	if !(gridSize > 0) || math.IsInf(gridSize, 0) {
		return p
	}
	return Vec3{X: snap1(p.X, gridSize), Y: p.Y, Z: snap1(p.Z, gridSize)}
}

func snap1(v, g float64) float64 {
	if !finite(v) {
		return v
	}
	s := math.Round(v/g) * g
	if s == 0 {
		return 0 // drop negative zero
	}
	return s
}
