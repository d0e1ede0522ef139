/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "math"

// DefaultPadding is the clearance added between two footprints when the
// caller has no preference.
const DefaultPadding = 0.2

// Collides reports whether two footprints overlap once padding is added to
// their combined half extents. Only X and Z are tested; height is ignored.
//
// This is a separating-axis test on the world axes only. Rotation is taken
// into account solely through the quarter-turn swap in Effective, so two
// assets at 45° are tested with their unrotated boxes. An exact test would
// need the separating-axis theorem over the rotated rectangles.
//
// Negative padding is treated as zero. The result is symmetric in a and b.
func Collides(a, b Box, padding float64) bool {
	if !(padding > 0) {
		padding = 0
	}
	dx := math.Abs(a.CX - b.CX)
	dz := math.Abs(a.CZ - b.CZ)
	return dx < (a.HW+b.HW)+padding && dz < (a.HD+b.HD)+padding
}

// CollidesAny reports the index of the first box in others that collides
// with b, or -1.
func CollidesAny(b Box, others []Box, padding float64) int {
	for i, o := range others {
		if Collides(b, o, padding) {
			return i
		}
	}
	return -1
}
