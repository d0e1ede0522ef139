/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"github.com/dhconnelly/rtreego"

	"roomplanner/internal/geom"
)

// pickTolerance is the half size of the query rectangle around a point.
const pickTolerance = 1e-9

// hitIndex is an R-tree over asset footprints used to resolve which asset
// a pointer lands on.
type hitIndex struct {
	tree *rtreego.Rtree
}

type indexed struct {
	asset geom.Asset
	order int // position in the scene list; later entries are drawn on top
	top   float64
	rect  rtreego.Rect
}

func (e *indexed) Bounds() rtreego.Rect { return e.rect }

func newHitIndex(assets []geom.Asset, catalog *geom.Catalog) *hitIndex {
	tree := rtreego.NewTree(2, 2, 8)
	for i, a := range assets {
		b := catalog.BoxOf(a)
		rect, err := rtreego.NewRect(rtreego.Point{b.MinX(), b.MinZ()}, []float64{2 * b.HW, 2 * b.HD})
		if err != nil {
			// zero-area footprint, nothing to hit
			continue
		}
		tree.Insert(&indexed{
			asset: a,
			order: i,
			top:   a.Position.Y + catalog.EffectiveOf(a).Height,
			rect:  rect,
		})
	}
	return &hitIndex{tree: tree}
}

// pick returns the asset whose footprint contains p. When several overlap
// (stacked assets) the one with the highest top wins, then the later one in
// scene order.
func (h *hitIndex) pick(p geom.Point) (geom.Asset, bool) {
	q := rtreego.Point{p.X, p.Z}.ToRect(pickTolerance)
	var best *indexed
	for _, s := range h.tree.SearchIntersect(q) {
		e := s.(*indexed)
		if best == nil || e.top > best.top || (e.top == best.top && e.order > best.order) {
			best = e
		}
	}
	if best == nil {
		return geom.Asset{}, false
	}
	return best.asset, true
}
