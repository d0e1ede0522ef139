/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"sort"
	"strings"
)

// Dimensions is the nominal size of an asset type in meters.
type Dimensions struct {
	Width  float64 `json:"width" yaml:"width"`
	Depth  float64 `json:"depth" yaml:"depth"`
	Height float64 `json:"height" yaml:"height"`
}

// Valid reports whether all extents are positive and finite.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Depth > 0 && d.Height > 0 &&
		finite(d.Width) && finite(d.Depth) && finite(d.Height)
}

// DefaultDimensions is used for asset types missing from a catalog.
var DefaultDimensions = Dimensions{Width: 1, Depth: 1, Height: 1}

// EffectiveDimensions is the floor footprint after rotation. Width runs
// along X and Depth along Z.
type EffectiveDimensions struct {
	Width, Depth, Height float64
}

// Effective returns d scaled by scale and swapped for quarter turns.
//
// The swap happens when rotation/(π/2), rounded, is odd: orientations near
// 90° and 270° exchange width and depth, everything else keeps them. This is
// a discrete approximation; intermediate angles are not rotated continuously.
func Effective(d Dimensions, rotation float64, scale Vec3) EffectiveDimensions {
	scale = scale.unitDefault()
	w := d.Width * math.Abs(scale.X)
	dp := d.Depth * math.Abs(scale.Z)
	h := d.Height * math.Abs(scale.Y)
	if quarterTurnIsOdd(rotation) {
		w, dp = dp, w
	}
	return EffectiveDimensions{Width: w, Depth: dp, Height: h}
}

func quarterTurnIsOdd(rotation float64) bool {
	if !finite(rotation) {
		return false
	}
	q := math.Round(rotation / (math.Pi / 2))
	return math.Mod(math.Abs(q), 2) == 1
}

// BoxAt returns the footprint of e centered on p.
func (e EffectiveDimensions) BoxAt(p Vec3) Box {
	return Box{CX: p.X, CZ: p.Z, HW: e.Width / 2, HD: e.Depth / 2}
}

// Catalog maps asset type keys to nominal dimensions. Keys are matched
// case-insensitively. The zero value is usable and resolves everything to
// DefaultDimensions.
type Catalog struct {
	dims     map[string]Dimensions
	fallback Dimensions
}

// NewCatalog builds a catalog from the built-in table overlaid with extra.
// Invalid entries in extra are skipped.
func NewCatalog(extra map[string]Dimensions) *Catalog {
	c := &Catalog{dims: make(map[string]Dimensions, len(builtinDimensions)+len(extra)), fallback: DefaultDimensions}
	for k, d := range builtinDimensions {
		c.dims[k] = d
	}
	for k, d := range extra {
		c.Set(k, d)
	}
	return c
}

// Set adds or replaces a type. It reports false for invalid dimensions.
func (c *Catalog) Set(assetType string, d Dimensions) bool {
	if !d.Valid() {
		return false
	}
	if c.dims == nil {
		c.dims = make(map[string]Dimensions)
	}
	c.dims[normalizeKey(assetType)] = d
	return true
}

// Lookup returns the dimensions for assetType. Unknown types resolve to the
// default box and ok is false, letting callers flag ErrDegenerateAssetType.
func (c *Catalog) Lookup(assetType string) (d Dimensions, ok bool) {
	if c != nil && c.dims != nil {
		if d, ok := c.dims[normalizeKey(assetType)]; ok {
			return d, true
		}
	}
	if c != nil && c.fallback.Valid() {
		return c.fallback, false
	}
	return DefaultDimensions, false
}

// Types returns the known type keys in sorted order.
func (c *Catalog) Types() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.dims))
	for k := range c.dims {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EffectiveOf resolves a's type and returns its rotated, scaled footprint.
func (c *Catalog) EffectiveOf(a Asset) EffectiveDimensions {
	d, _ := c.Lookup(a.Type)
	return Effective(d, a.Rotation, a.Scale)
}

// BoxOf returns the footprint of a at its current position.
func (c *Catalog) BoxOf(a Asset) Box {
	return c.EffectiveOf(a).BoxAt(a.Position)
}

func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

var builtinDimensions = map[string]Dimensions{
	"desk":        {Width: 1.5, Depth: 0.8, Height: 0.75},
	"chair":       {Width: 0.5, Depth: 0.5, Height: 0.9},
	"table":       {Width: 1.8, Depth: 0.9, Height: 0.75},
	"sofa":        {Width: 2.0, Depth: 0.9, Height: 0.85},
	"bed":         {Width: 2.0, Depth: 1.6, Height: 0.5},
	"cabinet":     {Width: 1.0, Depth: 0.5, Height: 1.8},
	"bookshelf":   {Width: 0.9, Depth: 0.3, Height: 1.8},
	"plant":       {Width: 0.4, Depth: 0.4, Height: 1.2},
	"lamp":        {Width: 0.3, Depth: 0.3, Height: 1.6},
	"monitor":     {Width: 0.6, Depth: 0.2, Height: 0.45},
	"server-rack": {Width: 0.6, Depth: 1.0, Height: 2.0},
	"whiteboard":  {Width: 1.8, Depth: 0.1, Height: 1.2},
	"printer":     {Width: 0.5, Depth: 0.45, Height: 0.4},
}
