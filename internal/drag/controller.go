/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package drag adapts pointer input to the placement engine. A Controller
// captures one asset on pointer-press, runs every pointer-move through grid
// snapping and the constraint applier, and either commits or rolls back on
// release.
//
// The controller is not safe for concurrent use. Callers deliver input
// events from a single goroutine and must not add or remove assets while a
// capture is active.
package drag

import (
	"roomplanner/internal/constraint"
	"roomplanner/internal/geom"
)

// State of the controller.
type State int

const (
	Idle State = iota
	Dragging
	// Cancelled is entered on an invalid drop or a forced release and left
	// for Idle before the triggering call returns.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome of a release.
type Outcome int

const (
	// NoCapture means there was nothing to release.
	NoCapture Outcome = iota
	// Committed means OnCommit was called with the new position.
	Committed
	// RolledBack means the asset returned to its pre-drag position.
	RolledBack
	// Unchanged means the pointer was released without a move.
	Unchanged
)

func (o Outcome) String() string {
	switch o {
	case NoCapture:
		return "no-capture"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled-back"
	case Unchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Scene is the room being edited, owned by the caller.
type Scene interface {
	Assets() []geom.Asset
	Bounds() geom.RoomBounds
}

// Navigation is an external view controller (orbit camera, pan handler)
// that must not react to the pointer while an asset is captured. Resume is
// called exactly once for every Suspend.
type Navigation interface {
	Suspend()
	Resume()
}

// Commit is passed to OnCommit on a valid drop.
type Commit struct {
	Position geom.Vec3
	From     geom.Vec3
}

// Options configure a Controller. Applier is required.
type Options struct {
	Applier *constraint.Applier
	// GridSize is the snapping pitch for moves; zero disables snapping.
	GridSize float64
	// PlaneY is the height of the drag plane pointer rays are intersected with.
	PlaneY     float64
	Navigation Navigation

	// OnCommit is the only point where the caller's state changes.
	OnCommit func(assetID string, c Commit)
	// OnMove reports live positions for display during a capture, including
	// the restore to the rollback position.
	OnMove func(assetID string, pos geom.Vec3)
	// OnHoverChange fires when the pointer enters or leaves an asset while
	// Idle. It receives nil when leaving.
	OnHoverChange func(a *geom.Asset)
}

type capture struct {
	asset     geom.Asset
	rollback  geom.Vec3
	offset    geom.Vec3
	live      geom.Vec3
	lastValid bool
	moved     bool
}

// Controller is the drag state machine for one room.
type Controller struct {
	scene Scene
	opts  Options
	state State
	cap   *capture
	hover string
}

// NewController returns an idle controller for scene.
func NewController(scene Scene, opts Options) *Controller {
	if opts.Applier == nil {
		opts.Applier = constraint.New(geom.NewCatalog(nil))
	}
	return &Controller{scene: scene, opts: opts}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Active reports whether an asset is captured.
func (c *Controller) Active() bool { return c.state == Dragging }

// Captured returns the ID and live position of the captured asset.
func (c *Controller) Captured() (id string, live geom.Vec3, ok bool) {
	if c.cap == nil {
		return "", geom.Vec3{}, false
	}
	return c.cap.asset.ID, c.cap.live, true
}

// PointerDown starts a capture if ray lands on an asset. It is ignored while
// another asset is captured. It returns the captured asset ID.
func (c *Controller) PointerDown(ray Ray) (string, bool) {
	if c.state != Idle {
		return "", false
	}
	hit, ok := ray.IntersectPlane(c.opts.PlaneY)
	if !ok {
		return "", false
	}
	a, ok := newHitIndex(c.scene.Assets(), c.opts.Applier.Catalog).pick(hit.XZ())
	if !ok {
		return "", false
	}
	c.setHover(nil)
	c.cap = &capture{
		asset:     a,
		rollback:  a.Position,
		offset:    hit.Sub(a.Position),
		live:      a.Position,
		lastValid: true,
	}
	c.state = Dragging
	if c.opts.Navigation != nil {
		c.opts.Navigation.Suspend()
	}
	return a.ID, true
}

// PointerMove advances a capture, or updates hover state while Idle. During
// a capture it returns the constraint result for the move.
func (c *Controller) PointerMove(ray Ray) (constraint.Result, bool) {
	hit, ok := ray.IntersectPlane(c.opts.PlaneY)
	if c.state != Dragging {
		if ok {
			c.updateHover(hit.XZ())
		} else {
			c.setHover(nil)
		}
		return constraint.Result{}, false
	}
	if !ok {
		return constraint.Result{}, false
	}
	cp := c.cap
	raw := hit.Sub(cp.offset)
	raw.Y = cp.live.Y
	snapped := geom.Snap(raw, c.opts.GridSize)

	moving := cp.asset
	moving.Position = cp.live
	res := c.opts.Applier.Apply(snapped, moving, c.scene.Assets(), c.scene.Bounds(), cp.live)

	cp.moved = true
	cp.lastValid = res.Valid
	if res.Valid && res.Position != cp.live {
		cp.live = res.Position
		c.notifyMove(cp.asset.ID, cp.live)
	}
	return res, true
}

// PointerUp ends a capture. A valid last move is committed; an invalid one
// rolls back without calling OnCommit.
func (c *Controller) PointerUp() Outcome {
	if c.state != Dragging {
		return NoCapture
	}
	cp := c.cap
	defer c.release()

	switch {
	case !cp.moved:
		return Unchanged
	case !cp.lastValid:
		c.rollback()
		return RolledBack
	case cp.live == cp.rollback:
		return Unchanged
	}
	if c.opts.OnCommit != nil {
		c.opts.OnCommit(cp.asset.ID, Commit{Position: cp.live, From: cp.rollback})
	}
	return Committed
}

// Cancel is a forced release, e.g. when the window loses focus. It always
// rolls back and never commits.
func (c *Controller) Cancel() Outcome {
	if c.state != Dragging {
		return NoCapture
	}
	defer c.release()
	c.rollback()
	return RolledBack
}

func (c *Controller) rollback() {
	c.state = Cancelled
	cp := c.cap
	if cp.live != cp.rollback {
		cp.live = cp.rollback
		c.notifyMove(cp.asset.ID, cp.rollback)
	}
}

func (c *Controller) release() {
	c.cap = nil
	c.state = Idle
	if c.opts.Navigation != nil {
		c.opts.Navigation.Resume()
	}
}

func (c *Controller) notifyMove(id string, pos geom.Vec3) {
	if c.opts.OnMove != nil {
		c.opts.OnMove(id, pos)
	}
}

func (c *Controller) updateHover(p geom.Point) {
	a, ok := newHitIndex(c.scene.Assets(), c.opts.Applier.Catalog).pick(p)
	if !ok {
		c.setHover(nil)
		return
	}
	c.setHover(&a)
}

func (c *Controller) setHover(a *geom.Asset) {
	id := ""
	if a != nil {
		id = a.ID
	}
	if id == c.hover {
		return
	}
	c.hover = id
	if c.opts.OnHoverChange != nil {
		c.opts.OnHoverChange(a)
	}
}
