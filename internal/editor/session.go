/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor owns one open layout and connects the placement engine to
// persistence. A Session is the drag scene and the commit sink: committed
// moves update the layout, push an undo entry, land in the move log of the
// index, and are logged.
package editor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"roomplanner/internal/config"
	"roomplanner/internal/constraint"
	"roomplanner/internal/drag"
	"roomplanner/internal/geom"
	applog "roomplanner/internal/log"
	"roomplanner/internal/placement"
	"roomplanner/internal/storage"
	"roomplanner/internal/undo"
)

var (
	// ErrDragActive is returned for scene mutations while an asset is captured.
	ErrDragActive = errors.New("editor: asset is being dragged")
	// ErrUnknownAsset is returned for IDs not in the layout.
	ErrUnknownAsset = errors.New("editor: unknown asset")
	// ErrNotCaptured is returned by DragTo when the press did not land on the requested asset.
	ErrNotCaptured = errors.New("editor: asset not under pointer")
	// ErrUndoBlocked is returned by Undo and Redo when the recorded position now collides.
	ErrUndoBlocked = errors.New("editor: history position is blocked")
)

// Options configure a Session. Zero values use config.Defaults().Engine,
// the built-in catalog, a fresh undo manager and no index.
type Options struct {
	Engine     config.EngineConfig
	Catalog    *geom.Catalog
	Undo       *undo.Manager
	Index      *sql.DB
	Navigation drag.Navigation
	// OnMove receives live positions during a drag.
	OnMove func(assetID string, pos geom.Vec3)
	// Now is used for move timestamps.
	Now func() time.Time
}

// Session edits one layout. It is not safe for concurrent use.
type Session struct {
	h       *storage.LayoutHandle
	bounds  geom.RoomBounds
	catalog *geom.Catalog
	solver  *placement.Solver
	applier *constraint.Applier
	ctrl    *drag.Controller
	undo    *undo.Manager
	index   *sql.DB
	grid    float64
	onMove  func(string, geom.Vec3)
	now     func() time.Time
	log     *slog.Logger
	dirty   bool
}

// Pair names two overlapping assets.
type Pair struct {
	A, B string
}

// NewSession validates the layout in h and builds the engine around it.
// Malformed geometry is returned as a structural error and no session is created.
func NewSession(h *storage.LayoutHandle, opts Options) (*Session, error) {
	if h == nil {
		return nil, errors.New("editor: nil layout handle")
	}
	if err := h.Layout.Validate(); err != nil {
		return nil, err
	}
	b, err := h.Layout.Bounds()
	if err != nil {
		return nil, err
	}
	eng := opts.Engine
	if eng == (config.EngineConfig{}) {
		eng = config.Defaults().Engine
	}
	cat := opts.Catalog
	if cat == nil {
		cat = geom.NewCatalog(nil)
	}
	um := opts.Undo
	if um == nil {
		um = undo.NewManager(undo.Config{MaxPerRoom: 200})
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	seed := eng.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	s := &Session{
		h:       h,
		bounds:  b,
		catalog: cat,
		undo:    um,
		index:   opts.Index,
		grid:    eng.GridSize,
		onMove:  opts.OnMove,
		now:     now,
		log:     applog.WithComponent("editor").With(slog.String("layout", h.Root)),
	}
	s.solver = placement.New(cat, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	s.solver.Padding = eng.Padding
	if eng.MaxAttempts > 0 {
		s.solver.MaxAttempts = eng.MaxAttempts
	}
	s.applier = constraint.New(cat)
	s.applier.Padding = eng.Padding
	s.applier.WallMargin = eng.WallMargin
	s.applier.Stacking = eng.Stacking
	s.ctrl = drag.NewController(s, drag.Options{
		Applier:    s.applier,
		GridSize:   eng.GridSize,
		Navigation: opts.Navigation,
		OnCommit:   s.onCommit,
		OnMove:     s.onLiveMove,
	})
	if b.Defaulted {
		s.log.Warn("room bounds defaulted", slog.Any("warning", b.Err()))
	}
	return s, nil
}

// Assets returns a copy of the placed assets.
func (s *Session) Assets() []geom.Asset {
	return append([]geom.Asset(nil), s.h.Layout.Assets...)
}

// Bounds returns the room extent computed when the session was created.
func (s *Session) Bounds() geom.RoomBounds { return s.bounds }

// Controller exposes the drag controller for pointer input.
func (s *Session) Controller() *drag.Controller { return s.ctrl }

// Handle returns the layout handle.
func (s *Session) Handle() *storage.LayoutHandle { return s.h }

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool { return s.dirty }

// Asset looks up an asset by ID.
func (s *Session) Asset(id string) (geom.Asset, bool) {
	i := s.h.Layout.Asset(id)
	if i < 0 {
		return geom.Asset{}, false
	}
	return s.h.Layout.Assets[i], true
}

// AddAsset places a new asset of assetType. The position comes from the
// placement solver; an exhausted search still adds the asset at the fallback
// position and reports the warning in the result.
func (s *Session) AddAsset(ctx context.Context, assetType, category string, rotation float64) (geom.Asset, placement.Result, error) {
	if s.ctrl.Active() {
		return geom.Asset{}, placement.Result{}, ErrDragActive
	}
	assetType = strings.TrimSpace(assetType)
	if assetType == "" {
		return geom.Asset{}, placement.Result{}, errors.New("editor: asset type is required")
	}
	a := geom.Asset{
		ID:       uuid.NewString(),
		Type:     assetType,
		Rotation: geom.NormalizeRotation(rotation),
		Category: category,
	}
	if _, known := s.catalog.Lookup(assetType); !known {
		s.log.WarnContext(ctx, "unknown asset type", slog.String("type", assetType), slog.Any("warning", geom.ErrDegenerateAssetType))
	}
	res := s.solver.Relocate(s.h.Layout.Assets, a, s.bounds)
	a.Position = res.Position
	if !res.OK() {
		s.log.WarnContext(ctx, "placement fallback", slog.String("id", a.ID), slog.Int("attempts", res.Attempts), slog.Any("warning", res.Warning))
	}
	s.h.Layout.Assets = append(s.h.Layout.Assets, a)
	s.dirty = true
	s.log.InfoContext(ctx, "asset added", slog.String("id", a.ID), slog.String("type", a.Type), slog.String("phase", string(res.Phase)))
	return a, res, nil
}

// RemoveAsset deletes an asset from the layout.
func (s *Session) RemoveAsset(ctx context.Context, id string) error {
	if s.ctrl.Active() {
		return ErrDragActive
	}
	i := s.h.Layout.Asset(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	s.h.Layout.Assets = append(s.h.Layout.Assets[:i], s.h.Layout.Assets[i+1:]...)
	s.dirty = true
	s.log.InfoContext(ctx, "asset removed", slog.String("id", id))
	return nil
}

// MoveAsset moves an asset programmatically. The target is snapped and
// constrained like a drag; a rejected move leaves the asset where it was.
func (s *Session) MoveAsset(ctx context.Context, id string, x, z float64) (constraint.Result, error) {
	if s.ctrl.Active() {
		return constraint.Result{}, ErrDragActive
	}
	a, ok := s.Asset(id)
	if !ok {
		return constraint.Result{}, fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	cand := geom.Snap(geom.Vec3{X: x, Y: a.Position.Y, Z: z}, s.grid)
	res := s.applier.Apply(cand, a, s.h.Layout.Assets, s.bounds, a.Position)
	if !res.Valid {
		s.log.InfoContext(ctx, "move rejected", slog.String("id", id), slog.String("blocked_by", res.CollidesWith))
		return res, nil
	}
	if res.Position != a.Position {
		s.commit(ctx, id, a.Position, res.Position)
	}
	return res, nil
}

// DragTo performs a pointer drag of asset id from its current position to
// (x, z) through the drag controller: press on the asset, one move, release.
func (s *Session) DragTo(ctx context.Context, id string, x, z float64) (drag.Outcome, error) {
	a, ok := s.Asset(id)
	if !ok {
		return drag.NoCapture, fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	got, ok := s.ctrl.PointerDown(drag.Down(a.Position.X, a.Position.Z))
	if !ok {
		return drag.NoCapture, ErrNotCaptured
	}
	if got != id {
		s.ctrl.Cancel()
		return drag.NoCapture, fmt.Errorf("%w: %s covered by %s", ErrNotCaptured, id, got)
	}
	s.ctrl.PointerMove(drag.Down(x, z))
	out := s.ctrl.PointerUp()
	s.log.DebugContext(ctx, "drag finished", slog.String("id", id), slog.Int("outcome", int(out)))
	return out, nil
}

// Undo reverts the latest committed move. The reverted position goes through
// the constraint applier; when it is now blocked the entry stays on the undo
// stack and ErrUndoBlocked is returned.
func (s *Session) Undo(ctx context.Context) (undo.Move, bool, error) {
	return s.step(ctx, s.undo.Undo, s.undo.Redo, func(m undo.Move) geom.Vec3 { return m.From })
}

// Redo reapplies the latest undone move under the same rules as Undo.
func (s *Session) Redo(ctx context.Context) (undo.Move, bool, error) {
	return s.step(ctx, s.undo.Redo, s.undo.Undo, func(m undo.Move) geom.Vec3 { return m.To })
}

func (s *Session) step(ctx context.Context, pop, restore func(string) (undo.Move, bool), target func(undo.Move) geom.Vec3) (undo.Move, bool, error) {
	if s.ctrl.Active() {
		return undo.Move{}, false, ErrDragActive
	}
	m, ok := pop(s.h.Root)
	if !ok {
		return undo.Move{}, false, nil
	}
	i := s.h.Layout.Asset(m.AssetID)
	if i < 0 {
		return m, false, fmt.Errorf("%w: %s", ErrUnknownAsset, m.AssetID)
	}
	a := s.h.Layout.Assets[i]
	res := s.applier.Apply(target(m), a, s.h.Layout.Assets, s.bounds, a.Position)
	if !res.Valid {
		restore(s.h.Root)
		s.log.InfoContext(ctx, "history step blocked", slog.String("id", m.AssetID), slog.String("blocked_by", res.CollidesWith))
		return m, false, fmt.Errorf("%w: %s collides with %s", ErrUndoBlocked, m.AssetID, res.CollidesWith)
	}
	s.h.Layout.Assets[i].Position = res.Position
	s.dirty = true
	s.record(ctx, m.AssetID, a.Position, res.Position)
	return m, true, nil
}

// Save writes the layout and refreshes the index.
func (s *Session) Save(ctx context.Context) error {
	if s.ctrl.Active() {
		return ErrDragActive
	}
	if err := storage.Save(s.h); err != nil {
		return err
	}
	s.dirty = false
	if s.index != nil {
		if err := storage.ReindexAssets(ctx, s.index, s.h.Layout, s.catalog); err != nil {
			s.log.WarnContext(ctx, "reindex failed", slog.Any("err", err))
		}
	}
	s.log.InfoContext(ctx, "layout saved", slog.Int("assets", len(s.h.Layout.Assets)))
	return nil
}

// Collisions returns every pair of assets whose footprints overlap with the
// session padding. Assets resting on top of another one are not reported.
func (s *Session) Collisions() []Pair {
	as := s.h.Layout.Assets
	boxes := make([]geom.Box, len(as))
	effs := make([]geom.EffectiveDimensions, len(as))
	for i, a := range as {
		effs[i] = s.catalog.EffectiveOf(a)
		boxes[i] = effs[i].BoxAt(a.Position)
	}
	var out []Pair
	for i := range as {
		for j := i + 1; j < len(as); j++ {
			if !geom.Collides(boxes[i], boxes[j], s.applier.Padding) {
				continue
			}
			if stacked(as[i], effs[i], as[j], effs[j]) {
				continue
			}
			out = append(out, Pair{A: as[i].ID, B: as[j].ID})
		}
	}
	return out
}

const stackEps = 1e-6

func stacked(a geom.Asset, ea geom.EffectiveDimensions, b geom.Asset, eb geom.EffectiveDimensions) bool {
	return a.Position.Y >= b.Position.Y+eb.Height-stackEps || b.Position.Y >= a.Position.Y+ea.Height-stackEps
}

// onLiveMove forwards display positions only. The layout changes on commit.
func (s *Session) onLiveMove(id string, pos geom.Vec3) {
	if s.onMove != nil {
		s.onMove(id, pos)
	}
}

func (s *Session) onCommit(id string, c drag.Commit) {
	s.commit(context.Background(), id, c.From, c.Position)
}

func (s *Session) commit(ctx context.Context, id string, from, to geom.Vec3) {
	i := s.h.Layout.Asset(id)
	if i < 0 {
		return
	}
	s.h.Layout.Assets[i].Position = to
	s.dirty = true
	s.undo.Push(undo.Move{Room: s.h.Root, AssetID: id, From: from, To: to, TS: s.now()})
	s.record(ctx, id, from, to)
}

func (s *Session) record(ctx context.Context, id string, from, to geom.Vec3) {
	s.log.InfoContext(ctx, "asset moved", slog.String("id", id),
		slog.Float64("x", to.X), slog.Float64("y", to.Y), slog.Float64("z", to.Z))
	if s.index == nil {
		return
	}
	if err := storage.RecordMove(ctx, s.index, storage.MoveRecord{AssetID: id, From: from, To: to, TS: s.now()}); err != nil {
		s.log.WarnContext(ctx, "record move failed", slog.Any("err", err))
	}
}
