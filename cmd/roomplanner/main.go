/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"roomplanner/internal/config"
	"roomplanner/internal/crash"
	"roomplanner/internal/domain"
	"roomplanner/internal/drag"
	"roomplanner/internal/editor"
	"roomplanner/internal/geom"
	applog "roomplanner/internal/log"
	"roomplanner/internal/storage"
	"roomplanner/internal/version"
)

// errUsage is returned for malformed command lines; it maps to exit code 2.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, "Room Planner")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  roomplanner version|-v|--version            Show version")
	fmt.Fprintln(w, "  roomplanner init <dir> <name> <w> <d>        Create a layout with a w x d room")
	fmt.Fprintln(w, "  roomplanner open <dir>                       Open a layout, check the index, print a summary")
	fmt.Fprintln(w, "  roomplanner bounds <dir>                     Print the room bounds")
	fmt.Fprintln(w, "  roomplanner place <dir> <type> [category]    Add an asset at a free position")
	fmt.Fprintln(w, "  roomplanner move <dir> <id> <x> <z>          Move an asset, snapped and constrained")
	fmt.Fprintln(w, "  roomplanner drag <dir> <id> <x> <z>          Drag an asset with the pointer controller")
	fmt.Fprintln(w, "  roomplanner check <dir>                      Report overlapping assets")
	fmt.Fprintln(w, "  roomplanner list <dir> [category]            List assets from the index")
	fmt.Fprintln(w, "  roomplanner history <dir> [id]               Show recent committed moves")
}

func main() {
	defer crash.Recover(nil)
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	cfg, cerr := config.Load()
	applog.Init(applog.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		AddSource:  cfg.Logging.Source,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	defer applog.Close()
	l := applog.WithComponent("cli")
	if cerr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cerr))
	}
	l.Debug("start", slog.Int("args", len(args)))

	if len(args) == 0 {
		usage(out)
		return 0
	}
	c := &cli{cfg: cfg, out: out, log: l, ctx: context.Background()}
	var err error
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(out, version.String())
		return 0
	case "init":
		err = c.init(args[1:])
	case "open":
		err = c.withSession(args[1:], 1, c.open)
	case "bounds":
		err = c.withSession(args[1:], 1, c.bounds)
	case "place":
		err = c.withSession(args[1:], 2, c.place)
	case "move":
		err = c.withSession(args[1:], 4, c.move)
	case "drag":
		err = c.withSession(args[1:], 4, c.drag)
	case "check":
		err = c.withSession(args[1:], 1, c.check)
	case "list":
		err = c.withSession(args[1:], 1, c.list)
	case "history":
		err = c.withSession(args[1:], 1, c.history)
	default:
		usage(out)
		return 2
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(out, err)
		usage(out)
		return 2
	default:
		l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
}

type cli struct {
	cfg config.AppConfig
	out io.Writer
	log *slog.Logger
	ctx context.Context
}

type session struct {
	*editor.Session
	db      *sql.DB
	rebuilt bool
}

func (c *cli) init(args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("%w: init requires <dir> <name> <width> <depth>", errUsage)
	}
	w, err1 := parseFloat(args[2])
	d, err2 := parseFloat(args[3])
	if err := errors.Join(err1, err2); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	abs, _ := filepath.Abs(args[0])
	room := geom.Room{Width: w, Depth: d, Walls: geom.RectWalls(w, d, geom.Point{})}
	if geom.BoundsFromDims(w, d).Defaulted {
		return fmt.Errorf("room %gx%g: %w", w, d, geom.ErrInvalidRoomBounds)
	}
	c.log.Info("init layout", slog.String("root", abs), slog.String("name", args[1]))
	h, err := storage.InitLayout(abs, domain.Layout{Name: args[1], Room: domain.RoomFromGeometry(room), Assets: []geom.Asset{}})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Created layout at", h.Root)
	return nil
}

// withSession opens the layout in args[0], checks its index and runs fn.
// A panic inside fn autosaves the open layout.
func (c *cli) withSession(args []string, minArgs int, fn func(s *session, args []string) error) error {
	if len(args) < minArgs {
		return fmt.Errorf("%w: expected %d argument(s)", errUsage, minArgs)
	}
	abs, _ := filepath.Abs(args[0])
	ctx := applog.ContextWithLayout(c.ctx, abs)
	h, err := storage.Open(abs)
	if err != nil {
		return err
	}
	defer crash.Recover(h)

	cat := c.cfg.NewCatalog()
	rebuilt, err := storage.DetectAndRebuildIndex(ctx, abs, h.Layout, cat)
	if err != nil {
		c.log.WarnContext(ctx, "index check failed", slog.Any("err", err))
	}
	db, err := storage.InitOrOpenIndex(abs)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.ReindexAssets(ctx, db, h.Layout, cat); err != nil {
		return err
	}
	es, err := editor.NewSession(h, editor.Options{Engine: c.cfg.Engine, Catalog: cat, Index: db})
	if err != nil {
		return err
	}
	c.ctx = ctx
	return fn(&session{Session: es, db: db, rebuilt: rebuilt}, args[1:])
}

func (c *cli) open(s *session, _ []string) error {
	h := s.Handle()
	b := s.Bounds()
	fmt.Fprintf(c.out, "Opened layout: %s\n", h.Layout.Name)
	fmt.Fprintf(c.out, "Assets: %d\n", len(h.Layout.Assets))
	fmt.Fprintf(c.out, "Room: %.2f x %.2f m\n", b.Width, b.Depth)
	fmt.Fprintln(c.out, "Root:", h.Root)
	if s.rebuilt {
		fmt.Fprintln(c.out, "Index was damaged and has been rebuilt.")
	}
	return nil
}

func (c *cli) bounds(s *session, _ []string) error {
	b := s.Bounds()
	fmt.Fprintf(c.out, "width=%g depth=%g center=(%g,%g)\n", b.Width, b.Depth, b.Center.X, b.Center.Z)
	fmt.Fprintf(c.out, "x=[%g,%g] z=[%g,%g]\n", b.MinX(), b.MaxX(), b.MinZ(), b.MaxZ())
	if b.Defaulted {
		fmt.Fprintln(c.out, "warning:", b.Err())
	}
	return nil
}

func (c *cli) place(s *session, args []string) error {
	category := ""
	if len(args) > 1 {
		category = args[1]
	}
	a, res, err := s.AddAsset(c.ctx, args[0], category, 0)
	if err != nil {
		return err
	}
	if err := s.Save(c.ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %s at (%g, %g) [%s after %d attempt(s)]\n", a.ID, a.Type, a.Position.X, a.Position.Z, res.Phase, res.Attempts)
	if !res.OK() {
		fmt.Fprintln(c.out, "warning:", res.Warning)
	}
	return nil
}

func (c *cli) move(s *session, args []string) error {
	x, z, err := parseXZ(args[1], args[2])
	if err != nil {
		return err
	}
	res, err := s.MoveAsset(c.ctx, args[0], x, z)
	if err != nil {
		return err
	}
	if !res.Valid {
		fmt.Fprintf(c.out, "rejected: blocked by %s\n", res.CollidesWith)
		return nil
	}
	if err := s.Save(c.ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s at (%g, %g)", args[0], res.Position.X, res.Position.Z)
	if res.Clamped {
		fmt.Fprint(c.out, " (clamped to room)")
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *cli) drag(s *session, args []string) error {
	x, z, err := parseXZ(args[1], args[2])
	if err != nil {
		return err
	}
	outcome, err := s.DragTo(c.ctx, args[0], x, z)
	if err != nil {
		return err
	}
	if outcome == drag.Committed {
		if err := s.Save(c.ctx); err != nil {
			return err
		}
	}
	a, _ := s.Asset(args[0])
	fmt.Fprintf(c.out, "%s: %s at (%g, %g)\n", args[0], outcome, a.Position.X, a.Position.Z)
	return nil
}

func (c *cli) check(s *session, _ []string) error {
	pairs := s.Collisions()
	if len(pairs) == 0 {
		fmt.Fprintln(c.out, "no collisions")
		return nil
	}
	for _, p := range pairs {
		fmt.Fprintf(c.out, "collision: %s <-> %s\n", p.A, p.B)
	}
	return fmt.Errorf("%d collision(s)", len(pairs))
}

func (c *cli) list(s *session, args []string) error {
	category := ""
	if len(args) > 0 {
		category = args[0]
	}
	rows, err := storage.ListAssets(c.ctx, s.db, category)
	if err != nil {
		return err
	}
	for _, r := range rows {
		fmt.Fprintf(c.out, "%s\t%s\t%s\t(%g, %g)\t%gx%g\n", r.ID, r.Type, r.Category, r.Position.X, r.Position.Z, r.Width, r.Depth)
	}
	return nil
}

func (c *cli) history(s *session, args []string) error {
	id := ""
	if len(args) > 0 {
		id = args[0]
	}
	moves, err := storage.RecentMoves(c.ctx, s.db, id, 20)
	if err != nil {
		return err
	}
	for _, m := range moves {
		fmt.Fprintf(c.out, "%s\t%s\t(%g, %g) -> (%g, %g)\n", m.TS.Local().Format("2006-01-02 15:04:05"), m.AssetID, m.From.X, m.From.Z, m.To.X, m.To.Z)
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func parseXZ(xs, zs string) (float64, float64, error) {
	x, err1 := parseFloat(xs)
	z, err2 := parseFloat(zs)
	if err := errors.Join(err1, err2); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errUsage, err)
	}
	return x, z, nil
}
