/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"roomplanner/internal/domain"
	"roomplanner/internal/geom"
	applog "roomplanner/internal/log"
	"roomplanner/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores per-layout derived data under the layout root.
	IndexDirName  = ".rp"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// AssetRow is one placed asset as listed by the index.
type AssetRow struct {
	ID       string
	Type     string
	Category string
	Position geom.Vec3
	Rotation float64
	Width    float64
	Depth    float64
}

// MoveRecord is one committed move.
type MoveRecord struct {
	AssetID string
	From    geom.Vec3
	To      geom.Vec3
	TS      time.Time
}

// IndexPath returns the full path to the layout's embedded index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-layout SQLite index exists at .rp/index.sqlite,
// opens the database, enables WAL mode and brings the schema up to date.
// Callers close the returned *sql.DB.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("layout root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create .rp dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .rp dir: %w", err)
	}

	path := IndexPath(root)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// a fresh DB starts at schema 1 and is migrated forward
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// SchemaVersion reports the schema stored in the version table.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	cur, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_moves_asset_ts ON moves(asset_id, ts);`,
				`CREATE INDEX IF NOT EXISTS idx_assets_category ON assets(category);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS assets (
			id        TEXT PRIMARY KEY,
			type      TEXT NOT NULL,
			category  TEXT,
			x         REAL NOT NULL,
			y         REAL NOT NULL,
			z         REAL NOT NULL,
			rotation  REAL NOT NULL,
			width     REAL NOT NULL,
			depth     REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS moves (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			asset_id  TEXT NOT NULL,
			from_x    REAL NOT NULL,
			from_y    REAL NOT NULL,
			from_z    REAL NOT NULL,
			to_x      REAL NOT NULL,
			to_y      REAL NOT NULL,
			to_z      REAL NOT NULL,
			ts        TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// ReindexAssets replaces the assets table with the assets of l. Effective
// footprints are resolved through cat.
func ReindexAssets(ctx context.Context, db *sql.DB, l domain.Layout, cat *geom.Catalog) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM assets;`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear assets: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO assets (id, type, category, x, y, z, rotation, width, depth) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, a := range l.Assets {
		eff := cat.EffectiveOf(a)
		if _, err := stmt.ExecContext(ctx, a.ID, a.Type, a.Category, a.Position.X, a.Position.Y, a.Position.Z, a.Rotation, eff.Width, eff.Depth); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert asset %s: %w", a.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assets: %w", err)
	}
	return nil
}

// ListAssets returns indexed assets ordered by ID. A non-empty category filters the result.
func ListAssets(ctx context.Context, db *sql.DB, category string) ([]AssetRow, error) {
	q := `SELECT id, type, COALESCE(category, ''), x, y, z, rotation, width, depth FROM assets`
	var args []any
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, category)
	}
	q += ` ORDER BY id`
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()
	var out []AssetRow
	for rows.Next() {
		var r AssetRow
		if err := rows.Scan(&r.ID, &r.Type, &r.Category, &r.Position.X, &r.Position.Y, &r.Position.Z, &r.Rotation, &r.Width, &r.Depth); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordMove appends a committed move to the move log.
func RecordMove(ctx context.Context, db *sql.DB, m MoveRecord) error {
	if m.AssetID == "" {
		return errors.New("move without asset id")
	}
	ts := m.TS
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO moves (asset_id, from_x, from_y, from_z, to_x, to_y, to_z, ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AssetID, m.From.X, m.From.Y, m.From.Z, m.To.X, m.To.Y, m.To.Z, ts.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record move: %w", err)
	}
	return nil
}

// RecentMoves returns up to limit moves, newest first. A non-empty assetID filters the result.
func RecentMoves(ctx context.Context, db *sql.DB, assetID string, limit int) ([]MoveRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT asset_id, from_x, from_y, from_z, to_x, to_y, to_z, ts FROM moves`
	var args []any
	if assetID != "" {
		q += ` WHERE asset_id = ?`
		args = append(args, assetID)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("recent moves: %w", err)
	}
	defer rows.Close()
	var out []MoveRecord
	for rows.Next() {
		var m MoveRecord
		var ts string
		if err := rows.Scan(&m.AssetID, &m.From.X, &m.From.Y, &m.From.Z, &m.To.X, &m.To.Y, &m.To.Z, &ts); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		m.TS, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, m)
	}
	return out, rows.Err()
}

// RebuildIndex drops the assets table and rebuilds it from the layout.
// The moves table of an existing index file is left untouched.
func RebuildIndex(ctx context.Context, root string, l domain.Layout, cat *geom.Catalog) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS assets;`); err != nil {
		return fmt.Errorf("drop assets: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	return ReindexAssets(ctx, db, l, cat)
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds the index if needed.
// It returns true when a rebuild was performed. Moves that can still be read are
// carried into the new file; when the old file cannot be opened the move log starts empty.
func DetectAndRebuildIndex(ctx context.Context, root string, l domain.Layout, cat *geom.Catalog) (bool, error) {
	log := applog.WithOperation(applog.WithComponent("storage"), "index_check")
	path := IndexPath(root)
	db, err := InitOrOpenIndex(root)
	if err != nil {
		log.Warn("index unusable, rebuilding", slog.Any("err", err))
		backupIndexFile(path)
		removeIndexFiles(path)
		if rbErr := RebuildIndex(ctx, root, l, cat); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT id, type, category, x, y, z, rotation, width, depth FROM assets LIMIT 1;`); err != nil {
			needs = true
		}
	}
	var moves []MoveRecord
	if needs {
		moves = salvageMoves(ctx, db)
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	log.Warn("index check failed, rebuilding", slog.String("quick_check", chk), slog.Int("moves_kept", len(moves)))
	backupIndexFile(path)
	removeIndexFiles(path)
	if err := RebuildIndex(ctx, root, l, cat); err != nil {
		return false, err
	}
	if err := restoreMoves(ctx, root, moves); err != nil {
		return true, err
	}
	return true, nil
}

// salvageMoves reads the move log oldest first, stopping at the first unreadable row.
func salvageMoves(ctx context.Context, db *sql.DB) []MoveRecord {
	rows, err := db.QueryContext(ctx, `SELECT asset_id, from_x, from_y, from_z, to_x, to_y, to_z, ts FROM moves ORDER BY id ASC`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []MoveRecord
	for rows.Next() {
		var m MoveRecord
		var ts string
		if err := rows.Scan(&m.AssetID, &m.From.X, &m.From.Y, &m.From.Z, &m.To.X, &m.To.Y, &m.To.Z, &ts); err != nil {
			break
		}
		m.TS, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, m)
	}
	return out
}

func restoreMoves(ctx context.Context, root string, moves []MoveRecord) error {
	if len(moves) == 0 {
		return nil
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	for _, m := range moves {
		if err := RecordMove(ctx, db, m); err != nil {
			return fmt.Errorf("restore moves: %w", err)
		}
	}
	return nil
}

// backupIndexFile copies the current index file into a timestamped backup in .rp/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

func removeIndexFiles(indexPath string) {
	for _, p := range []string{indexPath, indexPath + "-wal", indexPath + "-shm"} {
		_ = os.Remove(p)
	}
}
