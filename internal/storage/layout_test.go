/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roomplanner/internal/domain"
	"roomplanner/internal/geom"
)

func sampleLayout() domain.Layout {
	return domain.Layout{
		Name: "Office 2.14",
		Room: domain.RoomFromGeometry(geom.Room{Walls: geom.RectWalls(10, 10, geom.Point{})}),
		Assets: []geom.Asset{
			{ID: "d1", Type: "desk", Position: geom.V(-3, 0, -3)},
			{ID: "c1", Type: "chair", Position: geom.V(-3, 0, -2), Category: "seating"},
		},
	}
}

func TestInitLayoutWritesManifestAndBackupsDir(t *testing.T) {
	root := t.TempDir()
	h, err := InitLayout(root, sampleLayout())
	if err != nil {
		t.Fatalf("InitLayout error: %v", err)
	}
	if h.ManifestPath != filepath.Join(root, ManifestFileName) {
		t.Fatalf("unexpected manifest path %q", h.ManifestPath)
	}
	b, err := os.ReadFile(h.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var got domain.Layout
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if got.Name != "Office 2.14" || len(got.Assets) != 2 {
		t.Fatalf("manifest mismatch: %+v", got)
	}
	if fi, err := os.Stat(filepath.Join(root, BackupsDirName)); err != nil || !fi.IsDir() {
		t.Fatalf("expected backups dir")
	}
}

func TestOpenRoundTrip(t *testing.T) {
	root := t.TempDir()
	if _, err := InitLayout(root, sampleLayout()); err != nil {
		t.Fatalf("InitLayout error: %v", err)
	}
	h, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if i := h.Layout.Asset("c1"); i < 0 || h.Layout.Assets[i].Category != "seating" {
		t.Fatalf("asset c1 not restored: %+v", h.Layout.Assets)
	}
	b, err := h.Layout.Bounds()
	if err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	if b.Width != 10 || b.Depth != 10 {
		t.Fatalf("bounds mismatch: %+v", b)
	}
}

func TestSaveCreatesTimestampedBackup(t *testing.T) {
	root := t.TempDir()
	h, err := InitLayout(root, sampleLayout())
	if err != nil {
		t.Fatalf("InitLayout error: %v", err)
	}
	h.Layout.Metadata.Notes = "changed"
	if err := Save(h); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	var bakCount int
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			bakCount++
		}
	}
	if bakCount == 0 {
		t.Fatalf("expected at least one backup file, found 0")
	}
}

func TestSaveRefusesMalformedLayout(t *testing.T) {
	root := t.TempDir()
	h, err := InitLayout(root, sampleLayout())
	if err != nil {
		t.Fatalf("InitLayout error: %v", err)
	}
	h.Layout.Assets = append(h.Layout.Assets, geom.Asset{ID: "d1", Type: "desk"})
	err = Save(h)
	if !errors.Is(err, geom.ErrStructuralInput) {
		t.Fatalf("expected structural error, got %v", err)
	}
	reopened, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if len(reopened.Layout.Assets) != 2 {
		t.Fatalf("manifest was modified: %d assets", len(reopened.Layout.Assets))
	}
}

func TestOpenFallsBackToBackupOnCorruptManifest(t *testing.T) {
	root := t.TempDir()
	h, err := InitLayout(root, sampleLayout())
	if err != nil {
		t.Fatalf("InitLayout error: %v", err)
	}
	// second save leaves the first manifest as backup
	if err := Save(h); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := os.WriteFile(h.ManifestPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}
	got, err := Open(root)
	if err != nil {
		t.Fatalf("Open should recover from backup: %v", err)
	}
	if got.Layout.Name != "Office 2.14" {
		t.Fatalf("unexpected layout from backup: %+v", got.Layout)
	}
}

func TestOpenRefusesMissingWallCoordinate(t *testing.T) {
	root := t.TempDir()
	doc := `{"name":"x","room":{"walls":[{"start":{"x":0,"z":0},"end":{"x":4}}]},"assets":[]}`
	if err := os.WriteFile(filepath.Join(root, ManifestFileName), []byte(doc), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	_, err := Open(root)
	var se *geom.StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("expected *geom.StructuralError, got %v", err)
	}
}

func TestSaveAsMovesHandle(t *testing.T) {
	h, err := InitLayout(t.TempDir(), sampleLayout())
	if err != nil {
		t.Fatalf("InitLayout error: %v", err)
	}
	dst := t.TempDir()
	if err := SaveAs(h, dst); err != nil {
		t.Fatalf("SaveAs error: %v", err)
	}
	if h.Root != dst {
		t.Fatalf("root not updated: %q", h.Root)
	}
	if _, err := os.Stat(filepath.Join(dst, ManifestFileName)); err != nil {
		t.Fatalf("manifest missing in new root: %v", err)
	}
}

func TestAutosaveCrashSnapshotLeavesManifest(t *testing.T) {
	root := t.TempDir()
	h, err := InitLayout(root, sampleLayout())
	if err != nil {
		t.Fatalf("InitLayout error: %v", err)
	}
	before, _ := os.ReadFile(h.ManifestPath)
	h.Layout.Name = "unsaved"
	p, err := AutosaveCrashSnapshot(h)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot: %v", err)
	}
	if filepath.Dir(p) != filepath.Join(root, BackupsDirName) {
		t.Fatalf("snapshot written to %q", p)
	}
	after, _ := os.ReadFile(h.ManifestPath)
	if string(before) != string(after) {
		t.Fatalf("manifest changed by crash snapshot")
	}
}
