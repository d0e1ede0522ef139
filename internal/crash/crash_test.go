/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roomplanner/internal/domain"
	"roomplanner/internal/geom"
	"roomplanner/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Room Planner Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportCreatesFileInLayoutBackups(t *testing.T) {
	root := t.TempDir()
	h := &storage.LayoutHandle{Root: root, ManifestPath: filepath.Join(root, storage.ManifestFileName)}

	path, err := writeReport(h, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(root, storage.BackupsDirName) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
}

func TestRecoverWritesReportAndSnapshot(t *testing.T) {
	var stderr bytes.Buffer
	oldOut := errOut
	errOut = &stderr
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	t.Cleanup(func() {
		errOut = oldOut
		exitFn = oldExit
	})

	root := t.TempDir()
	h := &storage.LayoutHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, storage.ManifestFileName),
		Layout:       domain.Layout{Name: "lab", Assets: []geom.Asset{{ID: "a", Type: "desk"}}},
	}

	func() {
		defer Recover(h)
		panic("boom")
	}()

	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
	if !strings.Contains(stderr.String(), "crash report was saved") {
		t.Fatalf("stderr message missing: %q", stderr.String())
	}
	files, err := os.ReadDir(filepath.Join(root, storage.BackupsDirName))
	if err != nil {
		t.Fatalf("read backups: %v", err)
	}
	var report, snapshot bool
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			report = true
		case strings.Contains(f.Name(), ".crash-"):
			snapshot = true
		}
	}
	if !report || !snapshot {
		t.Fatalf("expected report and snapshot, got report=%v snapshot=%v", report, snapshot)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	t.Cleanup(func() { exitFn = oldExit })
	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatalf("exit must not be called without panic")
	}
}
