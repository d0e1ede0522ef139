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
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"roomplanner/internal/domain"
	"roomplanner/internal/geom"
)

const (
	ManifestFileName = "layout.json"
	BackupsDirName   = "backups"
)

// LayoutHandle keeps track of a layout loaded from or saved to disk.
// Root is the layout directory containing layout.json.
type LayoutHandle struct {
	Root         string
	ManifestPath string
	Layout       domain.Layout
}

// InitLayout creates root (if needed) and writes the given layout as a new manifest.
func InitLayout(root string, l domain.Layout) (*LayoutHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(filepath.Join(root, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create layout root: %w", err)
	}
	h := &LayoutHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Layout:       l,
	}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Open loads an existing layout from root.
// An unreadable or unparsable manifest falls back to the latest backup. A manifest that parses but
// violates the schema or carries malformed geometry is refused with a structural error; it is not
// replaced by a backup so the caller can decide what to do with it.
func Open(root string) (*LayoutHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	b, err := os.ReadFile(mpath)
	if err != nil {
		l, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &LayoutHandle{Root: root, ManifestPath: mpath, Layout: *l}, nil
	}
	if !json.Valid(b) {
		l, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("parse manifest: invalid JSON; backup attempt: %v", berr)
		}
		return &LayoutHandle{Root: root, ManifestPath: mpath, Layout: *l}, nil
	}
	l, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", mpath, err)
	}
	return &LayoutHandle{Root: root, ManifestPath: mpath, Layout: *l}, nil
}

func decode(b []byte) (*domain.Layout, error) {
	if err := ValidateManifest(b); err != nil {
		return nil, err
	}
	var l domain.Layout
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Save writes h.Layout to disk with transactional semantics and a timestamped backup of the
// previous manifest (if present). Layouts with malformed geometry are not written.
func Save(h *LayoutHandle) error {
	if h == nil {
		return errors.New("nil LayoutHandle")
	}
	if h.Root == "" || h.ManifestPath == "" {
		return errors.New("invalid LayoutHandle: missing paths")
	}
	if err := h.Layout.Validate(); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}
	if h.Layout.Assets == nil {
		h.Layout.Assets = []geom.Asset{}
	}
	data, err := json.MarshalIndent(h.Layout, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	if _, statErr := os.Stat(h.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bname := fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp)
		if cerr := copyFile(h.ManifestPath, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	// write to a temp file in the same directory, then rename over the target
	dir := filepath.Dir(h.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// Windows cannot rename over an existing file
	if _, err := os.Stat(h.ManifestPath); err == nil {
		_ = os.Remove(h.ManifestPath)
	}
	if rerr := os.Rename(temp, h.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// SaveAs writes the manifest to a new root folder and updates the handle.
func SaveAs(h *LayoutHandle, newRoot string) error {
	if h == nil {
		return errors.New("nil LayoutHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := os.MkdirAll(filepath.Join(newRoot, BackupsDirName), 0o755); err != nil {
		return fmt.Errorf("create new root: %w", err)
	}
	h.Root = newRoot
	h.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(h)
}

// AutosaveCrashSnapshot writes the in-memory layout next to the backups without touching
// layout.json. It is used from the crash handler.
func AutosaveCrashSnapshot(h *LayoutHandle) (string, error) {
	if h == nil || h.Root == "" {
		return "", errors.New("invalid LayoutHandle")
	}
	data, err := json.MarshalIndent(h.Layout, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash snapshot: %w", err)
	}
	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.json", ManifestFileName, time.Now().Format("20060102-150405")))
	if err := writeFileSync(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup loads the newest layout.json.*.bak that passes validation.
func openFromLatestBackup(root string) (*domain.Layout, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			lastErr = err
			continue
		}
		l, err := decode(b)
		if err != nil {
			lastErr = err
			continue
		}
		return l, nil
	}
	return nil, fmt.Errorf("no usable backup: %w", lastErr)
}
