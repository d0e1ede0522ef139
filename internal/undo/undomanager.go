/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-room undo/redo stacks of committed asset moves.
package undo

import (
	"sync"
	"time"

	"roomplanner/internal/geom"
)

// Move is one committed position change of an asset.
// Undo restores From, redo restores To.
type Move struct {
	Room    string
	AssetID string
	From    geom.Vec3
	To      geom.Vec3
	TS      time.Time
}

// Config controls depth caps and coalescing behavior.
type Config struct {
	// MaxEntries caps the number of undo entries over all rooms; oldest are pruned first.
	MaxEntries int
	// MaxPerRoom limits the undo depth per room (0 means unlimited).
	MaxPerRoom int
	// MinInterval coalesces consecutive moves of the same asset in the same room
	// into one entry that keeps the first From.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per room.
// It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo map[string][]Move
	redo map[string][]Move
	n    int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Move), redo: make(map[string][]Move)}
}

// Push records a move. Any push clears the redo stack of that room.
func (m *Manager) Push(mv Move) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redo[mv.Room] = nil
	stack := m.undo[mv.Room]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 {
		last := stack[n-1]
		if last.AssetID == mv.AssetID && mv.TS.Sub(last.TS) < m.cfg.MinInterval {
			last.To = mv.To
			last.TS = mv.TS
			stack[n-1] = last
			return
		}
	}
	m.undo[mv.Room] = append(stack, mv)
	m.n++
	m.enforceCapsLocked(mv.Room)
}

// Undo pops the latest move of room and moves it to the redo stack.
func (m *Manager) Undo(room string) (Move, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[room]
	if len(stack) == 0 {
		return Move{}, false
	}
	mv := stack[len(stack)-1]
	m.undo[room] = stack[:len(stack)-1]
	m.n--
	m.redo[room] = append(m.redo[room], mv)
	return mv, true
}

// Redo pops from redo and pushes back to undo.
func (m *Manager) Redo(room string) (Move, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[room]
	if len(r) == 0 {
		return Move{}, false
	}
	mv := r[len(r)-1]
	m.redo[room] = r[:len(r)-1]
	m.undo[room] = append(m.undo[room], mv)
	m.n++
	m.enforceCapsLocked(room)
	return mv, true
}

// CanUndo and CanRedo report whether the room has entries.
func (m *Manager) CanUndo(room string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[room]) > 0
}

func (m *Manager) CanRedo(room string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[room]) > 0
}

// ClearRoom drops undo/redo stacks for a room.
func (m *Manager) ClearRoom(room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n -= len(m.undo[room])
	delete(m.undo, room)
	delete(m.redo, room)
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (rooms int, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo), m.n
}

func (m *Manager) enforceCapsLocked(room string) {
	if m.cfg.MaxPerRoom > 0 {
		stack := m.undo[room]
		if drop := len(stack) - m.cfg.MaxPerRoom; drop > 0 {
			m.undo[room] = append([]Move{}, stack[drop:]...)
			m.n -= drop
		}
	}
	// global cap: prune the oldest entry across all rooms
	for m.n > m.cfg.MaxEntries {
		oldest := ""
		found := false
		var oldestTS time.Time
		for r, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest, oldestTS, found = r, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		m.undo[oldest] = m.undo[oldest][1:]
		m.n--
		if len(m.undo[oldest]) == 0 {
			delete(m.undo, oldest)
		}
	}
}
