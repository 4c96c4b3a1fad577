/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"sync"
	"time"

	"gojournal/internal/domain"
)

// Entry is an immutable snapshot of (elements, viewport) at one point in
// time. Selection is intentionally excluded: undo/redo restores content and
// viewport, not focus.
type Entry struct {
	Elements []domain.Element
	Viewport domain.Viewport
}

// Config controls depth cap and commit coalescing.
type Config struct {
	// MaxEntries caps the log length; oldest entries are evicted first.
	MaxEntries int
	// MinInterval is the quiet interval for CommitDebounced: a debounced
	// commit within the interval of the previous commit is dropped so a
	// continuous gesture (drag) does not flood the log.
	MinInterval time.Duration
}

// Log is a linear undo/redo log over snapshots with a cursor. Entries past
// the cursor are redo-able future states and are discarded on any new
// commit. Safe for concurrent use.
type Log struct {
	cfg Config
	mu  sync.Mutex

	entries []Entry
	cursor  int // index of the entry matching current state; -1 when empty

	lastCommit time.Time
	now        func() time.Time // test seam
}

func NewLog(cfg Config) *Log {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 50
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 300 * time.Millisecond
	}
	return &Log{cfg: cfg, cursor: -1, now: time.Now}
}

// Commit truncates any redo entries past the cursor, appends a snapshot of
// the given state, and advances the cursor to the new tail. The log length
// is capped at MaxEntries with FIFO eviction at the head.
func (l *Log) Commit(els []domain.Element, vp domain.Viewport) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commitLocked(els, vp)
}

// CommitDebounced commits only if at least MinInterval elapsed since the
// last commit. It reports whether a snapshot was recorded.
func (l *Log) CommitDebounced(els []domain.Element, vp domain.Viewport) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now().Sub(l.lastCommit) < l.cfg.MinInterval {
		return false
	}
	l.commitLocked(els, vp)
	return true
}

func (l *Log) commitLocked(els []domain.Element, vp domain.Viewport) {
	l.entries = append(l.entries[:l.cursor+1], Entry{
		Elements: domain.CloneElements(els),
		Viewport: vp,
	})
	if n := len(l.entries) - l.cfg.MaxEntries; n > 0 {
		l.entries = append([]Entry(nil), l.entries[n:]...)
	}
	l.cursor = len(l.entries) - 1
	l.lastCommit = l.now()
}

// Undo steps the cursor back and returns the snapshot to restore. It is a
// no-op at the head of the log.
func (l *Log) Undo() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cursor <= 0 {
		return Entry{}, false
	}
	l.cursor--
	return l.snapshotAtLocked(l.cursor), true
}

// Redo steps the cursor forward and returns the snapshot to restore. It is a
// no-op at the tail.
func (l *Log) Redo() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cursor < 0 || l.cursor >= len(l.entries)-1 {
		return Entry{}, false
	}
	l.cursor++
	return l.snapshotAtLocked(l.cursor), true
}

// snapshotAtLocked hands out a copy so callers cannot alias log-owned state.
func (l *Log) snapshotAtLocked(i int) Entry {
	e := l.entries[i]
	return Entry{Elements: domain.CloneElements(e.Elements), Viewport: e.Viewport}
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// CanUndo reports whether an undo step is available.
func (l *Log) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor > 0
}

// CanRedo reports whether a redo step is available.
func (l *Log) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor >= 0 && l.cursor < len(l.entries)-1
}
