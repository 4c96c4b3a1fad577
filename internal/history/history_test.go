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
	"fmt"
	"testing"
	"time"

	"gojournal/internal/domain"
)

func els(ids ...string) []domain.Element {
	out := make([]domain.Element, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Element{ID: id, Type: domain.ElementText})
	}
	return out
}

func TestUndoRedoRoundTrip(t *testing.T) {
	l := NewLog(Config{MaxEntries: 10, MinInterval: time.Millisecond})
	vp1 := domain.Viewport{X: 1, Y: 2, Zoom: 1}
	vp2 := domain.Viewport{X: 3, Y: 4, Zoom: 2}
	l.Commit(els("a"), vp1)
	l.Commit(els("a", "b"), vp2)

	e, ok := l.Undo()
	if !ok || len(e.Elements) != 1 || e.Elements[0].ID != "a" || e.Viewport != vp1 {
		t.Fatalf("undo returned wrong snapshot: ok=%v entry=%+v", ok, e)
	}
	e, ok = l.Redo()
	if !ok || len(e.Elements) != 2 || e.Elements[1].ID != "b" || e.Viewport != vp2 {
		t.Fatalf("redo did not restore pre-undo state: ok=%v entry=%+v", ok, e)
	}
}

func TestUndoAtHeadAndRedoAtTailAreNoops(t *testing.T) {
	l := NewLog(Config{MaxEntries: 10, MinInterval: time.Millisecond})
	if _, ok := l.Undo(); ok {
		t.Fatalf("undo on empty log should be a no-op")
	}
	l.Commit(els("a"), domain.Viewport{Zoom: 1})
	if _, ok := l.Undo(); ok {
		t.Fatalf("undo with a single entry should be a no-op")
	}
	if _, ok := l.Redo(); ok {
		t.Fatalf("redo at tail should be a no-op")
	}
}

func TestCommitTruncatesRedoBranch(t *testing.T) {
	l := NewLog(Config{MaxEntries: 10, MinInterval: time.Millisecond})
	l.Commit(els("a"), domain.Viewport{Zoom: 1})
	l.Commit(els("a", "b"), domain.Viewport{Zoom: 1})
	l.Commit(els("a", "b", "c"), domain.Viewport{Zoom: 1})
	if _, ok := l.Undo(); !ok {
		t.Fatalf("undo failed")
	}
	if _, ok := l.Undo(); !ok {
		t.Fatalf("second undo failed")
	}
	l.Commit(els("a", "x"), domain.Viewport{Zoom: 1})
	if l.CanRedo() {
		t.Fatalf("redo entries must be discarded by a new commit")
	}
	if got := l.Len(); got != 2 {
		t.Fatalf("expected 2 entries after truncate-on-branch, got %d", got)
	}
}

func TestFIFOEvictionAtCap(t *testing.T) {
	const max = 5
	l := NewLog(Config{MaxEntries: max, MinInterval: time.Millisecond})
	for i := 0; i < max*3; i++ {
		l.Commit(els(fmt.Sprintf("e%d", i)), domain.Viewport{Zoom: 1})
	}
	if got := l.Len(); got != max {
		t.Fatalf("log length = %d, want clamp at %d", got, max)
	}
	// Walk back to the head: the oldest surviving entry must be the one
	// committed max entries ago, proving head-first eviction.
	var last Entry
	for {
		e, ok := l.Undo()
		if !ok {
			break
		}
		last = e
	}
	want := fmt.Sprintf("e%d", max*3-max)
	if len(last.Elements) != 1 || last.Elements[0].ID != want {
		t.Fatalf("oldest retained entry = %+v, want element %s", last.Elements, want)
	}
}

func TestCommitDebounced(t *testing.T) {
	l := NewLog(Config{MaxEntries: 10, MinInterval: 100 * time.Millisecond})
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	if !l.CommitDebounced(els("a"), domain.Viewport{Zoom: 1}) {
		t.Fatalf("first debounced commit should record")
	}
	now = now.Add(20 * time.Millisecond)
	if l.CommitDebounced(els("a", "b"), domain.Viewport{Zoom: 1}) {
		t.Fatalf("commit inside the quiet interval should be dropped")
	}
	now = now.Add(200 * time.Millisecond)
	if !l.CommitDebounced(els("a", "b"), domain.Viewport{Zoom: 1}) {
		t.Fatalf("commit after the quiet interval should record")
	}
	if got := l.Len(); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
}

func TestSnapshotsAreIsolatedFromCallers(t *testing.T) {
	l := NewLog(Config{MaxEntries: 10, MinInterval: time.Millisecond})
	src := els("a")
	l.Commit(src, domain.Viewport{Zoom: 1})
	src[0].X = 999 // mutating the caller's slice must not touch the log
	l.Commit(els("a", "b"), domain.Viewport{Zoom: 1})
	e, ok := l.Undo()
	if !ok || e.Elements[0].X != 0 {
		t.Fatalf("snapshot aliased caller state: %+v", e.Elements)
	}
}
