/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package store

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"gojournal/internal/config"
	"gojournal/internal/domain"
)

func testConfig() config.EngineConfig {
	cfg := config.Defaults().Engine
	cfg.HistoryDebounceMs = 1 // effectively no coalescing in tests
	return cfg
}

func freeformStore() *Store {
	return New(domain.Document{ID: "doc-1", Viewport: domain.Viewport{Zoom: 1}, Version: 1}, testConfig())
}

func paginatedStore(pageCount int) *Store {
	pages := make([]domain.Page, pageCount)
	for i := range pages {
		pages[i] = domain.Page{ID: string(rune('a' + i)), Index: i, Elements: []domain.Element{}}
	}
	return New(domain.Document{
		ID: "doc-1", Paginated: true, Viewport: domain.Viewport{Zoom: 1},
		Pages: pages, Version: 1,
	}, testConfig())
}

func ids(els []domain.Element) []string {
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = el.ID
	}
	return out
}

func sameIDs(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAddUpdateDeleteElement(t *testing.T) {
	s := freeformStore()

	id := s.AddElement(domain.Element{Type: domain.ElementText, Text: "a"})
	if id == "" {
		t.Fatal("AddElement did not mint an id")
	}
	if !s.Dirty() {
		t.Fatal("add must mark dirty")
	}

	if !s.UpdateElement(domain.Element{ID: id, Type: domain.ElementText, Text: "b"}) {
		t.Fatal("update of existing element failed")
	}
	els := s.Elements()
	if len(els) != 1 || els[0].Text != "b" {
		t.Fatalf("update did not stick: %+v", els)
	}
	if s.UpdateElement(domain.Element{ID: "missing"}) {
		t.Fatal("update of missing element must fail")
	}

	if !s.DeleteElement(id) {
		t.Fatal("delete failed")
	}
	if len(s.Elements()) != 0 {
		t.Fatal("element not removed")
	}
	if s.DeleteElement(id) {
		t.Fatal("second delete must be a no-op")
	}
}

func TestDeleteSelectedRemovesAllAndClearsSelection(t *testing.T) {
	s := freeformStore()
	a := s.AddElement(domain.Element{Type: domain.ElementText})
	b := s.AddElement(domain.Element{Type: domain.ElementText})
	c := s.AddElement(domain.Element{Type: domain.ElementText})

	s.Select(a)
	s.AddToSelection(c)
	if n := s.DeleteSelected(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if !sameIDs(ids(s.Elements()), b) {
		t.Fatalf("wrong survivors: %v", ids(s.Elements()))
	}
	if len(s.Selected()) != 0 {
		t.Fatal("selection not cleared")
	}
}

func TestLayerReorderPolicies(t *testing.T) {
	s := freeformStore()
	a := s.AddElement(domain.Element{Type: domain.ElementText})
	b := s.AddElement(domain.Element{Type: domain.ElementText})
	c := s.AddElement(domain.Element{Type: domain.ElementText})
	d := s.AddElement(domain.Element{Type: domain.ElementText})

	if !s.MoveToTop(a) || !sameIDs(ids(s.Elements()), b, c, d, a) {
		t.Fatalf("MoveToTop: %v", ids(s.Elements()))
	}
	if !s.MoveToBottom(d) || !sameIDs(ids(s.Elements()), d, b, c, a) {
		t.Fatalf("MoveToBottom: %v", ids(s.Elements()))
	}
	if !s.MoveUp(b) || !sameIDs(ids(s.Elements()), d, c, b, a) {
		t.Fatalf("MoveUp: %v", ids(s.Elements()))
	}
	if !s.MoveDown(b) || !sameIDs(ids(s.Elements()), d, b, c, a) {
		t.Fatalf("MoveDown: %v", ids(s.Elements()))
	}
	// Boundary no-ops.
	if s.MoveToTop(a) {
		t.Fatal("element already on top must not move")
	}
	if s.MoveDown(d) {
		t.Fatal("element already at bottom must not move")
	}
	if s.MoveUp("missing") {
		t.Fatal("missing element must not move")
	}
}

func TestZoomClampAndStep(t *testing.T) {
	s := freeformStore()

	s.SetViewport(domain.Viewport{X: 1, Y: 2, Zoom: 100})
	if got := s.Viewport().Zoom; got != 4.0 {
		t.Fatalf("zoom not clamped to max: %v", got)
	}
	s.SetViewport(domain.Viewport{Zoom: 0.01})
	if got := s.Viewport().Zoom; got != 0.25 {
		t.Fatalf("zoom not clamped to min: %v", got)
	}

	s.SetViewport(domain.Viewport{Zoom: 1})
	s.ZoomIn()
	if got := s.Viewport().Zoom; got != 1.25 {
		t.Fatalf("ZoomIn step: %v", got)
	}
	s.ZoomOut()
	s.ZoomOut()
	if got := s.Viewport().Zoom; got != 0.75 {
		t.Fatalf("ZoomOut step: %v", got)
	}
}

func TestHydrationClampsLoadedZoom(t *testing.T) {
	s := New(domain.Document{ID: "d", Viewport: domain.Viewport{Zoom: 999}}, testConfig())
	if got := s.Viewport().Zoom; got != 4.0 {
		t.Fatalf("loaded zoom not clamped: %v", got)
	}
}

func TestPanKeepsZoom(t *testing.T) {
	s := freeformStore()
	s.Pan(10, -5)
	vp := s.Viewport()
	if vp.X != 10 || vp.Y != -5 || vp.Zoom != 1 {
		t.Fatalf("unexpected viewport after pan: %+v", vp)
	}
}

func TestToolSwitching(t *testing.T) {
	s := freeformStore()
	if s.ActiveTool() != ToolSelect {
		t.Fatal("default tool must be select")
	}
	wasDirty := s.Dirty()
	s.SetTool(ToolSticker)
	if s.ActiveTool() != ToolSticker {
		t.Fatal("tool switch did not stick")
	}
	if s.Dirty() != wasDirty {
		t.Fatal("tool switch must not affect the dirty flag")
	}
}

func TestUndoRedoThroughStore(t *testing.T) {
	s := freeformStore()
	a := s.AddElement(domain.Element{Type: domain.ElementText, Text: "one"})
	s.AddElement(domain.Element{Type: domain.ElementText, Text: "two"})

	if !s.Undo() {
		t.Fatal("undo failed")
	}
	if !sameIDs(ids(s.Elements()), a) {
		t.Fatalf("undo did not restore: %v", ids(s.Elements()))
	}
	if !s.Redo() {
		t.Fatal("redo failed")
	}
	if len(s.Elements()) != 2 {
		t.Fatal("redo did not restore")
	}
	// At the tail, redo declines.
	if s.Redo() {
		t.Fatal("redo at tail must be a no-op")
	}
}

func TestHotListWriteBack(t *testing.T) {
	s := paginatedStore(3)
	// Seed page 1 out of band through edit focus.
	if err := s.EnterEditMode(1); err != nil {
		t.Fatalf("EnterEditMode: %v", err)
	}
	id := s.AddElement(domain.Element{Type: domain.ElementText, Text: "draft"})
	s.UpdateElement(domain.Element{ID: id, Type: domain.ElementText, Text: "final"})
	s.ExitEditMode()

	pages := s.Pages()
	if len(pages[1].Elements) != 1 || pages[1].Elements[0].Text != "final" {
		t.Fatalf("hot list not written back: %+v", pages[1].Elements)
	}
	if len(pages[0].Elements) != 0 || len(pages[2].Elements) != 0 {
		t.Fatal("other pages must stay unchanged")
	}
	if len(s.Elements()) != 0 {
		t.Fatal("hot list must be cleared after exit")
	}
	if s.EditingPage() != -1 {
		t.Fatal("edit focus must be cleared")
	}
}

func TestEnterEditModeSwitchesFocusWithWriteBack(t *testing.T) {
	s := paginatedStore(2)
	if err := s.EnterEditMode(0); err != nil {
		t.Fatalf("EnterEditMode: %v", err)
	}
	s.AddElement(domain.Element{Type: domain.ElementText, Text: "cover"})
	// Switching focus without exiting writes page 0 back first.
	if err := s.EnterEditMode(1); err != nil {
		t.Fatalf("EnterEditMode: %v", err)
	}
	pages := s.Pages()
	if len(pages[0].Elements) != 1 || pages[0].Elements[0].Text != "cover" {
		t.Fatalf("page 0 not written back on focus switch: %+v", pages[0].Elements)
	}
	if len(s.Elements()) != 0 {
		t.Fatal("hot list must hold page 1's (empty) elements")
	}
}

func TestEditModeErrors(t *testing.T) {
	if err := freeformStore().EnterEditMode(0); !errors.Is(err, ErrNotPaginated) {
		t.Fatalf("expected ErrNotPaginated, got %v", err)
	}
	if err := paginatedStore(2).EnterEditMode(5); !errors.Is(err, ErrBadPageIndex) {
		t.Fatalf("expected ErrBadPageIndex, got %v", err)
	}
}

func TestDeletePageRules(t *testing.T) {
	s := paginatedStore(1)
	if err := s.DeletePage(0); !errors.Is(err, ErrBadPageIndex) {
		t.Fatalf("deleting the sole page must be refused, got %v", err)
	}
	if len(s.Pages()) != 1 {
		t.Fatal("page list length changed")
	}

	s = paginatedStore(3)
	if err := s.EnterEditMode(1); err != nil {
		t.Fatalf("EnterEditMode: %v", err)
	}
	if err := s.DeletePage(1); !errors.Is(err, ErrPageUnderEdit) {
		t.Fatalf("deleting the focused page must be refused, got %v", err)
	}
	if err := s.DeletePage(0); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
	// Focus follows the page as indices shift down.
	if s.EditingPage() != 0 {
		t.Fatalf("edit focus not adjusted: %d", s.EditingPage())
	}
	pages := s.Pages()
	for i, p := range pages {
		if p.Index != i {
			t.Fatalf("indices not contiguous: %+v", pages)
		}
	}
}

func TestAddPageAndSpreadClamp(t *testing.T) {
	s := paginatedStore(5)
	s.GoToSpread(2) // pages 3,4
	if s.CurrentSpread() != 2 {
		t.Fatalf("GoToSpread: %d", s.CurrentSpread())
	}
	// Shrink to 2 pages; spread range becomes [0,1].
	for i := 4; i >= 2; i-- {
		if err := s.DeletePage(i); err != nil {
			t.Fatalf("DeletePage(%d): %v", i, err)
		}
	}
	if s.CurrentSpread() != 1 {
		t.Fatalf("spread not clamped after shrink: %d", s.CurrentSpread())
	}

	if _, err := s.AddPage(99); err != nil {
		t.Fatalf("AddPage: %v", err)
	}
	if s.TotalSpreads() != 2 {
		t.Fatalf("TotalSpreads after append: %d", s.TotalSpreads())
	}
	left, right := s.SpreadPages()
	if left == nil || right == nil {
		t.Fatal("spread 1 of 3 pages must have both sides")
	}
}

func TestMarqueeThroughStore(t *testing.T) {
	s := freeformStore()
	a := s.AddElement(domain.Element{Type: domain.ElementSticker, X: 0, Y: 0, W: 50, H: 50})
	s.AddElement(domain.Element{Type: domain.ElementSticker, X: 200, Y: 200, W: 50, H: 50})

	s.StartMarquee(-10, -10)
	s.UpdateMarquee(60, 60)
	got := s.EndMarquee()
	if !sameIDs(got, a) {
		t.Fatalf("marquee selected %v", got)
	}
	if !sameIDs(s.Selected(), a) {
		t.Fatal("selection not committed")
	}
}

func TestSaveSnapshotFreeform(t *testing.T) {
	s := freeformStore()
	s.AddElement(domain.Element{Type: domain.ElementText, Text: "x"})
	p, v := s.SaveSnapshot()
	if v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}
	ff, ok := p.(domain.FreeformPayload)
	if !ok {
		t.Fatalf("expected FreeformPayload, got %T", p)
	}
	if len(ff.Elements) != 1 {
		t.Fatalf("payload elements: %d", len(ff.Elements))
	}
}

func TestSaveSnapshotMergesHotPage(t *testing.T) {
	s := paginatedStore(2)
	if err := s.EnterEditMode(1); err != nil {
		t.Fatalf("EnterEditMode: %v", err)
	}
	s.AddElement(domain.Element{Type: domain.ElementText, Text: "hot"})

	p, _ := s.SaveSnapshot()
	pp, ok := p.(domain.PaginatedPayload)
	if !ok {
		t.Fatalf("expected PaginatedPayload, got %T", p)
	}
	if len(pp.Pages[1].Elements) != 1 || pp.Pages[1].Elements[0].Text != "hot" {
		t.Fatalf("hot page not merged into snapshot: %+v", pp.Pages[1].Elements)
	}
	if pp.CurrentPageIndex != 1 {
		t.Fatalf("current page index: %d", pp.CurrentPageIndex)
	}
	// The snapshot is detached: further edits must not leak into it.
	s.AddElement(domain.Element{Type: domain.ElementText, Text: "later"})
	if len(pp.Pages[1].Elements) != 1 {
		t.Fatal("snapshot aliases live state")
	}
}

func TestDirtyLifecycleAndVersionReconcile(t *testing.T) {
	s := freeformStore()
	if s.Dirty() {
		t.Fatal("fresh store must be clean")
	}
	s.AddElement(domain.Element{Type: domain.ElementText})
	if !s.Dirty() {
		t.Fatal("mutation must dirty")
	}
	s.SaveSnapshot()
	s.ClearDirty()
	if s.Dirty() {
		t.Fatal("ClearDirty did not stick")
	}
	s.ApplyVersion(9)
	if s.Version() != 9 {
		t.Fatalf("version not reconciled: %d", s.Version())
	}

	// An edit after the snapshot is not covered by the accepted save.
	s.SaveSnapshot()
	s.AddElement(domain.Element{Type: domain.ElementText})
	s.ClearDirty()
	if !s.Dirty() {
		t.Fatal("edit made after the snapshot must keep the document dirty")
	}
}

func TestAutoSaveDebounceFiresOnceAfterQuiet(t *testing.T) {
	cfg := testConfig()
	cfg.AutosaveDebounceMs = 30
	s := New(domain.Document{ID: "d", Viewport: domain.Viewport{Zoom: 1}}, cfg)
	defer s.Close()

	var fired atomic.Int32
	s.SetAutoSave(func() { fired.Add(1) })

	// A burst of mutations keeps resetting the timer.
	for i := 0; i < 5; i++ {
		s.AddElement(domain.Element{Type: domain.ElementText})
		time.Sleep(5 * time.Millisecond)
	}
	if got := fired.Load(); got != 0 {
		t.Fatalf("auto-save fired during the burst: %d", got)
	}
	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := fired.Load(); got != 1 {
		t.Fatalf("expected exactly one auto-save, got %d", got)
	}
}
