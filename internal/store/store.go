/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package store is the single source of truth for an editing session. All
// mutations flow through it: it applies the change, records history, marks
// the document dirty, and arms the auto-save debounce. The flat working
// element list is authoritative in free-form mode; in paginated mode it
// doubles as the hot list of whichever page is under edit focus.
package store

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"gojournal/internal/config"
	"gojournal/internal/domain"
	"gojournal/internal/history"
	applog "gojournal/internal/log"
	"gojournal/internal/selection"
	"gojournal/internal/spread"
)

// Tool is the active editing tool. Tool switches are transient UI state:
// they are not persisted, not dirtying, and not part of history.
type Tool string

const (
	ToolSelect  Tool = "select"
	ToolText    Tool = "text"
	ToolImage   Tool = "image"
	ToolSticker Tool = "sticker"
)

var (
	ErrNotPaginated  = errors.New("store: document is not paginated")
	ErrBadPageIndex  = errors.New("store: page index out of range")
	ErrPageUnderEdit = errors.New("store: page is under edit focus")
)

const noEditFocus = -1

// Store owns the state tree for one document session.
type Store struct {
	mu sync.Mutex

	doc      domain.Document
	elements []domain.Element // flat working list (free-form content or hot page)
	editing  int              // page index under edit focus, noEditFocus when idle

	sel  *selection.Engine
	hist *history.Log
	nav  spread.Navigator
	cfg  config.EngineConfig
	tool Tool
	log  *slog.Logger

	dirty         bool
	gen           uint64 // bumped on every dirtying mutation
	snapGen       uint64 // gen at the last SaveSnapshot
	autosave      func()
	autosaveTimer *time.Timer
}

// New builds a session store around a hydrated document. The viewport zoom
// is clamped into the configured range even when the loaded value is out of
// bounds, and the initial state is committed as the undo baseline.
func New(doc domain.Document, cfg config.EngineConfig) *Store {
	s := &Store{
		doc:     doc,
		editing: noEditFocus,
		sel:     &selection.Engine{},
		hist: history.NewLog(history.Config{
			MaxEntries:  cfg.MaxHistoryEntries,
			MinInterval: cfg.HistoryDebounce(),
		}),
		cfg:  cfg,
		tool: ToolSelect,
		log:  applog.WithComponent("store").With(slog.String("doc", doc.ID)),
	}
	s.doc.Viewport.Zoom = s.clampZoom(s.doc.Viewport.Zoom)
	if !doc.Paginated {
		s.elements = domain.CloneElements(doc.Elements)
		s.doc.Elements = nil
	} else {
		s.nav.Clamp(len(s.doc.Pages))
	}
	s.hist.Commit(s.elements, s.doc.Viewport)
	return s
}

// SetAutoSave registers the callback the auto-save debounce timer fires.
// Typically this is the save coordinator's RequestSave.
func (s *Store) SetAutoSave(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autosave = fn
}

// Close stops the pending auto-save timer, if any.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.autosaveTimer != nil {
		s.autosaveTimer.Stop()
		s.autosaveTimer = nil
	}
}

// --- Elements ---

// AddElement appends an element to the working list and returns its id,
// minting one when the caller left it empty. Discrete action: immediate
// history commit.
func (s *Store) AddElement(el domain.Element) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el.ID == "" {
		el.ID = uuid.NewString()
	}
	s.elements = append(s.elements, el)
	s.commitNowLocked()
	s.markDirtyLocked()
	return el.ID
}

// UpdateElement replaces the element with the same id. Continuous action
// (drag, resize, typing): history commit is debounced.
func (s *Store) UpdateElement(el domain.Element) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.elements {
		if s.elements[i].ID == el.ID {
			s.elements[i] = el
			s.hist.CommitDebounced(s.elements, s.doc.Viewport)
			s.markDirtyLocked()
			return true
		}
	}
	return false
}

// DeleteElement removes an element and drops it from the selection.
func (s *Store) DeleteElement(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		return false
	}
	s.elements = append(s.elements[:idx], s.elements[idx+1:]...)
	s.sel.Remove(id)
	s.commitNowLocked()
	s.markDirtyLocked()
	return true
}

// DeleteSelected removes every selected element and clears the selection.
// Returns the number of elements removed.
func (s *Store) DeleteSelected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.sel.Multi()
	if len(ids) == 0 {
		return 0
	}
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}
	kept := s.elements[:0]
	removed := 0
	for _, el := range s.elements {
		if doomed[el.ID] {
			removed++
			continue
		}
		kept = append(kept, el)
	}
	s.elements = kept
	s.sel.Clear()
	if removed > 0 {
		s.commitNowLocked()
		s.markDirtyLocked()
	}
	return removed
}

// Elements returns a copy of the current working list.
func (s *Store) Elements() []domain.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneElements(s.elements)
}

func (s *Store) indexOfLocked(id string) int {
	for i := range s.elements {
		if s.elements[i].ID == id {
			return i
		}
	}
	return -1
}

// --- Layer order ---

// Later positions in the working list render on top; all four policies are
// splices on that order.

func (s *Store) MoveToTop(id string) bool    { return s.reorder(id, func(i, n int) int { return n - 1 }) }
func (s *Store) MoveToBottom(id string) bool { return s.reorder(id, func(i, n int) int { return 0 }) }
func (s *Store) MoveUp(id string) bool       { return s.reorder(id, func(i, n int) int { return i + 1 }) }
func (s *Store) MoveDown(id string) bool     { return s.reorder(id, func(i, n int) int { return i - 1 }) }

func (s *Store) reorder(id string, target func(i, n int) int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfLocked(id)
	if i < 0 {
		return false
	}
	j := target(i, len(s.elements))
	if j < 0 || j >= len(s.elements) || j == i {
		return false
	}
	el := s.elements[i]
	rest := append(s.elements[:i], s.elements[i+1:]...)
	s.elements = append(rest[:j], append([]domain.Element{el}, rest[j:]...)...)
	s.commitNowLocked()
	s.markDirtyLocked()
	return true
}

// --- Viewport and tool ---

// SetViewport pans and zooms in one step, clamping zoom. Continuous action:
// debounced history commit.
func (s *Store) SetViewport(vp domain.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vp.Zoom = s.clampZoom(vp.Zoom)
	s.doc.Viewport = vp
	s.hist.CommitDebounced(s.elements, s.doc.Viewport)
	s.markDirtyLocked()
}

// Pan shifts the viewport offset without touching zoom.
func (s *Store) Pan(dx, dy float64) {
	s.mu.Lock()
	vp := s.doc.Viewport
	s.mu.Unlock()
	vp.X += dx
	vp.Y += dy
	s.SetViewport(vp)
}

// ZoomIn raises zoom by one configured step, clamped to the maximum.
func (s *Store) ZoomIn() { s.zoomBy(s.zoomStep()) }

// ZoomOut lowers zoom by one configured step, clamped to the minimum.
func (s *Store) ZoomOut() { s.zoomBy(-s.zoomStep()) }

func (s *Store) zoomBy(delta float64) {
	s.mu.Lock()
	vp := s.doc.Viewport
	s.mu.Unlock()
	vp.Zoom += delta
	s.SetViewport(vp)
}

func (s *Store) zoomStep() float64 {
	if s.cfg.ZoomStep > 0 {
		return s.cfg.ZoomStep
	}
	return config.Defaults().Engine.ZoomStep
}

func (s *Store) clampZoom(z float64) float64 {
	minZ, maxZ := s.cfg.MinZoom, s.cfg.MaxZoom
	if minZ <= 0 {
		minZ = config.Defaults().Engine.MinZoom
	}
	if maxZ <= 0 {
		maxZ = config.Defaults().Engine.MaxZoom
	}
	if z < minZ {
		return minZ
	}
	if z > maxZ {
		return maxZ
	}
	return z
}

// Viewport returns the current viewport.
func (s *Store) Viewport() domain.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Viewport
}

// SetTool switches the active tool.
func (s *Store) SetTool(t Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = t
}

// ActiveTool returns the current tool.
func (s *Store) ActiveTool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// --- Selection ---

func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Select(id)
}

func (s *Store) AddToSelection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Add(id)
}

func (s *Store) RemoveFromSelection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Remove(id)
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Clear()
}

// Selected returns the multi-selection id set.
func (s *Store) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Multi()
}

// SelectedSingle returns the single-selection id, empty when none.
func (s *Store) SelectedSingle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Single()
}

func (s *Store) StartMarquee(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.StartMarquee(x, y)
}

func (s *Store) UpdateMarquee(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.UpdateMarquee(x, y)
}

// EndMarquee hit-tests the working list and commits the result as the new
// multi-selection.
func (s *Store) EndMarquee() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.EndMarquee(s.elements)
}

// --- History ---

// Undo steps back one history entry, restoring elements and viewport.
// Selection is left alone; focus is not part of snapshots.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.hist.Undo()
	if !ok {
		return false
	}
	s.applyEntryLocked(e)
	return true
}

// Redo steps forward one history entry.
func (s *Store) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.hist.Redo()
	if !ok {
		return false
	}
	s.applyEntryLocked(e)
	return true
}

func (s *Store) applyEntryLocked(e history.Entry) {
	s.elements = domain.CloneElements(e.Elements)
	s.doc.Viewport = e.Viewport
	s.markDirtyLocked()
}

func (s *Store) CanUndo() bool { return s.hist.CanUndo() }
func (s *Store) CanRedo() bool { return s.hist.CanRedo() }

// --- Paginated mode: edit focus and page structure ---

// EnterEditMode focuses one page for interactive editing: its elements are
// copied into the flat working list so selection, marquee, and history all
// operate on it uniformly. Entering while another page is focused writes
// that page back first.
func (s *Store) EnterEditMode(pageIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.doc.Paginated {
		return ErrNotPaginated
	}
	if pageIndex < 0 || pageIndex >= len(s.doc.Pages) {
		return ErrBadPageIndex
	}
	if s.editing != noEditFocus {
		s.writeBackLocked()
	}
	s.editing = pageIndex
	s.doc.CurrentPageIndex = pageIndex
	s.elements = domain.CloneElements(s.doc.Pages[pageIndex].Elements)
	s.sel.Clear()
	s.commitNowLocked()
	s.markDirtyLocked()
	return nil
}

// ExitEditMode writes the hot list back into the focused page and clears
// the edit focus. No-op when no page is focused.
func (s *Store) ExitEditMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing == noEditFocus {
		return
	}
	s.writeBackLocked()
	s.editing = noEditFocus
	s.elements = nil
	s.sel.Clear()
	s.commitNowLocked()
	s.markDirtyLocked()
}

// EditingPage returns the focused page index, or -1 when idle.
func (s *Store) EditingPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

func (s *Store) writeBackLocked() {
	if s.editing >= 0 && s.editing < len(s.doc.Pages) {
		s.doc.Pages[s.editing].Elements = domain.CloneElements(s.elements)
	}
}

// AddPage inserts an empty page after the given index (out of range appends)
// and returns its id.
func (s *Store) AddPage(after int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.doc.Paginated {
		return "", ErrNotPaginated
	}
	p := domain.Page{ID: uuid.NewString(), Elements: []domain.Element{}}
	s.doc.Pages = spread.InsertPage(s.doc.Pages, after, p)
	s.nav.Clamp(len(s.doc.Pages))
	s.commitNowLocked()
	s.markDirtyLocked()
	return p.ID, nil
}

// DeletePage removes the page at index i. Deleting the last remaining page
// or the page under edit focus is refused.
func (s *Store) DeletePage(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.doc.Paginated {
		return ErrNotPaginated
	}
	if i == s.editing {
		return ErrPageUnderEdit
	}
	out, ok := spread.DeletePage(s.doc.Pages, i)
	if !ok {
		return ErrBadPageIndex
	}
	s.doc.Pages = out
	if s.editing > i {
		s.editing--
	}
	if s.doc.CurrentPageIndex >= len(s.doc.Pages) {
		s.doc.CurrentPageIndex = len(s.doc.Pages) - 1
	}
	s.nav.Clamp(len(s.doc.Pages))
	s.commitNowLocked()
	s.markDirtyLocked()
	return nil
}

// ReorderPage moves the page at from to position to, renumbering indexes.
func (s *Store) ReorderPage(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.doc.Paginated {
		return ErrNotPaginated
	}
	if from < 0 || from >= len(s.doc.Pages) || to < 0 || to >= len(s.doc.Pages) {
		return ErrBadPageIndex
	}
	if s.editing != noEditFocus {
		// Keep the focus on the same page as it moves.
		switch {
		case s.editing == from:
			s.editing = to
		case from < s.editing && to >= s.editing:
			s.editing--
		case from > s.editing && to <= s.editing:
			s.editing++
		}
	}
	s.doc.Pages = spread.ReorderPage(s.doc.Pages, from, to)
	s.nav.Clamp(len(s.doc.Pages))
	s.commitNowLocked()
	s.markDirtyLocked()
	return nil
}

// Pages returns a copy of the page list.
func (s *Store) Pages() []domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ClonePages(s.doc.Pages)
}

// --- Spread navigation ---

func (s *Store) NextSpread() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav.Next(len(s.doc.Pages))
}

func (s *Store) PrevSpread() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav.Prev(len(s.doc.Pages))
}

func (s *Store) GoToSpread(k int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav.GoTo(len(s.doc.Pages), k)
}

// CurrentSpread returns the spread index the navigator points at.
func (s *Store) CurrentSpread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Current()
}

// SpreadPages returns the left and right page of the current spread. Either
// may be nil.
func (s *Store) SpreadPages() (left, right *domain.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return spread.PagesAt(s.doc.Pages, s.nav.Current())
}

// TotalSpreads returns the navigable spread count for the current pages.
func (s *Store) TotalSpreads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return spread.TotalSpreads(len(s.doc.Pages))
}

// --- Persistence (save.Source) ---

// DocumentID returns the aggregate id.
func (s *Store) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ID
}

// SaveSnapshot builds the mode-dependent save payload and the version the
// server is expected to hold. In paginated mode the hot page is merged back
// into the page list before serialization.
func (s *Store) SaveSnapshot() (domain.SavePayload, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapGen = s.gen
	if !s.doc.Paginated {
		return domain.FreeformPayload{
			Viewport: s.doc.Viewport,
			Elements: domain.CloneElements(s.elements),
		}, s.doc.Version
	}
	pages := domain.ClonePages(s.doc.Pages)
	if s.editing >= 0 && s.editing < len(pages) {
		pages[s.editing].Elements = domain.CloneElements(s.elements)
	}
	return domain.PaginatedPayload{
		Viewport:         s.doc.Viewport,
		Pages:            pages,
		CurrentPageIndex: s.doc.CurrentPageIndex,
	}, s.doc.Version
}

// Dirty reports whether unsaved mutations exist.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// ClearDirty marks the document clean, but only if no mutation landed
// after the last SaveSnapshot. The save pipeline calls this once the
// server has accepted that snapshot; edits made while the save was in
// flight keep the flag set so they trigger another save.
func (s *Store) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == s.snapGen {
		s.dirty = false
	}
}

// ApplyVersion records the version the server assigned to an accepted save.
func (s *Store) ApplyVersion(v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Version = v
}

// Version returns the last reconciled server version.
func (s *Store) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Version
}

// Document returns a detached copy of the aggregate, with the hot page
// merged back, suitable for display.
func (s *Store) Document() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	doc.Elements = domain.CloneElements(s.elements)
	doc.Pages = domain.ClonePages(s.doc.Pages)
	if s.doc.Paginated {
		doc.Elements = nil
		if s.editing >= 0 && s.editing < len(doc.Pages) {
			doc.Pages[s.editing].Elements = domain.CloneElements(s.elements)
		}
	}
	return doc
}

// --- Internals ---

func (s *Store) commitNowLocked() {
	s.hist.Commit(s.elements, s.doc.Viewport)
}

// markDirtyLocked flags unsaved work and re-arms the auto-save debounce.
// Last trigger wins: each call cancels and reschedules the timer.
func (s *Store) markDirtyLocked() {
	s.dirty = true
	s.gen++
	if s.autosave == nil {
		return
	}
	if s.autosaveTimer != nil {
		s.autosaveTimer.Stop()
	}
	fn := s.autosave
	s.autosaveTimer = time.AfterFunc(s.cfg.AutosaveDebounce(), fn)
}
