/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the journal canvas editor:
// placed elements, the viewport, page grouping for the paginated ("magazine")
// mode, and the document aggregate synchronized with the backend.

// ElementType tags the kind of placed content.
type ElementType string

const (
	ElementText    ElementType = "text"
	ElementImage   ElementType = "image"
	ElementSticker ElementType = "sticker"
)

// Default bounding box used for hit-testing when an element carries no size.
const (
	DefaultElementWidth  = 100.0
	DefaultElementHeight = 100.0
)

// Element is a placed content unit. Coordinates are global in free-form mode
// and page-local in paginated mode. Elements are treated as immutable value
// records: mutations replace the record rather than editing it in place, so
// history snapshots stay cheap to share.
type Element struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	W        float64     `json:"w,omitempty"`
	H        float64     `json:"h,omitempty"`
	Rotation float64     `json:"rotation,omitempty"`
	Opacity  float64     `json:"opacity,omitempty"`

	// Text content (type == text).
	Text   string `json:"text,omitempty"`
	Markup string `json:"markup,omitempty"`
	Font   string `json:"font,omitempty"`

	// Source reference (type == image or sticker).
	Src string `json:"src,omitempty"`
}

// Bounds returns the element's axis-aligned bounding box, substituting the
// default size when width or height is absent.
func (e Element) Bounds() Rect {
	w, h := e.W, e.H
	if w <= 0 {
		w = DefaultElementWidth
	}
	if h <= 0 {
		h = DefaultElementHeight
	}
	return Rect{X: e.X, Y: e.Y, W: w, H: h}
}

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

// Intersects reports whether r and o overlap on both axes.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X && r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// Viewport is the document's pan offset and zoom factor. There is one
// viewport per document, independent of page structure.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Page groups elements in paginated mode. Index 0 is the cover. Page indices
// are kept contiguous by the structural operations that reorder them.
type Page struct {
	ID       string    `json:"id"`
	Index    int       `json:"index"`
	Elements []Element `json:"elements"`
}

// Document is the aggregate root synchronized with the backend. Exactly one
// of Elements (free-form) or Pages (paginated) is authoritative per mode; in
// paginated mode Elements is empty at rest. Version increases monotonically
// and carries the optimistic-concurrency expectation.
type Document struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Paginated        bool      `json:"paginated"`
	Viewport         Viewport  `json:"viewport"`
	Elements         []Element `json:"elements,omitempty"`
	Pages            []Page    `json:"pages,omitempty"`
	CurrentPageIndex int       `json:"current_page_index,omitempty"`
	Version          int64     `json:"version"`
}

// CloneElements returns an independent copy of a flat element list. Element
// values themselves are plain data and safe to copy by value.
func CloneElements(els []Element) []Element {
	if els == nil {
		return nil
	}
	out := make([]Element, len(els))
	copy(out, els)
	return out
}

// ClonePages deep-copies a page list including each page's element list.
func ClonePages(pages []Page) []Page {
	if pages == nil {
		return nil
	}
	out := make([]Page, len(pages))
	for i, p := range pages {
		p.Elements = CloneElements(p.Elements)
		out[i] = p
	}
	return out
}
