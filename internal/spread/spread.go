/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package spread maps the flat ordered page list of a paginated document
// onto its navigable spread sequence: spread 0 is the cover alone, spread k
// (k >= 1) pairs the pages at positions 2k-1 and 2k.
package spread

import "gojournal/internal/domain"

// TotalSpreads returns the number of navigable spreads for a page count:
// cover-only plus page pairs. Zero pages yield zero spreads.
func TotalSpreads(pageCount int) int {
	if pageCount <= 0 {
		return 0
	}
	// 1 + ceil((n-1)/2) == 1 + n/2 in integer math.
	return 1 + pageCount/2
}

// PagesAt returns the left and right page of spread k, either of which may
// be nil when the spread is partially filled or out of range. Spread 0
// returns the cover as left with no right page.
func PagesAt(pages []domain.Page, k int) (left, right *domain.Page) {
	if k < 0 || k >= TotalSpreads(len(pages)) {
		return nil, nil
	}
	if k == 0 {
		return &pages[0], nil
	}
	li, ri := 2*k-1, 2*k
	if li < len(pages) {
		left = &pages[li]
	}
	if ri < len(pages) {
		right = &pages[ri]
	}
	return left, right
}

// Navigator tracks the current spread index for a page list.
type Navigator struct {
	current int
}

// Current returns the current spread index.
func (n *Navigator) Current() int { return n.current }

// Next advances one spread; out-of-range moves are no-ops.
func (n *Navigator) Next(pageCount int) {
	if n.current+1 < TotalSpreads(pageCount) {
		n.current++
	}
}

// Prev steps back one spread; out-of-range moves are no-ops.
func (n *Navigator) Prev(pageCount int) {
	if n.current > 0 {
		n.current--
	}
}

// GoTo jumps to spread k if it exists; out-of-range targets are no-ops.
func (n *Navigator) GoTo(pageCount, k int) {
	if k >= 0 && k < TotalSpreads(pageCount) {
		n.current = k
	}
}

// Clamp pulls the current spread back into the valid range after a
// structural change shrank the page list.
func (n *Navigator) Clamp(pageCount int) {
	total := TotalSpreads(pageCount)
	if total == 0 {
		n.current = 0
		return
	}
	if n.current >= total {
		n.current = total - 1
	}
	if n.current < 0 {
		n.current = 0
	}
}

// Renumber rewrites page position indices to be contiguous from 0.
func Renumber(pages []domain.Page) {
	for i := range pages {
		pages[i].Index = i
	}
}

// InsertPage inserts p after position `after`, appending when `after` is
// out of range, and renumbers. The input slice is not reused.
func InsertPage(pages []domain.Page, after int, p domain.Page) []domain.Page {
	out := make([]domain.Page, 0, len(pages)+1)
	if after < 0 || after >= len(pages) {
		out = append(out, pages...)
		out = append(out, p)
	} else {
		out = append(out, pages[:after+1]...)
		out = append(out, p)
		out = append(out, pages[after+1:]...)
	}
	Renumber(out)
	return out
}

// DeletePage removes the page at i and renumbers. Deleting the only
// remaining page, or an out-of-range index, is refused: the input list is
// returned unchanged with ok=false. A paginated document always keeps at
// least one page.
func DeletePage(pages []domain.Page, i int) (out []domain.Page, ok bool) {
	if len(pages) <= 1 || i < 0 || i >= len(pages) {
		return pages, false
	}
	out = make([]domain.Page, 0, len(pages)-1)
	out = append(out, pages[:i]...)
	out = append(out, pages[i+1:]...)
	Renumber(out)
	return out, true
}

// ReorderPage moves the page at from to position to, splicing the list and
// renumbering. Out-of-range indices leave the list unchanged.
func ReorderPage(pages []domain.Page, from, to int) []domain.Page {
	if from < 0 || from >= len(pages) || to < 0 || to >= len(pages) || from == to {
		return pages
	}
	out := make([]domain.Page, 0, len(pages))
	out = append(out, pages[:from]...)
	out = append(out, pages[from+1:]...)
	moved := pages[from]
	out = append(out[:to], append([]domain.Page{moved}, out[to:]...)...)
	Renumber(out)
	return out
}
