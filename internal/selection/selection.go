/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package selection tracks single/multi element selection and implements
// rubber-band (marquee) rectangle selection over element bounding boxes.
package selection

import (
	"math"

	"gojournal/internal/domain"
)

// clickThreshold is the marquee size (both axes) under which the gesture is
// treated as a plain click: selection clears instead of selecting nothing.
const clickThreshold = 4.0

// Engine reconciles the two selection representations on every change:
// selecting a single id reduces the multi-set to one entry; growing the
// multi-set past one member clears the single id.
type Engine struct {
	single string
	multi  []string

	marqueeActive    bool
	anchorX, anchorY float64
	rect             domain.Rect
}

// Select makes id the sole selection.
func (e *Engine) Select(id string) {
	e.single = id
	e.multi = []string{id}
}

// Add grows the multi-selection by id (idempotent). Once the set exceeds one
// member the single id is cleared.
func (e *Engine) Add(id string) {
	for _, v := range e.multi {
		if v == id {
			return
		}
	}
	e.multi = append(e.multi, id)
	if len(e.multi) == 1 {
		e.single = id
	} else {
		e.single = ""
	}
}

// Remove drops id from the selection in either representation.
func (e *Engine) Remove(id string) {
	if e.single == id {
		e.single = ""
	}
	for i, v := range e.multi {
		if v == id {
			e.multi = append(e.multi[:i], e.multi[i+1:]...)
			break
		}
	}
	if len(e.multi) == 1 {
		e.single = e.multi[0]
	}
}

// Clear empties the selection.
func (e *Engine) Clear() {
	e.single = ""
	e.multi = nil
}

// Single returns the single-selected id, empty when none or when the
// multi-set holds more than one member.
func (e *Engine) Single() string { return e.single }

// Multi returns the multi-selection ids in selection order.
func (e *Engine) Multi() []string {
	return append([]string(nil), e.multi...)
}

// IsSelected reports whether id is part of the current selection.
func (e *Engine) IsSelected(id string) bool {
	for _, v := range e.multi {
		if v == id {
			return true
		}
	}
	return false
}

// StartMarquee records the drag anchor.
func (e *Engine) StartMarquee(x, y float64) {
	e.marqueeActive = true
	e.anchorX, e.anchorY = x, y
	e.rect = domain.Rect{X: x, Y: y}
}

// UpdateMarquee recomputes the normalized marquee rectangle so a drag in any
// of the four directions yields a positive-size rect.
func (e *Engine) UpdateMarquee(x, y float64) {
	if !e.marqueeActive {
		return
	}
	e.rect = domain.Rect{
		X: math.Min(e.anchorX, x),
		Y: math.Min(e.anchorY, y),
		W: math.Abs(x - e.anchorX),
		H: math.Abs(y - e.anchorY),
	}
}

// MarqueeRect returns the current normalized marquee rectangle.
func (e *Engine) MarqueeRect() domain.Rect { return e.rect }

// EndMarquee hit-tests the marquee against the element bounds and commits
// the intersecting ids as the new multi-selection. A marquee below the click
// threshold on both axes clears the selection instead.
func (e *Engine) EndMarquee(elements []domain.Element) []string {
	if !e.marqueeActive {
		return e.Multi()
	}
	e.marqueeActive = false
	if e.rect.W < clickThreshold && e.rect.H < clickThreshold {
		e.Clear()
		return nil
	}
	var hit []string
	for _, el := range elements {
		if el.Bounds().Intersects(e.rect) {
			hit = append(hit, el.ID)
		}
	}
	e.multi = hit
	if len(hit) == 1 {
		e.single = hit[0]
	} else {
		e.single = ""
	}
	return e.Multi()
}
