/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// SavePayload is the mode-dependent save body, expressed as a sum type so
// the mutual exclusion between the flat element list and the page list is
// checkable at compile time instead of depending on a separate mode flag.
type SavePayload interface {
	// ElementCount is the total number of elements the payload ships,
	// used for client-side save validation.
	ElementCount() int

	savePayload()
}

// FreeformPayload ships the flat element list of a free-form canvas.
type FreeformPayload struct {
	Viewport Viewport
	Elements []Element
}

// PaginatedPayload ships the page list of a magazine-layout document plus
// the page currently under edit focus. The flat element list is always empty
// in this mode.
type PaginatedPayload struct {
	Viewport         Viewport
	Pages            []Page
	CurrentPageIndex int
}

func (FreeformPayload) savePayload()  {}
func (PaginatedPayload) savePayload() {}

func (p FreeformPayload) ElementCount() int { return len(p.Elements) }

func (p PaginatedPayload) ElementCount() int {
	n := 0
	for _, pg := range p.Pages {
		n += len(pg.Elements)
	}
	return n
}
