/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"fmt"

	"github.com/google/uuid"

	"gojournal/internal/domain"
)

// SaveRequest is the wire body of a save. Exactly one of the element list or
// the page list carries content depending on the mode flag; in paginated
// mode the flat element list is shipped empty.
type SaveRequest struct {
	Viewport         domain.Viewport  `json:"viewport"`
	Paginated        bool             `json:"paginated"`
	ExpectedVersion  int64            `json:"expected_version"`
	Elements         []domain.Element `json:"elements"`
	Pages            []domain.Page    `json:"pages,omitempty"`
	CurrentPageIndex int              `json:"current_page_index,omitempty"`
}

// NewSaveRequest lowers the tagged payload union onto the wire shape.
func NewSaveRequest(p domain.SavePayload, expected int64) SaveRequest {
	switch v := p.(type) {
	case domain.FreeformPayload:
		els := v.Elements
		if els == nil {
			els = []domain.Element{}
		}
		return SaveRequest{
			Viewport:        v.Viewport,
			Paginated:       false,
			ExpectedVersion: expected,
			Elements:        els,
		}
	case domain.PaginatedPayload:
		return SaveRequest{
			Viewport:         v.Viewport,
			Paginated:        true,
			ExpectedVersion:  expected,
			Elements:         []domain.Element{},
			Pages:            v.Pages,
			CurrentPageIndex: v.CurrentPageIndex,
		}
	default:
		// The union is closed; this is unreachable for well-formed callers.
		return SaveRequest{ExpectedVersion: expected, Elements: []domain.Element{}}
	}
}

// SaveResponse is the success body of a save.
type SaveResponse struct {
	Version int64 `json:"version"`
}

// ConflictResponse is the 409 body: the version the server holds and the
// expectation it rejected.
type ConflictResponse struct {
	ServerVersion int64 `json:"server_version"`
	ClientVersion int64 `json:"client_version"`
}

// ConflictError signals that the backend rejected a save because its stored
// version differs from the client's expectation. It is distinct from a
// transient failure: the right recovery is to reload authoritative state,
// not to blindly retry.
type ConflictError struct {
	ServerVersion int64
	ClientVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: server has %d, client expected %d", e.ServerVersion, e.ClientVersion)
}

// DocumentEnvelope matches the server response for a document load.
type DocumentEnvelope struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Paginated        bool             `json:"paginated"`
	Viewport         domain.Viewport  `json:"viewport"`
	Elements         []domain.Element `json:"elements"`
	Pages            []domain.Page    `json:"pages,omitempty"`
	CurrentPageIndex int              `json:"current_page_index"`
	Version          int64            `json:"version"`
}

// ToDocument hydrates the aggregate. A paginated document that arrives
// without pages gets one default empty cover synthesized so the invariant
// "a paginated document always has at least one page" holds from first load.
func (env DocumentEnvelope) ToDocument() domain.Document {
	doc := domain.Document{
		ID:               env.ID,
		Title:            env.Title,
		Paginated:        env.Paginated,
		Viewport:         env.Viewport,
		Elements:         env.Elements,
		Pages:            env.Pages,
		CurrentPageIndex: env.CurrentPageIndex,
		Version:          env.Version,
	}
	if doc.Paginated {
		doc.Elements = nil
		if len(doc.Pages) == 0 {
			doc.Pages = []domain.Page{{ID: uuid.NewString(), Index: 0, Elements: []domain.Element{}}}
		}
	}
	return doc
}
