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
	"context"
	"log/slog"

	"gojournal/internal/config"
	"gojournal/internal/domain"
	applog "gojournal/internal/log"
	"gojournal/internal/save"
)

// Loader fetches documents from the backend; satisfied by backend.Client.
type Loader interface {
	LoadDocument(ctx context.Context, id string) (domain.Document, error)
}

// Session ties one document's store to its save pipeline: mutations arm the
// store's auto-save debounce, which drives the coordinator; teardown flushes
// unsaved state through the draft journal and the beacon.
type Session struct {
	Store *Store
	Coord *save.Coordinator
}

// OpenSession loads a document and wires a ready-to-edit session. drafts may
// be nil. opts.Limits is filled from cfg when left zero.
func OpenSession(ctx context.Context, loader Loader, tr save.Transport, drafts save.DraftSink, id string, cfg config.EngineConfig, opts save.Options) (*Session, error) {
	doc, err := loader.LoadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	st := New(doc, cfg)
	if opts.Limits.MaxElements == 0 {
		opts.Limits.MaxElements = cfg.MaxElements
	}
	if opts.Limits.MaxPayloadBytes == 0 {
		opts.Limits.MaxPayloadBytes = cfg.MaxPayloadBytes
	}
	coord := save.NewCoordinator(st, tr, drafts, opts)
	st.SetAutoSave(func() {
		if err := coord.RequestSave(); err != nil {
			applog.WithComponent("session").Warn("auto-save declined", slog.Any("err", err))
		}
	})
	return &Session{Store: st, Coord: coord}, nil
}

// Close tears the session down: the debounce timer stops and unsaved state
// is flushed best-effort.
func (s *Session) Close(ctx context.Context) error {
	s.Store.Close()
	return s.Coord.Flush(ctx)
}
