/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package save coordinates persistence of document snapshots to the backend.
// At most one save is on the wire at any time; requests arriving while one
// is in flight collapse into a single follow-up that runs after the current
// save settles.
package save

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gojournal/internal/backend"
	"gojournal/internal/domain"
	applog "gojournal/internal/log"
	"gojournal/internal/telemetry"
)

// State is the externally visible save lifecycle.
type State int

const (
	StateIdle State = iota
	StateSaving
	StateSaved
	StateConflict
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSaving:
		return "saving"
	case StateSaved:
		return "saved"
	case StateConflict:
		return "conflict"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Source supplies snapshots of the document being persisted. Implementations
// must be safe for concurrent use; the coordinator calls from its own
// goroutines.
type Source interface {
	DocumentID() string
	// SaveSnapshot returns the current persistable state and the version
	// the caller expects the server to hold.
	SaveSnapshot() (domain.SavePayload, int64)
	Dirty() bool
	// ClearDirty marks clean the state captured by the most recent
	// SaveSnapshot. Called only when the server accepted that snapshot;
	// a mutation made after the snapshot keeps the flag set.
	ClearDirty()
	// ApplyVersion records the version the server assigned to an accepted
	// save.
	ApplyVersion(v int64)
}

// Transport ships save bodies to the backend.
type Transport interface {
	SaveDocument(ctx context.Context, id string, sr backend.SaveRequest) (int64, error)
	SendBeacon(id string, sr backend.SaveRequest)
}

// DraftSink journals snapshots that could not be confirmed by the backend.
type DraftSink interface {
	Put(ctx context.Context, docID string, sr backend.SaveRequest) error
	Delete(ctx context.Context, docID string) error
}

// Options tunes a Coordinator. Zero values fall back to defaults.
type Options struct {
	Limits Limits
	// FollowUpDelay spaces the coalesced follow-up save from the save that
	// just settled.
	FollowUpDelay time.Duration
	// Timeout bounds one network save.
	Timeout time.Duration
	// OnStatus, when set, observes lifecycle transitions. Called from
	// coordinator goroutines.
	OnStatus func(State, error)
}

const (
	defaultFollowUpDelay = 250 * time.Millisecond
	defaultTimeout       = 15 * time.Second
)

// Coordinator serializes saves for one document.
type Coordinator struct {
	src    Source
	tr     Transport
	drafts DraftSink
	opts   Options
	log    *slog.Logger

	mu       sync.Mutex
	inFlight bool
	pending  bool
}

// NewCoordinator wires a coordinator to its document source and transport.
// drafts may be nil when local journaling is unavailable.
func NewCoordinator(src Source, tr Transport, drafts DraftSink, opts Options) *Coordinator {
	if opts.FollowUpDelay <= 0 {
		opts.FollowUpDelay = defaultFollowUpDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Coordinator{
		src:    src,
		tr:     tr,
		drafts: drafts,
		opts:   opts,
		log:    applog.WithComponent("save").With(slog.String("doc", src.DocumentID())),
	}
}

// RequestSave starts a save of the current snapshot. If a save is already in
// flight the request collapses into a single pending follow-up and RequestSave
// returns nil immediately. Validation failures are returned synchronously and
// never reach the network.
func (c *Coordinator) RequestSave() error {
	c.mu.Lock()
	if c.inFlight {
		c.pending = true
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	payload, expected := c.src.SaveSnapshot()
	sr := backend.NewSaveRequest(payload, expected)
	if _, err := validate(sr, c.opts.Limits); err != nil {
		c.log.Warn("save rejected before send", slog.Any("err", err))
		c.notify(StateError, err)
		return err
	}

	c.mu.Lock()
	if c.inFlight {
		// Lost the race to another RequestSave; fold into its follow-up.
		c.pending = true
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	c.mu.Unlock()

	c.notify(StateSaving, nil)
	telemetry.Event("save_requested", map[string]any{"elements": payload.ElementCount()})
	go c.send(sr)
	return nil
}

func (c *Coordinator) send(sr backend.SaveRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	defer cancel()

	id := c.src.DocumentID()
	v, err := c.tr.SaveDocument(ctx, id, sr)

	var conflict *backend.ConflictError
	switch {
	case err == nil:
		// The dirty flag clears only now that the server holds the
		// snapshot. A failed or conflicted save leaves it set so the
		// next trigger retries with current state.
		c.src.ApplyVersion(v)
		c.src.ClearDirty()
		if c.drafts != nil {
			if derr := c.drafts.Delete(context.Background(), id); derr != nil {
				c.log.Debug("draft cleanup failed", slog.Any("err", derr))
			}
		}
		c.log.Info("saved", slog.Int64("version", v))
		telemetry.Event("save_succeeded", map[string]any{"version": v})
		c.notify(StateSaved, nil)
	case errors.As(err, &conflict):
		// The snapshot is stale against the server. Journal it so nothing
		// is lost, then surface the conflict; recovery is a reload, not a
		// retry.
		c.journal(id, sr)
		c.log.Warn("save conflict",
			slog.Int64("server_version", conflict.ServerVersion),
			slog.Int64("client_version", conflict.ClientVersion))
		telemetry.Event("save_conflict", nil)
		c.notify(StateConflict, err)
	default:
		c.journal(id, sr)
		c.log.Error("save failed", slog.Any("err", err))
		telemetry.Event("save_failed", nil)
		c.notify(StateError, err)
	}

	c.finish()
}

// finish clears the in-flight slot and schedules the coalesced follow-up if
// one was requested and local edits still exist.
func (c *Coordinator) finish() {
	c.mu.Lock()
	c.inFlight = false
	followUp := c.pending
	c.pending = false
	c.mu.Unlock()

	if followUp && c.src.Dirty() {
		time.AfterFunc(c.opts.FollowUpDelay, func() { _ = c.RequestSave() })
	}
}

func (c *Coordinator) journal(id string, sr backend.SaveRequest) {
	if c.drafts == nil {
		return
	}
	if err := c.drafts.Put(context.Background(), id, sr); err != nil {
		c.log.Error("draft journal write failed", slog.Any("err", err))
	}
}

// Flush performs the teardown path: journal the current snapshot locally and
// fire a beacon at the backend without waiting for a response. A clean
// document flushes to nothing.
func (c *Coordinator) Flush(ctx context.Context) error {
	if !c.src.Dirty() {
		return nil
	}
	payload, expected := c.src.SaveSnapshot()
	sr := backend.NewSaveRequest(payload, expected)
	if _, err := validate(sr, c.opts.Limits); err != nil {
		return err
	}
	id := c.src.DocumentID()
	var jerr error
	if c.drafts != nil {
		jerr = c.drafts.Put(ctx, id, sr)
	}
	c.tr.SendBeacon(id, sr)
	telemetry.Event("save_flush", nil)
	return jerr
}

// Saving reports whether a save is currently on the wire.
func (c *Coordinator) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Coordinator) notify(s State, err error) {
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(s, err)
	}
}
