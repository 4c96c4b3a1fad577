/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package draft persists unsaved document states to a local SQLite journal so
// a crash or an unreachable backend never loses editor work. One row per
// document; a later draft replaces an earlier one.
package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gojournal/internal/backend"
	applog "gojournal/internal/log"
	"gojournal/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	JournalFileName = "drafts.sqlite"

	// schemaVersion tracks the local draft journal schema. Bump on breaking
	// changes and add a migration step below.
	schemaVersion = 1
)

// ErrNotFound reports that no draft exists for the requested document.
var ErrNotFound = errors.New("draft: not found")

// Entry is one journaled draft: the save body that was pending when the
// draft was written, plus when it was written.
type Entry struct {
	DocID     string
	Request   backend.SaveRequest
	UpdatedAt time.Time
}

// Journal is a handle to the local draft database.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the draft journal under dir, enables WAL mode, and
// ensures the schema is current.
func Open(dir string) (*Journal, error) {
	l := applog.WithComponent("draft")
	if dir == "" {
		return nil, errors.New("draft dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.Error("create draft dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create draft dir: %w", err)
	}

	path := filepath.Join(dir, JournalFileName)
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure draft schema failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("draft journal ready", slog.String("path", path))
	return &Journal{db: db}, nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Put writes or replaces the draft for a document.
func (j *Journal) Put(ctx context.Context, docID string, sr backend.SaveRequest) error {
	if docID == "" {
		return errors.New("draft: doc id is required")
	}
	payload, err := json.Marshal(sr)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = j.db.ExecContext(ctx, `INSERT INTO drafts (doc_id, payload, expected_version, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET payload=excluded.payload,
			expected_version=excluded.expected_version,
			updated_at=excluded.updated_at`,
		docID, payload, sr.ExpectedVersion, now)
	if err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	return nil
}

// Get returns the stored draft for a document, or ErrNotFound.
func (j *Journal) Get(ctx context.Context, docID string) (Entry, error) {
	var (
		e       Entry
		payload []byte
		updated string
	)
	err := j.db.QueryRowContext(ctx, `SELECT doc_id, payload, updated_at FROM drafts WHERE doc_id = ?`, docID).
		Scan(&e.DocID, &payload, &updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Entry{}, ErrNotFound
	case err != nil:
		return Entry{}, fmt.Errorf("read draft: %w", err)
	}
	if err := json.Unmarshal(payload, &e.Request); err != nil {
		return Entry{}, fmt.Errorf("corrupt draft payload: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		e.UpdatedAt = t
	}
	return e, nil
}

// Delete removes the draft for a document. Deleting a missing draft is not
// an error.
func (j *Journal) Delete(ctx context.Context, docID string) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM drafts WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// List returns the ids of all journaled documents, newest first.
func (j *Journal) List(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT doc_id FROM drafts ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS drafts (
			doc_id           TEXT PRIMARY KEY,
			payload          BLOB NOT NULL,
			expected_version INTEGER NOT NULL DEFAULT 0,
			updated_at       TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}
