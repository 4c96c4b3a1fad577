/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gojournal/internal/backend"
	"gojournal/internal/config"
	"gojournal/internal/crash"
	"gojournal/internal/draft"
	applog "gojournal/internal/log"
	"gojournal/internal/spread"
	"gojournal/internal/version"
)

func usage() {
	fmt.Println("GoJournal — canvas/journal document engine")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gojournal version|-v|--version   Show version")
	fmt.Println("  gojournal open <id>               Fetch a document and print a summary")
	fmt.Println("  gojournal drafts                  List locally journaled drafts")
	fmt.Println("  gojournal drafts drop <id>        Discard the local draft for a document")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	defer func() { crash.Recover(nil) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("GoJournal — canvas/journal document engine")
		fmt.Println(version.String())
	case "open":
		if len(args) < 3 {
			fmt.Println("open requires <id>")
			usage()
			os.Exit(2)
		}
		if err := openDocument(args[2]); err != nil {
			l.Error("open failed", slog.Any("err", err))
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	case "drafts":
		if err := runDrafts(args[2:]); err != nil {
			l.Error("drafts failed", slog.Any("err", err))
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func openDocument(id string) error {
	cfg, token, err := config.Load()
	if err != nil {
		return err
	}
	client := backend.NewClient(cfg.Backend.BaseURL, token)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	doc, err := client.LoadDocument(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("Document: %s\n", doc.ID)
	if doc.Title != "" {
		fmt.Printf("Title:    %s\n", doc.Title)
	}
	fmt.Printf("Version:  %d\n", doc.Version)
	fmt.Printf("Viewport: x=%.1f y=%.1f zoom=%.2f\n", doc.Viewport.X, doc.Viewport.Y, doc.Viewport.Zoom)
	if doc.Paginated {
		fmt.Printf("Mode:     paginated (%d pages, %d spreads)\n", len(doc.Pages), spread.TotalSpreads(len(doc.Pages)))
		for _, p := range doc.Pages {
			fmt.Printf("  page %d: %d elements\n", p.Index, len(p.Elements))
		}
	} else {
		fmt.Printf("Mode:     free-form (%d elements)\n", len(doc.Elements))
	}
	return nil
}

func runDrafts(args []string) error {
	dir, err := config.DataDir()
	if err != nil {
		return err
	}
	j, err := draft.Open(filepath.Join(dir, "drafts"))
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(args) >= 2 && args[0] == "drop" {
		if err := j.Delete(ctx, args[1]); err != nil {
			return err
		}
		fmt.Println("Dropped draft for", args[1])
		return nil
	}

	ids, err := j.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No local drafts.")
		return nil
	}
	for _, id := range ids {
		e, err := j.Get(ctx, id)
		if err != nil {
			fmt.Printf("  %s (unreadable: %v)\n", id, err)
			continue
		}
		fmt.Printf("  %s  expected_version=%d  %s\n", id, e.Request.ExpectedVersion, e.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}
