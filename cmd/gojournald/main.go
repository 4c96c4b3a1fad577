/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// gojournald is the reference document server: it implements the load/save
// contract the editing engine speaks, including optimistic concurrency and
// the teardown beacon.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"gojournal/internal/backend"
	applog "gojournal/internal/log"
	"gojournal/internal/version"
)

func main() {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	applog.Init(applog.FromEnv())
	l := applog.WithComponent("gojournald")

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Println(version.String())
			return
		}
	}

	l.Info("starting gojournald", slog.String("version", version.String()))
	if err := backend.Start(); err != nil {
		l.Error("server exited", slog.Any("err", err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
