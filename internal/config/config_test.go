/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

// memStore keeps tests off the real OS keychain.
type memStore struct{ m map[string]string }

func (s *memStore) Get(service, key string) (string, error) {
	v, ok := s.m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (s *memStore) Set(service, key, value string) error {
	if s.m == nil {
		s.m = map[string]string{}
	}
	s.m[service+"/"+key] = value
	return nil
}
func (s *memStore) Delete(service, key string) error {
	delete(s.m, service+"/"+key)
	return nil
}

func TestMain(m *testing.M) {
	SetTokenStore(&memStore{})
	os.Exit(m.Run())
}

func TestEnvOverridesBackendURL(t *testing.T) {
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
}

func TestEnvOverridesEngineLimits(t *testing.T) {
	t.Setenv(EnvMaxElements, "42")
	t.Setenv(EnvMaxPayloadBytes, "2048")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine.MaxElements != 42 {
		t.Fatalf("MaxElements = %d, want 42", cfg.Engine.MaxElements)
	}
	if cfg.Engine.MaxPayloadBytes != 2048 {
		t.Fatalf("MaxPayloadBytes = %d, want 2048", cfg.Engine.MaxPayloadBytes)
	}
}

func TestMergeIncludesEngineSection(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Engine.MinZoom = 0.5
	src.Engine.MaxHistoryEntries = 99
	mergeInto(&dst, &src)
	if dst.Engine.MinZoom != 0.5 {
		t.Fatalf("MinZoom was not merged from file config")
	}
	if dst.Engine.MaxHistoryEntries != 99 {
		t.Fatalf("MaxHistoryEntries was not merged from file config")
	}
}

func TestDebounceDurations(t *testing.T) {
	e := Defaults().Engine
	if e.AutosaveDebounce() != 2*time.Second {
		t.Fatalf("AutosaveDebounce = %v", e.AutosaveDebounce())
	}
	if e.HistoryDebounce() != 300*time.Millisecond {
		t.Fatalf("HistoryDebounce = %v", e.HistoryDebounce())
	}
	// Zero values fall back to defaults rather than disabling debounce.
	var zero EngineConfig
	if zero.AutosaveDebounce() <= 0 || zero.HistoryDebounce() <= 0 {
		t.Fatalf("zero config should fall back to default intervals")
	}
}

func TestDefaultsZoomRangeSane(t *testing.T) {
	e := Defaults().Engine
	if e.MinZoom <= 0 || e.MaxZoom <= e.MinZoom || e.ZoomStep <= 0 {
		t.Fatalf("zoom defaults out of order: %+v", e)
	}
}
