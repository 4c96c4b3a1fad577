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
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables are read-only overrides at runtime.
// The backend token is never written to disk; it lives in the OS keychain.

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// EngineConfig holds the editing-engine tuning constants: zoom bounds, the
// two debounce intervals, and the save-time limits enforced client-side
// before any network call.
type EngineConfig struct {
	MinZoom            float64 `yaml:"min_zoom"`
	MaxZoom            float64 `yaml:"max_zoom"`
	ZoomStep           float64 `yaml:"zoom_step"`
	AutosaveDebounceMs int     `yaml:"autosave_debounce_ms"`
	HistoryDebounceMs  int     `yaml:"history_debounce_ms"`
	MaxElements        int     `yaml:"max_elements"`
	MaxPayloadBytes    int     `yaml:"max_payload_bytes"`
	MaxHistoryEntries  int     `yaml:"max_history_entries"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
	Engine        EngineConfig  `yaml:"engine"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
		Engine: EngineConfig{
			MinZoom:            0.25,
			MaxZoom:            4.0,
			ZoomStep:           0.25,
			AutosaveDebounceMs: 2000,
			HistoryDebounceMs:  300,
			MaxElements:        500,
			MaxPayloadBytes:    1 << 20,
			MaxHistoryEntries:  50,
		},
	}
}

// AutosaveDebounce returns the auto-save quiet interval as a duration.
func (e EngineConfig) AutosaveDebounce() time.Duration {
	if e.AutosaveDebounceMs <= 0 {
		return time.Duration(Defaults().Engine.AutosaveDebounceMs) * time.Millisecond
	}
	return time.Duration(e.AutosaveDebounceMs) * time.Millisecond
}

// HistoryDebounce returns the history-commit quiet interval as a duration.
func (e EngineConfig) HistoryDebounce() time.Duration {
	if e.HistoryDebounceMs <= 0 {
		return time.Duration(Defaults().Engine.HistoryDebounceMs) * time.Millisecond
	}
	return time.Duration(e.HistoryDebounceMs) * time.Millisecond
}

// Env var names used as overrides.
const (
	EnvBackendURL       = "GJ_BACKEND_URL"
	EnvBackendTimeoutMs = "GJ_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "GJ_TLS_INSECURE"
	EnvTelemetryOptIn   = "GJ_TELEMETRY_OPT_IN"
	EnvMaxElements      = "GJ_MAX_ELEMENTS"
	EnvMaxPayloadBytes  = "GJ_MAX_PAYLOAD_BYTES"
	// Logging envs
	EnvLogLevel  = "GJ_LOG_LEVEL"
	EnvLogFormat = "GJ_LOG_FORMAT"
	EnvLogSource = "GJ_LOG_SOURCE"
	EnvLogFile   = "GJ_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "GoJournal"
	keyringToken   = "backend_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// osKeyring implements TokenStore with github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// SetTokenStore installs a TokenStore; intended for tests.
func SetTokenStore(ts TokenStore) { tokenStore = ts }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoJournal")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoJournal")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "gojournal")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataDir returns the per-user data directory (draft journal, crash reports).
func DataDir() (string, error) {
	p, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(p), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The backend token is loaded from the keyring and
// returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	// engine: positive values win over defaults
	if src.Engine.MinZoom > 0 {
		dst.Engine.MinZoom = src.Engine.MinZoom
	}
	if src.Engine.MaxZoom > 0 {
		dst.Engine.MaxZoom = src.Engine.MaxZoom
	}
	if src.Engine.ZoomStep > 0 {
		dst.Engine.ZoomStep = src.Engine.ZoomStep
	}
	if src.Engine.AutosaveDebounceMs > 0 {
		dst.Engine.AutosaveDebounceMs = src.Engine.AutosaveDebounceMs
	}
	if src.Engine.HistoryDebounceMs > 0 {
		dst.Engine.HistoryDebounceMs = src.Engine.HistoryDebounceMs
	}
	if src.Engine.MaxElements > 0 {
		dst.Engine.MaxElements = src.Engine.MaxElements
	}
	if src.Engine.MaxPayloadBytes > 0 {
		dst.Engine.MaxPayloadBytes = src.Engine.MaxPayloadBytes
	}
	if src.Engine.MaxHistoryEntries > 0 {
		dst.Engine.MaxHistoryEntries = src.Engine.MaxHistoryEntries
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxElements)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.MaxElements = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxPayloadBytes)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.MaxPayloadBytes = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}
