/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points config and data dirs at a temp dir and stubs the keyring.
func isolate(t *testing.T) (dir string, tokens *MemoryTokens) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv(EnvConfigPath, filepath.Join(dir, "config.yaml"))
	t.Setenv(EnvDataDir, dir)
	tokens = &MemoryTokens{}
	t.Cleanup(SetTokenStore(tokens))
	return dir, tokens
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir, _ := isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("token = %q, want empty", tok)
	}
	if cfg.Editor.CanvasWidth != 1000 || cfg.Editor.CanvasHeight != 650 {
		t.Fatalf("canvas = %vx%v, want 1000x650", cfg.Editor.CanvasWidth, cfg.Editor.CanvasHeight)
	}
	if cfg.Storage.Driver != "filesystem" {
		t.Fatalf("storage driver = %q", cfg.Storage.Driver)
	}
	if want := filepath.Join(dir, "layouts"); cfg.Storage.Path != want {
		t.Fatalf("storage path = %q, want %q", cfg.Storage.Path, want)
	}
}

func TestEnvOverridesStorage(t *testing.T) {
	isolate(t)
	t.Setenv(EnvStorageDriver, "SQLite")
	t.Setenv(EnvStoragePath, "/var/lib/gb/layouts.db")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "/var/lib/gb/layouts.db" {
		t.Fatalf("path = %q", cfg.Storage.Path)
	}
	if env, ok := EnvOverrideFor("storage.driver"); !ok || env != EnvStorageDriver {
		t.Fatalf("EnvOverrideFor = %q,%v", env, ok)
	}
	if _, ok := EnvOverrideFor("assets.driver"); ok {
		t.Fatalf("assets.driver reported as overridden")
	}
}

func TestEnvOverridesOriginsAndTelemetry(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAllowedOrigins, "http://a.test, ,http://b.test")
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvPhotoTimeoutMs, "250")
	t.Setenv(EnvImageHosts, "cdn.test,")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("origins = %v", cfg.Server.AllowedOrigins)
	}
	if len(cfg.Server.ImageHosts) != 1 || cfg.Server.ImageHosts[0] != "cdn.test" {
		t.Fatalf("image hosts = %v", cfg.Server.ImageHosts)
	}
	if !cfg.Telemetry.OptIn {
		t.Fatalf("telemetry opt-in expected from env")
	}
	if cfg.Photos.Timeout().Milliseconds() != 250 {
		t.Fatalf("timeout = %v", cfg.Photos.Timeout())
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	_, tokens := isolate(t)
	cfg := Defaults()
	cfg.Gallery.Style = "polaroid"
	cfg.Editor.SnapThreshold = 10
	cfg.Logging.Source = true
	if err := Save(cfg, "secret-token"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if v, _ := tokens.Get(keyringService, keyringToken); v != "secret-token" {
		t.Fatalf("keyring token = %q", v)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "secret-token" {
		t.Fatalf("token = %q", tok)
	}
	if got.Gallery.Style != "polaroid" || got.Editor.SnapThreshold != 10 || !got.Logging.Source {
		t.Fatalf("round trip lost values: %+v", got)
	}
}

func TestEnvTokenWinsOverKeyring(t *testing.T) {
	_, tokens := isolate(t)
	_ = tokens.Set(keyringService, keyringToken, "from-keyring")
	t.Setenv(EnvPhotoToken, "from-env")
	_, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "from-env" {
		t.Fatalf("token = %q, want from-env", tok)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir, _ := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("editor: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestMergeKeepsDefaultsForEmptyFields(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Gallery: GalleryConfig{Direction: "Horizontal"}}
	mergeInto(&dst, &src)
	if dst.Gallery.Direction != "horizontal" {
		t.Fatalf("direction = %q", dst.Gallery.Direction)
	}
	if dst.Gallery.Style != "grid" || dst.Editor.MinSize != 50 {
		t.Fatalf("defaults lost: %+v", dst)
	}
}

func TestSetTokenEmptyDeletes(t *testing.T) {
	_, tokens := isolate(t)
	if err := SetToken("abc"); err != nil {
		t.Fatal(err)
	}
	if tok, _ := Token(); tok != "abc" {
		t.Fatalf("Token() = %q", tok)
	}
	if err := SetToken(""); err != nil {
		t.Fatalf("SetToken(\"\") error: %v", err)
	}
	if _, err := tokens.Get(keyringService, keyringToken); err == nil {
		t.Fatalf("token still present")
	}
	// deleting again is not an error
	if err := SetToken(""); err != nil {
		t.Fatalf("second delete error: %v", err)
	}
}
