/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gallerybuilder/internal/config"
	"gallerybuilder/internal/editor"
	"gallerybuilder/internal/layout"
	applog "gallerybuilder/internal/log"
	"gallerybuilder/internal/tiling"
)

func testEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	cfg := config.Defaults()
	cfg.Storage = config.StorageConfig{Driver: "filesystem", Path: filepath.Join(dir, "layouts")}
	cfg.Assets = config.AssetsConfig{Driver: "memory"}
	e := &env{cfg: cfg, log: applog.WithComponent("cli")}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func writeLayout(t *testing.T, photos int) string {
	t.Helper()
	s := editor.New(editor.Options{})
	for range photos {
		s.AddPhoto()
	}
	data, err := layout.Encode(s.ExportLayout())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "summer.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runOK(t *testing.T, e *env, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(context.Background(), e, args, &out); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestLayoutsLifecycle(t *testing.T) {
	e := testEnv(t)
	out := runOK(t, e, "layouts", "import", writeLayout(t, 2))
	if !strings.Contains(out, `Saved "summer"`) {
		t.Fatalf("import output: %q", out)
	}
	id := strings.TrimSpace(out[strings.LastIndex(out, " as ")+4:])

	if list := runOK(t, e, "layouts", "list"); !strings.Contains(list, id) || !strings.Contains(list, "summer") {
		t.Fatalf("list output: %q", list)
	}
	shown := runOK(t, e, "layouts", "show", id)
	s, err := layout.Decode([]byte(shown))
	if err != nil {
		t.Fatalf("show output does not decode: %v", err)
	}
	if s.PhotoSlots() != 2 {
		t.Fatalf("photo slots = %d", s.PhotoSlots())
	}
	runOK(t, e, "layouts", "delete", id)
	var out2 bytes.Buffer
	if err := run(context.Background(), e, []string{"layouts", "show", id}, &out2); err == nil {
		t.Fatalf("show after delete succeeded")
	}
}

func TestRenderPrintsPlan(t *testing.T) {
	e := testEnv(t)
	out := runOK(t, e, "layouts", "import", writeLayout(t, 3))
	id := strings.TrimSpace(out[strings.LastIndex(out, " as ")+4:])

	plan := runOK(t, e, "render", id, "1000", "650", "horizontal")
	var g tiling.Gallery
	if err := json.Unmarshal([]byte(plan), &g); err != nil {
		t.Fatalf("render output: %v", err)
	}
	// 12 placeholder photos over 3 slots
	if g.Direction != tiling.Horizontal || g.SlotsPerTile != 3 || len(g.Tiles) != 4 {
		t.Fatalf("plan: direction=%s slots=%d tiles=%d", g.Direction, g.SlotsPerTile, len(g.Tiles))
	}
}

func TestConfigPathAndUsage(t *testing.T) {
	e := testEnv(t)
	if out := runOK(t, e, "config", "path"); !strings.HasSuffix(strings.TrimSpace(out), "config.yaml") {
		t.Fatalf("config path: %q", out)
	}
	if out := runOK(t, e, "config", "show"); !strings.Contains(out, "driver: filesystem") {
		t.Fatalf("config show: %q", out)
	}
	for _, args := range [][]string{{"bogus"}, {"layouts"}, {"render"}, {"assets", "list"}} {
		if err := run(context.Background(), e, args, &bytes.Buffer{}); !errors.Is(err, errUsage) {
			t.Errorf("%v: err = %v, want usage", args, err)
		}
	}
}

func TestAssetsPutAndList(t *testing.T) {
	e := testEnv(t)
	src := filepath.Join(t.TempDir(), "star.svg")
	if err := os.WriteFile(src, []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), 0o644); err != nil {
		t.Fatal(err)
	}
	runOK(t, e, "assets", "put", "stickers", src)
	if out := runOK(t, e, "assets", "list", "stickers"); !strings.Contains(out, "star.svg") {
		t.Fatalf("list: %q", out)
	}
	if err := run(context.Background(), e, []string{"assets", "list", "nope"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("unknown category accepted")
	}
}

func TestTokenCommand(t *testing.T) {
	e := testEnv(t)
	t.Setenv(config.EnvAuthSecret, "")
	if err := run(context.Background(), e, []string{"token"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error without %s", config.EnvAuthSecret)
	}
	t.Setenv(config.EnvAuthSecret, "s3cret")
	out := runOK(t, e, "token", "ci", "30m")
	tok, _, _ := strings.Cut(out, "\n")
	if strings.Count(tok, ".") != 2 || !strings.Contains(out, "# expires") {
		t.Fatalf("unexpected token output %q", out)
	}
	for _, ttl := range []string{"soon", "-1m", "48h"} {
		if err := run(context.Background(), e, []string{"token", "ci", ttl}, &bytes.Buffer{}); err == nil {
			t.Errorf("ttl %q: expected error", ttl)
		}
	}
}
