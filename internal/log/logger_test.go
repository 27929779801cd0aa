/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJSONFileCarriesStaticAndContextAttrs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gb.json")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: path, Console: &console})
	t.Cleanup(func() { _ = Close() })

	l := WithOperation(WithComponent("storage"), "save")
	ctx := ContextWith(context.Background(), slog.String("layout", "summer"))
	l.InfoContext(ctx, "layout saved", slog.Int("items", 3))

	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", last, err)
	}
	for k, want := range map[string]any{
		"app": "gallerybuilder", "component": "storage", "op": "save",
		"layout": "summer", "msg": "layout saved", "items": float64(3),
	} {
		if m[k] != want {
			t.Fatalf("%s = %v, want %v", k, m[k], want)
		}
	}
	if !strings.Contains(console.String(), `"layout":"summer"`) {
		t.Fatalf("console json missing context attr: %s", console.String())
	}
}

func TestConsoleHandlerFormatting(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Console: &buf})

	l := L().WithGroup("req").With(slog.String("id", "r1"))
	l.Debug("hidden")
	l.Warn("slow render", slog.String("note", "two words"), slog.Float64("ms", 12.5))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %s", out)
	}
	for _, want := range []string{" WRN slow render", "req.id=r1", `req.note="two words"`, "req.ms=12.5", "app=gallerybuilder"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("GB_LOG_LEVEL", "warn")
	t.Setenv("GB_LOG_FORMAT", "json")
	t.Setenv("GB_LOG_SOURCE", "TRUE")
	t.Setenv("GB_LOG_FILE", "")
	o := FromEnv()
	if o.Level != "warn" || o.Format != "json" || !o.AddSource || o.File != "" {
		t.Fatalf("FromEnv() = %+v", o)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, " WARNING ": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
