/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus an autosave of the
// editor draft, then exits non-zero.
package crash

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"gallerybuilder/internal/fsutil"
	"gallerybuilder/internal/layout"
	applog "gallerybuilder/internal/log"
	"gallerybuilder/internal/telemetry"
	"gallerybuilder/internal/version"
)

// Draft is the editor state worth saving on a crash.
type Draft interface {
	ExportLayout() layout.Schema
}

// Dir is where reports and draft autosaves are written. Empty means
// os.TempDir()/gallerybuilder-crash.
var Dir string

var exitFn = os.Exit

const stampFormat = "20060102-150405"

func reportDir() string {
	if Dir != "" {
		return Dir
	}
	return filepath.Join(os.TempDir(), "gallerybuilder-crash")
}

// Recover must be deferred directly: defer crash.Recover(surface).
// draft may be nil.
func Recover(draft Draft) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	stamp := time.Now().Format(stampFormat)
	reportPath, err := writeReport(stamp, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if draft != nil {
		if path, err := saveDraft(stamp, draft); err != nil {
			l.Error("draft autosave failed", slog.Any("err", err))
		} else {
			l.Info("draft autosaved", slog.String("path", path))
		}
	}
	fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func writeReport(stamp string, panicVal any, stack []byte) (string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Gallery Builder Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&buf, "\nPanic: %v\n\nStack:\n%s\n", panicVal, stack)

	path := filepath.Join(reportDir(), "crash-"+stamp+".log")
	if err := fsutil.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

// saveDraft never panics itself: a broken draft is reported as an error.
func saveDraft(stamp string, d Draft) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("export draft: %v", r)
		}
	}()
	data, err := layout.EncodeIndent(d.ExportLayout())
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	path = filepath.Join(reportDir(), "draft-"+stamp+".json")
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ErrNoDraft is returned by LatestDraft when no autosave exists.
var ErrNoDraft = errors.New("no autosaved draft")

// LatestDraft loads the newest autosaved draft, for restoring after a crash.
func LatestDraft() (layout.Schema, string, error) {
	entries, err := os.ReadDir(reportDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return layout.Schema{}, "", ErrNoDraft
		}
		return layout.Schema{}, "", fmt.Errorf("list drafts: %w", err)
	}
	var names []string
	for _, e := range entries {
		if n := e.Name(); strings.HasPrefix(n, "draft-") && strings.HasSuffix(n, ".json") {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return layout.Schema{}, "", ErrNoDraft
	}
	sort.Strings(names)
	path := filepath.Join(reportDir(), names[len(names)-1])
	data, err := os.ReadFile(path)
	if err != nil {
		return layout.Schema{}, path, fmt.Errorf("read draft: %w", err)
	}
	s, err := layout.Decode(data)
	if err != nil {
		return layout.Schema{}, path, fmt.Errorf("decode draft: %w", err)
	}
	return s, path, nil
}
