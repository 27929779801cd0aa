/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gallerybuilder/internal/fsutil"
	"gallerybuilder/internal/layout"
	applog "gallerybuilder/internal/log"
)

const (
	LayoutsDirName = "layouts"
	BackupsDirName = "backups"
	layoutExt      = ".json"
)

// FileStore keeps one JSON document per layout under <root>/layouts.
// Replacing a layout first copies the previous file to a timestamped backup
// under <root>/backups, and a layout file that no longer parses is read from
// its latest backup instead.
type FileStore struct {
	root string
	log  *slog.Logger
}

// NewFileStore creates root and its subfolders if needed.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	for _, d := range []string{LayoutsDirName, BackupsDirName} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return &FileStore{root: root, log: applog.WithComponent("storage").With(slog.String("backend", "filesystem"))}, nil
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.root, LayoutsDirName, id+layoutExt)
}

func (f *FileStore) List(ctx context.Context) ([]layout.SavedLayout, error) {
	ents, err := os.ReadDir(filepath.Join(f.root, LayoutsDirName))
	if err != nil {
		return nil, fmt.Errorf("read layouts dir: %w", err)
	}
	var out []layout.SavedLayout
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, layoutExt) {
			continue
		}
		l, err := f.Get(ctx, strings.TrimSuffix(name, layoutExt))
		if err != nil {
			// one broken file must not hide the others
			f.log.Warn("skip unreadable layout", slog.String("file", name), slog.Any("err", err))
			continue
		}
		out = append(out, l)
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *FileStore) Get(_ context.Context, id string) (layout.SavedLayout, error) {
	if !fsutil.IsSafeName(id) {
		return layout.SavedLayout{}, fmt.Errorf("invalid layout id %q", id)
	}
	b, err := os.ReadFile(f.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return layout.SavedLayout{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return layout.SavedLayout{}, fmt.Errorf("read layout %s: %w", id, err)
	}
	var l layout.SavedLayout
	if uerr := json.Unmarshal(b, &l); uerr != nil {
		bl, berr := f.latestBackup(id)
		if berr != nil {
			return layout.SavedLayout{}, fmt.Errorf("parse layout %s: %w; backup attempt: %v", id, uerr, berr)
		}
		f.log.Warn("layout restored from backup", slog.String("id", id), slog.Any("err", uerr))
		return bl, nil
	}
	return l, nil
}

func (f *FileStore) Put(_ context.Context, l layout.SavedLayout) error {
	if !fsutil.IsSafeName(l.ID) {
		return fmt.Errorf("invalid layout id %q", l.ID)
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	data = append(data, '\n')

	target := f.path(l.ID)
	if _, statErr := os.Stat(target); statErr == nil {
		if err := f.backup(l.ID); err != nil {
			return fmt.Errorf("backup layout %s: %w", l.ID, err)
		}
	}
	if err := fsutil.WriteFileAtomic(target, data); err != nil {
		return fmt.Errorf("write layout %s: %w", l.ID, err)
	}
	return nil
}

// Delete removes the layout file. Its backups are kept.
func (f *FileStore) Delete(_ context.Context, id string) error {
	if !fsutil.IsSafeName(id) {
		return fmt.Errorf("invalid layout id %q", id)
	}
	err := os.Remove(f.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete layout %s: %w", id, err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) backupPrefix(id string) string { return id + layoutExt + "." }

func (f *FileStore) backup(id string) error {
	stamp := time.Now().UTC().Format("20060102-150405.000000000")
	dst := filepath.Join(f.root, BackupsDirName, f.backupPrefix(id)+stamp+".bak")
	return fsutil.CopyFile(f.path(id), dst)
}

// Backups lists the backup files of id, oldest first.
func (f *FileStore) Backups(id string) ([]string, error) {
	bdir := filepath.Join(f.root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, f.backupPrefix(id)) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func (f *FileStore) latestBackup(id string) (layout.SavedLayout, error) {
	candidates, err := f.Backups(id)
	if err != nil {
		return layout.SavedLayout{}, err
	}
	if len(candidates) == 0 {
		return layout.SavedLayout{}, errors.New("no backups found")
	}
	b, err := os.ReadFile(candidates[len(candidates)-1])
	if err != nil {
		return layout.SavedLayout{}, fmt.Errorf("read latest backup: %w", err)
	}
	var l layout.SavedLayout
	if err := json.Unmarshal(b, &l); err != nil {
		return layout.SavedLayout{}, fmt.Errorf("parse latest backup: %w", err)
	}
	return l, nil
}
