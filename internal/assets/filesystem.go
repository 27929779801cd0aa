/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gallerybuilder/internal/fsutil"
)

// FileStore keeps one file per asset under <root>/<category>/<name>.
type FileStore struct {
	root string
}

// NewFileStore creates the category directories below root.
func NewFileStore(root string) (*FileStore, error) {
	for _, c := range Categories {
		if err := os.MkdirAll(filepath.Join(root, string(c)), 0o755); err != nil {
			return nil, fmt.Errorf("create asset dir %s: %w", c, err)
		}
	}
	return &FileStore{root: root}, nil
}

func (f *FileStore) path(cat Category, name string) string {
	return filepath.Join(f.root, string(cat), name)
}

func (f *FileStore) Put(_ context.Context, cat Category, name string, data []byte) error {
	if err := checkKey(cat, name); err != nil {
		return fmt.Errorf("put asset: %w", err)
	}
	if err := fsutil.WriteFileAtomic(f.path(cat, name), data); err != nil {
		return fmt.Errorf("put asset %s/%s: %w", cat, name, err)
	}
	return nil
}

func (f *FileStore) Get(_ context.Context, cat Category, name string) (Asset, error) {
	if err := checkKey(cat, name); err != nil {
		return Asset{}, fmt.Errorf("get asset: %w", err)
	}
	data, err := os.ReadFile(f.path(cat, name))
	if errors.Is(err, os.ErrNotExist) {
		return Asset{}, fmt.Errorf("%s/%s: %w", cat, name, ErrNotFound)
	}
	if err != nil {
		return Asset{}, fmt.Errorf("get asset %s/%s: %w", cat, name, err)
	}
	return Asset{Category: cat, Name: name, ContentType: ContentTypeFor(name, data), Data: data}, nil
}

func (f *FileStore) List(ctx context.Context, cat Category) ([]Asset, error) {
	if _, err := ParseCategory(string(cat)); err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(filepath.Join(f.root, string(cat)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list assets %s: %w", cat, err)
	}
	var names []string
	for _, e := range ents {
		// skip temp files of interrupted writes
		if e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	out := make([]Asset, 0, len(names))
	for _, n := range names {
		a, err := f.Get(ctx, cat, n)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *FileStore) Delete(_ context.Context, cat Category, name string) error {
	if err := checkKey(cat, name); err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if err := os.Remove(f.path(cat, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete asset %s/%s: %w", cat, name, err)
	}
	return nil
}

func (f *FileStore) Clear(_ context.Context, cat Category) error {
	if _, err := ParseCategory(string(cat)); err != nil {
		return err
	}
	dir := filepath.Join(f.root, string(cat))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear assets %s: %w", cat, err)
	}
	return os.MkdirAll(dir, 0o755)
}

func (f *FileStore) Close() error { return nil }
