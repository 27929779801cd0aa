/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"gallerybuilder/internal/layout"
	applog "gallerybuilder/internal/log"
)

// ErrNotFound is returned when no layout has the requested id.
var ErrNotFound = errors.New("layout not found")

// ErrNameRequired is returned when a layout is saved without a name.
var ErrNameRequired = errors.New("layout name is required")

// LayoutStore is the record backend behind a Registry.
type LayoutStore interface {
	// List returns all layouts, most recently updated first.
	List(ctx context.Context) ([]layout.SavedLayout, error)
	Get(ctx context.Context, id string) (layout.SavedLayout, error)
	// Put inserts or replaces the layout with l.ID.
	Put(ctx context.Context, l layout.SavedLayout) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Options selects and configures a LayoutStore.
type Options struct {
	Driver      string // memory, filesystem, sqlite or postgres
	Path        string // directory for filesystem, database file for sqlite
	PostgresDSN string
}

// Open returns the configured backend; an empty driver selects memory.
func Open(ctx context.Context, o Options) (LayoutStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("driver", o.Driver))
	var (
		s   LayoutStore
		err error
	)
	switch o.Driver {
	case "", "memory":
		s = NewMemoryStore()
	case "filesystem":
		s, err = NewFileStore(o.Path)
	case "sqlite":
		p := o.Path
		if filepath.Ext(p) == "" {
			p = filepath.Join(p, "layouts.sqlite")
		}
		s, err = OpenSQLiteStore(ctx, p)
	case "postgres":
		s, err = OpenPostgresStore(ctx, o.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown layout storage driver %q", o.Driver)
	}
	if err != nil {
		return nil, err
	}
	l.Info("layout store ready", slog.String("path", o.Path))
	return s, nil
}

// sortNewestFirst orders by UpdatedAt descending, then by id.
func sortNewestFirst(ls []layout.SavedLayout) {
	slices.SortFunc(ls, func(a, b layout.SavedLayout) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("layout id is required")
	}
	return nil
}
