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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/layout"
	applog "gallerybuilder/internal/log"
	"gallerybuilder/internal/telemetry"
)

// Registry owns the saved layouts. It is safe for concurrent use when its
// stores are.
type Registry struct {
	store  LayoutStore
	assets assets.Store
	now    func() time.Time
	log    *slog.Logger
}

// NewRegistry persists records in store and stripped image bytes in
// assetStore. assetStore may be nil, in which case stripped bytes are dropped.
func NewRegistry(store LayoutStore, assetStore assets.Store) *Registry {
	return &Registry{
		store:  store,
		assets: assetStore,
		now:    time.Now,
		log:    applog.WithComponent("storage").With(slog.String("part", "registry")),
	}
}

// Store returns the record backend.
func (r *Registry) Store() LayoutStore { return r.store }

// List returns all saved layouts, most recently updated first.
func (r *Registry) List(ctx context.Context) ([]layout.SavedLayout, error) {
	return r.store.List(ctx)
}

// Get returns the saved layout as stored, with uploaded assets referenced by name only.
func (r *Registry) Get(ctx context.Context, id string) (layout.SavedLayout, error) {
	return r.store.Get(ctx, id)
}

// Load returns the saved layout with uploaded assets rehydrated from the
// asset store as data URIs. Names the store does not hold stay unresolved.
func (r *Registry) Load(ctx context.Context, id string) (layout.SavedLayout, error) {
	l, err := r.store.Get(ctx, id)
	if err != nil {
		return l, err
	}
	if r.assets != nil {
		l.Schema = layout.Rehydrate(l.Schema, func(cat assets.Category, name string) (string, bool) {
			a, err := r.assets.Get(ctx, cat, name)
			if err != nil {
				return "", false
			}
			return assets.DataURI(a.ContentType, a.Data), true
		})
	}
	return l, nil
}

// Save sanitizes schema and stores it as a new layout named name.
func (r *Registry) Save(ctx context.Context, name string, schema layout.Schema) (layout.SavedLayout, error) {
	l := applog.WithOperation(r.log, "save")
	name = strings.TrimSpace(name)
	if name == "" {
		return layout.SavedLayout{}, ErrNameRequired
	}
	clean, err := r.sanitize(ctx, schema)
	if err != nil {
		return layout.SavedLayout{}, err
	}
	now := r.now().UTC()
	saved := layout.SavedLayout{
		ID:        ulid.Make().String(),
		Name:      name,
		Schema:    clean,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Put(ctx, saved); err != nil {
		return layout.SavedLayout{}, fmt.Errorf("save layout: %w", err)
	}
	l.Info("layout saved", slog.String("id", saved.ID), slog.String("name", name), slog.Int("elements", len(clean.Elements)))
	telemetry.Event(telemetry.LayoutSaved, map[string]any{"elements": len(clean.Elements), "photo_slots": clean.PhotoSlots()})
	return saved, nil
}

// Update replaces the schema and, when name is not empty, the name of an existing layout.
func (r *Registry) Update(ctx context.Context, id, name string, schema layout.Schema) (layout.SavedLayout, error) {
	saved, err := r.store.Get(ctx, id)
	if err != nil {
		return layout.SavedLayout{}, err
	}
	clean, err := r.sanitize(ctx, schema)
	if err != nil {
		return layout.SavedLayout{}, err
	}
	if n := strings.TrimSpace(name); n != "" {
		saved.Name = n
	}
	saved.Schema = clean
	saved.UpdatedAt = r.now().UTC()
	if err := r.store.Put(ctx, saved); err != nil {
		return layout.SavedLayout{}, fmt.Errorf("update layout: %w", err)
	}
	applog.WithOperation(r.log, "update").Info("layout updated", slog.String("id", id))
	return saved, nil
}

// Delete removes the layout. Assets it referenced stay in the asset store
// since other layouts may share them.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	applog.WithOperation(r.log, "delete").Info("layout deleted", slog.String("id", id))
	telemetry.Event(telemetry.LayoutDeleted, nil)
	return nil
}

// Close closes the record backend. The asset store belongs to the caller.
func (r *Registry) Close() error { return r.store.Close() }

func (r *Registry) sanitize(ctx context.Context, schema layout.Schema) (layout.Schema, error) {
	clean, extracted := layout.Sanitize(schema)
	if clean.ID == "" {
		clean.ID = layout.NewSchemaID()
	}
	if clean.Version == 0 {
		clean.Version = layout.VersionCurrent
	}
	for _, x := range extracted {
		if len(x.Data) == 0 {
			// blob: or remote src; the bytes were never inline
			continue
		}
		if r.assets == nil {
			r.log.Warn("no asset store, dropping inline image", slog.String("category", string(x.Category)), slog.String("name", x.Name))
			continue
		}
		if err := r.assets.Put(ctx, x.Category, x.Name, x.Data); err != nil {
			return layout.Schema{}, fmt.Errorf("store asset %s/%s: %w", x.Category, x.Name, err)
		}
	}
	return clean, nil
}
