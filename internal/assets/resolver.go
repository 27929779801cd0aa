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
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	applog "gallerybuilder/internal/log"
)

// Placeholders shown while an asset is missing or still loading.
const (
	PlaceholderSticker    = "🎨"
	PlaceholderFrame      = "🖼️"
	PlaceholderBackground = "#F3F4F6"
)

// Placeholder returns the placeholder glyph or fill for a category.
func Placeholder(cat Category) string {
	switch cat {
	case Frames:
		return PlaceholderFrame
	case Backgrounds:
		return PlaceholderBackground
	}
	return PlaceholderSticker
}

// Ref is the image reference a decorative element carries.
type Ref struct {
	Src        string
	Name       string
	IsUploaded bool
}

// Source tells where a resolved src came from.
type Source int

const (
	SourcePlaceholder Source = iota
	SourceInline
	SourceUploaded
	SourceDefault
	SourcePending // uploaded asset being fetched; placeholder meanwhile
)

func (s Source) String() string {
	switch s {
	case SourceInline:
		return "inline"
	case SourceUploaded:
		return "uploaded"
	case SourceDefault:
		return "default"
	case SourcePending:
		return "pending"
	}
	return "placeholder"
}

// Resolution is the outcome of resolving a Ref.
type Resolution struct {
	Src         string // empty unless resolved
	Source      Source
	Placeholder string // glyph or fill to draw when Src is empty
}

// Resolved reports whether Src is usable.
func (r Resolution) Resolved() bool { return r.Src != "" }

type cacheKey struct {
	cat  Category
	name string
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// OnResolved is called from a fetch goroutine once an uploaded asset
	// became available, so the caller can render again.
	OnResolved func(cat Category, name string)
	// FetchTimeout bounds one store read; 0 means 30s.
	FetchTimeout time.Duration
}

// Resolver turns asset references into displayable srcs. Uploaded assets
// are fetched from the store in the background and cached by name; a name
// that failed once is not fetched again. It is safe for concurrent use.
type Resolver struct {
	store   Store
	catalog *Catalog
	opts    ResolverOptions
	group   singleflight.Group
	log     *slog.Logger

	mu     sync.Mutex
	cache  map[cacheKey]string
	failed map[cacheKey]bool
	closed bool
	wg     sync.WaitGroup
}

// NewResolver reads uploads from store (may be nil) and defaults from catalog (may be nil).
func NewResolver(store Store, catalog *Catalog, opts ResolverOptions) *Resolver {
	if catalog == nil {
		catalog = NewCatalog()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	return &Resolver{
		store:   store,
		catalog: catalog,
		opts:    opts,
		log:     applog.WithComponent("assets").With(slog.String("part", "resolver")),
		cache:   map[cacheKey]string{},
		failed:  map[cacheKey]bool{},
	}
}

// Catalog returns the default catalog in use.
func (r *Resolver) Catalog() *Catalog { return r.catalog }

// Resolve never blocks. Order: inline src, cached upload (fetch started on
// a miss), default catalog by name, placeholder.
func (r *Resolver) Resolve(cat Category, ref Ref) Resolution {
	if res, done := r.resolveLocal(cat, ref); done {
		return res
	}
	r.fetchAsync(cacheKey{cat, ref.Name})
	return Resolution{Source: SourcePending, Placeholder: Placeholder(cat)}
}

// ResolveNow is Resolve but waits for a missing upload, for callers without
// a render loop such as exporters.
func (r *Resolver) ResolveNow(ctx context.Context, cat Category, ref Ref) Resolution {
	if res, done := r.resolveLocal(cat, ref); done {
		return res
	}
	k := cacheKey{cat, ref.Name}
	if src, ok := r.fetch(ctx, k); ok {
		return Resolution{Src: src, Source: SourceUploaded}
	}
	return Resolution{Source: SourcePlaceholder, Placeholder: Placeholder(cat)}
}

func (r *Resolver) resolveLocal(cat Category, ref Ref) (Resolution, bool) {
	if ref.Src != "" {
		return Resolution{Src: ref.Src, Source: SourceInline}, true
	}
	if ref.IsUploaded && ref.Name != "" {
		k := cacheKey{cat, ref.Name}
		r.mu.Lock()
		src, ok := r.cache[k]
		failed := r.failed[k]
		r.mu.Unlock()
		if ok {
			return Resolution{Src: src, Source: SourceUploaded}, true
		}
		if failed || r.store == nil {
			return Resolution{Source: SourcePlaceholder, Placeholder: Placeholder(cat)}, true
		}
		return Resolution{}, false
	}
	if src, ok := r.catalog.Lookup(cat, ref.Name); ok {
		return Resolution{Src: src, Source: SourceDefault}, true
	}
	return Resolution{Source: SourcePlaceholder, Placeholder: Placeholder(cat)}, true
}

// Lookup returns a cached upload without fetching, for layout.Rehydrate.
func (r *Resolver) Lookup(cat Category, name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.cache[cacheKey{cat, name}]
	return src, ok
}

// Prime stores a known src for an upload, e.g. right after the user uploaded it.
func (r *Resolver) Prime(cat Category, name, src string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[cacheKey{cat, name}] = src
	delete(r.failed, cacheKey{cat, name})
}

// Forget drops a cached or failed name so the next Resolve fetches it again.
func (r *Resolver) Forget(cat Category, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, cacheKey{cat, name})
	delete(r.failed, cacheKey{cat, name})
}

func (r *Resolver) fetchAsync(k cacheKey) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	go func() {
		defer r.wg.Done()
		if _, ok := r.fetch(context.Background(), k); ok {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if !closed && r.opts.OnResolved != nil {
				r.opts.OnResolved(k.cat, k.name)
			}
		}
	}()
}

// fetch reads k from the store once per name, shared by concurrent callers.
func (r *Resolver) fetch(ctx context.Context, k cacheKey) (string, bool) {
	v, _, _ := r.group.Do(string(k.cat)+"/"+k.name, func() (any, error) {
		r.mu.Lock()
		if src, ok := r.cache[k]; ok {
			r.mu.Unlock()
			return src, nil
		}
		r.mu.Unlock()

		fctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
		defer cancel()
		a, err := r.store.Get(fctx, k.cat, k.name)

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.log.Debug("asset fetch failed", slog.String("category", string(k.cat)), slog.String("name", k.name), slog.Any("err", err))
			if !r.closed {
				r.failed[k] = true
			}
			return "", nil
		}
		src := DataURI(a.ContentType, a.Data)
		if !r.closed {
			r.cache[k] = src
		}
		return src, nil
	})
	src, _ := v.(string)
	return src, src != ""
}

// Wait blocks until background fetches started so far have finished.
func (r *Resolver) Wait() { r.wg.Wait() }

// Close stops new background fetches; results of running ones are dropped.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}
