/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	applog "gallerybuilder/internal/log"
)

//go:embed defaults/*.svg
var defaultFS embed.FS

// CatalogEntry is one bundled asset.
type CatalogEntry struct {
	File string // file name with extension, e.g. frame-gold.svg
	URL  string // displayable src, a data URI for bundled files
}

// Catalog maps default asset names to URLs, per category. Lookups accept the
// file name or its lower-cased base name without extension.
type Catalog struct {
	entries map[Category]map[string]CatalogEntry
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: map[Category]map[string]CatalogEntry{}}
}

// BaseName strips the extension and lower-cases, so "Frame-Gold.PNG" becomes "frame-gold".
func BaseName(file string) string {
	file = path.Base(filepath.ToSlash(file))
	return strings.ToLower(strings.TrimSuffix(file, path.Ext(file)))
}

// Classify files an asset by name: background, bg or anything containing
// "background" is a background; anything starting with or containing "frame"
// is a frame; everything else is a sticker.
func Classify(file string) Category {
	base := BaseName(file)
	switch {
	case base == "background" || base == "bg" || strings.Contains(base, "background"):
		return Backgrounds
	case strings.HasPrefix(base, "frame") || strings.Contains(base, "frame"):
		return Frames
	default:
		return Stickers
	}
}

// Add registers file under its classified category and returns that category.
func (c *Catalog) Add(file, url string) Category {
	file = path.Base(filepath.ToSlash(file))
	cat := Classify(file)
	if c.entries[cat] == nil {
		c.entries[cat] = map[string]CatalogEntry{}
	}
	e := CatalogEntry{File: file, URL: url}
	c.entries[cat][file] = e
	c.entries[cat][BaseName(file)] = e
	return cat
}

// Lookup finds name in cat, first verbatim then by base name.
func (c *Catalog) Lookup(cat Category, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	m := c.entries[cat]
	if e, ok := m[name]; ok {
		return e.URL, true
	}
	if e, ok := m[BaseName(name)]; ok {
		return e.URL, true
	}
	return "", false
}

// Entries lists the distinct files of a category sorted by file name.
func (c *Catalog) Entries(cat Category) []CatalogEntry {
	seen := map[string]CatalogEntry{}
	for _, e := range c.entries[cat] {
		seen[e.File] = e
	}
	out := make([]CatalogEntry, 0, len(seen))
	for _, k := range slices.Sorted(maps.Keys(seen)) {
		out = append(out, seen[k])
	}
	return out
}

// Merge copies all entries of o into c, overriding same names.
func (c *Catalog) Merge(o *Catalog) {
	if o == nil {
		return
	}
	for cat, m := range o.entries {
		if c.entries[cat] == nil {
			c.entries[cat] = map[string]CatalogEntry{}
		}
		maps.Copy(c.entries[cat], m)
	}
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".svg": true, ".webp": true, ".gif": true}

func addFS(c *Catalog, fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !imageExts[strings.ToLower(path.Ext(p))] {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		c.Add(p, DataURI(ContentTypeFor(p, data), data))
		return nil
	})
}

// DefaultCatalog returns the catalog of bundled assets.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	if err := addFS(c, defaultFS, "defaults"); err != nil {
		applog.WithComponent("assets").Error("load default assets failed", slog.Any("err", err))
	}
	return c
}

// LoadCatalogDir adds every image below dir, recursively, to a new catalog.
func LoadCatalogDir(dir string) (*Catalog, error) {
	c := NewCatalog()
	if err := addFS(c, os.DirFS(dir), "."); err != nil {
		return nil, fmt.Errorf("load catalog dir %s: %w", dir, err)
	}
	return c, nil
}
