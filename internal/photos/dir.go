/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package photos

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"gallerybuilder/internal/layout"
	applog "gallerybuilder/internal/log"
)

var photoExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true}

// DirProvider lists the images of a directory tree, sorted by path.
// Dimensions are read from the image headers; files that do not decode are skipped.
type DirProvider struct {
	root string
}

func NewDirProvider(root string) *DirProvider { return &DirProvider{root: root} }

func (d *DirProvider) Photos(ctx context.Context) ([]layout.PhotoItem, error) {
	l := applog.WithOperation(applog.WithComponent("photos"), "scan").With(slog.String("dir", d.root))
	root, err := filepath.Abs(d.root)
	if err != nil {
		return nil, fmt.Errorf("resolve photo dir: %w", err)
	}
	var paths []string
	err = filepath.WalkDir(root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.IsDir() {
			if p != root && strings.HasPrefix(e.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if photoExts[strings.ToLower(filepath.Ext(p))] {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan photo dir: %w", err)
	}
	sort.Strings(paths)

	out := make([]layout.PhotoItem, 0, len(paths))
	for _, p := range paths {
		cfg, err := decodeConfig(p)
		if err != nil {
			l.Warn("skip unreadable photo", slog.String("file", p), slog.Any("err", err))
			continue
		}
		rel, _ := filepath.Rel(root, p)
		base := filepath.Base(p)
		out = append(out, layout.PhotoItem{
			ID:      filepath.ToSlash(rel),
			Src:     (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String(),
			Width:   float64(cfg.Width),
			Height:  float64(cfg.Height),
			Caption: strings.TrimSuffix(base, filepath.Ext(base)),
		})
	}
	l.Debug("photo dir scanned", slog.Int("photos", len(out)))
	return out, nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}
