/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gallerybuilder/internal/tiling"
)

// ManifestName is the manifest entry written into every ZIP export.
const ManifestName = "manifest.json"

// Manifest describes the contents of a ZIP export.
type Manifest struct {
	Title     string          `json:"title"`
	CreatedAt time.Time       `json:"createdAt"`
	Quality   Quality         `json:"quality"`
	Direction string          `json:"direction"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Tiles     []ManifestTile  `json:"tiles"`
	Photos    []ManifestPhoto `json:"photos,omitempty"`
}

// ManifestTile is one image of the archive.
type ManifestTile struct {
	Index  int    `json:"index"`
	File   string `json:"file"`
	Photos int    `json:"photos"`
}

// ManifestPhoto locates a photo of the collection inside the archive.
type ManifestPhoto struct {
	ID      string `json:"id"`
	Caption string `json:"caption,omitempty"`
	Tile    int    `json:"tile"`
	Slot    int    `json:"slot"`
}

// ExportZIP writes every tile as a png into a zip at outPath, followed by
// the manifest.
func ExportZIP(ctx context.Context, g tiling.Gallery, outPath string, opt Options) error {
	rz := NewRasterizer(ctx, g, opt)
	b := rz.TileBounds()
	man := Manifest{
		Title:     opt.Title,
		CreatedAt: time.Now().UTC(),
		Quality:   opt.Quality,
		Direction: string(g.Direction),
		Width:     b.Dx(),
		Height:    b.Dy(),
	}

	zw, f, err := createZip(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	for i, t := range g.Tiles {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return err
		}
		data, err := encodeTile(rz.Tile(t), FormatPNG, opt.Quality)
		if err != nil {
			_ = zw.Close()
			return err
		}
		name := tileFileName(i, FormatPNG)
		if err := addZipFile(zw, name, data); err != nil {
			_ = zw.Close()
			return fmt.Errorf("zip add %s: %w", name, err)
		}
		mt := ManifestTile{Index: i, File: name}
		for _, it := range t.Items {
			if it.Photo == nil {
				continue
			}
			mt.Photos++
			if opt.IncludeMetadata {
				man.Photos = append(man.Photos, ManifestPhoto{ID: it.Photo.ID, Caption: it.Photo.Caption, Tile: i, Slot: it.Slot})
			}
		}
		man.Tiles = append(man.Tiles, mt)
	}

	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := addZipFile(zw, ManifestName, data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("zip add manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close zip file: %w", err)
	}
	return nil
}

func createZip(outPath string) (*zip.Writer, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create zip: %w", err)
	}
	return zip.NewWriter(f), f, nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
