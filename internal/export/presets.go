/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes a rendered gallery to PNG or JPEG images (one per
// tile), a ZIP of those images with a manifest, a PDF with one page per tile
// or an SVG preview of the whole gallery.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	applog "gallerybuilder/internal/log"
	"gallerybuilder/internal/telemetry"
	"gallerybuilder/internal/textlayout"
	"gallerybuilder/internal/tiling"
)

// Format is an export target.
type Format string

const (
	FormatPNG Format = "png"
	FormatJPG Format = "jpg"
	FormatZIP Format = "zip"
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
)

// Formats lists the supported formats.
var Formats = []Format{FormatPDF, FormatZIP, FormatJPG, FormatPNG, FormatSVG}

// ParseFormat accepts a format name; jpeg is an alias of jpg.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatJPG, FormatZIP, FormatPDF, FormatSVG:
		return f, nil
	case "jpeg":
		return FormatJPG, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Quality is a named raster preset.
type Quality string

const (
	QualityLow      Quality = "low"
	QualityMedium   Quality = "medium"
	QualityHigh     Quality = "high"
	QualityOriginal Quality = "original"
)

// ParseQuality accepts a preset name; empty means high.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(s))); q {
	case "":
		return QualityHigh, nil
	case QualityLow, QualityMedium, QualityHigh, QualityOriginal:
		return q, nil
	}
	return "", fmt.Errorf("unknown export quality %q", s)
}

// Scale is the pixel density relative to the rendered gallery.
func (q Quality) Scale() float64 {
	switch q {
	case QualityLow:
		return 0.5
	case QualityMedium:
		return 1
	case QualityOriginal:
		return 3
	}
	return 2
}

// JPEGQuality is the encoder quality used for jpg output.
func (q Quality) JPEGQuality() int {
	switch q {
	case QualityLow:
		return 60
	case QualityMedium:
		return 75
	case QualityOriginal:
		return 100
	}
	return 90
}

// Size caps the long side of every raster tile. SizeOriginal leaves the
// quality scale alone.
type Size string

const (
	SizeSmall    Size = "small"
	SizeMedium   Size = "medium"
	SizeLarge    Size = "large"
	SizeOriginal Size = "original"
)

// ParseSize accepts a size name; empty means original.
func ParseSize(s string) (Size, error) {
	switch sz := Size(strings.ToLower(strings.TrimSpace(s))); sz {
	case "":
		return SizeOriginal, nil
	case SizeSmall, SizeMedium, SizeLarge, SizeOriginal:
		return sz, nil
	}
	return "", fmt.Errorf("unknown export size %q", s)
}

// MaxSide returns the long-side cap in pixels, 0 for no cap.
func (s Size) MaxSide() int {
	switch s {
	case SizeSmall:
		return 800
	case SizeMedium:
		return 1500
	case SizeLarge:
		return 2500
	}
	return 0
}

// Options controls an export.
type Options struct {
	Format  Format
	Quality Quality
	Size    Size
	// IncludeMetadata draws photo captions onto raster output and adds
	// per-photo entries to the ZIP manifest.
	IncludeMetadata bool
	Title           string
	// Loader fetches photo and asset images. Nil uses a default loader.
	Loader *Loader
	// Text draws labels. Nil uses basicfont.
	Text textlayout.Provider
}

// Result describes what was written.
type Result struct {
	Format Format
	Files  []string
	Tiles  int
}

// ErrEmptyGallery is returned when there is nothing to export.
var ErrEmptyGallery = errors.New("gallery has no tiles")

// rasterScale combines the quality preset with the size cap.
func rasterScale(g tiling.Gallery, opt Options) float64 {
	s := opt.Quality.Scale()
	if limit := opt.Size.MaxSide(); limit > 0 {
		long := max(g.TileSize.W, g.TileSize.H)
		if long*s > float64(limit) {
			s = float64(limit) / long
		}
	}
	return s
}

// Export writes g to out. For png and jpg out is a directory receiving
// one file per tile; for the other formats it is the file to create.
func Export(ctx context.Context, g tiling.Gallery, out string, opt Options) (Result, error) {
	l := applog.WithOperation(applog.WithComponent("export"), "export")
	if opt.Format == "" {
		opt.Format = FormatPNG
	}
	if opt.Quality == "" {
		opt.Quality = QualityHigh
	}
	if opt.Size == "" {
		opt.Size = SizeOriginal
	}
	if opt.Title == "" {
		opt.Title = "Gallery"
	}
	if opt.Loader == nil {
		opt.Loader = NewLoader(nil, 0)
	}
	if len(g.Tiles) == 0 && opt.Format != FormatSVG {
		return Result{}, ErrEmptyGallery
	}
	start := time.Now()

	res := Result{Format: opt.Format, Tiles: len(g.Tiles)}
	var err error
	switch opt.Format {
	case FormatPNG, FormatJPG:
		res.Files, err = ExportImages(ctx, g, out, opt)
	case FormatZIP:
		err = ExportZIP(ctx, g, out, opt)
		res.Files = []string{out}
	case FormatPDF:
		err = ExportPDF(ctx, g, out, opt)
		res.Files = []string{out}
	case FormatSVG:
		err = ExportSVG(g, out, opt)
		res.Files = []string{out}
	default:
		return Result{}, fmt.Errorf("unknown format: %s", opt.Format)
	}
	if err != nil {
		l.Error("export failed", slog.String("format", string(opt.Format)), slog.Any("err", err))
		return Result{}, fmt.Errorf("export %s: %w", opt.Format, err)
	}
	l.Info("export finished",
		slog.String("format", string(opt.Format)),
		slog.String("out", filepath.Base(out)),
		slog.Int("tiles", res.Tiles),
		slog.Duration("took", time.Since(start)))
	telemetry.Event(telemetry.ExportFinished, map[string]any{
		"format":  string(opt.Format),
		"quality": string(opt.Quality),
		"tiles":   res.Tiles,
	})
	return res, nil
}
