/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"gallerybuilder/internal/tiling"
	"gallerybuilder/internal/version"
)

// ExportPDF writes a PDF with one page per tile to outPath. Pages are sized
// in points, one point per gallery unit; tiles are embedded as JPEG, or PNG
// for the original quality preset.
func ExportPDF(ctx context.Context, g tiling.Gallery, outPath string, opt Options) error {
	rz := NewRasterizer(ctx, g, opt)
	pageW, pageH := g.TileSize.W, g.TileSize.H
	if pageW <= 0 || pageH <= 0 {
		return fmt.Errorf("invalid tile size %vx%v", pageW, pageH)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetTitle(opt.Title, true)
	pdf.SetCreator("gallerybuilder "+version.String(), true)
	pdf.SetCreationDate(time.Now())
	pdf.SetAutoPageBreak(false, 0)
	if opt.IncludeMetadata {
		pdf.SetSubject(fmt.Sprintf("%d photos in %d tiles", g.PhotoCount, len(g.Tiles)), true)
	}

	enc, imgType := FormatJPG, "JPG"
	if opt.Quality == QualityOriginal {
		enc, imgType = FormatPNG, "PNG"
	}
	for i, t := range g.Tiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := encodeTile(rz.Tile(t), enc, opt.Quality)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("tile-%d", i)
		imgOpt := gofpdf.ImageOptions{ImageType: imgType}
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: pageW, Ht: pageH})
		pdf.RegisterImageOptionsReader(name, imgOpt, bytes.NewReader(data))
		pdf.ImageOptions(name, 0, 0, pageW, pageH, false, imgOpt, 0, "")
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("pdf tile %d: %w", i+1, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
