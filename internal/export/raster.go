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
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"gallerybuilder/internal/fsutil"
	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/layout"
	"gallerybuilder/internal/textlayout"
	"gallerybuilder/internal/tiling"
)

const labelSize = 13

var (
	colWhite       = color.RGBA{255, 255, 255, 255}
	colPlaceholder = color.RGBA{0xE5, 0xE7, 0xEB, 255}
	colOutline     = color.RGBA{0x9C, 0xA3, 0xAF, 255}
	colLabel       = color.RGBA{0x37, 0x41, 0x51, 255}
	colFrame       = color.RGBA{0x1F, 0x29, 0x37, 255}
	colCaptionBand = color.RGBA{255, 255, 255, 210}
)

// Rasterizer draws tiles of one gallery at a fixed pixel density.
type Rasterizer struct {
	g      tiling.Gallery
	scale  float64
	images map[string]image.Image
	text   textlayout.Provider
	meta   bool
}

// NewRasterizer loads every image the gallery references and returns a
// rasterizer for it.
func NewRasterizer(ctx context.Context, g tiling.Gallery, opt Options) *Rasterizer {
	ld := opt.Loader
	if ld == nil {
		ld = NewLoader(nil, 0)
	}
	if opt.Quality == "" {
		opt.Quality = QualityHigh
	}
	text := opt.Text
	if text == nil {
		text = textlayout.BasicProvider{}
	}
	return &Rasterizer{
		g:      g,
		scale:  rasterScale(g, opt),
		images: ld.Load(ctx, gallerySources(g)),
		text:   text,
		meta:   opt.IncludeMetadata,
	}
}

func gallerySources(g tiling.Gallery) []string {
	var srcs []string
	if g.Background != nil {
		srcs = append(srcs, g.Background.Src)
	}
	for _, t := range g.Tiles {
		for _, it := range t.Items {
			srcs = append(srcs, it.Src)
		}
	}
	return srcs
}

// Scale is the number of pixels per gallery unit.
func (r *Rasterizer) Scale() float64 { return r.scale }

// TileBounds is the pixel size of every tile.
func (r *Rasterizer) TileBounds() image.Rectangle {
	w := max(1, int(math.Round(r.g.TileSize.W*r.scale)))
	h := max(1, int(math.Round(r.g.TileSize.H*r.scale)))
	return image.Rect(0, 0, w, h)
}

// Tile draws tile t: the pinned background, then every item in painter's order.
func (r *Rasterizer) Tile(t tiling.Tile) *image.RGBA {
	dst := image.NewRGBA(r.TileBounds())
	draw.Draw(dst, dst.Bounds(), image.NewUniform(colWhite), image.Point{}, draw.Src)
	if r.g.Background != nil {
		r.drawBackground(dst, *r.g.Background, t.Origin)
	}
	for _, it := range t.Items {
		layer := r.itemLayer(it)
		if layer == nil {
			continue
		}
		r.place(dst, layer, it)
	}
	return dst
}

func (r *Rasterizer) drawBackground(dst *image.RGBA, it tiling.Item, origin geometry.Pt) {
	k := r.scale
	img, ok := r.images[it.Src]
	if !ok {
		c, ok := parseHexColor(it.Fill)
		if !ok {
			c = colPlaceholder
		}
		draw.DrawMask(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, opacityMask(it.Opacity), image.Point{}, draw.Over)
		return
	}
	// cover the whole gallery extent; only the part over this tile lands in dst
	sb := img.Bounds()
	ext := it.Frame
	s := math.Max(ext.W/float64(sb.Dx()), ext.H/float64(sb.Dy()))
	ox := ext.X + (ext.W-float64(sb.Dx())*s)/2 - origin.X
	oy := ext.Y + (ext.H-float64(sb.Dy())*s)/2 - origin.Y
	aff := f64.Aff3{
		k * s, 0, k*ox - k*s*float64(sb.Min.X),
		0, k * s, k*oy - k*s*float64(sb.Min.Y),
	}
	xdraw.ApproxBiLinear.Transform(dst, aff, img, sb, xdraw.Over, &xdraw.Options{SrcMask: opacityMask(it.Opacity)})
}

// itemLayer renders the unrotated content of an item at raster scale.
func (r *Rasterizer) itemLayer(it tiling.Item) *image.RGBA {
	w := int(math.Round(it.Frame.W * r.scale))
	h := int(math.Round(it.Frame.H * r.scale))
	if w <= 0 || h <= 0 {
		return nil
	}
	layer := image.NewRGBA(image.Rect(0, 0, w, h))
	img, loaded := r.images[it.Src]

	switch it.Kind {
	case layout.KindPhoto:
		if loaded {
			drawCover(layer, img)
		} else {
			r.placeholder(layer, photoLabel(it))
		}
		if r.meta && it.Photo != nil && it.Photo.Caption != "" {
			r.captionBand(layer, it.Photo.Caption)
		}
	case layout.KindSticker:
		switch {
		case loaded:
			drawContain(layer, img)
		case it.Src != "":
			r.placeholder(layer, orDefault(it.Name, "sticker"))
		default:
			textlayout.DrawCentered(layer, r.text, labelSize*r.scale, orDefault(it.Text, it.Name), layer.Bounds(), colLabel)
		}
	case layout.KindFrame:
		if loaded {
			xdraw.CatmullRom.Scale(layer, layer.Bounds(), img, img.Bounds(), xdraw.Over, nil)
		} else {
			r.frameBorder(layer, it)
		}
	default:
		return nil
	}
	return layer
}

// place composites layer over dst at the item's frame, rotated about its
// center when the item carries a transform.
func (r *Rasterizer) place(dst *image.RGBA, layer *image.RGBA, it tiling.Item) {
	k := r.scale
	if len(it.Transform) != 6 {
		at := image.Pt(int(math.Round(it.Frame.X*k)), int(math.Round(it.Frame.Y*k)))
		draw.Draw(dst, layer.Bounds().Add(at), layer, image.Point{}, draw.Over)
		return
	}
	m := geometry.Affine2D{A: it.Transform[0], B: it.Transform[1], C: it.Transform[2], D: it.Transform[3], E: it.Transform[4], F: it.Transform[5]}
	full := geometry.Scale(k, k).Mul(m).Mul(geometry.Translate(it.Frame.X, it.Frame.Y)).Mul(geometry.Scale(1/k, 1/k))
	aff := f64.Aff3{full.A, full.C, full.E, full.B, full.D, full.F}
	xdraw.CatmullRom.Transform(dst, aff, layer, layer.Bounds(), xdraw.Over, nil)
}

func (r *Rasterizer) placeholder(layer *image.RGBA, label string) {
	b := layer.Bounds()
	draw.Draw(layer, b, image.NewUniform(colPlaceholder), image.Point{}, draw.Src)
	strokeRect(layer, b.Min.X, b.Min.Y, b.Max.X-1, b.Max.Y-1, colOutline)
	textlayout.DrawCentered(layer, r.text, labelSize*r.scale, label, b.Inset(4), colLabel)
}

func (r *Rasterizer) captionBand(layer *image.RGBA, caption string) {
	b := layer.Bounds()
	_, lh := textlayout.Measure(r.text, labelSize*r.scale, caption)
	bandH := min(int(lh)+8, b.Dy()/3)
	band := image.Rect(b.Min.X, b.Max.Y-bandH, b.Max.X, b.Max.Y)
	draw.Draw(layer, band, image.NewUniform(colCaptionBand), image.Point{}, draw.Over)
	textlayout.DrawCentered(layer, r.text, labelSize*r.scale, caption, band, colLabel)
}

// frameBorder draws a frame decoration whose image could not be rasterized.
// Thickness is in canvas units; polaroid frames get a deeper bottom edge.
func (r *Rasterizer) frameBorder(layer *image.RGBA, it tiling.Item) {
	style := layout.FrameStyle(it.FrameStyle)
	c, ok := parseHexColor(it.Color)
	if !ok {
		c = colFrame
		if style == layout.FramePolaroid {
			c = colWhite
		}
	}
	th := it.Thickness
	if th <= 0 {
		th = 8
	}
	px := max(1, int(math.Round(th*r.g.Scale*r.scale)))
	b := layer.Bounds()
	bottom := px
	if style == layout.FramePolaroid {
		bottom = min(px*4, b.Dy()/3)
	}
	u := image.NewUniform(c)
	draw.Draw(layer, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+px), u, image.Point{}, draw.Src)
	draw.Draw(layer, image.Rect(b.Min.X, b.Max.Y-bottom, b.Max.X, b.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(layer, image.Rect(b.Min.X, b.Min.Y, b.Min.X+px, b.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(layer, image.Rect(b.Max.X-px, b.Min.Y, b.Max.X, b.Max.Y), u, image.Point{}, draw.Src)
}

// drawCover scales img to fill dst, cropping the overflow evenly.
func drawCover(dst *image.RGBA, img image.Image) {
	db, sb := dst.Bounds(), img.Bounds()
	s := math.Max(float64(db.Dx())/float64(sb.Dx()), float64(db.Dy())/float64(sb.Dy()))
	cw := int(math.Round(float64(db.Dx()) / s))
	ch := int(math.Round(float64(db.Dy()) / s))
	x0 := sb.Min.X + (sb.Dx()-cw)/2
	y0 := sb.Min.Y + (sb.Dy()-ch)/2
	xdraw.CatmullRom.Scale(dst, db, img, image.Rect(x0, y0, x0+cw, y0+ch), xdraw.Over, nil)
}

// drawContain scales img to fit inside dst, centered.
func drawContain(dst *image.RGBA, img image.Image) {
	db, sb := dst.Bounds(), img.Bounds()
	s := math.Min(float64(db.Dx())/float64(sb.Dx()), float64(db.Dy())/float64(sb.Dy()))
	w := int(math.Round(float64(sb.Dx()) * s))
	h := int(math.Round(float64(sb.Dy()) * s))
	x0 := db.Min.X + (db.Dx()-w)/2
	y0 := db.Min.Y + (db.Dy()-h)/2
	xdraw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), img, sb, xdraw.Over, nil)
}

func opacityMask(op float64) image.Image {
	if op <= 0 || op >= 1 {
		return nil
	}
	return image.NewUniform(color.Alpha{A: uint8(math.Round(op * 255))})
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

// parseHexColor accepts #rgb, #rrggbb and #rrggbbaa.
func parseHexColor(s string) (color.RGBA, bool) {
	h, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return color.RGBA{}, false
	}
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

func photoLabel(it tiling.Item) string {
	if it.Photo != nil && it.Photo.Caption != "" {
		return it.Photo.Caption
	}
	return fmt.Sprintf("Photo %d", it.PhotoIndex+1)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// encodeTile writes img as png or jpg.
func encodeTile(img image.Image, f Format, q Quality) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if f == FormatJPG {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: q.JPEGQuality()})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}

func tileFileName(i int, f Format) string {
	return fmt.Sprintf("tile-%03d.%s", i+1, f)
}

// ExportImages writes one png or jpg per tile into dir and returns the paths.
func ExportImages(ctx context.Context, g tiling.Gallery, dir string, opt Options) ([]string, error) {
	if opt.Format != FormatJPG {
		opt.Format = FormatPNG
	}
	rz := NewRasterizer(ctx, g, opt)
	files := make([]string, 0, len(g.Tiles))
	for i, t := range g.Tiles {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		data, err := encodeTile(rz.Tile(t), opt.Format, opt.Quality)
		if err != nil {
			return files, err
		}
		name := filepath.Join(dir, tileFileName(i, opt.Format))
		if err := fsutil.WriteFileAtomic(name, data); err != nil {
			return files, fmt.Errorf("write %s: %w", filepath.Base(name), err)
		}
		files = append(files, name)
	}
	return files, nil
}
