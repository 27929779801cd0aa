//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"bytes"
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	// decoders for inline asset images
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/editor"
	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/layout"
)

var (
	colWorkspace   = color.NRGBA{R: 0xF3, G: 0xF4, B: 0xF6, A: 0xFF}
	colCanvas      = color.White
	colPhoto       = color.NRGBA{R: 0xE5, G: 0xE7, B: 0xEB, A: 0xFF}
	colOutline     = color.NRGBA{R: 0x9C, G: 0xA3, B: 0xAF, A: 0xFF}
	colSelection   = color.NRGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF}
	colGuide       = color.NRGBA{R: 0xEC, G: 0x48, B: 0x99, A: 0xFF}
	colTransparent = color.Transparent
)

// LayoutCanvas draws an editor surface and feeds mouse input to a Controller.
type LayoutCanvas struct {
	widget.BaseWidget
	ctrl     *Controller
	resolver *assets.Resolver
	vp       editor.Viewport

	mu     sync.Mutex
	images map[string]image.Image // decoded inline srcs
}

var (
	_ desktop.Mouseable = (*LayoutCanvas)(nil)
	_ desktop.Hoverable = (*LayoutCanvas)(nil)
	_ fyne.Draggable    = (*LayoutCanvas)(nil)
)

func NewLayoutCanvas(ctrl *Controller, resolver *assets.Resolver) *LayoutCanvas {
	c := &LayoutCanvas{ctrl: ctrl, resolver: resolver, images: map[string]image.Image{}}
	c.ExtendBaseWidget(c)
	return c
}

func (c *LayoutCanvas) MinSize() fyne.Size { return fyne.NewSize(480, 360) }

func (c *LayoutCanvas) toCanvas(pos fyne.Position) geometry.Pt {
	return c.vp.ToCanvas(geometry.Pt{X: float64(pos.X), Y: float64(pos.Y)})
}

func (c *LayoutCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	c.ctrl.Down(c.toCanvas(e.Position), c.vp.Scale)
	c.Refresh()
}

func (c *LayoutCanvas) MouseUp(e *desktop.MouseEvent) {
	c.ctrl.Up(c.toCanvas(e.Position))
	c.Refresh()
}

func (c *LayoutCanvas) MouseIn(*desktop.MouseEvent) {}

func (c *LayoutCanvas) MouseMoved(e *desktop.MouseEvent) {
	if c.ctrl.Busy() {
		c.ctrl.Move(c.toCanvas(e.Position))
		c.Refresh()
	}
}

func (c *LayoutCanvas) Dragged(e *fyne.DragEvent) {
	c.ctrl.Move(c.toCanvas(e.Position))
	c.Refresh()
}

func (c *LayoutCanvas) DragEnd() {
	if c.ctrl.Busy() {
		c.ctrl.Up(geometry.Pt{})
		c.Refresh()
	}
}

// MouseOut ends a gesture when the pointer leaves the widget, as a
// window-level pointer-up would.
func (c *LayoutCanvas) MouseOut() {
	if c.ctrl.Busy() {
		c.ctrl.Up(geometry.Pt{})
		c.Refresh()
	}
}

// image returns the decoded image for an inline src, or nil.
func (c *LayoutCanvas) image(src string) image.Image {
	if !assets.IsInline(src) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if img, ok := c.images[src]; ok {
		return img
	}
	var img image.Image
	if data, _, err := assets.DecodeDataURI(src); err == nil {
		img, _, _ = image.Decode(bytes.NewReader(data))
	}
	c.images[src] = img
	return img
}

func (c *LayoutCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &layoutRenderer{c: c, bg: canvas.NewRectangle(colWorkspace), sheet: canvas.NewRectangle(colCanvas)}
}

type layoutRenderer struct {
	c       *LayoutCanvas
	bg      *canvas.Rectangle
	sheet   *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *layoutRenderer) Destroy()                     {}
func (r *layoutRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *layoutRenderer) MinSize() fyne.Size           { return r.c.MinSize() }
func (r *layoutRenderer) Refresh()                     { r.Layout(r.c.Size()); canvas.Refresh(r.c) }

// Layout rebuilds the scene; surfaces hold few elements.
func (r *layoutRenderer) Layout(size fyne.Size) {
	s := r.c.ctrl.Surface()
	r.c.vp = s.FitViewport(geometry.Size{W: float64(size.Width), H: float64(size.Height)})
	vp := r.c.vp
	screen := func(rc geometry.Rect) (fyne.Position, fyne.Size) {
		p := vp.ToScreen(rc.Min())
		return fyne.NewPos(float32(p.X), float32(p.Y)), fyne.NewSize(float32(rc.W*vp.Scale), float32(rc.H*vp.Scale))
	}

	r.bg.Resize(size)
	cs := s.CanvasSize()
	pos, sz := screen(geometry.Rect{W: cs.W, H: cs.H})
	r.sheet.Move(pos)
	r.sheet.Resize(sz)
	r.objects = append(r.objects[:0], r.bg, r.sheet)

	for _, e := range s.RenderOrder() {
		// fyne cannot rotate objects; rotated elements show their bounds
		box := geometry.RotatedBounds(e.Frame, e.Rotation)
		for _, o := range r.element(e) {
			pos, sz := screen(box)
			o.Move(pos)
			o.Resize(sz)
			r.objects = append(r.objects, o)
		}
	}
	for _, g := range s.Guides() {
		ln := canvas.NewLine(colGuide)
		ln.StrokeWidth = 1
		a, b := vp.ToScreen(g.From), vp.ToScreen(g.To)
		ln.Position1 = fyne.NewPos(float32(a.X), float32(a.Y))
		ln.Position2 = fyne.NewPos(float32(b.X), float32(b.Y))
		r.objects = append(r.objects, ln)
	}
	if e, ok := s.Element(s.Selected()); ok {
		r.objects = append(r.objects, r.selection(e, screen)...)
	}
}

func (r *layoutRenderer) element(e layout.Element) []fyne.CanvasObject {
	var res assets.Resolution
	if cat, ok := layout.CategoryOf(e.Kind()); ok && r.c.resolver != nil {
		ref, _ := layout.AssetOf(e.Payload)
		res = r.c.resolver.Resolve(cat, ref)
	}
	if img := r.c.image(res.Src); img != nil {
		ci := canvas.NewImageFromImage(img)
		ci.FillMode = canvas.ImageFillStretch
		if b, ok := e.Payload.(layout.Background); ok && b.Opacity != nil && *b.Opacity > 0 {
			ci.Translucency = 1 - *b.Opacity
		}
		return []fyne.CanvasObject{ci}
	}
	switch p := e.Payload.(type) {
	case layout.Photo:
		rect := canvas.NewRectangle(colPhoto)
		rect.StrokeColor, rect.StrokeWidth = colOutline, 1
		label := canvas.NewText("Photo", colOutline)
		label.Alignment = fyne.TextAlignCenter
		return []fyne.CanvasObject{rect, label}
	case layout.Sticker:
		glyph := p.Emoji
		if glyph == "" {
			glyph = res.Placeholder
		}
		t := canvas.NewText(glyph, color.Black)
		t.Alignment = fyne.TextAlignCenter
		t.TextSize = float32(e.Frame.H * r.c.vp.Scale * 0.6)
		return []fyne.CanvasObject{t}
	case layout.FrameDecor:
		rect := canvas.NewRectangle(colTransparent)
		rect.StrokeColor = parseColor(p.Color, color.NRGBA{R: 0x1F, G: 0x29, B: 0x37, A: 0xFF})
		rect.StrokeWidth = float32(max(1, p.Thickness*r.c.vp.Scale))
		if p.Style == layout.FrameRounded {
			rect.CornerRadius = float32(12 * r.c.vp.Scale)
		}
		return []fyne.CanvasObject{rect}
	case layout.Background:
		return []fyne.CanvasObject{canvas.NewRectangle(colPhoto)}
	}
	return nil
}

func (r *layoutRenderer) selection(e layout.Element, screen func(geometry.Rect) (fyne.Position, fyne.Size)) []fyne.CanvasObject {
	outline := canvas.NewRectangle(colTransparent)
	outline.StrokeColor, outline.StrokeWidth = colSelection, 2
	pos, sz := screen(geometry.RotatedBounds(e.Frame, e.Rotation))
	outline.Move(pos)
	outline.Resize(sz)
	objs := []fyne.CanvasObject{outline}

	rot := geometry.RotateAround(e.Frame.Center(), e.Rotation)
	resize, rotate := HandleRects(e.Frame, r.c.vp.Scale)
	place := func(o fyne.CanvasObject, h geometry.Rect) {
		c := rot.Apply(h.Center())
		pos, sz := screen(geometry.Rect{X: c.X - h.W/2, Y: c.Y - h.H/2, W: h.W, H: h.H})
		o.Move(pos)
		o.Resize(sz)
		objs = append(objs, o)
	}
	if e.Kind() != layout.KindBackground {
		place(canvas.NewRectangle(colSelection), resize)
	}
	place(canvas.NewCircle(colSelection), rotate)
	return objs
}

// parseColor reads #rrggbb, falling back to def.
func parseColor(s string, def color.Color) color.Color {
	if len(s) != 7 || s[0] != '#' {
		return def
	}
	var v [3]uint8
	for i := range v {
		hi, ok1 := hexNibble(s[1+2*i])
		lo, ok2 := hexNibble(s[2+2*i])
		if !ok1 || !ok2 {
			return def
		}
		v[i] = hi<<4 | lo
	}
	return color.NRGBA{R: v[0], G: v[1], B: v[2], A: 0xFF}
}

func hexNibble(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}
