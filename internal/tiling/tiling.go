/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tiling turns a layout schema and a photo collection into a
// gallery render plan: the schema is repeated as a tile once per group of
// photos, every photo slot of a tile taking the next photo in order.
//
// Render is pure given its inputs and the resolver's cache. It is not safe
// for concurrent use with the same Input.
package tiling

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/layout"
	applog "gallerybuilder/internal/log"
)

// Direction is the axis along which tiles are laid out.
type Direction string

const (
	Vertical   Direction = "vertical"
	Horizontal Direction = "horizontal"
)

// ParseDirection accepts vertical or horizontal; empty means vertical.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", Vertical:
		return Vertical, nil
	case Horizontal:
		return Horizontal, nil
	}
	return "", fmt.Errorf("unknown scroll direction %q", s)
}

// Scale limits applied when fitting a tile to the viewport.
const (
	MinScale = 0.5
	MaxScale = 3
)

// Input is everything a render depends on.
type Input struct {
	Schema    layout.Schema
	Photos    []layout.PhotoItem
	Viewport  geometry.Size // zero means not measured yet
	Direction Direction
	// Assets resolves sticker, frame and background images. Nil uses the
	// default catalog only.
	Assets *assets.Resolver
}

// Item is one draw operation. Frames are tile-local and already scaled.
type Item struct {
	ElementID string        `json:"elementId"`
	Kind      layout.Kind   `json:"kind"`
	Frame     geometry.Rect `json:"frame"`
	ZIndex    int           `json:"zIndex"`
	Rotation  float64       `json:"rotation,omitempty"`
	// Transform is the tile-local affine matrix [a b c d e f] rotating the
	// item about its center.
	Transform []float64 `json:"transform,omitempty"`

	// photo slots
	Slot       int               `json:"slot"`
	PhotoIndex int               `json:"photoIndex"`
	Photo      *layout.PhotoItem `json:"photo,omitempty"`

	// resolved image, or the text/fill to draw in its place
	Src         string        `json:"src,omitempty"`
	Source      assets.Source `json:"-"`
	Pending     bool          `json:"pending,omitempty"`
	Text        string        `json:"text,omitempty"`
	Fill        string        `json:"fill,omitempty"`
	Opacity     float64       `json:"opacity"`
	Name        string        `json:"name,omitempty"`
	FrameStyle  string        `json:"frameStyle,omitempty"`
	Color       string        `json:"color,omitempty"`
	Thickness   float64       `json:"thickness,omitempty"`
	AspectRatio *float64      `json:"aspectRatio,omitempty"`
}

// Tile is one repetition of the schema.
type Tile struct {
	Index  int         `json:"index"`
	Origin geometry.Pt `json:"origin"`
	Items  []Item      `json:"items"`
}

// Gallery is the render plan.
type Gallery struct {
	Direction    Direction     `json:"direction"`
	Scale        float64       `json:"scale"`
	Canvas       geometry.Size `json:"canvas"`
	TileSize     geometry.Size `json:"tileSize"`
	SlotsPerTile int           `json:"slotsPerTile"`
	PhotoCount   int           `json:"photoCount"`
	// Background is drawn once, pinned below all tiles. Nil when the
	// schema has none.
	Background *Item  `json:"background,omitempty"`
	Tiles      []Tile `json:"tiles"`
}

// Extent is the scrollable size of all tiles together.
func (g Gallery) Extent() geometry.Size {
	n := float64(len(g.Tiles))
	if g.Direction == Horizontal {
		return geometry.Size{W: g.TileSize.W * n, H: g.TileSize.H}
	}
	return geometry.Size{W: g.TileSize.W, H: g.TileSize.H * n}
}

// Pending reports whether any item still waits for an uploaded asset.
func (g Gallery) Pending() bool {
	if g.Background != nil && g.Background.Pending {
		return true
	}
	for _, t := range g.Tiles {
		for _, it := range t.Items {
			if it.Pending {
				return true
			}
		}
	}
	return false
}

var (
	defaultResolverOnce sync.Once
	defaultResolver     *assets.Resolver
)

func fallbackResolver() *assets.Resolver {
	defaultResolverOnce.Do(func() {
		defaultResolver = assets.NewResolver(nil, assets.DefaultCatalog(), assets.ResolverOptions{})
	})
	return defaultResolver
}

// ScaleFor fits canvas to the viewport along the cross axis of dir,
// clamped to [MinScale, MaxScale]. An unmeasured or non-finite viewport
// yields 1.
func ScaleFor(canvas, viewport geometry.Size, dir Direction) float64 {
	if !finite(viewport.W) || !finite(viewport.H) {
		return 1
	}
	var ratio float64
	if dir == Horizontal {
		if viewport.H <= 0 || canvas.H <= 0 {
			return 1
		}
		ratio = viewport.H / canvas.H
	} else {
		if viewport.W <= 0 || canvas.W <= 0 {
			return 1
		}
		ratio = viewport.W / canvas.W
	}
	return math.Min(math.Max(ratio, MinScale), MaxScale)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// TileCount is ceil(photos/slots) with slots floored to 1.
func TileCount(photos, slots int) int {
	if photos <= 0 {
		return 0
	}
	slots = max(slots, 1)
	return (photos + slots - 1) / slots
}

type tileElement struct {
	el   layout.Element
	slot int // photo slot, -1 for decorations
	z    int
}

// Render builds the gallery plan.
func Render(in Input) Gallery {
	l := applog.WithOperation(applog.WithComponent("tiling"), "render")
	res := in.Assets
	if res == nil {
		res = fallbackResolver()
	}
	dir := in.Direction
	if dir != Horizontal {
		dir = Vertical
	}
	canvas := in.Schema.Canvas
	if canvas.Empty() {
		canvas = layout.DefaultCanvas
	}
	scale := ScaleFor(canvas, in.Viewport, dir)
	tileSize := geometry.Size{W: canvas.W * scale, H: canvas.H * scale}

	var bg *layout.Element
	var elems []tileElement
	slots := 0
	for _, e := range in.Schema.Elements {
		if e.Kind() == layout.KindBackground {
			if bg == nil {
				b := e
				bg = &b
			}
			continue
		}
		te := tileElement{el: e, slot: -1, z: e.ZIndex}
		if e.Kind() == layout.KindPhoto {
			te.slot = slots
			slots++
		}
		elems = append(elems, te)
	}
	// painter's order, schema order breaks ties
	sort.SliceStable(elems, func(i, j int) bool { return elems[i].z < elems[j].z })

	g := Gallery{
		Direction:    dir,
		Scale:        scale,
		Canvas:       canvas,
		TileSize:     tileSize,
		SlotsPerTile: max(slots, 1),
		PhotoCount:   len(in.Photos),
	}
	n := TileCount(len(in.Photos), slots)
	g.Tiles = make([]Tile, 0, n)
	for t := 0; t < n; t++ {
		tile := Tile{Index: t, Origin: tileOrigin(t, tileSize, dir)}
		for _, te := range elems {
			it := baseItem(te.el, te.z, scale)
			if te.slot >= 0 {
				idx := t*g.SlotsPerTile + te.slot
				if idx >= len(in.Photos) {
					continue
				}
				p := in.Photos[idx]
				it.Slot, it.PhotoIndex, it.Photo = te.slot, idx, &p
				it.Src = p.Src
			} else {
				resolveDecoration(&it, te.el, res)
			}
			tile.Items = append(tile.Items, it)
		}
		g.Tiles = append(g.Tiles, tile)
	}

	if bg != nil {
		it := baseItem(*bg, bg.ZIndex, 1)
		ext := g.Extent()
		if ext.Empty() {
			ext = tileSize
		}
		it.Frame = geometry.Rect{W: ext.W, H: ext.H}
		it.Transform = nil
		resolveDecoration(&it, *bg, res)
		g.Background = &it
	}

	l.Debug("gallery rendered",
		slog.Int("tiles", len(g.Tiles)),
		slog.Int("slots", g.SlotsPerTile),
		slog.Int("photos", len(in.Photos)),
		slog.Float64("scale", scale),
		slog.Bool("pending", g.Pending()))
	return g
}

func tileOrigin(t int, size geometry.Size, dir Direction) geometry.Pt {
	if dir == Horizontal {
		return geometry.Pt{X: float64(t) * size.W}
	}
	return geometry.Pt{Y: float64(t) * size.H}
}

func baseItem(e layout.Element, z int, scale float64) Item {
	fr := e.Frame.Scale(scale)
	it := Item{
		ElementID:  e.ID,
		Kind:       e.Kind(),
		Frame:      fr,
		ZIndex:     z,
		Rotation:   e.Rotation,
		Slot:       -1,
		PhotoIndex: -1,
		Opacity:    1,
	}
	if e.Rotation != 0 {
		m := geometry.RotateAround(fr.Center(), e.Rotation)
		it.Transform = []float64{m.A, m.B, m.C, m.D, m.E, m.F}
	}
	if r := e.AspectRatio(); r != nil {
		v := r.Value()
		it.AspectRatio = &v
	}
	return it
}

func resolveDecoration(it *Item, e layout.Element, res *assets.Resolver) {
	ref, ok := layout.AssetOf(e.Payload)
	if !ok {
		return
	}
	cat, _ := layout.CategoryOf(e.Kind())
	r := res.Resolve(cat, ref)
	it.Src = r.Src
	it.Source = r.Source
	it.Pending = r.Source == assets.SourcePending
	it.Name = ref.Name

	switch p := e.Payload.(type) {
	case layout.Sticker:
		if !r.Resolved() {
			// an emoji sticker is not a missing asset
			it.Text = p.Emoji
			if it.Text == "" {
				it.Text = r.Placeholder
			}
		}
	case layout.FrameDecor:
		it.FrameStyle = string(p.Style)
		it.Color = p.Color
		it.Thickness = p.Thickness
		if !r.Resolved() {
			it.Text = r.Placeholder
		}
	case layout.Background:
		// zero opacity counts as unset
		if p.Opacity != nil && *p.Opacity > 0 {
			it.Opacity = math.Min(*p.Opacity, 1)
		}
		if !r.Resolved() {
			it.Fill = r.Placeholder
		}
	}
}
