/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package presentation arranges a photo collection in one of the fixed
// gallery styles: grid, masonry, polaroid and timeline. Custom layouts are
// handled by the tiling package instead.
package presentation

import (
	"fmt"
	"math"
	"strings"

	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/layout"
)

// Style is a gallery presentation.
type Style string

const (
	Grid     Style = "grid"
	Masonry  Style = "masonry"
	Polaroid Style = "polaroid"
	Timeline Style = "timeline"
)

// Styles lists the presentations in menu order.
var Styles = []Style{Grid, Masonry, Polaroid, Timeline}

// ParseStyle accepts a style name case-insensitively; empty means grid.
func ParseStyle(s string) (Style, error) {
	st := Style(strings.ToLower(strings.TrimSpace(s)))
	if st == "" {
		return Grid, nil
	}
	for _, v := range Styles {
		if v == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown gallery style %q", s)
}

// FrameStyle controls the corners of photo frames.
type FrameStyle string

const (
	Rounded FrameStyle = "rounded"
	Square  FrameStyle = "square"
)

// ParseFrameStyle accepts rounded or square; empty means rounded.
func ParseFrameStyle(s string) (FrameStyle, error) {
	switch FrameStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", Rounded:
		return Rounded, nil
	case Square:
		return Square, nil
	}
	return "", fmt.Errorf("unknown frame style %q", s)
}

const (
	gridGap          = 24
	polaroidGap      = 32
	polaroidPadding  = 12
	polaroidCaption  = 36 // caption top padding plus one text line
	timelineMaxWidth = 768
	timelineRail     = 16
	timelineInset    = 40
	timelineSpacing  = 40
	timelineCaption  = 28
	timelineDot      = 12
)

// polaroid tilt cycle in degrees
var polaroidTilt = []float64{-1, 1, -2, 2, 0}

// Options tune an arrangement.
type Options struct {
	// Width of the container; values below 1 are treated as 1.
	Width      float64
	FrameStyle FrameStyle
}

// Cell places one photo.
type Cell struct {
	PhotoIndex int              `json:"photoIndex"`
	Photo      layout.PhotoItem `json:"photo"`
	// Card is the outer box including padding and caption band; equal to
	// Image for styles without a card.
	Card         geometry.Rect `json:"card"`
	Image        geometry.Rect `json:"image"`
	Caption      string        `json:"caption,omitempty"`
	CaptionAt    geometry.Pt   `json:"captionAt"`
	Rotation     float64       `json:"rotation,omitempty"`
	CornerRadius float64       `json:"cornerRadius"`
	// Marker is the timeline dot, zero elsewhere.
	Marker geometry.Rect `json:"marker,omitzero"`
}

// Arrangement is a laid out presentation.
type Arrangement struct {
	Style   Style         `json:"style"`
	Columns int           `json:"columns"`
	Size    geometry.Size `json:"size"`
	Cells   []Cell        `json:"cells"`
	// Rail is the timeline's vertical line.
	Rail geometry.Rect `json:"rail,omitzero"`
}

// Columns returns the column count of style at width.
func Columns(style Style, width float64) int {
	switch style {
	case Timeline:
		return 1
	case Polaroid:
		switch {
		case width < 640:
			return 1
		case width < 1024:
			return 2
		case width < 1280:
			return 3
		}
		return 4
	}
	switch {
	case width < 768:
		return 1
	case width < 1024:
		return 2
	case width < 1280:
		return 3
	}
	return 4
}

// Arrange lays out photos in style. Unknown styles fall back to grid.
func Arrange(style Style, photos []layout.PhotoItem, o Options) Arrangement {
	o.Width = math.Max(o.Width, 1)
	if o.FrameStyle == "" {
		o.FrameStyle = Rounded
	}
	switch style {
	case Masonry:
		return masonry(photos, o)
	case Polaroid:
		return polaroid(photos, o)
	case Timeline:
		return timeline(photos, o)
	}
	return grid(photos, o)
}

func radius(fs FrameStyle, rounded float64) float64 {
	if fs == Square {
		return 0
	}
	return rounded
}

// heightFor returns the height of a photo shown w wide at its natural ratio.
func heightFor(p layout.PhotoItem, w float64) float64 {
	if r := p.Ratio(); r != nil {
		return w / r.Value()
	}
	return w
}

func columnWidth(width float64, cols int, gap float64) float64 {
	return math.Max((width-gap*float64(cols-1))/float64(cols), 1)
}

func grid(photos []layout.PhotoItem, o Options) Arrangement {
	cols := Columns(Grid, o.Width)
	cw := columnWidth(o.Width, cols, gridGap)
	a := Arrangement{Style: Grid, Columns: cols, Cells: make([]Cell, 0, len(photos))}
	for i, p := range photos {
		col, row := i%cols, i/cols
		r := geometry.R(float64(col)*(cw+gridGap), float64(row)*(cw+gridGap), cw, cw)
		a.Cells = append(a.Cells, Cell{PhotoIndex: i, Photo: p, Card: r, Image: r, CornerRadius: radius(o.FrameStyle, 24)})
	}
	rows := (len(photos) + cols - 1) / cols
	a.Size = geometry.Size{W: o.Width, H: math.Max(float64(rows)*(cw+gridGap)-gridGap, 0)}
	return a
}

func masonry(photos []layout.PhotoItem, o Options) Arrangement {
	cols := Columns(Masonry, o.Width)
	cw := columnWidth(o.Width, cols, gridGap)
	heights := make([]float64, cols)
	a := Arrangement{Style: Masonry, Columns: cols, Cells: make([]Cell, 0, len(photos))}
	for i, p := range photos {
		col := 0
		for c := 1; c < cols; c++ {
			if heights[c] < heights[col] {
				col = c
			}
		}
		h := heightFor(p, cw)
		r := geometry.R(float64(col)*(cw+gridGap), heights[col], cw, h)
		heights[col] += h + gridGap
		a.Cells = append(a.Cells, Cell{PhotoIndex: i, Photo: p, Card: r, Image: r, CornerRadius: radius(o.FrameStyle, 24)})
	}
	tallest := 0.0
	for _, h := range heights {
		tallest = math.Max(tallest, h)
	}
	a.Size = geometry.Size{W: o.Width, H: math.Max(tallest-gridGap, 0)}
	return a
}

func polaroid(photos []layout.PhotoItem, o Options) Arrangement {
	cols := Columns(Polaroid, o.Width)
	cw := columnWidth(o.Width, cols, polaroidGap)
	iw := math.Max(cw-2*polaroidPadding, 1)
	a := Arrangement{Style: Polaroid, Columns: cols, Cells: make([]Cell, 0, len(photos))}
	y, rowH := 0.0, 0.0
	for i, p := range photos {
		col := i % cols
		if col == 0 && i > 0 {
			y += rowH + polaroidGap
			rowH = 0
		}
		ih := heightFor(p, iw)
		card := geometry.R(float64(col)*(cw+polaroidGap), y, cw, ih+2*polaroidPadding+polaroidCaption)
		img := geometry.R(card.X+polaroidPadding, y+polaroidPadding, iw, ih)
		caption := p.Caption
		if caption == "" {
			caption = "Polaroid"
		}
		a.Cells = append(a.Cells, Cell{
			PhotoIndex:   i,
			Photo:        p,
			Card:         card,
			Image:        img,
			Caption:      caption,
			CaptionAt:    geometry.Pt{X: card.Center().X, Y: img.Y + ih + polaroidPadding},
			Rotation:     polaroidTilt[i%len(polaroidTilt)],
			CornerRadius: 16,
		})
		rowH = math.Max(rowH, card.H)
	}
	a.Size = geometry.Size{W: o.Width, H: y + rowH}
	return a
}

func timeline(photos []layout.PhotoItem, o Options) Arrangement {
	w := math.Min(o.Width, timelineMaxWidth)
	x0 := (o.Width - w) / 2
	iw := math.Max(w-timelineInset, 1)
	a := Arrangement{Style: Timeline, Columns: 1, Cells: make([]Cell, 0, len(photos))}
	y := 0.0
	for i, p := range photos {
		if i > 0 {
			y += timelineSpacing
		}
		ih := heightFor(p, iw)
		img := geometry.R(x0+timelineInset, y, iw, ih)
		caption := p.Caption
		if caption == "" {
			caption = fmt.Sprintf("Moment %d", i+1)
		}
		a.Cells = append(a.Cells, Cell{
			PhotoIndex:   i,
			Photo:        p,
			Card:         geometry.R(x0, y, w, ih+timelineCaption),
			Image:        img,
			Caption:      caption,
			CaptionAt:    geometry.Pt{X: img.X, Y: y + ih + 8},
			CornerRadius: radius(o.FrameStyle, 16),
			Marker:       geometry.R(x0+8, y+8, timelineDot, timelineDot),
		})
		y += ih + timelineCaption
	}
	a.Rail = geometry.R(x0+timelineRail, 0, 1, y)
	a.Size = geometry.Size{W: o.Width, H: y}
	return a
}
