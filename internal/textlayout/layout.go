/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures, wraps and draws the short labels that appear
// on rendered galleries: placeholder names, emoji stickers and captions.
package textlayout

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Metrics holds the vertical metrics of a face in pixels.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// LineHeight is the distance between two baselines.
func (m Metrics) LineHeight() float32 { return m.Ascent + m.Descent + m.LineGap }

// Provider hands out a face for a requested pixel size.
type Provider interface {
	Face(sizePx float64) (font.Face, Metrics)
}

// BasicProvider always answers with basicfont.Face7x13, whatever the size.
type BasicProvider struct{}

func (BasicProvider) Face(float64) (font.Face, Metrics) {
	return basicfont.Face7x13, metricsOf(basicfont.Face7x13)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// Box is the result of wrapping text into a maximum width.
type Box struct {
	Lines   []string
	Widths  []float32
	Width   float32
	Height  float32
	Metrics Metrics
}

// Wrap breaks text on spaces and newlines so that no line exceeds maxWidth,
// unless a single word is wider on its own. maxWidth <= 0 disables wrapping.
func Wrap(p Provider, sizePx float64, text string, maxWidth float32) Box {
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Face(sizePx)
	d := &font.Drawer{Face: face}
	box := Box{Metrics: met}
	flush := func(line string) {
		w := advance(d, line)
		box.Lines = append(box.Lines, line)
		box.Widths = append(box.Widths, w)
		if w > box.Width {
			box.Width = w
		}
		box.Height += met.LineHeight()
	}
	for _, para := range strings.Split(text, "\n") {
		cur := ""
		for _, word := range strings.Fields(para) {
			next := word
			if cur != "" {
				next = cur + " " + word
			}
			if cur != "" && maxWidth > 0 && advance(d, next) > maxWidth {
				flush(cur)
				next = word
			}
			cur = next
		}
		flush(cur)
	}
	return box
}

// Measure returns the width and line height of text on a single line.
func Measure(p Provider, sizePx float64, text string) (w, h float32) {
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Face(sizePx)
	return advance(&font.Drawer{Face: face}, text), met.Ascent + met.Descent
}

// DrawCentered wraps text to the width of r and draws it centered inside r.
// Lines that fall below r are dropped.
func DrawCentered(dst draw.Image, p Provider, sizePx float64, text string, r image.Rectangle, c color.Color) {
	if p == nil {
		p = BasicProvider{}
	}
	box := Wrap(p, sizePx, text, float32(r.Dx()))
	face, met := p.Face(sizePx)
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	y := float32(r.Min.Y) + (float32(r.Dy())-box.Height)/2 + met.Ascent
	for i, line := range box.Lines {
		if y-met.Ascent > float32(r.Max.Y) {
			break
		}
		x := float32(r.Min.X) + (float32(r.Dx())-box.Widths[i])/2
		d.Dot = fixed.P(int(x), int(y))
		d.DrawString(line)
		y += met.LineHeight()
	}
}

func advance(d *font.Drawer, s string) float32 {
	return float32(d.MeasureString(s)) / 64
}
