/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"math"

	"gallerybuilder/internal/geometry"
)

// Minimum space the canvas view gets, and the padding kept around it.
const (
	minViewW    = 400
	minViewH    = 300
	viewPadding = 64
)

// Viewport maps the canvas into a container on screen.
type Viewport struct {
	Scale  float64     // canvas units to screen pixels, at most 1
	Origin geometry.Pt // top-left of the canvas inside the container
}

// FitViewport scales the canvas down, never up, to fit container minus
// padding. The available area never drops below 400x300.
func FitViewport(canvas, container geometry.Size) Viewport {
	availW := math.Max(minViewW, container.W-viewPadding)
	availH := math.Max(minViewH, container.H-viewPadding)
	scale := 1.0
	if !canvas.Empty() {
		scale = math.Min(math.Min(availW/canvas.W, availH/canvas.H), 1)
	}
	return Viewport{
		Scale: scale,
		Origin: geometry.Pt{
			X: math.Max(0, (container.W-canvas.W*scale)/2),
			Y: math.Max(0, (container.H-canvas.H*scale)/2),
		},
	}
}

// FitViewport fits this surface's canvas into container.
func (s *Surface) FitViewport(container geometry.Size) Viewport {
	return FitViewport(s.canvas, container)
}

// ToCanvas converts a container position to canvas units.
func (v Viewport) ToCanvas(p geometry.Pt) geometry.Pt {
	if v.Scale == 0 {
		return p
	}
	return geometry.Pt{X: (p.X - v.Origin.X) / v.Scale, Y: (p.Y - v.Origin.Y) / v.Scale}
}

// ToScreen converts canvas units to a container position.
func (v Viewport) ToScreen(p geometry.Pt) geometry.Pt {
	return geometry.Pt{X: p.X*v.Scale + v.Origin.X, Y: p.Y*v.Scale + v.Origin.Y}
}
