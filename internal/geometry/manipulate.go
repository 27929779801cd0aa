/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import "math"

// DefaultMinSize is the smallest width or height an element can be resized to.
const DefaultMinSize = 50

// aspectTolerance is the relative ratio deviation accepted before the
// aspect lock corrects a free resize.
const aspectTolerance = 0.01

// Ratio is an aspect ratio such as 16:9.
type Ratio struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Valid reports whether the ratio can be divided by safely.
func (r Ratio) Valid() bool { return r.W > 0 && r.H > 0 }

// Value returns W/H.
func (r Ratio) Value() float64 { return r.W / r.H }

// ClampTranslate keeps an element of the given size fully inside the canvas.
// Per axis the result is max(0, min(canvas-elem, proposed)).
func ClampTranslate(proposed Pt, elem Size, canvas Size) Pt {
	return Pt{
		X: math.Max(0, math.Min(canvas.W-elem.W, proposed.X)),
		Y: math.Max(0, math.Min(canvas.H-elem.H, proposed.Y)),
	}
}

// Resize describes one step of a resize gesture anchored at Origin (the
// element's top-left corner, which never moves).
type Resize struct {
	Start   Size   // size when the gesture began
	Delta   Pt     // pointer movement since the gesture began
	Origin  Pt     // fixed top-left corner
	Ratio   *Ratio // optional aspect lock
	Canvas  Size
	MinSize float64 // 0 means DefaultMinSize
}

// ResizeWithAspectLock computes the new element size for a bottom-right handle drag.
//
// Without a ratio each side is clamped independently into [min, canvas-origin].
// With a ratio, a free result deviating by more than 1% is corrected: the axis
// with the larger absolute pointer delta drives and the other side is derived,
// then re-clamped. Equal deltas let the height drive. The derived side may end
// up clamped, in which case the ratio is not exact.
func ResizeWithAspectLock(r Resize) Size {
	minSize := r.MinSize
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	maxW := r.Canvas.W - r.Origin.X
	maxH := r.Canvas.H - r.Origin.Y

	w := math.Max(minSize, math.Min(maxW, r.Start.W+r.Delta.X))
	h := math.Max(minSize, math.Min(maxH, r.Start.H+r.Delta.Y))

	if r.Ratio == nil || !r.Ratio.Valid() {
		return Size{W: w, H: h}
	}
	target := r.Ratio.Value()
	if math.Abs(w/h-target) <= aspectTolerance {
		return Size{W: w, H: h}
	}
	if math.Abs(r.Delta.X) > math.Abs(r.Delta.Y) {
		h = math.Max(math.Min(w/target, maxH), minSize)
	} else {
		w = math.Max(math.Min(h*target, maxW), minSize)
	}
	return Size{W: w, H: h}
}

// AngleFromPointer returns the direction from center to p in degrees, in [0,360).
func AngleFromPointer(p, center Pt) float64 {
	deg := math.Atan2(p.Y-center.Y, p.X-center.X) * 180 / math.Pi
	return NormalizeDegrees(deg)
}

// NormalizeDegrees folds any finite angle into [0,360).
func NormalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// RotationStep returns the rotation after a rotate gesture moved the pointer
// from startAngle to angle, rounded to whole degrees and kept in [0,360).
func RotationStep(startRotation, startAngle, angle float64) float64 {
	return NormalizeDegrees(math.Round(NormalizeDegrees(startRotation + (angle - startAngle))))
}

// FitRatio returns the largest size with ratio r fitting into bounds, rounded to whole units.
func FitRatio(r Ratio, bounds Size) Size {
	if !r.Valid() {
		return bounds
	}
	s := math.Min(bounds.W/r.W, bounds.H/r.H)
	return Size{W: math.Round(r.W * s), H: math.Round(r.H * s)}
}
