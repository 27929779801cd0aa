/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"errors"
	"fmt"

	"gallerybuilder/internal/geometry"
)

// ErrKindMismatch is returned when a patch tries to change an element's variant.
var ErrKindMismatch = errors.New("payload kind mismatch")

// Patch is a partial element update; nil fields are left unchanged.
type Patch struct {
	Frame    *geometry.Rect
	Rotation *float64
	ZIndex   *int
	Payload  Payload
}

// FramePatch is shorthand for a patch that only moves or resizes.
func FramePatch(r geometry.Rect) Patch { return Patch{Frame: &r} }

// RotationPatch is shorthand for a patch that only rotates.
func RotationPatch(deg float64) Patch { return Patch{Rotation: &deg} }

// Apply merges p into e. Rotations are normalized into [0,360).
func (p Patch) Apply(e Element) (Element, error) {
	if p.Payload != nil && p.Payload.Kind() != e.Kind() {
		return e, fmt.Errorf("patch %s with %s: %w", e.Kind(), p.Payload.Kind(), ErrKindMismatch)
	}
	out := e.Clone()
	if p.Frame != nil {
		out.Frame = *p.Frame
	}
	if p.Rotation != nil {
		out.Rotation = geometry.NormalizeDegrees(*p.Rotation)
	}
	if p.ZIndex != nil {
		out.ZIndex = *p.ZIndex
	}
	if p.Payload != nil {
		out.Payload = p.Payload.clone()
		if st, ok := out.Payload.(Sticker); ok {
			out.Payload = st.Normalized()
		}
	}
	return out, nil
}
