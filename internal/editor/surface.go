/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor holds the live element collection of a layout being edited.
// A Surface is owned by the UI loop and is not safe for concurrent use.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/layout"
	applog "gallerybuilder/internal/log"
)

var (
	// ErrNoSuchElement is returned for ids not present on the surface.
	ErrNoSuchElement = errors.New("no such element")
	// ErrBackgroundFixed is returned when an operation would move a background
	// off the full canvas or above other elements.
	ErrBackgroundFixed = errors.New("background frame is fixed to the canvas")
)

// Default element sizes.
var (
	DefaultPhotoFrame  = geometry.R(50, 50, 100, 100)
	DefaultStickerSize = geometry.Size{W: 100, H: 100}
	DefaultFrameSize   = geometry.Size{W: 200, H: 200}
)

// Options configures a new Surface.
type Options struct {
	Canvas geometry.Size // defaults to layout.DefaultCanvas
	// Rand places new elements; nil uses a randomly seeded source.
	Rand *rand.Rand
	// Snap enables smart-guide snapping while dragging when Threshold > 0.
	Snap geometry.SnapOptions
	// OnChange is called after every mutation, for example to repaint.
	OnChange func()
}

// Surface is the canvas being edited.
type Surface struct {
	canvas   geometry.Size
	elements []layout.Element
	selected string
	rnd      *rand.Rand
	snap     geometry.SnapOptions
	guides   []geometry.GuideLine
	onChange func()
	log      *slog.Logger
}

// New returns an empty surface.
func New(opts Options) *Surface {
	if opts.Canvas.Empty() {
		opts.Canvas = layout.DefaultCanvas
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Surface{
		canvas:   opts.Canvas,
		rnd:      opts.Rand,
		snap:     opts.Snap,
		onChange: opts.OnChange,
		log:      applog.WithComponent("editor"),
	}
}

// CanvasSize returns the fixed canvas size.
func (s *Surface) CanvasSize() geometry.Size { return s.canvas }

// Len returns the number of elements.
func (s *Surface) Len() int { return len(s.elements) }

// Elements returns a copy of the elements in insertion order.
func (s *Surface) Elements() []layout.Element {
	out := make([]layout.Element, len(s.elements))
	for i, e := range s.elements {
		out[i] = e.Clone()
	}
	return out
}

// Element returns a copy of the element with id.
func (s *Surface) Element(id string) (layout.Element, bool) {
	i := s.index(id)
	if i < 0 {
		return layout.Element{}, false
	}
	return s.elements[i].Clone(), true
}

func (s *Surface) index(id string) int {
	return slices.IndexFunc(s.elements, func(e layout.Element) bool { return e.ID == id })
}

func (s *Surface) changed(op string, attrs ...any) {
	applog.WithOperation(s.log, op).Debug("surface changed", attrs...)
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *Surface) add(e layout.Element) string {
	e.ID = layout.NewElementID()
	e.ZIndex = len(s.elements)
	s.elements = append(s.elements, e)
	s.changed("add", slog.String("id", e.ID), slog.String("kind", string(e.Kind())))
	return e.ID
}

// randomOrigin returns a uniformly random position keeping size fully inside the canvas.
func (s *Surface) randomOrigin(size geometry.Size) geometry.Pt {
	return geometry.Pt{
		X: s.rnd.Float64() * math.Max(0, s.canvas.W-size.W),
		Y: s.rnd.Float64() * math.Max(0, s.canvas.H-size.H),
	}
}

// AddPhoto adds a photo slot at the default frame.
func (s *Surface) AddPhoto() string {
	return s.add(layout.Element{Frame: DefaultPhotoFrame, Payload: layout.Photo{}})
}

// AddPhotoWithRatio adds a photo slot locked to r, sized to fit within
// min(200, 40% of the canvas width) by min(150, 40% of the canvas height)
// and placed at a random position inside the canvas.
func (s *Surface) AddPhotoWithRatio(r geometry.Ratio) string {
	if !r.Valid() {
		return s.AddPhoto()
	}
	size := geometry.FitRatio(r, geometry.Size{
		W: math.Min(200, s.canvas.W*0.4),
		H: math.Min(150, s.canvas.H*0.4),
	})
	pos := s.randomOrigin(size)
	rc := r
	return s.add(layout.Element{
		Frame:   geometry.Rect{X: pos.X, Y: pos.Y, W: size.W, H: size.H},
		Payload: layout.Photo{AspectRatio: &rc},
	})
}

// AddSticker adds a sticker at a random position.
func (s *Surface) AddSticker(st layout.Sticker) string {
	pos := s.randomOrigin(DefaultStickerSize)
	return s.add(layout.Element{Frame: geometry.Rect{X: pos.X, Y: pos.Y, W: DefaultStickerSize.W, H: DefaultStickerSize.H}, Payload: st.Normalized()})
}

// AddFrame adds a decorative frame at a random position.
func (s *Surface) AddFrame(f layout.FrameDecor) string {
	if !f.Style.Valid() {
		f.Style = layout.FrameSimple
	}
	pos := s.randomOrigin(DefaultFrameSize)
	return s.add(layout.Element{Frame: geometry.Rect{X: pos.X, Y: pos.Y, W: DefaultFrameSize.W, H: DefaultFrameSize.H}, Payload: f})
}

// AddBackground replaces any background with b. The new background covers
// the canvas and sits one below the lowest remaining element, never below 0.
func (s *Surface) AddBackground(b layout.Background) string {
	s.removeBackgrounds()
	z := 0
	if len(s.elements) > 0 {
		z = max(0, s.minZ()-1)
	}
	e := layout.Element{
		ID:      layout.NewElementID(),
		Frame:   geometry.Rect{W: s.canvas.W, H: s.canvas.H},
		ZIndex:  z,
		Payload: b,
	}
	s.elements = append(s.elements, e)
	s.changed("add_background", slog.String("id", e.ID), slog.Int("z", z))
	return e.ID
}

// ClearBackground removes the background, if any.
func (s *Surface) ClearBackground() {
	if s.removeBackgrounds() > 0 {
		s.changed("clear_background")
	}
}

func (s *Surface) removeBackgrounds() int {
	n := len(s.elements)
	s.elements = slices.DeleteFunc(s.elements, func(e layout.Element) bool {
		if e.Kind() != layout.KindBackground {
			return false
		}
		if e.ID == s.selected {
			s.selected = ""
		}
		return true
	})
	return n - len(s.elements)
}

// Background returns the background element, if present.
func (s *Surface) Background() (layout.Element, bool) {
	for _, e := range s.elements {
		if e.Kind() == layout.KindBackground {
			return e.Clone(), true
		}
	}
	return layout.Element{}, false
}

// DeleteElement removes id and clears the selection if it pointed at it.
func (s *Surface) DeleteElement(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("delete %q: %w", id, ErrNoSuchElement)
	}
	s.elements = slices.Delete(s.elements, i, i+1)
	if s.selected == id {
		s.selected = ""
	}
	s.changed("delete", slog.String("id", id))
	return nil
}

func (s *Surface) minZ() int {
	m := math.MaxInt
	for _, e := range s.elements {
		m = min(m, e.ZIndex)
	}
	return m
}

func (s *Surface) maxZ() int {
	m := math.MinInt
	for _, e := range s.elements {
		m = max(m, e.ZIndex)
	}
	return m
}

// BringToFront puts id above every other element. Backgrounds stay at the bottom.
func (s *Surface) BringToFront(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("bring to front %q: %w", id, ErrNoSuchElement)
	}
	if s.elements[i].Kind() == layout.KindBackground {
		return fmt.Errorf("bring to front %q: %w", id, ErrBackgroundFixed)
	}
	z := s.maxZ() + 1
	s.elements[i].ZIndex = z
	s.changed("bring_to_front", slog.String("id", id), slog.Int("z", z))
	return nil
}

// SendToBack puts id one below the lowest element, floored at 0 so repeated
// calls settle at 0.
func (s *Surface) SendToBack(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("send to back %q: %w", id, ErrNoSuchElement)
	}
	z := max(0, s.minZ()-1)
	s.elements[i].ZIndex = z
	s.changed("send_to_back", slog.String("id", id), slog.Int("z", z))
	return nil
}

// UpdateElement merges p into the element with id. A background may rotate
// but its frame cannot leave the canvas.
func (s *Surface) UpdateElement(id string, p layout.Patch) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("update %q: %w", id, ErrNoSuchElement)
	}
	cur := s.elements[i]
	if cur.Kind() == layout.KindBackground && p.Frame != nil && *p.Frame != (geometry.Rect{W: s.canvas.W, H: s.canvas.H}) {
		return fmt.Errorf("update %q: %w", id, ErrBackgroundFixed)
	}
	next, err := p.Apply(cur)
	if err != nil {
		return fmt.Errorf("update %q: %w", id, err)
	}
	s.elements[i] = next
	s.changed("update", slog.String("id", id))
	return nil
}

// Select makes id the selection. Unknown ids clear it.
func (s *Surface) Select(id string) {
	if s.index(id) < 0 {
		id = ""
	}
	if s.selected == id {
		return
	}
	s.selected = id
	s.changed("select", slog.String("id", id))
}

// Selected returns the selected id, or "".
func (s *Surface) Selected() string { return s.selected }

// ClearSelection deselects.
func (s *Surface) ClearSelection() { s.Select("") }

// RenderOrder returns the elements bottom to top: backgrounds first, then by
// z-index, ties kept in insertion order.
func (s *Surface) RenderOrder() []layout.Element {
	out := s.Elements()
	slices.SortStableFunc(out, func(a, b layout.Element) int {
		ab, bb := a.Kind() == layout.KindBackground, b.Kind() == layout.KindBackground
		if ab != bb {
			if ab {
				return -1
			}
			return 1
		}
		return a.ZIndex - b.ZIndex
	})
	return out
}

// HitTest returns the topmost element under p in canvas units, honouring rotation.
func (s *Surface) HitTest(p geometry.Pt) (layout.Element, bool) {
	order := s.RenderOrder()
	for i := len(order) - 1; i >= 0; i-- {
		if geometry.HitRotated(order[i].Frame, order[i].Rotation, p) {
			return order[i], true
		}
	}
	return layout.Element{}, false
}

// PointerDown selects the topmost element under p, or clears the selection
// when the press lands on empty canvas.
func (s *Surface) PointerDown(p geometry.Pt) string {
	e, ok := s.HitTest(p)
	if !ok {
		s.ClearSelection()
		return ""
	}
	s.Select(e.ID)
	return e.ID
}

// Snap aligns a dragged frame with the canvas and the other elements when
// snapping is enabled. The guides of the last call are kept for drawing.
func (s *Surface) Snap(id string, proposed geometry.Rect) geometry.Rect {
	if s.snap.Threshold <= 0 {
		s.guides = nil
		return proposed
	}
	anchors := []geometry.Anchor{{Rect: geometry.Rect{W: s.canvas.W, H: s.canvas.H}, Weight: 2}}
	for _, e := range s.elements {
		if e.ID == id || e.Kind() == layout.KindBackground {
			continue
		}
		anchors = append(anchors, geometry.Anchor{Rect: e.Frame, Weight: 1})
	}
	snapped, guides := geometry.ComputeSmartGuides(proposed, anchors, s.snap)
	s.guides = guides
	return snapped
}

// Guides returns the smart guides of the last snapped drag step.
func (s *Surface) Guides() []geometry.GuideLine { return s.guides }

// ExportLayout returns a deep-copied version 2 snapshot in insertion order.
func (s *Surface) ExportLayout() layout.Schema {
	return layout.Schema{
		ID:       layout.NewSchemaID(),
		Canvas:   s.canvas,
		Elements: s.Elements(),
		Version:  layout.VersionCurrent,
	}
}

// Load replaces the surface content with a copy of sc. Only the first
// background survives and it is pinned to the canvas.
func (s *Surface) Load(sc layout.Schema) {
	if !sc.Canvas.Empty() {
		s.canvas = sc.Canvas
	}
	s.elements = s.elements[:0]
	s.selected = ""
	haveBackground := false
	for _, e := range sc.Elements {
		e = e.Clone()
		if e.Payload == nil {
			e.Payload = layout.Photo{}
		}
		if e.Kind() == layout.KindBackground {
			if haveBackground {
				continue
			}
			haveBackground = true
			e.Frame = geometry.Rect{W: s.canvas.W, H: s.canvas.H}
		}
		if e.ID == "" {
			e.ID = layout.NewElementID()
		}
		s.elements = append(s.elements, e)
	}
	s.changed("load", slog.Int("elements", len(s.elements)))
}
