/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui hosts the desktop layout editor. The fyne window is built with
// -tags fyne; the pointer routing and handle geometry in this file are
// toolkit independent.
package ui

import (
	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/editor"
	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/gesture"
	"gallerybuilder/internal/layout"
	"gallerybuilder/internal/photos"
	"gallerybuilder/internal/storage"
	"gallerybuilder/internal/tiling"
)

// Options wires the editor window to the rest of the application.
type Options struct {
	Registry *storage.Registry
	// Assets holds uploaded assets; Catalog the bundled defaults. Either may be nil.
	Assets    assets.Store
	Catalog   *assets.Catalog
	Photos    photos.Provider
	Surface   editor.Options
	Gesture   gesture.Options
	Direction tiling.Direction
	// LayoutID opens a saved layout on start.
	LayoutID string
}

// Handle is the part of an element a press landed on.
type Handle int

const (
	HandleNone Handle = iota
	HandleBody
	HandleResize
	HandleRotate
)

// Handle sizes in screen pixels.
const (
	handlePx       = 12
	rotateOffsetPx = 24
)

// HandleRects returns the resize and rotate handle boxes of frame in canvas
// units, before rotation. scale is screen pixels per canvas unit.
func HandleRects(frame geometry.Rect, scale float64) (resize, rotate geometry.Rect) {
	if scale <= 0 {
		scale = 1
	}
	s := handlePx / scale
	resize = geometry.R(frame.X+frame.W-s/2, frame.Y+frame.H-s/2, s, s)
	c := frame.Center()
	rotate = geometry.R(c.X-s/2, frame.Y-rotateOffsetPx/scale-s/2, s, s)
	return resize, rotate
}

// HitHandle reports which handle of e is under p. Backgrounds have no
// resize handle.
func HitHandle(e layout.Element, p geometry.Pt, scale float64) Handle {
	// undo the element rotation so handles can be tested axis aligned
	local := geometry.RotateAround(e.Frame.Center(), -e.Rotation).Apply(p)
	resize, rotate := HandleRects(e.Frame, scale)
	switch {
	case rotate.Contains(local):
		return HandleRotate
	case e.Kind() != layout.KindBackground && resize.Contains(local):
		return HandleResize
	case e.Frame.Contains(local):
		return HandleBody
	}
	return HandleNone
}

// Controller routes pointer events from a canvas widget to the surface.
// One manipulator exists per element; all share a pointer hub.
type Controller struct {
	surface *editor.Surface
	hub     *gesture.Hub
	opts    gesture.Options
	manips  map[string]*gesture.Manipulator
}

// NewController binds s. A nil Snapper defaults to the surface's smart guides.
func NewController(s *editor.Surface, opts gesture.Options) *Controller {
	if opts.Snapper == nil {
		opts.Snapper = s
	}
	return &Controller{surface: s, hub: gesture.NewHub(), opts: opts, manips: map[string]*gesture.Manipulator{}}
}

// Surface returns the edited surface.
func (c *Controller) Surface() *editor.Surface { return c.surface }

func (c *Controller) manip(id string) *gesture.Manipulator {
	m, ok := c.manips[id]
	if !ok {
		m = gesture.NewManipulator(id, c.surface, c.hub, c.opts)
		c.manips[id] = m
	}
	return m
}

// Down handles a press at p in canvas units. Handles of the selected
// element win over bodies of elements stacked above it.
func (c *Controller) Down(p geometry.Pt, scale float64) Handle {
	if id := c.surface.Selected(); id != "" {
		if e, ok := c.surface.Element(id); ok {
			switch HitHandle(e, p, scale) {
			case HandleResize:
				if c.manip(id).ResizeDown(p) {
					return HandleResize
				}
			case HandleRotate:
				if c.manip(id).RotateDown(p) {
					return HandleRotate
				}
			}
		}
	}
	id := c.surface.PointerDown(p)
	if id == "" {
		return HandleNone
	}
	c.manip(id).BodyDown(p)
	return HandleBody
}

// Move forwards pointer motion to the active gesture, if any.
func (c *Controller) Move(p geometry.Pt) { c.hub.Move(p) }

// Up ends the active gesture.
func (c *Controller) Up(p geometry.Pt) { c.hub.Up(p) }

// Busy reports whether a gesture is in progress.
func (c *Controller) Busy() bool { return c.hub.Len() > 0 }

// DeleteSelected removes the selected element.
func (c *Controller) DeleteSelected() error {
	id := c.surface.Selected()
	if id == "" {
		return editor.ErrNoSuchElement
	}
	if err := c.surface.DeleteElement(id); err != nil {
		return err
	}
	c.Sync()
	return nil
}

// Sync drops manipulators of elements that no longer exist, as after
// Load or a delete.
func (c *Controller) Sync() {
	for id, m := range c.manips {
		if _, ok := c.surface.Element(id); !ok {
			m.Close()
			delete(c.manips, id)
		}
	}
}
