/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"log/slog"
	"math"

	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/layout"
	applog "gallerybuilder/internal/log"
)

// DragThreshold is the pointer travel that turns a press into a drag.
const DragThreshold = 5

// State is the gesture state of a manipulator.
type State int

const (
	Idle State = iota
	Pending
	Dragging
	Resizing
	Rotating
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	case Rotating:
		return "rotating"
	}
	return "idle"
}

// Target is the element collection a manipulator edits. The editor surface implements it.
type Target interface {
	Element(id string) (layout.Element, bool)
	Select(id string)
	UpdateElement(id string, p layout.Patch) error
	CanvasSize() geometry.Size
}

// Measurer reports the live on-screen box of an element in canvas units,
// if the UI has laid it out.
type Measurer interface {
	Measure(id string) (geometry.Rect, bool)
}

// Snapper adjusts a proposed frame while dragging, for example with smart guides.
type Snapper interface {
	Snap(id string, proposed geometry.Rect) geometry.Rect
}

// Options tunes a Manipulator. Zero values select the defaults.
type Options struct {
	DragThreshold float64
	MinSize       float64
	Measurer      Measurer
	Snapper       Snapper
}

type gestureStart struct {
	pointer  geometry.Pt
	frame    geometry.Rect
	rotation float64
	angle    float64
	center   geometry.Pt
}

// Manipulator runs the drag, resize and rotate gestures of one element.
// It is driven from a single goroutine, the UI loop.
type Manipulator struct {
	id      string
	target  Target
	hub     *Hub
	opts    Options
	state   State
	session Session
	start   gestureStart
	log     *slog.Logger
}

// NewManipulator binds element id of target to pointer events from hub.
func NewManipulator(id string, target Target, hub *Hub, opts Options) *Manipulator {
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = DragThreshold
	}
	if opts.MinSize <= 0 {
		opts.MinSize = geometry.DefaultMinSize
	}
	return &Manipulator{
		id:     id,
		target: target,
		hub:    hub,
		opts:   opts,
		log:    applog.WithComponent("gesture").With(slog.String("element", id)),
	}
}

// State returns the current gesture state.
func (m *Manipulator) State() State { return m.state }

// BodyDown handles a press on the element body. The element is selected;
// backgrounds stop there. Otherwise a drag becomes pending until the pointer
// travels past the threshold. A press while resizing or rotating is ignored.
func (m *Manipulator) BodyDown(p geometry.Pt) bool {
	if m.state == Resizing || m.state == Rotating {
		return false
	}
	e, ok := m.target.Element(m.id)
	if !ok {
		return false
	}
	m.target.Select(m.id)
	if e.Kind() == layout.KindBackground {
		return false
	}
	m.begin(Pending, gestureStart{pointer: p, frame: e.Frame})
	return true
}

// ResizeDown handles a press on the bottom-right resize handle.
func (m *Manipulator) ResizeDown(p geometry.Pt) bool {
	if m.busy() {
		return false
	}
	e, ok := m.target.Element(m.id)
	if !ok {
		return false
	}
	m.target.Select(m.id)
	if e.Kind() == layout.KindBackground {
		return false
	}
	m.begin(Resizing, gestureStart{pointer: p, frame: e.Frame})
	return true
}

// RotateDown handles a press on the rotate handle. Backgrounds may rotate.
func (m *Manipulator) RotateDown(p geometry.Pt) bool {
	if m.busy() {
		return false
	}
	e, ok := m.target.Element(m.id)
	if !ok {
		return false
	}
	m.target.Select(m.id)
	center := e.Frame.Center()
	if m.opts.Measurer != nil {
		if box, ok := m.opts.Measurer.Measure(m.id); ok && !box.Size().Empty() {
			center = box.Center()
		}
	}
	m.begin(Rotating, gestureStart{
		pointer:  p,
		frame:    e.Frame,
		rotation: e.Rotation,
		angle:    geometry.AngleFromPointer(p, center),
		center:   center,
	})
	return true
}

// Close ends any active gesture and releases its listener, as on unmount.
func (m *Manipulator) Close() {
	m.end()
}

func (m *Manipulator) busy() bool {
	return m.state == Dragging || m.state == Resizing || m.state == Rotating
}

func (m *Manipulator) begin(s State, start gestureStart) {
	m.state = s
	m.start = start
	m.session.Start(m.hub, ListenerFuncs{Move: m.move, Up: m.up})
	m.log.Debug("gesture start", slog.String("state", s.String()))
}

func (m *Manipulator) end() {
	if m.state != Idle {
		m.log.Debug("gesture end", slog.String("state", m.state.String()))
	}
	m.state = Idle
	m.session.End()
}

func (m *Manipulator) up(geometry.Pt) { m.end() }

func (m *Manipulator) move(p geometry.Pt) {
	delta := p.Sub(m.start.pointer)
	switch m.state {
	case Pending:
		if math.Hypot(delta.X, delta.Y) <= m.opts.DragThreshold {
			return
		}
		m.state = Dragging
		m.drag(delta)
	case Dragging:
		m.drag(delta)
	case Resizing:
		m.resize(delta)
	case Rotating:
		m.rotate(p)
	}
}

func (m *Manipulator) drag(delta geometry.Pt) {
	proposed := m.start.frame.Moved(m.start.frame.Min().Add(delta))
	if m.opts.Snapper != nil {
		proposed = m.opts.Snapper.Snap(m.id, proposed)
	}
	pos := geometry.ClampTranslate(proposed.Min(), proposed.Size(), m.target.CanvasSize())
	m.apply(layout.FramePatch(proposed.Moved(pos)))
}

func (m *Manipulator) resize(delta geometry.Pt) {
	var ratio *geometry.Ratio
	if e, ok := m.target.Element(m.id); ok {
		ratio = e.AspectRatio()
	}
	size := geometry.ResizeWithAspectLock(geometry.Resize{
		Start:   m.start.frame.Size(),
		Delta:   delta,
		Origin:  m.start.frame.Min(),
		Ratio:   ratio,
		Canvas:  m.target.CanvasSize(),
		MinSize: m.opts.MinSize,
	})
	f := m.start.frame
	f.W, f.H = size.W, size.H
	m.apply(layout.FramePatch(f))
}

func (m *Manipulator) rotate(p geometry.Pt) {
	angle := geometry.AngleFromPointer(p, m.start.center)
	m.apply(layout.RotationPatch(geometry.RotationStep(m.start.rotation, m.start.angle, angle)))
}

func (m *Manipulator) apply(p layout.Patch) {
	if err := m.target.UpdateElement(m.id, p); err != nil {
		// element removed mid-gesture
		m.log.Debug("gesture update dropped", slog.Any("err", err))
		m.end()
	}
}
