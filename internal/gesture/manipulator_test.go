/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"errors"
	"testing"

	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/layout"
)

type fakeTarget struct {
	canvas   geometry.Size
	elems    map[string]layout.Element
	selected string
	updates  int
}

func newFakeTarget(elems ...layout.Element) *fakeTarget {
	t := &fakeTarget{canvas: geometry.Size{W: 1000, H: 650}, elems: map[string]layout.Element{}}
	for _, e := range elems {
		t.elems[e.ID] = e
	}
	return t
}

func (f *fakeTarget) Element(id string) (layout.Element, bool) {
	e, ok := f.elems[id]
	return e, ok
}

func (f *fakeTarget) Select(id string) { f.selected = id }

func (f *fakeTarget) UpdateElement(id string, p layout.Patch) error {
	e, ok := f.elems[id]
	if !ok {
		return errors.New("gone")
	}
	e, err := p.Apply(e)
	if err != nil {
		return err
	}
	f.elems[id] = e
	f.updates++
	return nil
}

func (f *fakeTarget) CanvasSize() geometry.Size { return f.canvas }

func photo(id string, r geometry.Rect) layout.Element {
	return layout.Element{ID: id, Frame: r, Payload: layout.Photo{}}
}

func TestHub_ReleaseIsIdempotent(t *testing.T) {
	h := NewHub()
	var moves int
	sub := h.Attach(ListenerFuncs{Move: func(geometry.Pt) { moves++ }})
	other := h.Attach(ListenerFuncs{})
	h.Move(geometry.Pt{})
	sub.Release()
	sub.Release()
	if h.Len() != 1 {
		t.Fatalf("expected 1 listener left, got %d", h.Len())
	}
	h.Move(geometry.Pt{})
	if moves != 1 {
		t.Fatalf("released listener still called: %d", moves)
	}
	other.Release()
	if h.Len() != 0 {
		t.Fatalf("expected empty hub")
	}
}

func TestHub_ListenerMayReleaseItselfDuringDispatch(t *testing.T) {
	h := NewHub()
	var sub *Subscription
	sub = h.Attach(ListenerFuncs{Up: func(geometry.Pt) { sub.Release() }})
	h.Up(geometry.Pt{})
	if h.Len() != 0 {
		t.Fatalf("expected listener to be gone")
	}
}

func TestDrag_Scenario(t *testing.T) {
	tg := newFakeTarget(photo("a", geometry.R(50, 50, 100, 100)))
	h := NewHub()
	m := NewManipulator("a", tg, h, Options{})
	if !m.BodyDown(geometry.Pt{X: 60, Y: 60}) {
		t.Fatalf("drag should start")
	}
	if tg.selected != "a" || m.State() != Pending || h.Len() != 1 {
		t.Fatalf("unexpected state after down: sel=%q state=%v listeners=%d", tg.selected, m.State(), h.Len())
	}
	h.Move(geometry.Pt{X: 600, Y: 60})
	h.Up(geometry.Pt{X: 600, Y: 60})
	got := tg.elems["a"].Frame
	if got != geometry.R(590, 50, 100, 100) {
		t.Fatalf("expected (590,50,100,100), got %+v", got)
	}
	if m.State() != Idle || h.Len() != 0 {
		t.Fatalf("gesture not cleaned up: state=%v listeners=%d", m.State(), h.Len())
	}
}

func TestDrag_BelowThresholdIsAClick(t *testing.T) {
	tg := newFakeTarget(photo("a", geometry.R(50, 50, 100, 100)))
	h := NewHub()
	m := NewManipulator("a", tg, h, Options{})
	m.BodyDown(geometry.Pt{X: 60, Y: 60})
	h.Move(geometry.Pt{X: 63, Y: 64}) // distance exactly 5
	h.Up(geometry.Pt{X: 63, Y: 64})
	if tg.updates != 0 || tg.elems["a"].Frame.X != 50 {
		t.Fatalf("micro move must not drag")
	}
}

func TestDrag_ClampedToCanvas(t *testing.T) {
	tg := newFakeTarget(photo("a", geometry.R(50, 50, 100, 100)))
	h := NewHub()
	m := NewManipulator("a", tg, h, Options{})
	m.BodyDown(geometry.Pt{X: 60, Y: 60})
	h.Move(geometry.Pt{X: 5000, Y: -400})
	if got := tg.elems["a"].Frame; got.X != 900 || got.Y != 0 {
		t.Fatalf("expected clamp to (900,0), got %+v", got)
	}
	m.Close()
}

func TestResize_AspectScenario(t *testing.T) {
	e := layout.Element{ID: "a", Frame: geometry.R(0, 0, 160, 90), Payload: layout.Photo{AspectRatio: &geometry.Ratio{W: 16, H: 9}}}
	tg := newFakeTarget(e)
	h := NewHub()
	m := NewManipulator("a", tg, h, Options{})
	if !m.ResizeDown(geometry.Pt{X: 160, Y: 90}) {
		t.Fatalf("resize should start")
	}
	h.Move(geometry.Pt{X: 240, Y: 100})
	h.Up(geometry.Pt{X: 240, Y: 100})
	if got := tg.elems["a"].Frame; got != geometry.R(0, 0, 240, 135) {
		t.Fatalf("expected 240x135 at origin, got %+v", got)
	}
}

func TestBackground_SelectOnlyButRotatable(t *testing.T) {
	bg := layout.Element{ID: "bg", Frame: geometry.R(0, 0, 1000, 650), Payload: layout.Background{}}
	tg := newFakeTarget(bg)
	h := NewHub()
	m := NewManipulator("bg", tg, h, Options{})
	if m.BodyDown(geometry.Pt{X: 10, Y: 10}) || m.ResizeDown(geometry.Pt{X: 1000, Y: 650}) {
		t.Fatalf("background must not drag or resize")
	}
	if tg.selected != "bg" || h.Len() != 0 {
		t.Fatalf("background press should select without listening")
	}
	// center (500,325); start due east, end due south: +90 degrees
	if !m.RotateDown(geometry.Pt{X: 600, Y: 325}) {
		t.Fatalf("background rotation should start")
	}
	h.Move(geometry.Pt{X: 500, Y: 425})
	h.Up(geometry.Pt{})
	if got := tg.elems["bg"].Rotation; got != 90 {
		t.Fatalf("expected rotation 90, got %v", got)
	}
}

type fixedMeasurer geometry.Rect

func (f fixedMeasurer) Measure(string) (geometry.Rect, bool) { return geometry.Rect(f), true }

func TestRotate_UsesMeasuredCenterAndWraps(t *testing.T) {
	e := photo("a", geometry.R(0, 0, 100, 100))
	e.Rotation = 350
	tg := newFakeTarget(e)
	h := NewHub()
	m := NewManipulator("a", tg, h, Options{Measurer: fixedMeasurer(geometry.R(100, 100, 100, 100))})
	// measured center (150,150); east -> south-east is +45
	m.RotateDown(geometry.Pt{X: 250, Y: 150})
	h.Move(geometry.Pt{X: 250, Y: 250})
	if got := tg.elems["a"].Rotation; got != 35 {
		t.Fatalf("expected 350+45 wrapped to 35, got %v", got)
	}
	m.Close()
}

func TestBodyDown_SuppressedWhileResizing(t *testing.T) {
	tg := newFakeTarget(photo("a", geometry.R(0, 0, 100, 100)))
	h := NewHub()
	m := NewManipulator("a", tg, h, Options{})
	m.ResizeDown(geometry.Pt{X: 100, Y: 100})
	if m.BodyDown(geometry.Pt{X: 50, Y: 50}) {
		t.Fatalf("drag start must be suppressed during resize")
	}
	if m.State() != Resizing || h.Len() != 1 {
		t.Fatalf("resize gesture disturbed: %v, %d listeners", m.State(), h.Len())
	}
	m.Close()
}

func TestClose_ReleasesListenerMidGesture(t *testing.T) {
	tg := newFakeTarget(photo("a", geometry.R(0, 0, 100, 100)))
	h := NewHub()
	m := NewManipulator("a", tg, h, Options{})
	m.BodyDown(geometry.Pt{X: 10, Y: 10})
	h.Move(geometry.Pt{X: 40, Y: 40})
	m.Close()
	m.Close()
	if h.Len() != 0 || m.State() != Idle {
		t.Fatalf("close must release listener; got %d", h.Len())
	}
	before := tg.updates
	h.Move(geometry.Pt{X: 90, Y: 90})
	if tg.updates != before {
		t.Fatalf("closed manipulator still updating")
	}
}

func TestElementRemovedMidGestureEndsGesture(t *testing.T) {
	tg := newFakeTarget(photo("a", geometry.R(0, 0, 100, 100)))
	h := NewHub()
	m := NewManipulator("a", tg, h, Options{})
	m.BodyDown(geometry.Pt{X: 10, Y: 10})
	delete(tg.elems, "a")
	h.Move(geometry.Pt{X: 90, Y: 90})
	if h.Len() != 0 || m.State() != Idle {
		t.Fatalf("expected gesture to end when its element disappears")
	}
}

type gridSnapper struct{}

func (gridSnapper) Snap(_ string, r geometry.Rect) geometry.Rect {
	r.X = float64(int(r.X/10) * 10)
	return r
}

func TestDrag_SnapperRunsBeforeClamp(t *testing.T) {
	tg := newFakeTarget(photo("a", geometry.R(0, 0, 100, 100)))
	h := NewHub()
	m := NewManipulator("a", tg, h, Options{Snapper: gridSnapper{}})
	m.BodyDown(geometry.Pt{})
	h.Move(geometry.Pt{X: 37, Y: 12})
	if got := tg.elems["a"].Frame; got.X != 30 || got.Y != 12 {
		t.Fatalf("expected snapped x=30, got %+v", got)
	}
	m.Close()
}
