/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"math/rand/v2"
	"testing"

	"gallerybuilder/internal/editor"
	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/gesture"
	"gallerybuilder/internal/layout"
)

func newController(t *testing.T) (*Controller, string) {
	t.Helper()
	s := editor.New(editor.Options{Rand: rand.New(rand.NewPCG(3, 4))})
	id := s.AddPhoto() // (50,50) 100x100
	return NewController(s, gesture.Options{}), id
}

func TestHandleRectsScaleWithZoom(t *testing.T) {
	f := geometry.R(0, 100, 200, 100)
	resize, rotate := HandleRects(f, 0.5)
	if resize.W != 24 || resize.X != 188 || resize.Y != 188 {
		t.Fatalf("resize handle = %+v", resize)
	}
	if rotate.Y != 100-48-12 || rotate.X != 88 {
		t.Fatalf("rotate handle = %+v", rotate)
	}
}

func TestHitHandle(t *testing.T) {
	e := layout.Element{ID: "p", Frame: geometry.R(50, 50, 100, 100), Payload: layout.Photo{}}
	cases := []struct {
		p    geometry.Pt
		want Handle
	}{
		{geometry.Pt{X: 100, Y: 100}, HandleBody},
		{geometry.Pt{X: 150, Y: 150}, HandleResize},
		{geometry.Pt{X: 100, Y: 26}, HandleRotate},
		{geometry.Pt{X: 400, Y: 400}, HandleNone},
	}
	for _, c := range cases {
		if got := HitHandle(e, c.p, 1); got != c.want {
			t.Errorf("HitHandle(%v) = %v, want %v", c.p, got, c.want)
		}
	}

	bg := layout.Element{ID: "b", Frame: geometry.R(0, 0, 1000, 650), Payload: layout.Background{}}
	if got := HitHandle(bg, geometry.Pt{X: 1000, Y: 650}, 1); got == HandleResize {
		t.Fatalf("background exposes a resize handle")
	}
}

func TestHitHandleFollowsRotation(t *testing.T) {
	e := layout.Element{ID: "p", Frame: geometry.R(0, 0, 100, 100), Rotation: 180, Payload: layout.Photo{}}
	// after a half turn the resize corner sits at the top-left
	if got := HitHandle(e, geometry.Pt{X: 0, Y: 0}, 1); got != HandleResize {
		t.Fatalf("HitHandle = %v, want resize", got)
	}
}

func TestControllerDragScenario(t *testing.T) {
	c, id := newController(t)
	if h := c.Down(geometry.Pt{X: 60, Y: 60}, 1); h != HandleBody {
		t.Fatalf("Down = %v, want body", h)
	}
	if !c.Busy() {
		t.Fatalf("expected a pending gesture")
	}
	c.Move(geometry.Pt{X: 600, Y: 60})
	c.Up(geometry.Pt{X: 600, Y: 60})
	e, _ := c.Surface().Element(id)
	if e.Frame != geometry.R(590, 50, 100, 100) {
		t.Fatalf("frame = %+v", e.Frame)
	}
	if c.Busy() {
		t.Fatalf("gesture still active after Up")
	}
}

func TestControllerResizeThroughHandle(t *testing.T) {
	c, id := newController(t)
	c.Surface().Select(id)
	if h := c.Down(geometry.Pt{X: 150, Y: 150}, 1); h != HandleResize {
		t.Fatalf("Down = %v, want resize", h)
	}
	c.Move(geometry.Pt{X: 200, Y: 170})
	c.Up(geometry.Pt{X: 200, Y: 170})
	e, _ := c.Surface().Element(id)
	if e.Frame.W != 150 || e.Frame.H != 120 {
		t.Fatalf("size = %vx%v, want 150x120", e.Frame.W, e.Frame.H)
	}
}

func TestControllerEmptyPressClearsSelection(t *testing.T) {
	c, id := newController(t)
	c.Surface().Select(id)
	if h := c.Down(geometry.Pt{X: 900, Y: 600}, 1); h != HandleNone {
		t.Fatalf("Down = %v", h)
	}
	if c.Surface().Selected() != "" {
		t.Fatalf("selection not cleared")
	}
}

func TestControllerDeleteSelected(t *testing.T) {
	c, id := newController(t)
	c.Down(geometry.Pt{X: 60, Y: 60}, 1)
	c.Up(geometry.Pt{X: 60, Y: 60})
	if err := c.DeleteSelected(); err != nil {
		t.Fatalf("DeleteSelected: %v", err)
	}
	if _, ok := c.Surface().Element(id); ok {
		t.Fatalf("element still present")
	}
	if len(c.manips) != 0 {
		t.Fatalf("manipulator not released")
	}
	if err := c.DeleteSelected(); !errors.Is(err, editor.ErrNoSuchElement) {
		t.Fatalf("second delete err = %v", err)
	}
}
