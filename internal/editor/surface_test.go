/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"math/rand/v2"
	"testing"

	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/gesture"
	"gallerybuilder/internal/layout"
)

func newSurface() *Surface {
	return New(Options{Rand: rand.New(rand.NewPCG(1, 2))})
}

func TestAddPhoto_DefaultsAndZ(t *testing.T) {
	s := newSurface()
	a := s.AddPhoto()
	b := s.AddPhoto()
	ea, _ := s.Element(a)
	eb, _ := s.Element(b)
	if ea.Frame != DefaultPhotoFrame || ea.ZIndex != 0 || eb.ZIndex != 1 {
		t.Fatalf("unexpected defaults: %+v %+v", ea, eb)
	}
	if s.CanvasSize() != layout.DefaultCanvas {
		t.Fatalf("expected default canvas, got %+v", s.CanvasSize())
	}
}

func TestAddPhotoWithRatio_FitsAndStaysInside(t *testing.T) {
	s := newSurface()
	for i := 0; i < 50; i++ {
		id := s.AddPhotoWithRatio(geometry.Ratio{W: 16, H: 9})
		e, _ := s.Element(id)
		if e.Frame.W != 200 || e.Frame.H != 113 {
			t.Fatalf("expected 200x113, got %vx%v", e.Frame.W, e.Frame.H)
		}
		if e.Frame.X < 0 || e.Frame.Y < 0 || e.Frame.X+e.Frame.W > 1000 || e.Frame.Y+e.Frame.H > 650 {
			t.Fatalf("photo placed outside canvas: %+v", e.Frame)
		}
		if r := e.AspectRatio(); r == nil || r.W != 16 {
			t.Fatalf("ratio not kept")
		}
	}
	id := s.AddPhotoWithRatio(geometry.Ratio{W: 3, H: 4})
	e, _ := s.Element(id)
	if e.Frame.W != 113 || e.Frame.H != 150 {
		t.Fatalf("portrait should be height bound, got %vx%v", e.Frame.W, e.Frame.H)
	}
}

func TestAddStickerAndFrame_DefaultSizes(t *testing.T) {
	s := newSurface()
	st, _ := s.Element(s.AddSticker(layout.Sticker{Emoji: "🎉"}))
	fr, _ := s.Element(s.AddFrame(layout.FrameDecor{}))
	if st.Frame.Size() != DefaultStickerSize || fr.Frame.Size() != DefaultFrameSize {
		t.Fatalf("unexpected sizes %+v %+v", st.Frame, fr.Frame)
	}
	if fr.Payload.(layout.FrameDecor).Style != layout.FrameSimple {
		t.Fatalf("frame style should default to simple")
	}
	if fr.ZIndex != 1 {
		t.Fatalf("expected z=1, got %d", fr.ZIndex)
	}
}

func TestAddSticker_ImageDropsEmoji(t *testing.T) {
	s := newSurface()
	e, _ := s.Element(s.AddSticker(layout.Sticker{Emoji: "🎉", Name: "heart.svg"}))
	if st := e.Payload.(layout.Sticker); st.Emoji != "" || st.Name != "heart.svg" {
		t.Fatalf("sticker should carry only its image: %+v", st)
	}
}

func TestAddBackground_SingleAndLowest(t *testing.T) {
	s := newSurface()
	if id := s.AddBackground(layout.Background{Src: "a.png"}); id == "" {
		t.Fatalf("expected id")
	}
	if bg, _ := s.Background(); bg.ZIndex != 0 {
		t.Fatalf("lone background should have z=0, got %d", bg.ZIndex)
	}
	s.AddPhoto()
	s.AddPhoto()
	p := s.AddPhoto()
	_ = s.UpdateElement(p, layout.Patch{ZIndex: ptr(7)})
	s.AddBackground(layout.Background{Src: "b.png"})
	s.AddBackground(layout.Background{Src: "c.png"})

	var count int
	var bg layout.Element
	for _, e := range s.Elements() {
		if e.Kind() == layout.KindBackground {
			count++
			bg = e
		}
	}
	if count != 1 || bg.Payload.(layout.Background).Src != "c.png" {
		t.Fatalf("expected exactly the last background, got %d", count)
	}
	if bg.Frame != geometry.R(0, 0, 1000, 650) {
		t.Fatalf("background must cover the canvas: %+v", bg.Frame)
	}
	for _, e := range s.Elements() {
		if e.ZIndex < bg.ZIndex || bg.ZIndex < 0 {
			t.Fatalf("background z %d not minimal (element %d)", bg.ZIndex, e.ZIndex)
		}
	}
	if order := s.RenderOrder(); order[0].ID != bg.ID {
		t.Fatalf("background must render first")
	}
}

func TestSendToBack_ConvergesToZero(t *testing.T) {
	s := newSurface()
	s.AddPhoto()
	s.AddPhoto()
	c := s.AddPhoto()
	for i := 0; i < 5; i++ {
		if err := s.SendToBack(c); err != nil {
			t.Fatalf("SendToBack: %v", err)
		}
		e, _ := s.Element(c)
		if e.ZIndex < 0 {
			t.Fatalf("negative z after %d calls", i+1)
		}
	}
	e, _ := s.Element(c)
	if e.ZIndex != 0 {
		t.Fatalf("expected convergence to 0, got %d", e.ZIndex)
	}
}

func TestBringToFront(t *testing.T) {
	s := newSurface()
	a := s.AddPhoto()
	s.AddPhoto()
	s.AddPhoto()
	_ = s.BringToFront(a)
	e, _ := s.Element(a)
	if e.ZIndex != 3 {
		t.Fatalf("expected z=3, got %d", e.ZIndex)
	}
	bg := s.AddBackground(layout.Background{})
	if err := s.BringToFront(bg); !errors.Is(err, ErrBackgroundFixed) {
		t.Fatalf("expected ErrBackgroundFixed, got %v", err)
	}
	if err := s.BringToFront("nope"); !errors.Is(err, ErrNoSuchElement) {
		t.Fatalf("expected ErrNoSuchElement, got %v", err)
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	s := newSurface()
	a := s.AddPhoto()
	s.Select(a)
	if s.Selected() != a {
		t.Fatalf("selection not set")
	}
	if err := s.DeleteElement(a); err != nil {
		t.Fatalf("DeleteElement: %v", err)
	}
	if s.Selected() != "" || s.Len() != 0 {
		t.Fatalf("delete left state behind")
	}
	if err := s.DeleteElement(a); !errors.Is(err, ErrNoSuchElement) {
		t.Fatalf("expected ErrNoSuchElement, got %v", err)
	}
}

func TestUpdateElement_Rules(t *testing.T) {
	s := newSurface()
	st := s.AddSticker(layout.Sticker{Emoji: "x"})
	if err := s.UpdateElement(st, layout.Patch{Payload: layout.Background{}}); !errors.Is(err, layout.ErrKindMismatch) {
		t.Fatalf("expected kind mismatch, got %v", err)
	}
	if err := s.UpdateElement(st, layout.RotationPatch(370)); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if e, _ := s.Element(st); e.Rotation != 10 {
		t.Fatalf("expected rotation 10, got %v", e.Rotation)
	}
	bg := s.AddBackground(layout.Background{})
	if err := s.UpdateElement(bg, layout.FramePatch(geometry.R(5, 5, 10, 10))); !errors.Is(err, ErrBackgroundFixed) {
		t.Fatalf("expected ErrBackgroundFixed, got %v", err)
	}
	if err := s.UpdateElement(bg, layout.RotationPatch(45)); err != nil {
		t.Fatalf("background rotation should be allowed: %v", err)
	}
}

func TestPointerDown_SelectsTopmostOrClears(t *testing.T) {
	s := newSurface()
	a := s.AddPhoto() // (50,50,100,100)
	b := s.AddPhoto()
	_ = s.UpdateElement(b, layout.FramePatch(geometry.R(100, 100, 100, 100)))
	if got := s.PointerDown(geometry.Pt{X: 120, Y: 120}); got != b {
		t.Fatalf("expected topmost %s, got %s", b, got)
	}
	_ = s.BringToFront(a)
	if got := s.PointerDown(geometry.Pt{X: 120, Y: 120}); got != a {
		t.Fatalf("expected %s after bring to front, got %s", a, got)
	}
	if got := s.PointerDown(geometry.Pt{X: 900, Y: 600}); got != "" || s.Selected() != "" {
		t.Fatalf("empty canvas should clear selection")
	}
}

func TestExportLayout_IsSnapshot(t *testing.T) {
	s := newSurface()
	a := s.AddPhotoWithRatio(geometry.Ratio{W: 4, H: 3})
	s.AddSticker(layout.Sticker{Emoji: "⭐"})
	sc := s.ExportLayout()
	if sc.Version != layout.VersionCurrent || len(sc.Elements) != 2 || sc.Elements[0].ID != a {
		t.Fatalf("unexpected export: %+v", sc)
	}
	_ = s.UpdateElement(a, layout.FramePatch(geometry.R(0, 0, 60, 60)))
	if sc.Elements[0].Frame.W == 60 {
		t.Fatalf("export must not alias live elements")
	}
}

func TestLoad_KeepsOneBackground(t *testing.T) {
	sc := layout.Schema{
		Canvas: geometry.Size{W: 800, H: 600},
		Elements: []layout.Element{
			{ID: "b1", Frame: geometry.R(1, 1, 5, 5), Payload: layout.Background{Src: "one"}},
			{ID: "p", Frame: geometry.R(10, 10, 100, 100), ZIndex: 1, Payload: layout.Photo{}},
			{ID: "b2", Payload: layout.Background{Src: "two"}},
		},
		Version: 2,
	}
	s := newSurface()
	s.Load(sc)
	if s.Len() != 2 || s.CanvasSize().W != 800 {
		t.Fatalf("unexpected load result: %d elements", s.Len())
	}
	bg, ok := s.Background()
	if !ok || bg.ID != "b1" || bg.Frame != geometry.R(0, 0, 800, 600) {
		t.Fatalf("background not pinned: %+v", bg)
	}
}

func TestSurfaceDrivesManipulator(t *testing.T) {
	s := newSurface()
	id := s.AddPhoto()
	hub := gesture.NewHub()
	m := gesture.NewManipulator(id, s, hub, gesture.Options{Snapper: s})
	m.BodyDown(geometry.Pt{X: 60, Y: 60})
	hub.Move(geometry.Pt{X: 600, Y: 60})
	hub.Up(geometry.Pt{X: 600, Y: 60})
	e, _ := s.Element(id)
	if e.Frame != geometry.R(590, 50, 100, 100) {
		t.Fatalf("expected frame (590,50,100,100), got %+v", e.Frame)
	}
	if s.Selected() != id {
		t.Fatalf("drag should select")
	}
}

func TestSnap_EnabledAlignsWithCanvasEdge(t *testing.T) {
	s := New(Options{Rand: rand.New(rand.NewPCG(3, 4)), Snap: geometry.SnapOptions{Threshold: 6, SnapToEdges: true}})
	id := s.AddPhoto()
	got := s.Snap(id, geometry.R(4, 300, 100, 100))
	if got.X != 0 || len(s.Guides()) == 0 {
		t.Fatalf("expected snap to left edge with guide, got %+v", got)
	}
}

func TestFitViewport(t *testing.T) {
	v := FitViewport(geometry.Size{W: 1000, H: 650}, geometry.Size{W: 564, H: 2000})
	if v.Scale != 0.5 {
		t.Fatalf("expected scale 0.5, got %v", v.Scale)
	}
	if p := v.ToCanvas(v.ToScreen(geometry.Pt{X: 10, Y: 20})); p.X != 10 || p.Y != 20 {
		t.Fatalf("screen round trip failed: %+v", p)
	}
	big := FitViewport(geometry.Size{W: 1000, H: 650}, geometry.Size{W: 4000, H: 4000})
	if big.Scale != 1 {
		t.Fatalf("canvas must never be scaled up, got %v", big.Scale)
	}
	tiny := FitViewport(geometry.Size{W: 1000, H: 650}, geometry.Size{W: 10, H: 10})
	if tiny.Scale != 0.4 {
		t.Fatalf("available area floors at 400x300, got scale %v", tiny.Scale)
	}
}

func ptr[T any](v T) *T { return &v }
