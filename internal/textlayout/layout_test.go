/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestWrap_BreaksOnSpaces(t *testing.T) {
	box := Wrap(BasicProvider{}, 13, "Hello world from Go", 50)
	if len(box.Lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(box.Lines))
	}
	for i, w := range box.Widths {
		if w > 50 && len(box.Lines[i]) > 5 {
			t.Fatalf("line %q too wide: %v", box.Lines[i], w)
		}
	}
	if box.Height != float32(len(box.Lines))*box.Metrics.LineHeight() {
		t.Fatalf("height mismatch: %+v", box)
	}
}

func TestWrap_NewlinesAndNoLimit(t *testing.T) {
	box := Wrap(nil, 13, "one two\nthree", 0)
	if len(box.Lines) != 2 || box.Lines[0] != "one two" || box.Lines[1] != "three" {
		t.Fatalf("unexpected lines: %q", box.Lines)
	}
	if empty := Wrap(nil, 13, "", 100); len(empty.Lines) != 1 {
		t.Fatalf("empty text should still produce one line, got %d", len(empty.Lines))
	}
}

func TestMeasure_Deterministic(t *testing.T) {
	w1, h1 := Measure(BasicProvider{}, 13, "ABC")
	if w1 != 21 {
		t.Fatalf("basic face is 7px per glyph, got %v", w1)
	}
	if h1 <= 0 {
		t.Fatalf("expected positive height, got %v", h1)
	}
}

func TestDrawCentered_PaintsInsideRect(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 40))
	r := image.Rect(10, 10, 90, 30)
	DrawCentered(img, nil, 13, "Hi", r, color.Black)
	painted := false
	for y := 0; y < 40; y++ {
		for x := 0; x < 100; x++ {
			if img.RGBAAt(x, y).A == 0 {
				continue
			}
			if !(image.Pt(x, y).In(r)) {
				t.Fatalf("pixel outside rect at %d,%d", x, y)
			}
			painted = true
		}
	}
	if !painted {
		t.Fatalf("nothing was drawn")
	}
}

func TestOTProvider_GoRegular(t *testing.T) {
	p, err := ParseFont(goregular.TTF)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	small, _ := Measure(p, 10, "gallery")
	large, _ := Measure(p, 20, "gallery")
	if !(large > small) {
		t.Fatalf("larger size should measure wider: %v vs %v", small, large)
	}
	if _, err := ParseFont([]byte("not a font")); err == nil {
		t.Fatalf("expected parse error")
	}
	if prov, err := Open(""); err != nil {
		t.Fatalf("open empty: %v", err)
	} else if _, ok := prov.(BasicProvider); !ok {
		t.Fatalf("expected BasicProvider, got %T", prov)
	}
}
