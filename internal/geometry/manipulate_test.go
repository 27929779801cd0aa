/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

import (
	"math"
	"testing"
)

func TestClampTranslate_StaysInsideCanvas(t *testing.T) {
	canvas := Size{W: 1000, H: 650}
	elem := Size{W: 100, H: 100}
	cases := []struct {
		in   Pt
		want Pt
	}{
		{Pt{590, 50}, Pt{590, 50}},
		{Pt{-20, -5}, Pt{0, 0}},
		{Pt{5000, 5000}, Pt{900, 550}},
		{Pt{900, 550}, Pt{900, 550}},
	}
	for _, c := range cases {
		got := ClampTranslate(c.in, elem, canvas)
		if got != c.want {
			t.Fatalf("ClampTranslate(%v) = %v, want %v", c.in, got, c.want)
		}
	}
	for x := -300.0; x <= 1300; x += 37 {
		for y := -300.0; y <= 1000; y += 41 {
			p := ClampTranslate(Pt{x, y}, elem, canvas)
			if p.X < 0 || p.X > canvas.W-elem.W || p.Y < 0 || p.Y > canvas.H-elem.H {
				t.Fatalf("out of bounds for (%v,%v): %v", x, y, p)
			}
		}
	}
}

func TestResize_FreeClampsToMinAndCanvas(t *testing.T) {
	got := ResizeWithAspectLock(Resize{
		Start:  Size{W: 100, H: 100},
		Delta:  Pt{-500, 2000},
		Origin: Pt{100, 100},
		Canvas: Size{W: 1000, H: 650},
	})
	if got.W != DefaultMinSize || got.H != 550 {
		t.Fatalf("unexpected free resize: %+v", got)
	}
}

func TestResize_AspectLockWidthDrives(t *testing.T) {
	got := ResizeWithAspectLock(Resize{
		Start:  Size{W: 160, H: 90},
		Delta:  Pt{80, 10},
		Ratio:  &Ratio{W: 16, H: 9},
		Canvas: Size{W: 1000, H: 650},
	})
	if got.W != 240 || got.H != 135 {
		t.Fatalf("expected 240x135, got %vx%v", got.W, got.H)
	}
}

func TestResize_AspectLockHeightDrivesOnTie(t *testing.T) {
	got := ResizeWithAspectLock(Resize{
		Start:  Size{W: 160, H: 90},
		Delta:  Pt{30, 30},
		Ratio:  &Ratio{W: 16, H: 9},
		Canvas: Size{W: 1000, H: 650},
	})
	// h=120 drives, w=120*16/9
	if got.H != 120 || math.Abs(got.W-120*16.0/9.0) > 1e-9 {
		t.Fatalf("expected height to drive on tie, got %+v", got)
	}
}

func TestResize_AspectToleranceHolds(t *testing.T) {
	canvas := Size{W: 1000, H: 650}
	ratio := &Ratio{W: 4, H: 3}
	for dx := -200.0; dx <= 400; dx += 13 {
		for dy := -200.0; dy <= 400; dy += 17 {
			got := ResizeWithAspectLock(Resize{
				Start:  Size{W: 200, H: 150},
				Delta:  Pt{dx, dy},
				Origin: Pt{100, 100},
				Ratio:  ratio,
				Canvas: canvas,
			})
			if got.W < DefaultMinSize || got.H < DefaultMinSize || got.W > 900 || got.H > 550 {
				t.Fatalf("bounds violated for (%v,%v): %+v", dx, dy, got)
			}
			// The derived side may hit the canvas or the minimum; only unclamped results must keep the ratio.
			clamped := got.W == DefaultMinSize || got.H == DefaultMinSize || got.W == 900 || got.H == 550
			if !clamped && math.Abs(got.W/got.H-ratio.Value()) > 0.01 {
				t.Fatalf("ratio drift for (%v,%v): %+v", dx, dy, got)
			}
		}
	}
}

func TestResize_ZeroRatioIgnored(t *testing.T) {
	got := ResizeWithAspectLock(Resize{
		Start:  Size{W: 100, H: 100},
		Delta:  Pt{50, 0},
		Ratio:  &Ratio{W: 0, H: 9},
		Canvas: Size{W: 1000, H: 650},
	})
	if got.W != 150 || got.H != 100 {
		t.Fatalf("zero ratio should resize freely, got %+v", got)
	}
}

func TestAngleFromPointer(t *testing.T) {
	c := Pt{100, 100}
	cases := map[Pt]float64{
		{200, 100}: 0,
		{100, 200}: 90,
		{0, 100}:   180,
		{100, 0}:   270,
	}
	for p, want := range cases {
		if got := AngleFromPointer(p, c); math.Abs(got-want) > 1e-9 {
			t.Fatalf("angle to %v = %v, want %v", p, got, want)
		}
	}
}

func TestNormalizeDegrees(t *testing.T) {
	cases := map[float64]float64{0: 0, 360: 0, 370: 10, -10: 350, -720: 0, 725: 5}
	for in, want := range cases {
		if got := NormalizeDegrees(in); got != want {
			t.Fatalf("NormalizeDegrees(%v) = %v, want %v", in, got, want)
		}
	}
	if NormalizeDegrees(math.NaN()) != 0 {
		t.Fatalf("NaN should normalize to 0")
	}
}

func TestRotationStep_PlusThreeSeventyIsTen(t *testing.T) {
	a := RotationStep(20, 0, 370)
	b := RotationStep(20, 0, 10)
	if a != b || a != 30 {
		t.Fatalf("expected 30 for both, got %v and %v", a, b)
	}
	if r := RotationStep(359.6, 0, 0); r != 0 {
		t.Fatalf("360 should fold to 0, got %v", r)
	}
}

func TestFitRatio(t *testing.T) {
	got := FitRatio(Ratio{W: 16, H: 9}, Size{W: 200, H: 150})
	if got.W != 200 || got.H != 113 {
		t.Fatalf("unexpected fit: %+v", got)
	}
}
