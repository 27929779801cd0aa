/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geometry

// Smart guides align an element being dragged with the canvas and its
// neighbours. They are deterministic and UI-agnostic so the editor can be
// tested headless.

import "math"

// SnapOptions controls snapping. A zero Threshold disables snapping entirely.
type SnapOptions struct {
	Threshold     float64
	SnapToEdges   bool
	SnapToCenters bool
}

// Anchor is a static reference rectangle (the canvas or another element).
// Higher weights win ties.
type Anchor struct {
	Rect   Rect
	Weight float64
}

// GuideLine describes a rendered alignment guide. Orientation is "vertical"
// or "horizontal", Kind is "edge" or "center".
type GuideLine struct {
	Orientation string
	Kind        string
	Position    float64
	From        Pt
	To          Pt
}

type snapCandidate struct {
	delta float64
	dist  float64
	score float64
	guide GuideLine
}

// ComputeSmartGuides snaps moving against anchors independently per axis and
// returns the adjusted rectangle plus the guides to draw.
func ComputeSmartGuides(moving Rect, anchors []Anchor, opts SnapOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		return moving, nil
	}
	bestX := snapCandidate{dist: math.Inf(1), score: math.Inf(1)}
	bestY := snapCandidate{dist: math.Inf(1), score: math.Inf(1)}

	type feature struct {
		moving, anchor float64
		kind           string
	}
	for _, a := range anchors {
		var xs, ys []feature
		if opts.SnapToEdges {
			xs = append(xs,
				feature{moving.X, a.Rect.X, "edge"},
				feature{moving.X + moving.W, a.Rect.X + a.Rect.W, "edge"},
				feature{moving.X, a.Rect.X + a.Rect.W, "edge"},
				feature{moving.X + moving.W, a.Rect.X, "edge"},
			)
			ys = append(ys,
				feature{moving.Y, a.Rect.Y, "edge"},
				feature{moving.Y + moving.H, a.Rect.Y + a.Rect.H, "edge"},
				feature{moving.Y, a.Rect.Y + a.Rect.H, "edge"},
				feature{moving.Y + moving.H, a.Rect.Y, "edge"},
			)
		}
		if opts.SnapToCenters {
			c, ac := moving.Center(), a.Rect.Center()
			xs = append(xs, feature{c.X, ac.X, "center"})
			ys = append(ys, feature{c.Y, ac.Y, "center"})
		}
		for _, f := range xs {
			consider(&bestX, f.moving-f.anchor, opts.Threshold, a.Weight, verticalGuide(f.anchor, moving, a.Rect, f.kind))
		}
		for _, f := range ys {
			consider(&bestY, f.moving-f.anchor, opts.Threshold, a.Weight, horizontalGuide(f.anchor, moving, a.Rect, f.kind))
		}
	}

	snapped := moving
	var guides []GuideLine
	if bestX.dist <= opts.Threshold {
		snapped.X = Round(moving.X-bestX.delta, 3)
		guides = append(guides, bestX.guide)
	}
	if bestY.dist <= opts.Threshold {
		snapped.Y = Round(moving.Y-bestY.delta, 3)
		guides = append(guides, bestY.guide)
	}
	return snapped, guides
}

func consider(best *snapCandidate, delta, threshold, weight float64, g GuideLine) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / math.Max(1, weight)
	if score < best.score {
		*best = snapCandidate{delta: delta, dist: dist, score: score, guide: g}
	}
}

func verticalGuide(x float64, a, b Rect, kind string) GuideLine {
	x = Round(x, 3)
	return GuideLine{
		Orientation: "vertical",
		Kind:        kind,
		Position:    x,
		From:        Pt{x, math.Min(a.Y, b.Y)},
		To:          Pt{x, math.Max(a.Y+a.H, b.Y+b.H)},
	}
}

func horizontalGuide(y float64, a, b Rect, kind string) GuideLine {
	y = Round(y, 3)
	return GuideLine{
		Orientation: "horizontal",
		Kind:        kind,
		Position:    y,
		From:        Pt{math.Min(a.X, b.X), y},
		To:          Pt{math.Max(a.X+a.W, b.X+b.W), y},
	}
}
