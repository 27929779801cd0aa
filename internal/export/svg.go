/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"strconv"

	"gallerybuilder/internal/fsutil"
	"gallerybuilder/internal/layout"
	"gallerybuilder/internal/tiling"
)

// ExportSVG writes the whole gallery as one SVG document. Images are
// referenced by their src, so the preview stays vector and small.
func ExportSVG(g tiling.Gallery, outPath string, opt Options) error {
	data, err := RenderSVG(g, opt.Title)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(outPath, data); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// RenderSVG returns the SVG document for g.
func RenderSVG(g tiling.Gallery, title string) ([]byte, error) {
	ext := g.Extent()
	if ext.Empty() {
		ext = g.TileSize
	}
	buf := &bytes.Buffer{}
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%s\" height=\"%s\" viewBox=\"0 0 %s %s\">\n",
		num(ext.W), num(ext.H), num(ext.W), num(ext.H))
	if title != "" {
		wf("  <title>%s</title>\n", escText(title))
	}

	if bg := g.Background; bg != nil {
		if bg.Src != "" {
			wf("  <image href=\"%s\" x=\"0\" y=\"0\" width=\"%s\" height=\"%s\" preserveAspectRatio=\"xMidYMid slice\" opacity=\"%s\"/>\n",
				escAttr(bg.Src), num(ext.W), num(ext.H), num(bg.Opacity))
		} else {
			wf("  <rect x=\"0\" y=\"0\" width=\"%s\" height=\"%s\" fill=\"%s\" opacity=\"%s\"/>\n",
				num(ext.W), num(ext.H), escAttr(orDefault(bg.Fill, "#F3F4F6")), num(bg.Opacity))
		}
	}

	for _, t := range g.Tiles {
		wf("  <g id=\"tile-%d\" transform=\"translate(%s %s)\">\n", t.Index+1, num(t.Origin.X), num(t.Origin.Y))
		for _, it := range t.Items {
			el := svgItem(it, g.Scale)
			if len(it.Transform) == 6 {
				m := it.Transform
				el = fmt.Sprintf("<g transform=\"matrix(%s %s %s %s %s %s)\">%s</g>", num(m[0]), num(m[1]), num(m[2]), num(m[3]), num(m[4]), num(m[5]), el)
			}
			wf("    %s\n", el)
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")
	if werr != nil {
		return nil, fmt.Errorf("build svg: %w", werr)
	}
	return buf.Bytes(), nil
}

// svgItem renders one item; scale converts canvas-unit frame thickness.
func svgItem(it tiling.Item, scale float64) string {
	f := it.Frame
	x, y, w, h := num(f.X), num(f.Y), num(f.W), num(f.H)
	id := escAttr(it.ElementID)
	switch it.Kind {
	case layout.KindPhoto:
		if it.Src == "" {
			return svgPlaceholder(it, photoLabel(it))
		}
		return fmt.Sprintf("<svg id=\"%s\" x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\"><image href=\"%s\" width=\"100%%\" height=\"100%%\" preserveAspectRatio=\"xMidYMid slice\"/></svg>",
			id, x, y, w, h, escAttr(it.Src))
	case layout.KindSticker:
		if it.Src == "" {
			return fmt.Sprintf("<text id=\"%s\" x=\"%s\" y=\"%s\" font-size=\"%s\" text-anchor=\"middle\" dominant-baseline=\"central\">%s</text>",
				id, num(f.X+f.W/2), num(f.Y+f.H/2), num(min(f.W, f.H)*0.8), escText(it.Text))
		}
		return fmt.Sprintf("<image id=\"%s\" href=\"%s\" x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" preserveAspectRatio=\"xMidYMid meet\"/>",
			id, escAttr(it.Src), x, y, w, h)
	case layout.KindFrame:
		if it.Src != "" {
			return fmt.Sprintf("<image id=\"%s\" href=\"%s\" x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" preserveAspectRatio=\"none\"/>",
				id, escAttr(it.Src), x, y, w, h)
		}
		th := it.Thickness
		if th <= 0 {
			th = 8
		}
		if scale > 0 {
			th *= scale
		}
		rx := 0.0
		if layout.FrameStyle(it.FrameStyle) == layout.FrameRounded {
			rx = th * 2
		}
		return fmt.Sprintf("<rect id=\"%s\" x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" rx=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"%s\"/>",
			id, num(f.X+th/2), num(f.Y+th/2), num(max(f.W-th, 0)), num(max(f.H-th, 0)), num(rx), escAttr(orDefault(it.Color, "#1F2937")), num(th))
	}
	return ""
}

func svgPlaceholder(it tiling.Item, label string) string {
	f := it.Frame
	return fmt.Sprintf("<g id=\"%s\"><rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" fill=\"#E5E7EB\" stroke=\"#9CA3AF\" stroke-dasharray=\"6 4\"/>"+
		"<text x=\"%s\" y=\"%s\" font-family=\"sans-serif\" font-size=\"14\" text-anchor=\"middle\" dominant-baseline=\"central\" fill=\"#374151\">%s</text></g>",
		escAttr(it.ElementID), num(f.X), num(f.Y), num(f.W), num(f.H), num(f.X+f.W/2), num(f.Y+f.H/2), escText(label))
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
