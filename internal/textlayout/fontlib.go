/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// OTProvider draws with a parsed OpenType font. Faces are cached per size.
// Sizes that fail to produce a face fall back to BasicProvider.
type OTProvider struct {
	font *opentype.Font
	dpi  float64

	mu    sync.Mutex
	faces map[float64]font.Face
}

// LoadFont parses a TTF or OTF file.
func LoadFont(path string) (*OTProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	return ParseFont(data)
}

// ParseFont parses TTF or OTF bytes.
func ParseFont(data []byte) (*OTProvider, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &OTProvider{font: f, dpi: 72, faces: make(map[float64]font.Face)}, nil
}

func (p *OTProvider) Face(sizePx float64) (font.Face, Metrics) {
	if sizePx <= 0 {
		sizePx = 13
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.faces[sizePx]; ok {
		return f, metricsOf(f)
	}
	face, err := opentype.NewFace(p.font, &opentype.FaceOptions{Size: sizePx, DPI: p.dpi, Hinting: font.HintingFull})
	if err != nil {
		return BasicProvider{}.Face(sizePx)
	}
	p.faces[sizePx] = face
	return face, metricsOf(face)
}

// Open returns an OTProvider for path, or BasicProvider when path is empty.
func Open(path string) (Provider, error) {
	if path == "" {
		return BasicProvider{}, nil
	}
	p, err := LoadFont(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}
