/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"gallerybuilder/internal/geometry"
)

var (
	// ErrUnsupportedVersion is returned for schemas whose version is not 1 or 2.
	ErrUnsupportedVersion = errors.New("unsupported schema version")
	// ErrUnknownType is returned for nodes whose type is not a known element kind.
	ErrUnknownType = errors.New("unknown element type")
)

// ValidationError lists JSON Schema violations of a decoded document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid layout schema: " + strings.Join(e.Problems, "; ")
}

//go:embed tile.schema.json
var tileSchemaJSON []byte

//go:embed legacy.schema.json
var legacySchemaJSON []byte

var (
	schemaOnce   sync.Once
	tileSchema   *gojsonschema.Schema
	legacySchema *gojsonschema.Schema
	schemaErr    error
)

func compiledSchemas() (*gojsonschema.Schema, *gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		tileSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(tileSchemaJSON))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile tile schema: %w", schemaErr)
			return
		}
		legacySchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(legacySchemaJSON))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile legacy schema: %w", schemaErr)
		}
	})
	return tileSchema, legacySchema, schemaErr
}

// TileSchemaJSON returns the JSON Schema documents accept, for publishing to clients.
func TileSchemaJSON() []byte { return bytes.Clone(tileSchemaJSON) }

type wireSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type wireFrame struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type wireSticker struct {
	Emoji      string `json:"emoji,omitempty"`
	Src        string `json:"src,omitempty"`
	Name       string `json:"name,omitempty"`
	IsUploaded bool   `json:"isUploaded,omitempty"`
}

type wireFrameData struct {
	Style      string  `json:"style,omitempty"`
	Color      string  `json:"color,omitempty"`
	Thickness  float64 `json:"thickness,omitempty"`
	Src        string  `json:"src,omitempty"`
	Name       string  `json:"name,omitempty"`
	IsUploaded bool    `json:"isUploaded,omitempty"`
}

type wireBackground struct {
	Src        string   `json:"src,omitempty"`
	Name       string   `json:"name,omitempty"`
	Opacity    *float64 `json:"opacity,omitempty"`
	IsUploaded bool     `json:"isUploaded,omitempty"`
}

type wireNode struct {
	ID             string          `json:"id"`
	Frame          wireFrame       `json:"frame"`
	ZIndex         *int            `json:"zIndex,omitempty"`
	Type           string          `json:"type,omitempty"`
	Src            string          `json:"src,omitempty"`
	Caption        string          `json:"caption,omitempty"`
	AspectRatio    *geometry.Ratio `json:"aspectRatio,omitempty"`
	Rotation       *float64        `json:"rotation,omitempty"`
	StickerData    *wireSticker    `json:"stickerData,omitempty"`
	FrameData      *wireFrameData  `json:"frameData,omitempty"`
	BackgroundData *wireBackground `json:"backgroundData,omitempty"`
}

type wireSchema struct {
	ID       string     `json:"id"`
	TileSize wireSize   `json:"tileSize"`
	Nodes    []wireNode `json:"nodes"`
	Version  int        `json:"version"`
}

type legacyRect struct {
	ID          string          `json:"id"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	AspectRatio *geometry.Ratio `json:"aspectRatio,omitempty"`
}

type legacySchemaDoc struct {
	Canvas wireSize     `json:"canvas"`
	Rects  []legacyRect `json:"rects"`
}

// Encode serializes s in the tile wire format. A zero version is written as
// the current version; version 1 schemas are written photo-only.
func Encode(s Schema) ([]byte, error) {
	b, err := json.Marshal(toWire(s))
	if err != nil {
		return nil, fmt.Errorf("encode layout schema: %w", err)
	}
	return b, nil
}

// EncodeIndent is Encode with indentation, for files meant to be read by people.
func EncodeIndent(s Schema) ([]byte, error) {
	b, err := json.MarshalIndent(toWire(s), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode layout schema: %w", err)
	}
	return b, nil
}

func toWire(s Schema) wireSchema {
	version := s.Version
	if version == 0 {
		version = VersionCurrent
	}
	w := wireSchema{
		ID:       s.ID,
		TileSize: wireSize{Width: s.Canvas.W, Height: s.Canvas.H},
		Nodes:    make([]wireNode, 0, len(s.Elements)),
		Version:  version,
	}
	for _, e := range s.Elements {
		if version == VersionLegacy && e.Kind() != KindPhoto {
			continue
		}
		z := e.ZIndex
		n := wireNode{
			ID:     e.ID,
			Frame:  wireFrame{X: e.Frame.X, Y: e.Frame.Y, Width: e.Frame.W, Height: e.Frame.H},
			ZIndex: &z,
		}
		if version != VersionLegacy {
			rot := e.Rotation
			n.Rotation = &rot
			n.Type = string(e.Kind())
		}
		switch p := e.Payload.(type) {
		case Photo:
			n.Src, n.Caption = p.Src, p.Caption
			if p.AspectRatio != nil {
				r := *p.AspectRatio
				n.AspectRatio = &r
			}
		case Sticker:
			n.StickerData = &wireSticker{Emoji: p.Emoji, Src: p.Src, Name: p.Name, IsUploaded: p.IsUploaded}
		case FrameDecor:
			n.FrameData = &wireFrameData{Style: string(p.Style), Color: p.Color, Thickness: p.Thickness, Src: p.Src, Name: p.Name, IsUploaded: p.IsUploaded}
		case Background:
			n.BackgroundData = &wireBackground{Src: p.Src, Name: p.Name, Opacity: p.Opacity, IsUploaded: p.IsUploaded}
		}
		w.Nodes = append(w.Nodes, n)
	}
	return w
}

// Decode parses a tile schema (version 1 or 2) or the legacy {canvas, rects}
// editor document. Decoding is a validation boundary: unknown versions fail
// with ErrUnsupportedVersion, unknown or missing node types with ErrUnknownType and
// structural problems with *ValidationError.
func Decode(data []byte) (Schema, error) {
	var peek struct {
		Version *json.Number    `json:"version"`
		Rects   json.RawMessage `json:"rects"`
		Nodes   json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return Schema{}, fmt.Errorf("decode layout schema: %w", err)
	}
	tile, legacy, err := compiledSchemas()
	if err != nil {
		return Schema{}, err
	}
	if peek.Version == nil {
		if len(peek.Rects) > 0 {
			return decodeLegacy(data, legacy)
		}
		return Schema{}, fmt.Errorf("decode layout schema: missing version: %w", ErrUnsupportedVersion)
	}
	version, err := peek.Version.Int64()
	if err != nil || (version != VersionLegacy && version != VersionCurrent) {
		return Schema{}, fmt.Errorf("decode layout schema: version %s: %w", peek.Version.String(), ErrUnsupportedVersion)
	}
	if version == VersionCurrent {
		var nodes []json.RawMessage
		_ = json.Unmarshal(peek.Nodes, &nodes) // shape errors are reported by schema validation
		for i, raw := range nodes {
			var t struct {
				Type *string `json:"type"`
			}
			if err := json.Unmarshal(raw, &t); err != nil {
				continue // reported by schema validation
			}
			if t.Type == nil {
				return Schema{}, fmt.Errorf("decode layout schema: node %d has no type: %w", i, ErrUnknownType)
			}
			if !knownKind(Kind(*t.Type)) {
				return Schema{}, fmt.Errorf("decode layout schema: node %d type %q: %w", i, *t.Type, ErrUnknownType)
			}
		}
	}
	if err := validate(tile, data); err != nil {
		return Schema{}, err
	}
	var w wireSchema
	if err := json.Unmarshal(data, &w); err != nil {
		return Schema{}, fmt.Errorf("decode layout schema: %w", err)
	}
	return fromWire(w), nil
}

func decodeLegacy(data []byte, legacy *gojsonschema.Schema) (Schema, error) {
	if err := validate(legacy, data); err != nil {
		return Schema{}, err
	}
	var doc legacySchemaDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Schema{}, fmt.Errorf("decode legacy layout: %w", err)
	}
	s := Schema{
		Canvas:   geometry.Size{W: doc.Canvas.Width, H: doc.Canvas.Height},
		Elements: make([]Element, 0, len(doc.Rects)),
		Version:  VersionLegacy,
	}
	for i, r := range doc.Rects {
		s.Elements = append(s.Elements, Element{
			ID:      r.ID,
			Frame:   geometry.Rect{X: r.X, Y: r.Y, W: r.Width, H: r.Height},
			ZIndex:  i,
			Payload: Photo{AspectRatio: r.AspectRatio},
		})
	}
	return s, nil
}

func validate(schema *gojsonschema.Schema, data []byte) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate layout schema: %w", err)
	}
	if res.Valid() {
		return nil
	}
	ve := &ValidationError{}
	for _, e := range res.Errors() {
		ve.Problems = append(ve.Problems, e.String())
	}
	return ve
}

func knownKind(k Kind) bool {
	switch k {
	case KindPhoto, KindSticker, KindFrame, KindBackground:
		return true
	}
	return false
}

func fromWire(w wireSchema) Schema {
	s := Schema{
		ID:       w.ID,
		Canvas:   geometry.Size{W: w.TileSize.Width, H: w.TileSize.Height},
		Elements: make([]Element, 0, len(w.Nodes)),
		Version:  w.Version,
	}
	for i, n := range w.Nodes {
		e := Element{
			ID:     n.ID,
			Frame:  geometry.Rect{X: n.Frame.X, Y: n.Frame.Y, W: n.Frame.Width, H: n.Frame.Height},
			ZIndex: i,
		}
		if n.ZIndex != nil {
			e.ZIndex = *n.ZIndex
		}
		if w.Version == VersionLegacy {
			// Legacy nodes are photos without rotation, whatever else they carry.
			e.Payload = Photo{Src: n.Src, Caption: n.Caption, AspectRatio: n.AspectRatio}
			s.Elements = append(s.Elements, e)
			continue
		}
		if n.Rotation != nil {
			e.Rotation = geometry.NormalizeDegrees(*n.Rotation)
		}
		switch Kind(n.Type) {
		case KindSticker:
			var p Sticker
			if d := n.StickerData; d != nil {
				p = Sticker{Emoji: d.Emoji, Src: d.Src, Name: d.Name, IsUploaded: d.IsUploaded}.Normalized()
			}
			e.Payload = p
		case KindFrame:
			p := FrameDecor{Style: FrameSimple}
			if d := n.FrameData; d != nil {
				p = FrameDecor{Style: FrameStyle(d.Style), Color: d.Color, Thickness: d.Thickness, Src: d.Src, Name: d.Name, IsUploaded: d.IsUploaded}
				if !p.Style.Valid() {
					p.Style = FrameSimple
				}
			}
			e.Payload = p
		case KindBackground:
			var p Background
			if d := n.BackgroundData; d != nil {
				p = Background{Src: d.Src, Name: d.Name, Opacity: d.Opacity, IsUploaded: d.IsUploaded}
			}
			e.Payload = p
		default:
			e.Payload = Photo{Src: n.Src, Caption: n.Caption, AspectRatio: n.AspectRatio}
		}
		s.Elements = append(s.Elements, e)
	}
	return s
}

// MarshalJSON writes the schema in the tile wire format.
func (s Schema) MarshalJSON() ([]byte, error) { return Encode(s) }

// UnmarshalJSON accepts everything Decode accepts.
func (s *Schema) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
