/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

// This file defines the element model of a gallery layout. An element is a
// placed rectangle on the canvas carrying exactly one payload variant; the
// variants are closed so a sticker can never hold background data.

import (
	"time"

	"go.jetify.com/typeid/v2"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/geometry"
)

// Kind names an element variant as it appears on the wire.
type Kind string

const (
	KindPhoto      Kind = "photo"
	KindSticker    Kind = "sticker"
	KindFrame      Kind = "frame"
	KindBackground Kind = "background"
)

// Schema versions. Version 1 holds photo-only rectangles.
const (
	VersionLegacy  = 1
	VersionCurrent = 2
)

// DefaultCanvas is the editing canvas used when none is configured.
var DefaultCanvas = geometry.Size{W: 1000, H: 650}

// TypeID prefixes of element and schema ids.
const (
	ElementIDPrefix = "el"
	SchemaIDPrefix  = "layout"
)

// NewElementID returns a fresh, sortable element id such as el_01h...
func NewElementID() string {
	return typeid.MustGenerate(ElementIDPrefix).String()
}

// NewSchemaID returns a fresh id for an exported schema.
func NewSchemaID() string {
	return typeid.MustGenerate(SchemaIDPrefix).String()
}

// Payload is implemented by Photo, Sticker, FrameDecor and Background only.
type Payload interface {
	Kind() Kind
	clone() Payload
}

// Photo is a slot filled with a gallery photo at render time.
type Photo struct {
	Src         string
	Caption     string
	AspectRatio *geometry.Ratio // when set, resizing keeps this ratio
}

// Sticker shows either an emoji or an image, never both.
type Sticker struct {
	Emoji      string
	Src        string
	Name       string
	IsUploaded bool
}

// HasImage reports whether the sticker references image content.
func (s Sticker) HasImage() bool { return s.Src != "" || s.Name != "" || s.IsUploaded }

// Normalized drops the emoji of a sticker that also carries an image.
func (s Sticker) Normalized() Sticker {
	if s.HasImage() {
		s.Emoji = ""
	}
	return s
}

// FrameStyle is the decorative style of a frame element.
type FrameStyle string

const (
	FrameSimple   FrameStyle = "simple"
	FrameRounded  FrameStyle = "rounded"
	FramePolaroid FrameStyle = "polaroid"
	FrameVintage  FrameStyle = "vintage"
)

// Valid reports whether s is one of the known frame styles.
func (s FrameStyle) Valid() bool {
	switch s {
	case FrameSimple, FrameRounded, FramePolaroid, FrameVintage:
		return true
	}
	return false
}

// FrameDecor is a decorative frame drawn over other elements.
type FrameDecor struct {
	Style      FrameStyle
	Color      string
	Thickness  float64
	Src        string
	Name       string
	IsUploaded bool
}

// Background covers the whole canvas below every other element.
type Background struct {
	Src        string
	Name       string
	Opacity    *float64
	IsUploaded bool
}

func (Photo) Kind() Kind      { return KindPhoto }
func (Sticker) Kind() Kind    { return KindSticker }
func (FrameDecor) Kind() Kind { return KindFrame }
func (Background) Kind() Kind { return KindBackground }

func (p Photo) clone() Payload {
	if p.AspectRatio != nil {
		r := *p.AspectRatio
		p.AspectRatio = &r
	}
	return p
}

func (s Sticker) clone() Payload    { return s }
func (f FrameDecor) clone() Payload { return f }

func (b Background) clone() Payload {
	if b.Opacity != nil {
		o := *b.Opacity
		b.Opacity = &o
	}
	return b
}

// Element is one placed item on the canvas.
type Element struct {
	ID       string
	Frame    geometry.Rect
	ZIndex   int
	Rotation float64 // degrees in [0,360)
	Payload  Payload
}

// Kind reports the payload variant; an element without payload counts as a photo.
func (e Element) Kind() Kind {
	if e.Payload == nil {
		return KindPhoto
	}
	return e.Payload.Kind()
}

// Clone returns a deep copy.
func (e Element) Clone() Element {
	if e.Payload != nil {
		e.Payload = e.Payload.clone()
	}
	return e
}

// AspectRatio returns the locked ratio of a photo element, or nil.
func (e Element) AspectRatio() *geometry.Ratio {
	if p, ok := e.Payload.(Photo); ok && p.AspectRatio != nil && p.AspectRatio.Valid() {
		return p.AspectRatio
	}
	return nil
}

// AssetRef describes the image reference carried by a sticker, frame or background.
type AssetRef = assets.Ref

// AssetOf returns the asset reference of a decorative element. ok is false for photos.
func AssetOf(p Payload) (ref AssetRef, ok bool) {
	switch v := p.(type) {
	case Sticker:
		return AssetRef{Src: v.Src, Name: v.Name, IsUploaded: v.IsUploaded}, true
	case FrameDecor:
		return AssetRef{Src: v.Src, Name: v.Name, IsUploaded: v.IsUploaded}, true
	case Background:
		return AssetRef{Src: v.Src, Name: v.Name, IsUploaded: v.IsUploaded}, true
	}
	return AssetRef{}, false
}

// withAsset returns p with its asset reference replaced. Photos are returned unchanged.
func withAsset(p Payload, ref AssetRef) Payload {
	switch v := p.(type) {
	case Sticker:
		v.Src, v.Name, v.IsUploaded = ref.Src, ref.Name, ref.IsUploaded
		return v
	case FrameDecor:
		v.Src, v.Name, v.IsUploaded = ref.Src, ref.Name, ref.IsUploaded
		return v
	case Background:
		v.Src, v.Name, v.IsUploaded = ref.Src, ref.Name, ref.IsUploaded
		return v
	}
	return p
}

// Schema is an exported, serializable snapshot of a canvas arrangement.
// Elements keep insertion order; render order is a separate z sort.
type Schema struct {
	ID       string
	Canvas   geometry.Size
	Elements []Element
	Version  int
}

// Clone returns a deep copy so exported schemas stay immutable.
func (s Schema) Clone() Schema {
	out := s
	if s.Elements != nil {
		out.Elements = make([]Element, len(s.Elements))
		for i, e := range s.Elements {
			out.Elements[i] = e.Clone()
		}
	}
	return out
}

// PhotoSlots returns the number of photo elements outside the background layer.
func (s Schema) PhotoSlots() int {
	n := 0
	for _, e := range s.Elements {
		if e.Kind() == KindPhoto {
			n++
		}
	}
	return n
}

// SavedLayout is a named, persisted schema.
type SavedLayout struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Schema    Schema    `json:"schema"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PhotoItem is a photo from the gallery collection. It is never stored in a schema.
type PhotoItem struct {
	ID      string  `json:"id"`
	Src     string  `json:"src"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Caption string  `json:"caption,omitempty"`
}

// Ratio returns the natural aspect ratio of the photo, or nil if its size is unknown.
func (p PhotoItem) Ratio() *geometry.Ratio {
	if p.Width <= 0 || p.Height <= 0 {
		return nil
	}
	return &geometry.Ratio{W: p.Width, H: p.Height}
}
