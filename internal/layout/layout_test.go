/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"errors"
	"strings"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/geometry"
)

func sampleSchema() Schema {
	op := 0.6
	return Schema{
		ID:     "layout_1",
		Canvas: geometry.Size{W: 1000, H: 650},
		Elements: []Element{
			{ID: "bg", Frame: geometry.R(0, 0, 1000, 650), ZIndex: 0, Payload: Background{Src: "data:image/png;base64,iVBORw0KGgo=", Opacity: &op}},
			{ID: "p1", Frame: geometry.R(50, 50, 160, 90), ZIndex: 1, Rotation: 15, Payload: Photo{AspectRatio: &geometry.Ratio{W: 16, H: 9}}},
			{ID: "s1", Frame: geometry.R(300, 100, 100, 100), ZIndex: 2, Rotation: 350, Payload: Sticker{Emoji: "⭐"}},
			{ID: "f1", Frame: geometry.R(500, 200, 200, 200), ZIndex: 3, Payload: FrameDecor{Style: FrameRounded, Color: "#ff0000", Thickness: 4, Name: "gold-frame.png"}},
			{ID: "p2", Frame: geometry.R(700, 300, 100, 100), ZIndex: 4, Payload: Photo{Caption: "second"}},
		},
		Version: VersionCurrent,
	}
}

func TestEncodeDecode_PreservesElements(t *testing.T) {
	in := sampleSchema()
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Canvas != in.Canvas || out.ID != in.ID || out.Version != VersionCurrent {
		t.Fatalf("header mismatch: %+v", out)
	}
	if len(out.Elements) != len(in.Elements) {
		t.Fatalf("expected %d elements, got %d", len(in.Elements), len(out.Elements))
	}
	for i := range in.Elements {
		a, b := in.Elements[i], out.Elements[i]
		if a.ID != b.ID || a.Frame != b.Frame || a.ZIndex != b.ZIndex || a.Rotation != b.Rotation || a.Kind() != b.Kind() {
			t.Fatalf("element %d mismatch:\n in=%+v\nout=%+v", i, a, b)
		}
	}
	fd := out.Elements[3].Payload.(FrameDecor)
	if fd.Style != FrameRounded || fd.Thickness != 4 || fd.Name != "gold-frame.png" {
		t.Fatalf("frame payload lost: %+v", fd)
	}
	if bg := out.Elements[0].Payload.(Background); bg.Opacity == nil || *bg.Opacity != 0.6 {
		t.Fatalf("background opacity lost: %+v", bg)
	}
	if p := out.Elements[1].Payload.(Photo); p.AspectRatio == nil || p.AspectRatio.W != 16 {
		t.Fatalf("aspect ratio lost: %+v", p)
	}
}

func TestEncode_ConformsToPublishedSchema(t *testing.T) {
	data, err := Encode(sampleSchema())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(TileSchemaJSON()), gojsonschema.NewBytesLoader(data))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.Valid() {
		for _, e := range res.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("encoded schema does not conform")
	}
}

func TestDecode_VersionOneNodesArePhotos(t *testing.T) {
	doc := `{"id":"l","tileSize":{"width":800,"height":600},"version":1,
	  "nodes":[{"id":"a","frame":{"x":1,"y":2,"width":100,"height":80},"rotation":45,"type":"sticker"},
	           {"id":"b","frame":{"x":10,"y":20,"width":60,"height":60}}]}`
	s, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Version != VersionLegacy || len(s.Elements) != 2 {
		t.Fatalf("unexpected schema: %+v", s)
	}
	for i, e := range s.Elements {
		if e.Kind() != KindPhoto || e.Rotation != 0 {
			t.Fatalf("node %d should be an unrotated photo: %+v", i, e)
		}
		if e.ZIndex != i {
			t.Fatalf("missing zIndex should default to node order, got %d", e.ZIndex)
		}
	}
}

func TestDecode_LegacyEditorDocument(t *testing.T) {
	doc := `{"canvas":{"width":1000,"height":650},"rects":[{"id":"r1","x":50,"y":50,"width":100,"height":100,"aspectRatio":{"width":4,"height":3}}]}`
	s, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Version != VersionLegacy || s.Canvas.W != 1000 || len(s.Elements) != 1 {
		t.Fatalf("unexpected legacy schema: %+v", s)
	}
	if r := s.Elements[0].AspectRatio(); r == nil || r.W != 4 {
		t.Fatalf("legacy aspect ratio lost")
	}
}

func TestDecode_RejectsUnknownVersion(t *testing.T) {
	for _, doc := range []string{
		`{"tileSize":{"width":1,"height":1},"nodes":[],"version":3}`,
		`{"tileSize":{"width":1,"height":1},"nodes":[]}`,
		`{"tileSize":{"width":1,"height":1},"nodes":[],"version":1.5}`,
	} {
		if _, err := Decode([]byte(doc)); !errors.Is(err, ErrUnsupportedVersion) {
			t.Fatalf("expected ErrUnsupportedVersion for %s, got %v", doc, err)
		}
	}
}

func TestDecode_RejectsUnknownType(t *testing.T) {
	doc := `{"tileSize":{"width":100,"height":100},"version":2,"nodes":[{"id":"x","frame":{"x":0,"y":0,"width":10,"height":10},"type":"video"}]}`
	_, err := Decode([]byte(doc))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestDecode_VersionTwoNodesNeedType(t *testing.T) {
	doc := `{"tileSize":{"width":100,"height":100},"version":2,"nodes":[{"id":"x","frame":{"x":0,"y":0,"width":10,"height":10}}]}`
	if _, err := Decode([]byte(doc)); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType for untyped node, got %v", err)
	}
	tile, _, err := compiledSchemas()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := validate(tile, []byte(doc)); err == nil {
		t.Fatalf("tile schema accepted an untyped version 2 node")
	}
}

func TestDecode_StickerKeepsOneKindOfContent(t *testing.T) {
	doc := `{"tileSize":{"width":100,"height":100},"version":2,"nodes":[
	  {"id":"both","type":"sticker","frame":{"x":0,"y":0,"width":10,"height":10},"stickerData":{"emoji":"⭐","name":"cat.png","isUploaded":true}},
	  {"id":"emoji","type":"sticker","frame":{"x":0,"y":0,"width":10,"height":10},"stickerData":{"emoji":"⭐"}}]}`
	s, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	both := s.Elements[0].Payload.(Sticker)
	if both.Emoji != "" || both.Name != "cat.png" || !both.IsUploaded {
		t.Fatalf("image sticker kept its emoji: %+v", both)
	}
	if emoji := s.Elements[1].Payload.(Sticker); emoji.Emoji != "⭐" || emoji.HasImage() {
		t.Fatalf("emoji sticker changed: %+v", emoji)
	}
}

func TestPatch_NormalizesSticker(t *testing.T) {
	e := Element{ID: "s", Payload: Sticker{Emoji: "⭐"}}
	out, err := Patch{Payload: Sticker{Emoji: "⭐", Src: "data:image/png;base64,AA=="}}.Apply(e)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if st := out.Payload.(Sticker); st.Emoji != "" || st.Src == "" {
		t.Fatalf("patched sticker carries both: %+v", st)
	}
}

func TestDecode_ValidationError(t *testing.T) {
	doc := `{"tileSize":{"width":0,"height":100},"version":2,"nodes":[{"id":"x","type":"photo","frame":{"x":0,"y":0,"width":10}}]}`
	_, err := Decode([]byte(doc))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(ve.Problems) < 2 {
		t.Fatalf("expected several problems, got %v", ve.Problems)
	}
	if !strings.Contains(err.Error(), "invalid layout schema") {
		t.Fatalf("unexpected message %q", err)
	}
}

func TestSchemaClone_IsDeep(t *testing.T) {
	s := sampleSchema()
	c := s.Clone()
	c.Elements[1].Frame.X = 999
	c.Elements[1].Payload.(Photo).AspectRatio.W = 1
	if s.Elements[1].Frame.X == 999 || s.Elements[1].AspectRatio().W != 16 {
		t.Fatalf("clone shares state with original")
	}
}

func TestSanitizeRehydrate_RoundTrip(t *testing.T) {
	in := sampleSchema()
	in.Elements = append(in.Elements, Element{
		ID: "s2", Frame: geometry.R(10, 10, 100, 100), ZIndex: 5,
		Payload: Sticker{Src: "blob:http://localhost/123", Name: "cat.png", IsUploaded: true},
	})
	clean, extracted := Sanitize(in)
	if len(extracted) != 2 {
		t.Fatalf("expected 2 extracted payloads, got %d", len(extracted))
	}
	if extracted[0].Category != assets.Backgrounds || extracted[0].Data == nil || extracted[0].ContentType != "image/png" {
		t.Fatalf("background payload not decoded: %+v", extracted[0])
	}
	if !strings.HasPrefix(extracted[0].Name, "bg") || !strings.HasSuffix(extracted[0].Name, ".png") {
		t.Fatalf("derived name %q", extracted[0].Name)
	}
	if extracted[1].Name != "cat.png" || extracted[1].Data != nil {
		t.Fatalf("blob payload should be name-only: %+v", extracted[1])
	}
	for _, e := range clean.Elements {
		if ref, ok := AssetOf(e.Payload); ok && IsStrippable(ref) {
			t.Fatalf("element %s still carries inline src %q", e.ID, ref.Src)
		}
	}
	if in.Elements[0].Payload.(Background).Src == "" {
		t.Fatalf("Sanitize must not modify its input")
	}

	data, err := Encode(clean)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	loaded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	store := map[string]string{}
	for _, x := range extracted {
		store[string(x.Category)+"/"+x.Name] = "resolved:" + x.Name
	}
	out := Rehydrate(loaded, func(cat assets.Category, name string) (string, bool) {
		v, ok := store[string(cat)+"/"+name]
		return v, ok
	})
	for i := range in.Elements {
		a, b := in.Elements[i], out.Elements[i]
		if a.Frame != b.Frame || a.Rotation != b.Rotation || a.ZIndex != b.ZIndex || a.Kind() != b.Kind() {
			t.Fatalf("element %d changed across round trip", i)
		}
	}
	if bg := out.Elements[0].Payload.(Background); bg.Src != "resolved:"+extracted[0].Name {
		t.Fatalf("background src not rehydrated by name: %q", bg.Src)
	}
	if st := out.Elements[5].Payload.(Sticker); st.Src != "resolved:cat.png" {
		t.Fatalf("sticker src not rehydrated: %q", st.Src)
	}
	if st := out.Elements[2].Payload.(Sticker); st.Emoji != "⭐" || st.Src != "" {
		t.Fatalf("emoji sticker must be untouched: %+v", st)
	}
}

func TestNewElementID_HasPrefix(t *testing.T) {
	a, b := NewElementID(), NewElementID()
	if !strings.HasPrefix(a, "el_") || a == b {
		t.Fatalf("unexpected ids %q %q", a, b)
	}
}
