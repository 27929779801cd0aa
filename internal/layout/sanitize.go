/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"gallerybuilder/internal/assets"
)

// Extracted is an inline image payload removed from a schema by Sanitize.
// Data is nil for blob: URIs and remote uploads, whose bytes are not available.
type Extracted struct {
	Category    assets.Category
	Name        string
	ContentType string
	Data        []byte
}

// CategoryOf maps a decorative element kind to its asset category.
func CategoryOf(k Kind) (assets.Category, bool) {
	switch k {
	case KindSticker:
		return assets.Stickers, true
	case KindFrame:
		return assets.Frames, true
	case KindBackground:
		return assets.Backgrounds, true
	}
	return "", false
}

// IsStrippable reports whether ref carries a src that must not be persisted.
func IsStrippable(ref AssetRef) bool {
	return ref.Src != "" && (assets.IsInline(ref.Src) || ref.IsUploaded)
}

// Sanitize returns a copy of s whose stickers, frames and backgrounds no
// longer carry inline image payloads. A src is stripped when it is a data: or
// blob: URI or when the asset is marked uploaded; the element keeps a name
// reference (one is derived from the element id when missing) and is marked
// uploaded so it can be rehydrated. Decodable payloads are returned so the
// caller can write them to the asset store.
func Sanitize(s Schema) (Schema, []Extracted) {
	out := s.Clone()
	var extracted []Extracted
	for i, e := range out.Elements {
		ref, ok := AssetOf(e.Payload)
		if !ok || !IsStrippable(ref) {
			continue
		}
		cat, _ := CategoryOf(e.Kind())
		x := Extracted{Category: cat, Name: ref.Name}
		if data, ct, err := assets.DecodeDataURI(ref.Src); err == nil {
			x.Data, x.ContentType = data, ct
		}
		if x.Name == "" {
			x.Name = e.ID + assets.ExtensionFor(x.ContentType)
		}
		extracted = append(extracted, x)
		out.Elements[i].Payload = withAsset(e.Payload, AssetRef{Name: x.Name, IsUploaded: true})
	}
	return out, extracted
}

// Lookup resolves an uploaded asset name to a displayable src.
type Lookup func(cat assets.Category, name string) (src string, ok bool)

// Rehydrate returns a copy of s where uploaded assets without src get one from lookup.
// Names lookup cannot resolve are left for the renderer's fallback chain.
func Rehydrate(s Schema, lookup Lookup) Schema {
	out := s.Clone()
	if lookup == nil {
		return out
	}
	for i, e := range out.Elements {
		ref, ok := AssetOf(e.Payload)
		if !ok || ref.Src != "" || !ref.IsUploaded || ref.Name == "" {
			continue
		}
		cat, _ := CategoryOf(e.Kind())
		if src, found := lookup(cat, ref.Name); found {
			ref.Src = src
			out.Elements[i].Payload = withAsset(e.Payload, ref)
		}
	}
	return out
}
