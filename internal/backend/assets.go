/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"gallerybuilder/internal/assets"
)

type assetInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int    `json:"size,omitempty"`
	URL         string `json:"url"`
}

type assetListing struct {
	Category assets.Category `json:"category"`
	Uploaded []assetInfo     `json:"uploaded"`
	Defaults []assetInfo     `json:"defaults"`
}

var errNoAssetStore = errors.New("no asset store configured")

func category(w http.ResponseWriter, r *http.Request) (assets.Category, bool) {
	cat, err := assets.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return cat, true
}

func assetURL(cat assets.Category, name string) string {
	return fmt.Sprintf("/api/assets/%s/%s", cat, name)
}

// handleListAssets lists uploaded assets of a category, without data, next
// to the bundled defaults.
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	cat, ok := category(w, r)
	if !ok {
		return
	}
	out := assetListing{Category: cat, Uploaded: []assetInfo{}, Defaults: []assetInfo{}}
	if s.assets != nil {
		list, err := s.assets.List(r.Context(), cat)
		if err != nil {
			s.fail(w, r, "list assets", err)
			return
		}
		for _, a := range list {
			out.Uploaded = append(out.Uploaded, assetInfo{Name: a.Name, ContentType: a.ContentType, Size: len(a.Data), URL: assetURL(cat, a.Name)})
		}
	}
	for _, e := range s.catalog.Entries(cat) {
		out.Defaults = append(out.Defaults, assetInfo{Name: e.File, URL: assetURL(cat, e.File)})
	}
	render.JSON(w, r, out)
}

// handleGetAsset serves an uploaded asset, falling back to the default
// catalog by name.
func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	cat, ok := category(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	var a assets.Asset
	err := assets.ErrNotFound
	if s.assets != nil {
		a, err = s.assets.Get(r.Context(), cat, name)
	}
	if errors.Is(err, assets.ErrNotFound) {
		if uri, found := s.catalog.Lookup(cat, name); found {
			data, ct, derr := assets.DecodeDataURI(uri)
			if derr == nil {
				a, err = assets.Asset{Category: cat, Name: name, ContentType: ct, Data: data}, nil
			}
		}
	}
	if err != nil {
		s.fail(w, r, "get asset", err)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(a.Data)
}

func (s *Server) handlePutAsset(w http.ResponseWriter, r *http.Request) {
	cat, ok := category(w, r)
	if !ok {
		return
	}
	if s.assets == nil {
		renderError(w, r, http.StatusServiceUnavailable, errNoAssetStore)
		return
	}
	name := chi.URLParam(r, "name")
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxAssetBytes))
	if err != nil {
		renderError(w, r, http.StatusRequestEntityTooLarge, fmt.Errorf("read asset: %w", err))
		return
	}
	if len(data) == 0 {
		renderError(w, r, http.StatusBadRequest, errors.New("empty asset"))
		return
	}
	if err := s.assets.Put(r.Context(), cat, name, data); err != nil {
		s.fail(w, r, "put asset", err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, assetInfo{Name: name, ContentType: assets.ContentTypeFor(name, data), Size: len(data), URL: assetURL(cat, name)})
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	cat, ok := category(w, r)
	if !ok {
		return
	}
	if s.assets == nil {
		renderError(w, r, http.StatusServiceUnavailable, errNoAssetStore)
		return
	}
	if err := s.assets.Delete(r.Context(), cat, chi.URLParam(r, "name")); err != nil {
		s.fail(w, r, "delete asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
