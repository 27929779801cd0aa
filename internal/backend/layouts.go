/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/export"
	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/layout"
	"gallerybuilder/internal/telemetry"
	"gallerybuilder/internal/tiling"
)

type layoutSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Elements   int       `json:"elements"`
	PhotoSlots int       `json:"photoSlots"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type layoutRequest struct {
	Name   string        `json:"name"`
	Schema layout.Schema `json:"schema"`
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	list, err := s.layouts.List(r.Context())
	if err != nil {
		s.fail(w, r, "list layouts", err)
		return
	}
	out := make([]layoutSummary, 0, len(list))
	for _, l := range list {
		out = append(out, layoutSummary{
			ID:         l.ID,
			Name:       l.Name,
			Elements:   len(l.Schema.Elements),
			PhotoSlots: l.Schema.PhotoSlots(),
			CreatedAt:  l.CreatedAt,
			UpdatedAt:  l.UpdatedAt,
		})
	}
	render.JSON(w, r, out)
}

func decodeLayoutRequest(w http.ResponseWriter, r *http.Request) (layoutRequest, bool) {
	var req layoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 32<<20)).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, fmt.Errorf("decode layout: %w", err))
		return req, false
	}
	return req, true
}

func (s *Server) handleSaveLayout(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLayoutRequest(w, r)
	if !ok {
		return
	}
	saved, err := s.layouts.Save(r.Context(), req.Name, req.Schema)
	if err != nil {
		s.fail(w, r, "save layout", err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, saved)
}

func (s *Server) handleUpdateLayout(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLayoutRequest(w, r)
	if !ok {
		return
	}
	saved, err := s.layouts.Update(r.Context(), chi.URLParam(r, "id"), req.Name, req.Schema)
	if err != nil {
		s.fail(w, r, "update layout", err)
		return
	}
	render.JSON(w, r, saved)
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	l, err := s.layouts.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "get layout", err)
		return
	}
	render.JSON(w, r, l)
}

func (s *Server) handleDeleteLayout(w http.ResponseWriter, r *http.Request) {
	if err := s.layouts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, "delete layout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRenderLayout tiles a saved layout over the photo collection.
// Query: width, height (viewport), direction, format=json|svg|png, tile
// (1-based, png only) and quality (png only).
func (s *Server) handleRenderLayout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vw, err1 := floatParam(q.Get("width"))
	vh, err2 := floatParam(q.Get("height"))
	dir, err3 := tiling.ParseDirection(q.Get("direction"))
	for _, err := range []error{err1, err2, err3} {
		if err != nil {
			renderError(w, r, http.StatusBadRequest, err)
			return
		}
	}
	saved, err := s.layouts.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, "render layout", err)
		return
	}
	items, err := s.photos.Photos(r.Context())
	if err != nil {
		renderError(w, r, http.StatusBadGateway, fmt.Errorf("load photos: %w", err))
		return
	}
	res := assets.NewResolver(s.assets, s.catalog, assets.ResolverOptions{})
	defer res.Close()
	g := tiling.Render(tiling.Input{
		Schema:    saved.Schema,
		Photos:    items,
		Viewport:  geometry.Size{W: vw, H: vh},
		Direction: dir,
		Assets:    res,
	})
	telemetry.Event(telemetry.GalleryRendered, map[string]any{"tiles": len(g.Tiles), "photos": len(items)})

	switch q.Get("format") {
	case "", "json":
		render.JSON(w, r, g)
	case "svg":
		data, err := export.RenderSVG(g, saved.Name)
		if err != nil {
			s.fail(w, r, "render svg", err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(data)
	case "png":
		s.renderTilePNG(w, r, g)
	default:
		renderError(w, r, http.StatusBadRequest, fmt.Errorf("unknown render format %q", q.Get("format")))
	}
}

func (s *Server) renderTilePNG(w http.ResponseWriter, r *http.Request, g tiling.Gallery) {
	q := r.URL.Query()
	idx := 1
	if v := q.Get("tile"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, fmt.Errorf("invalid tile %q", v))
			return
		}
		idx = n
	}
	if idx < 1 || idx > len(g.Tiles) {
		renderError(w, r, http.StatusNotFound, fmt.Errorf("tile %d out of range", idx))
		return
	}
	quality, err := export.ParseQuality(q.Get("quality"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	if q.Get("quality") == "" {
		quality = export.QualityMedium
	}
	rz := export.NewRasterizer(r.Context(), g, export.Options{Quality: quality, Loader: s.images})
	var buf bytes.Buffer
	if err := png.Encode(&buf, rz.Tile(g.Tiles[idx-1])); err != nil {
		s.fail(w, r, "encode png", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func floatParam(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid size %q", v)
	}
	return f, nil
}
