/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"gallerybuilder/internal/presentation"
)

func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	items, err := s.photos.Photos(r.Context())
	if err != nil {
		renderError(w, r, http.StatusBadGateway, fmt.Errorf("load photos: %w", err))
		return
	}
	render.JSON(w, r, items)
}

// handleGallery arranges the photo collection in a presentation style.
// Query: style, width (default 1024) and frame (rounded or square).
func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	style, err := presentation.ParseStyle(q.Get("style"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	frame, err := presentation.ParseFrameStyle(q.Get("frame"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	width, err := floatParam(q.Get("width"))
	if err != nil || (width == 0 && q.Get("width") != "") {
		renderError(w, r, http.StatusBadRequest, fmt.Errorf("invalid width %q", q.Get("width")))
		return
	}
	if width == 0 {
		width = 1024
	}
	items, err := s.photos.Photos(r.Context())
	if err != nil {
		renderError(w, r, http.StatusBadGateway, fmt.Errorf("load photos: %w", err))
		return
	}
	render.JSON(w, r, presentation.Arrange(style, items, presentation.Options{Width: width, FrameStyle: frame}))
}
