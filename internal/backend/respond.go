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
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/layout"
	"gallerybuilder/internal/storage"
	"gallerybuilder/internal/version"
)

func renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *layout.ValidationError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, assets.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrNameRequired),
		errors.Is(err, assets.ErrUnknownCategory),
		errors.Is(err, assets.ErrInvalidName),
		errors.Is(err, layout.ErrUnsupportedVersion),
		errors.Is(err, layout.ErrUnknownType),
		errors.As(err, &verr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", slog.String("op", op), slog.Any("err", err))
	}
	renderError(w, r, status, err)
}

func handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(version.String()))
}
