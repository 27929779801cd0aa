/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"errors"
	"fmt"
)

// Category is a named collection in the asset store.
type Category string

const (
	Stickers    Category = "stickers"
	Frames      Category = "frames"
	Backgrounds Category = "backgrounds"
)

// Categories lists every category in a stable order.
var Categories = []Category{Stickers, Frames, Backgrounds}

var (
	// ErrNotFound is returned when no asset exists under a name.
	ErrNotFound = errors.New("asset not found")
	// ErrUnknownCategory is returned for category names outside Categories.
	ErrUnknownCategory = errors.New("unknown asset category")
	// ErrInvalidName is returned for names that are not a single path element.
	ErrInvalidName = errors.New("invalid asset name")
)

// ParseCategory accepts a category name such as "stickers".
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownCategory)
}

// Asset is a stored binary blob.
type Asset struct {
	Category    Category `json:"category"`
	Name        string   `json:"name"`
	ContentType string   `json:"contentType"`
	Data        []byte   `json:"-"`
}
