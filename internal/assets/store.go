/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package assets stores uploaded sticker, frame and background images,
// resolves asset references for rendering and ships a default catalog.
package assets

import (
	"context"
	"fmt"

	"gallerybuilder/internal/fsutil"
)

// Store is a binary blob store keyed by category and name. Names are single
// path elements such as "cat.png".
type Store interface {
	Put(ctx context.Context, cat Category, name string, data []byte) error
	// Get returns ErrNotFound when no asset is stored under name.
	Get(ctx context.Context, cat Category, name string) (Asset, error)
	// List returns all assets of a category sorted by name, data included.
	List(ctx context.Context, cat Category) ([]Asset, error)
	Delete(ctx context.Context, cat Category, name string) error
	Clear(ctx context.Context, cat Category) error
	Close() error
}

func checkKey(cat Category, name string) error {
	if _, err := ParseCategory(string(cat)); err != nil {
		return err
	}
	if !fsutil.IsSafeName(name) {
		return fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	return nil
}
