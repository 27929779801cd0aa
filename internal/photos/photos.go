/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package photos supplies the photo collection a gallery is built from:
// a fixed placeholder set, a local directory, or the photo upload API.
package photos

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gallerybuilder/internal/layout"
	applog "gallerybuilder/internal/log"
)

// Provider returns the current photo collection in display order.
type Provider interface {
	Photos(ctx context.Context) ([]layout.PhotoItem, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) ([]layout.PhotoItem, error)

func (f ProviderFunc) Photos(ctx context.Context) ([]layout.PhotoItem, error) { return f(ctx) }

type placeholder struct{}

// Placeholder returns the built-in sample collection.
func Placeholder() Provider { return placeholder{} }

func (placeholder) Photos(context.Context) ([]layout.PhotoItem, error) {
	return PlaceholderPhotos(), nil
}

// PlaceholderPhotos returns a fresh copy of the sample collection.
func PlaceholderPhotos() []layout.PhotoItem {
	return []layout.PhotoItem{
		{ID: "p1", Src: "https://picsum.photos/id/1015/800/1200", Width: 800, Height: 1200, Caption: "Mountain view"},
		{ID: "p2", Src: "https://picsum.photos/id/1025/1200/800", Width: 1200, Height: 800, Caption: "Golden retriever"},
		{ID: "p3", Src: "https://picsum.photos/id/1035/900/1200", Width: 900, Height: 1200, Caption: "Forest path"},
		{ID: "p4", Src: "https://picsum.photos/id/1041/1200/900", Width: 1200, Height: 900, Caption: "City skyline"},
		{ID: "p5", Src: "https://picsum.photos/id/1050/1000/1000", Width: 1000, Height: 1000, Caption: "Square texture"},
		{ID: "p6", Src: "https://picsum.photos/id/1060/900/1400", Width: 900, Height: 1400, Caption: "Waterfall"},
		{ID: "p7", Src: "https://picsum.photos/id/1074/1200/900", Width: 1200, Height: 900, Caption: "Coastline"},
		{ID: "p8", Src: "https://picsum.photos/id/1084/900/900", Width: 900, Height: 900, Caption: "Abstract pattern"},
		{ID: "p9", Src: "https://picsum.photos/id/1080/1200/1600", Width: 1200, Height: 1600, Caption: "Desert dunes"},
		{ID: "p10", Src: "https://picsum.photos/id/109/1200/900", Width: 1200, Height: 900, Caption: "Bridge"},
		{ID: "p11", Src: "https://picsum.photos/id/110/900/1200", Width: 900, Height: 1200, Caption: "Dock"},
		{ID: "p12", Src: "https://picsum.photos/id/111/1000/700", Width: 1000, Height: 700, Caption: "River"},
	}
}

// Options selects a provider.
type Options struct {
	Source  string // placeholder, dir or api
	Dir     string
	APIURL  string
	Token   string
	Timeout time.Duration
}

// Open returns the configured provider; an empty source selects placeholder.
func Open(o Options) (Provider, error) {
	l := applog.WithOperation(applog.WithComponent("photos"), "open").With(slog.String("source", o.Source))
	var p Provider
	switch o.Source {
	case "", "placeholder":
		p = Placeholder()
	case "dir":
		if o.Dir == "" {
			return nil, fmt.Errorf("photos source dir needs a directory")
		}
		p = NewDirProvider(o.Dir)
	case "api":
		if o.APIURL == "" {
			return nil, fmt.Errorf("photos source api needs a url")
		}
		c := NewClient(o.APIURL, o.Token)
		if o.Timeout > 0 {
			c.SetTimeout(o.Timeout)
		}
		p = c
	default:
		return nil, fmt.Errorf("unknown photos source %q", o.Source)
	}
	l.Debug("photo provider ready")
	return p, nil
}
