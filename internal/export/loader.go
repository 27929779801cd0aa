/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"gallerybuilder/internal/assets"
	applog "gallerybuilder/internal/log"
)

var (
	// errVector marks sources that are valid but cannot be rasterized.
	errVector = errors.New("vector image")
	// ErrSourceDenied is returned for sources a restricted loader refuses.
	ErrSourceDenied = errors.New("image source not allowed")
)

const maxImageBytes = 64 << 20

// Loader fetches and decodes images referenced by a gallery. Sources may be
// data URIs, file URLs, plain paths or http(s) URLs.
type Loader struct {
	client *http.Client
	limit  int

	restricted bool
	hosts      map[string]bool
	roots      []string
}

// NewLoader returns a loader using client (http.DefaultClient with a 30s
// timeout when nil) and at most limit concurrent fetches (8 when <= 0).
func NewLoader(client *http.Client, limit int) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if limit <= 0 {
		limit = 8
	}
	return &Loader{client: client, limit: limit}
}

// NewRestrictedLoader is NewLoader for untrusted galleries: it reads data
// URIs, http(s) URLs whose host is in hosts (redirects included) and files
// below one of roots. Everything else fails with ErrSourceDenied.
func NewRestrictedLoader(client *http.Client, limit int, hosts, roots []string) *Loader {
	ld := NewLoader(client, limit)
	ld.restricted = true
	ld.hosts = make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			ld.hosts[h] = true
		}
	}
	for _, r := range roots {
		if r == "" {
			continue
		}
		if abs, err := canonicalPath(r); err == nil {
			ld.roots = append(ld.roots, abs)
		}
	}
	c := *ld.client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return ld.checkHost(req.URL)
	}
	ld.client = &c
	return ld
}

func canonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (ld *Loader) allow(src string) error {
	if !ld.restricted || strings.HasPrefix(src, "data:") {
		return nil
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		u, err := url.Parse(src)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSourceDenied, err)
		}
		return ld.checkHost(u)
	}
	p := src
	if strings.HasPrefix(src, "file://") {
		u, err := url.Parse(src)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSourceDenied, err)
		}
		p = u.Path
	}
	return ld.checkPath(p)
}

func (ld *Loader) checkHost(u *url.URL) error {
	if ld.restricted && !ld.hosts[strings.ToLower(u.Hostname())] {
		return fmt.Errorf("%w: host %q", ErrSourceDenied, u.Hostname())
	}
	return nil
}

func (ld *Loader) checkPath(p string) error {
	if p == "" || (strings.Contains(p, ":") && !filepath.IsAbs(p)) {
		return fmt.Errorf("%w: %q", ErrSourceDenied, shortSrc(p))
	}
	resolved, err := canonicalPath(p)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrSourceDenied, shortSrc(p))
	}
	for _, root := range ld.roots {
		rel, err := filepath.Rel(root, resolved)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrSourceDenied, shortSrc(p))
}

// Load decodes every distinct non-empty src. Sources that fail are logged
// and left out; the renderer draws placeholders for them.
func (ld *Loader) Load(ctx context.Context, srcs []string) map[string]image.Image {
	l := applog.WithOperation(applog.WithComponent("export"), "load_images")
	out := make(map[string]image.Image, len(srcs))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ld.limit)
	seen := map[string]bool{}
	for _, src := range srcs {
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		g.Go(func() error {
			img, err := ld.decode(ctx, src)
			if err != nil {
				l.Debug("image skipped", slog.String("src", shortSrc(src)), slog.Any("err", err))
				return nil
			}
			mu.Lock()
			out[src] = img
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (ld *Loader) decode(ctx context.Context, src string) (image.Image, error) {
	data, err := ld.read(ctx, src)
	if err != nil {
		return nil, err
	}
	if assets.SniffContentType(data) == "image/svg+xml" {
		return nil, errVector
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func (ld *Loader) read(ctx context.Context, src string) ([]byte, error) {
	if err := ld.allow(src); err != nil {
		return nil, err
	}
	switch {
	case strings.HasPrefix(src, "data:"):
		data, _, err := assets.DecodeDataURI(src)
		return data, err
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		resp, err := ld.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse file url: %w", err)
		}
		return os.ReadFile(u.Path)
	case strings.HasPrefix(src, "blob:"):
		return nil, errors.New("blob urls are browser-local")
	}
	return os.ReadFile(src)
}

func shortSrc(src string) string {
	if len(src) > 64 {
		return src[:64] + "..."
	}
	return src
}
