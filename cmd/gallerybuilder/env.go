/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/backend"
	"gallerybuilder/internal/config"
	"gallerybuilder/internal/crash"
	"gallerybuilder/internal/editor"
	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/gesture"
	applog "gallerybuilder/internal/log"
	"gallerybuilder/internal/photos"
	"gallerybuilder/internal/storage"
	"gallerybuilder/internal/telemetry"
	"gallerybuilder/internal/tiling"
	"gallerybuilder/internal/ui"
)

// env holds the services a command works on. Stores are opened lazily so
// that commands like version need no disk access.
type env struct {
	cfg   config.AppConfig
	token string
	log   *slog.Logger

	layouts *storage.Registry
	assets  assets.Store
}

func loadEnv() (*env, error) {
	cfg, token, err := config.Load()
	if err != nil {
		return nil, err
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	tc := telemetry.FromEnv()
	tc.OptIn = cfg.Telemetry.OptIn
	if cfg.Telemetry.EventsURL != "" {
		tc.EventsURL = cfg.Telemetry.EventsURL
	}
	if cfg.Telemetry.CrashURL != "" {
		tc.CrashURL = cfg.Telemetry.CrashURL
	}
	telemetry.Install(tc)
	if dir, err := config.DataDir(); err == nil {
		crash.Dir = filepath.Join(dir, "crash")
	}
	return &env{cfg: cfg, token: token, log: applog.WithComponent("cli")}, nil
}

func (e *env) assetStore(ctx context.Context) (assets.Store, error) {
	if e.assets != nil {
		return e.assets, nil
	}
	s, err := assets.Open(ctx, assets.Options{
		Driver:   e.cfg.Assets.Driver,
		Path:     e.cfg.Assets.Path,
		S3Bucket: e.cfg.Assets.S3Bucket,
		S3Prefix: e.cfg.Assets.S3Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open asset store: %w", err)
	}
	e.assets = s
	return s, nil
}

func (e *env) registry(ctx context.Context) (*storage.Registry, error) {
	if e.layouts != nil {
		return e.layouts, nil
	}
	as, err := e.assetStore(ctx)
	if err != nil {
		return nil, err
	}
	s, err := storage.Open(ctx, storage.Options{
		Driver:      e.cfg.Storage.Driver,
		Path:        e.cfg.Storage.Path,
		PostgresDSN: e.cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open layout store: %w", err)
	}
	e.layouts = storage.NewRegistry(s, as)
	return e.layouts, nil
}

// catalog is the bundled default catalog plus the configured directory.
func (e *env) catalog() *assets.Catalog {
	c := assets.DefaultCatalog()
	if dir := e.cfg.Assets.CatalogDir; dir != "" {
		extra, err := assets.LoadCatalogDir(dir)
		if err != nil {
			e.log.Warn("catalog dir ignored", slog.Any("err", err))
		} else {
			c.Merge(extra)
		}
	}
	return c
}

func (e *env) photos() (photos.Provider, error) {
	return photos.Open(photos.Options{
		Source:  e.cfg.Photos.Source,
		Dir:     e.cfg.Photos.Dir,
		APIURL:  e.cfg.Photos.APIURL,
		Token:   e.token,
		Timeout: e.cfg.Photos.Timeout(),
	})
}

func (e *env) direction() tiling.Direction {
	d, err := tiling.ParseDirection(e.cfg.Gallery.Direction)
	if err != nil {
		e.log.Warn("unknown scroll direction, using vertical", slog.String("direction", e.cfg.Gallery.Direction))
		return tiling.Vertical
	}
	return d
}

func (e *env) editorOptions() editor.Options {
	return editor.Options{
		Canvas: geometry.Size{W: e.cfg.Editor.CanvasWidth, H: e.cfg.Editor.CanvasHeight},
		Snap: geometry.SnapOptions{
			Threshold:     e.cfg.Editor.SnapThreshold,
			SnapToEdges:   true,
			SnapToCenters: true,
		},
	}
}

func (e *env) uiOptions(ctx context.Context, layoutID string) (ui.Options, error) {
	reg, err := e.registry(ctx)
	if err != nil {
		return ui.Options{}, err
	}
	p, err := e.photos()
	if err != nil {
		return ui.Options{}, err
	}
	return ui.Options{
		Registry:  reg,
		Assets:    e.assets,
		Catalog:   e.catalog(),
		Photos:    p,
		Surface:   e.editorOptions(),
		Gesture:   gesture.Options{DragThreshold: e.cfg.Editor.DragThreshold, MinSize: e.cfg.Editor.MinSize},
		Direction: e.direction(),
		LayoutID:  layoutID,
	}, nil
}

func (e *env) server(ctx context.Context) (*backend.Server, error) {
	reg, err := e.registry(ctx)
	if err != nil {
		return nil, err
	}
	p, err := e.photos()
	if err != nil {
		return nil, err
	}
	hosts := append([]string(nil), e.cfg.Server.ImageHosts...)
	var roots []string
	switch e.cfg.Photos.Source {
	case "api":
		if u, err := url.Parse(e.cfg.Photos.APIURL); err == nil && u.Hostname() != "" {
			hosts = append(hosts, u.Hostname())
		}
	case "dir":
		roots = append(roots, e.cfg.Photos.Dir)
	}
	return backend.New(backend.Deps{
		Layouts: reg,
		Assets:  e.assets,
		Catalog: e.catalog(),
		Photos:  p,
	}, backend.Config{
		Addr:           e.cfg.Server.Addr,
		AllowedOrigins: e.cfg.Server.AllowedOrigins,
		AuthSecret:     config.AuthSecret(),
		ImageHosts:     hosts,
		ImageRoots:     roots,
	})
}

func (e *env) Close() error {
	var errs []error
	if e.layouts != nil {
		errs = append(errs, e.layouts.Close())
	}
	if e.assets != nil {
		errs = append(errs, e.assets.Close())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	telemetry.Flush(ctx)
	errs = append(errs, applog.Close())
	return errors.Join(errs...)
}

func fatal(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
