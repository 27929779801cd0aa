/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend serves saved layouts, uploaded assets and rendered
// galleries over HTTP.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/export"
	applog "gallerybuilder/internal/log"
	"gallerybuilder/internal/photos"
	"gallerybuilder/internal/storage"
)

// Config holds server configuration.
type Config struct {
	Addr           string   // http bind address, e.g. ":8080"
	AllowedOrigins []string // CORS origins; empty allows any http(s) origin
	// AuthSecret enables bearer tokens on every write route. Tokens are
	// minted with the CLI or by POST /api/auth/token, which itself takes
	// the secret as bearer credential.
	AuthSecret string
	// MaxAssetBytes caps uploads; 0 means 20 MiB.
	MaxAssetBytes int64
	// ImageHosts and ImageRoots bound what PNG rendering may read beyond
	// data URIs: remote hosts and local directories respectively.
	ImageHosts []string
	ImageRoots []string
}

// Deps are the services the handlers work on. Photos defaults to the
// placeholder collection.
type Deps struct {
	Layouts *storage.Registry
	Assets  assets.Store
	Catalog *assets.Catalog
	Photos  photos.Provider
}

// Server is the HTTP API.
type Server struct {
	cfg     Config
	layouts *storage.Registry
	assets  assets.Store
	catalog *assets.Catalog
	photos  photos.Provider
	images  *export.Loader
	log     *slog.Logger
}

// New wires a server; it does not listen yet.
func New(d Deps, cfg Config) (*Server, error) {
	if d.Layouts == nil {
		return nil, errors.New("layout registry is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxAssetBytes <= 0 {
		cfg.MaxAssetBytes = 20 << 20
	}
	if d.Catalog == nil {
		d.Catalog = assets.DefaultCatalog()
	}
	if d.Photos == nil {
		d.Photos = photos.Placeholder()
	}
	return &Server{
		cfg:     cfg,
		layouts: d.Layouts,
		assets:  d.Assets,
		catalog: d.Catalog,
		photos:  d.Photos,
		images:  export.NewRestrictedLoader(nil, 0, cfg.ImageHosts, cfg.ImageRoots),
		log:     applog.WithComponent("backend"),
	}, nil
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)
	r.Get("/version", handleVersion)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.AuthSecret != "" {
			r.Post("/auth/token", s.handleIssueToken)
		}
		r.Route("/layouts", func(r chi.Router) {
			r.Get("/", s.handleListLayouts)
			r.With(s.requireToken).Post("/", s.handleSaveLayout)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetLayout)
				r.With(s.requireToken).Put("/", s.handleUpdateLayout)
				r.With(s.requireToken).Delete("/", s.handleDeleteLayout)
				r.Get("/render", s.handleRenderLayout)
			})
		})
		r.Route("/assets/{category}", func(r chi.Router) {
			r.Get("/", s.handleListAssets)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetAsset)
				r.With(s.requireToken).Put("/", s.handlePutAsset)
				r.With(s.requireToken).Delete("/", s.handleDeleteAsset)
			})
		})
		r.Get("/photos", s.handleListPhotos)
		r.Get("/gallery", s.handleGallery)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("server listening", slog.String("addr", s.cfg.Addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	p, ok := s.layouts.Store().(pinger)
	if ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
