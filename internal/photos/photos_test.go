/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package photos

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPlaceholderPhotos(t *testing.T) {
	ps, err := Placeholder().Photos(context.Background())
	if err != nil {
		t.Fatalf("Photos: %v", err)
	}
	if len(ps) != 12 {
		t.Fatalf("expected 12 photos, got %d", len(ps))
	}
	if ps[0].ID != "p1" || ps[0].Width != 800 || ps[0].Height != 1200 || ps[0].Caption != "Mountain view" {
		t.Fatalf("unexpected first photo %+v", ps[0])
	}
	if ps[11].Src != "https://picsum.photos/id/111/1000/700" {
		t.Fatalf("unexpected last photo %+v", ps[11])
	}
	ps[0].Caption = "changed"
	if PlaceholderPhotos()[0].Caption != "Mountain view" {
		t.Fatalf("placeholder set must not be shared")
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestDirProvider(t *testing.T) {
	dir := t.TempDir()
	_ = os.MkdirAll(filepath.Join(dir, "trip"), 0o755)
	_ = os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755)
	writePNG(t, filepath.Join(dir, "b.png"), 40, 30)
	writePNG(t, filepath.Join(dir, "trip", "a.png"), 10, 20)
	writePNG(t, filepath.Join(dir, ".hidden", "c.png"), 10, 10)
	_ = os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("not an image"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)

	ps, err := NewDirProvider(dir).Photos(context.Background())
	if err != nil {
		t.Fatalf("Photos: %v", err)
	}
	if len(ps) != 2 {
		t.Fatalf("expected 2 photos, got %+v", ps)
	}
	if ps[0].ID != "b.png" || ps[0].Width != 40 || ps[0].Height != 30 || ps[0].Caption != "b" {
		t.Fatalf("unexpected photo %+v", ps[0])
	}
	if ps[1].ID != "trip/a.png" || !strings.HasPrefix(ps[1].Src, "file://") {
		t.Fatalf("unexpected photo %+v", ps[1])
	}
}

func TestClient_PhotosAndUpload(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/images":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": "1", "url": "https://cdn/1.jpg", "title": "One", "uploadedAt": "2025-01-01T00:00:00Z"},
				{"id": "2", "url": "", "title": "no url", "uploadedAt": "2025-01-01T00:00:00Z"},
			})
		case "/upload-images":
			f, hdr, err := r.FormFile("image")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "no file"})
				return
			}
			data, _ := io.ReadAll(f)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"image":   map[string]any{"id": "9", "url": "https://cdn/" + hdr.Filename, "title": string(data), "uploadedAt": "2025-01-01T00:00:00Z"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret")
	ps, err := c.Photos(context.Background())
	if err != nil {
		t.Fatalf("Photos: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("missing bearer token, got %q", gotAuth)
	}
	if len(ps) != 1 || ps[0].Src != "https://cdn/1.jpg" || ps[0].Caption != "One" {
		t.Fatalf("unexpected photos %+v", ps)
	}
	img, err := c.Upload(context.Background(), "sea.jpg", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if img.URL != "https://cdn/sea.jpg" || img.Title != "payload" {
		t.Fatalf("unexpected upload result %+v", img)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"disk full"}`))
	}))
	defer srv.Close()
	_, err := NewClient(srv.URL, "").Photos(context.Background())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected server error, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	if p, err := Open(Options{}); err != nil || p == nil {
		t.Fatalf("default provider: %v", err)
	}
	if _, err := Open(Options{Source: "dir"}); err == nil {
		t.Fatalf("dir without path must fail")
	}
	if _, err := Open(Options{Source: "api"}); err == nil {
		t.Fatalf("api without url must fail")
	}
	if _, err := Open(Options{Source: "flickr"}); err == nil {
		t.Fatalf("unknown source must fail")
	}
}
