/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gallerybuilder/internal/assets"
	"gallerybuilder/internal/geometry"
	"gallerybuilder/internal/layout"
	"gallerybuilder/internal/tiling"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

func pngBytes(t *testing.T, c color.Color, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func pngURI(t *testing.T, c color.Color, w, h int) string {
	return assets.DataURI("image/png", pngBytes(t, c, w, h))
}

func testGallery(t *testing.T, n int) tiling.Gallery {
	t.Helper()
	photo := pngURI(t, red, 40, 20)
	ps := make([]layout.PhotoItem, n)
	for i := range ps {
		ps[i] = layout.PhotoItem{ID: "p" + string(rune('1'+i)), Src: photo, Width: 40, Height: 20, Caption: "Photo caption"}
	}
	schema := layout.Schema{
		ID:      "export_test",
		Canvas:  geometry.Size{W: 200, H: 100},
		Version: layout.VersionCurrent,
		Elements: []layout.Element{
			{ID: "bg", Frame: geometry.R(0, 0, 200, 100), Payload: layout.Background{Name: "nowhere"}},
			{ID: "a", Frame: geometry.R(0, 0, 100, 100), ZIndex: 1, Payload: layout.Photo{}},
			{ID: "b", Frame: geometry.R(100, 0, 100, 100), ZIndex: 2, Rotation: 90, Payload: layout.Photo{}},
			{ID: "s", Frame: geometry.R(80, 40, 20, 20), ZIndex: 3, Payload: layout.Sticker{Src: pngURI(t, blue, 10, 10), Name: "dot.png"}},
			{ID: "f", Frame: geometry.R(0, 0, 100, 100), ZIndex: 4, Payload: layout.FrameDecor{Style: layout.FramePolaroid, Name: "missing-frame"}},
		},
	}
	return tiling.Render(tiling.Input{Schema: schema, Photos: ps, Viewport: geometry.Size{W: 200, H: 600}})
}

func ptr[T any](v T) *T { return &v }

func near(a, b color.RGBA) bool {
	d := func(x, y uint8) int {
		if x > y {
			return int(x - y)
		}
		return int(y - x)
	}
	return d(a.R, b.R) <= 3 && d(a.G, b.G) <= 3 && d(a.B, b.B) <= 3
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	r, g, b, a := img.At(x, y).RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}

func TestExport_PNGPerTile(t *testing.T) {
	g := testGallery(t, 3)
	if len(g.Tiles) != 2 {
		t.Fatalf("expected 2 tiles, got %d", len(g.Tiles))
	}
	dir := t.TempDir()
	res, err := Export(context.Background(), g, dir, Options{Format: FormatPNG, Quality: QualityMedium})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(res.Files) != 2 || filepath.Base(res.Files[0]) != "tile-001.png" || filepath.Base(res.Files[1]) != "tile-002.png" {
		t.Fatalf("unexpected files: %v", res.Files)
	}
	img := decodePNG(t, res.Files[0])
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("medium quality keeps gallery size, got %v", b)
	}
	if c := rgbaAt(img, 50, 30); !near(c, red) {
		t.Fatalf("photo a not drawn: %v", c)
	}
	if c := rgbaAt(img, 150, 50); !near(c, red) {
		t.Fatalf("rotated photo b not drawn: %v", c)
	}
	if c := rgbaAt(img, 90, 50); !near(c, blue) {
		t.Fatalf("sticker not drawn on top: %v", c)
	}
	// polaroid placeholder frame: white border over the photo
	if c := rgbaAt(img, 1, 50); !near(c, colWhite) {
		t.Fatalf("frame border missing: %v", c)
	}
	// tile 2 only fills slot a; slot b shows the background placeholder fill
	img2 := decodePNG(t, res.Files[1])
	if c := rgbaAt(img2, 150, 50); !near(c, color.RGBA{0xF3, 0xF4, 0xF6, 255}) {
		t.Fatalf("expected background fill in empty slot, got %v", c)
	}
}

func TestExport_QualityAndSize(t *testing.T) {
	g := testGallery(t, 2)
	dir := t.TempDir()
	res, err := Export(context.Background(), g, dir, Options{Format: FormatPNG, Quality: QualityLow})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if b := decodePNG(t, res.Files[0]).Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("low quality halves the size, got %v", b)
	}

	big := tiling.Gallery{TileSize: geometry.Size{W: 2000, H: 1000}}
	if s := rasterScale(big, Options{Quality: QualityHigh, Size: SizeSmall}); s != 0.4 {
		t.Fatalf("small size caps the long side at 800, scale %v", s)
	}
	if s := rasterScale(big, Options{Quality: QualityLow, Size: SizeLarge}); s != 0.5 {
		t.Fatalf("cap must not upscale, scale %v", s)
	}
	if s := rasterScale(big, Options{Quality: QualityOriginal, Size: SizeOriginal}); s != 3 {
		t.Fatalf("original quality is 3x, got %v", s)
	}
}

func TestExport_JPEG(t *testing.T) {
	g := testGallery(t, 1)
	res, err := Export(context.Background(), g, t.TempDir(), Options{Format: FormatJPG, Quality: QualityMedium})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(res.Files) != 1 || !strings.HasSuffix(res.Files[0], ".jpg") {
		t.Fatalf("unexpected files: %v", res.Files)
	}
	f, err := os.Open(res.Files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := jpeg.DecodeConfig(f); err != nil {
		t.Fatalf("not a jpeg: %v", err)
	}
}

func TestExport_ZIPWithManifest(t *testing.T) {
	g := testGallery(t, 3)
	out := filepath.Join(t.TempDir(), "gallery.zip")
	if _, err := Export(context.Background(), g, out, Options{Format: FormatZIP, Quality: QualityLow, IncludeMetadata: true, Title: "Holiday"}); err != nil {
		t.Fatalf("export: %v", err)
	}
	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()
	var names []string
	var man Manifest
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name != ManifestName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open manifest: %v", err)
		}
		data, _ := io.ReadAll(rc)
		_ = rc.Close()
		if err := json.Unmarshal(data, &man); err != nil {
			t.Fatalf("manifest json: %v", err)
		}
	}
	if strings.Join(names, ",") != "tile-001.png,tile-002.png,manifest.json" {
		t.Fatalf("unexpected entries: %v", names)
	}
	if man.Title != "Holiday" || len(man.Tiles) != 2 || man.Tiles[0].Photos != 2 || man.Tiles[1].Photos != 1 {
		t.Fatalf("unexpected manifest: %+v", man)
	}
	if len(man.Photos) != 3 || man.Photos[2].ID != "p3" || man.Photos[2].Tile != 1 || man.Photos[2].Slot != 0 {
		t.Fatalf("unexpected photo entries: %+v", man.Photos)
	}
	if man.Width != 100 || man.Height != 50 {
		t.Fatalf("unexpected manifest size %dx%d", man.Width, man.Height)
	}
}

func TestExport_PDFOnePagePerTile(t *testing.T) {
	g := testGallery(t, 3)
	out := filepath.Join(t.TempDir(), "out", "gallery.pdf")
	if _, err := Export(context.Background(), g, out, Options{Format: FormatPDF, Quality: QualityLow}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
	if !bytes.Contains(data, []byte("/Count 2")) {
		t.Fatalf("expected 2 pages")
	}
}

func TestExport_SVGPreview(t *testing.T) {
	g := testGallery(t, 3)
	out := filepath.Join(t.TempDir(), "gallery.svg")
	if _, err := Export(context.Background(), g, out, Options{Format: FormatSVG, Title: "A & B"}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	s := string(data)
	for _, want := range []string{
		`viewBox="0 0 200 200"`,
		`<title>A &amp; B</title>`,
		`<g id="tile-1" transform="translate(0 0)">`,
		`<g id="tile-2" transform="translate(0 100)">`,
		`matrix(`,
		`preserveAspectRatio="xMidYMid slice"`,
		`fill="#F3F4F6"`,
		`stroke-width="8"`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("svg missing %q", want)
		}
	}
}

func TestExport_EmptyGallery(t *testing.T) {
	_, err := Export(context.Background(), tiling.Gallery{}, t.TempDir(), Options{Format: FormatPNG})
	if !errors.Is(err, ErrEmptyGallery) {
		t.Fatalf("expected ErrEmptyGallery, got %v", err)
	}
}

func TestRaster_BackgroundImageOpacity(t *testing.T) {
	schema := layout.Schema{
		Canvas:  geometry.Size{W: 200, H: 100},
		Version: layout.VersionCurrent,
		Elements: []layout.Element{
			{ID: "bg", Frame: geometry.R(0, 0, 200, 100), Payload: layout.Background{Src: pngURI(t, green, 8, 8), Opacity: ptr(0.5)}},
			{ID: "a", Frame: geometry.R(0, 0, 50, 50), Payload: layout.Photo{}},
		},
	}
	g := tiling.Render(tiling.Input{Schema: schema, Photos: []layout.PhotoItem{{ID: "x"}}, Viewport: geometry.Size{W: 200}})
	rz := NewRasterizer(context.Background(), g, Options{Quality: QualityMedium})
	img := rz.Tile(g.Tiles[0])
	if c := rgbaAt(img, 150, 70); !near(c, color.RGBA{127, 255, 127, 255}) && !near(c, color.RGBA{128, 255, 128, 255}) {
		t.Fatalf("expected half-transparent green over white, got %v", c)
	}
	// photo without src is a placeholder box
	if c := rgbaAt(img, 25, 2); !near(c, colPlaceholder) {
		t.Fatalf("expected photo placeholder, got %v", c)
	}
}

func TestLoader_Sources(t *testing.T) {
	pngData := pngBytes(t, red, 4, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngData)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "local.png")
	if err := os.WriteFile(path, pngData, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	svg := assets.DataURI("image/svg+xml", []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`))
	srcs := []string{srv.URL + "/ok.png", srv.URL + "/missing.png", path, "file://" + filepath.ToSlash(path), svg, assets.DataURI("image/png", pngData), "", "blob:abc"}
	got := NewLoader(srv.Client(), 2).Load(context.Background(), srcs)
	for _, ok := range []string{srcs[0], srcs[2], srcs[3], srcs[5]} {
		if got[ok] == nil {
			t.Fatalf("expected %q to load", shortSrc(ok))
		}
	}
	for _, bad := range []string{srcs[1], svg, "blob:abc"} {
		if _, ok := got[bad]; ok {
			t.Fatalf("expected %q to be skipped", shortSrc(bad))
		}
	}
}

func TestRestrictedLoader_Sources(t *testing.T) {
	pngData := pngBytes(t, red, 4, 4)
	var other *httptest.Server
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/away.png" {
			http.Redirect(w, r, strings.Replace(other.URL, "127.0.0.1", "localhost", 1)+"/ok.png", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngData)
	}))
	defer srv.Close()
	other = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngData)
	}))
	defer other.Close()

	allowed := t.TempDir()
	inside := filepath.Join(allowed, "photo.png")
	outside := filepath.Join(t.TempDir(), "private.png")
	for _, p := range []string{inside, outside} {
		if err := os.WriteFile(p, pngData, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	escape := filepath.Join(allowed, "..", filepath.Base(filepath.Dir(outside)), "private.png")

	ld := NewRestrictedLoader(srv.Client(), 2, []string{"127.0.0.1"}, []string{allowed})
	ctx := context.Background()
	for _, src := range []string{assets.DataURI("image/png", pngData), srv.URL + "/ok.png", inside, "file://" + filepath.ToSlash(inside)} {
		if _, err := ld.read(ctx, src); err != nil {
			t.Fatalf("%q: %v", shortSrc(src), err)
		}
	}
	for _, src := range []string{outside, "file://" + filepath.ToSlash(outside), escape, "relative.png", srv.URL + "/away.png", "blob:abc"} {
		if _, err := ld.read(ctx, src); err == nil {
			t.Fatalf("%q: expected to be refused", shortSrc(src))
		}
	}
	if _, err := ld.read(ctx, outside); !errors.Is(err, ErrSourceDenied) {
		t.Fatalf("outside root: got %v, want ErrSourceDenied", err)
	}

	none := NewRestrictedLoader(nil, 1, nil, nil)
	if _, err := none.read(ctx, srv.URL+"/ok.png"); !errors.Is(err, ErrSourceDenied) {
		t.Fatalf("unlisted host: got %v, want ErrSourceDenied", err)
	}
	if _, err := none.read(ctx, inside); !errors.Is(err, ErrSourceDenied) {
		t.Fatalf("no roots: got %v, want ErrSourceDenied", err)
	}
}

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.RGBA
		ok   bool
	}{
		{"#fff", color.RGBA{255, 255, 255, 255}, true},
		{"#1F2937", color.RGBA{0x1F, 0x29, 0x37, 255}, true},
		{"#00000080", color.RGBA{0, 0, 0, 0x80}, true},
		{"red", color.RGBA{}, false},
		{"#12345", color.RGBA{}, false},
		{"#zzzzzz", color.RGBA{}, false},
	}
	for _, c := range cases {
		got, ok := parseHexColor(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("parseHexColor(%q) = %v,%v want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseOptions(t *testing.T) {
	if f, err := ParseFormat("JPEG"); err != nil || f != FormatJPG {
		t.Fatalf("jpeg alias: %v %v", f, err)
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Fatalf("expected error for gif")
	}
	if q, err := ParseQuality(""); err != nil || q != QualityHigh {
		t.Fatalf("default quality: %v %v", q, err)
	}
	if q, _ := ParseQuality("low"); q.JPEGQuality() != 60 || q.Scale() != 0.5 {
		t.Fatalf("low preset mismatch")
	}
	if s, err := ParseSize("Large"); err != nil || s.MaxSide() != 2500 {
		t.Fatalf("large size: %v %v", s, err)
	}
	if _, err := ParseSize("huge"); err == nil {
		t.Fatalf("expected error for huge")
	}
}
