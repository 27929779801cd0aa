/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	applog "gallerybuilder/internal/log"
)

// PackManifestName is the human readable manifest at the root of an asset pack.
const PackManifestName = "assetpack.manifest.txt"

// maxPackEntry bounds a single decompressed pack entry.
const maxPackEntry = 64 << 20

// ExportPack writes every asset of store into a zip as <category>/<name>,
// plus a manifest. It returns the number of assets written.
func ExportPack(ctx context.Context, store Store, w io.Writer) (int, error) {
	zw := zip.NewWriter(w)
	manifest := fmt.Sprintf("Gallery Builder Asset Pack\nCreated: %s\n\nFolders: stickers/, frames/, backgrounds/\n", time.Now().Format(time.RFC3339))
	mw, err := zw.Create(PackManifestName)
	if err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := io.WriteString(mw, manifest); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}
	added := 0
	for _, cat := range Categories {
		list, err := store.List(ctx, cat)
		if err != nil {
			return added, fmt.Errorf("list %s: %w", cat, err)
		}
		for _, a := range list {
			fw, err := zw.CreateHeader(&zip.FileHeader{Name: path.Join(string(cat), a.Name), Method: zip.Deflate, Modified: time.Now()})
			if err != nil {
				return added, fmt.Errorf("add %s/%s: %w", cat, a.Name, err)
			}
			if _, err := fw.Write(a.Data); err != nil {
				return added, fmt.Errorf("write %s/%s: %w", cat, a.Name, err)
			}
			added++
		}
	}
	if err := zw.Close(); err != nil {
		return added, fmt.Errorf("finish zip: %w", err)
	}
	return added, nil
}

// ExportPackFile is ExportPack into a new file at dest.
func ExportPackFile(ctx context.Context, store Store, dest string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("assets"), "pack_export").With(slog.String("zip", dest))
	if strings.TrimSpace(dest) == "" {
		return 0, errors.New("destination is required")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	n, err := ExportPack(ctx, store, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close zip: %w", cerr)
	}
	if err != nil {
		l.Error("pack export failed", slog.Any("err", err))
		return n, err
	}
	l.Info("asset pack exported", slog.Int("assets", n))
	return n, nil
}

// ImportPack installs the images of a zip pack into store. Entries inside a
// category folder go there; loose images are classified by file name.
// Existing assets are skipped unless overwrite is set. It returns the
// number of assets installed.
func ImportPack(ctx context.Context, store Store, zipPath string, overwrite bool) (int, error) {
	l := applog.WithOperation(applog.WithComponent("assets"), "pack_import").With(slog.String("zip", zipPath))
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	installed := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() || f.Name == PackManifestName {
			continue
		}
		name := path.Base(f.Name)
		if !imageExts[strings.ToLower(path.Ext(name))] {
			continue
		}
		cat := Classify(name)
		if dir := strings.SplitN(path.Clean(f.Name), "/", 2); len(dir) == 2 {
			if c, err := ParseCategory(dir[0]); err == nil {
				cat = c
			}
		}
		if !overwrite {
			if _, err := store.Get(ctx, cat, name); err == nil {
				l.Warn("skip existing asset", slog.String("category", string(cat)), slog.String("name", name))
				continue
			}
		}
		data, err := readZipEntry(f)
		if err != nil {
			return installed, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if err := store.Put(ctx, cat, name, data); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("asset pack installed", slog.Int("assets", installed))
	return installed, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(io.LimitReader(rc, maxPackEntry+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxPackEntry {
		return nil, errors.New("entry too large")
	}
	return data, nil
}
