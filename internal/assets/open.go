/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	applog "gallerybuilder/internal/log"
)

// Options selects and configures an asset store backend.
type Options struct {
	Driver   string // memory, filesystem, sqlite or s3
	Path     string // directory for filesystem, database file for sqlite
	S3Bucket string
	S3Prefix string
}

// Open returns the configured backend; an empty driver selects memory.
func Open(ctx context.Context, o Options) (Store, error) {
	l := applog.WithOperation(applog.WithComponent("assets"), "open").With(slog.String("driver", o.Driver))
	var (
		s   Store
		err error
	)
	switch o.Driver {
	case "", "memory":
		s = NewMemoryStore()
	case "filesystem":
		s, err = NewFileStore(o.Path)
	case "sqlite":
		p := o.Path
		if filepath.Ext(p) == "" {
			p = filepath.Join(p, "assets.sqlite")
		}
		s, err = OpenSQLiteStore(ctx, p)
	case "s3":
		s, err = NewS3Store(ctx, o.S3Bucket, o.S3Prefix)
	default:
		return nil, fmt.Errorf("unknown asset store driver %q", o.Driver)
	}
	if err != nil {
		l.Error("open asset store failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("asset store ready", slog.String("path", o.Path), slog.String("bucket", o.S3Bucket))
	return s, nil
}
