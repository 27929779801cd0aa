/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package sqlitedb opens the embedded SQLite database shared by the layout
// registry and the asset store. Each component keeps its own schema version
// row and migrates independently.
package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "gallerybuilder/internal/log"
	"gallerybuilder/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// Migration moves a component schema from Version-1 to Version.
type Migration struct {
	Version int
	Stmts   []string
}

// Component describes the tables one package owns.
type Component struct {
	Name       string
	Migrations []Migration // ascending; the last Version is current
}

func (c Component) current() int {
	if len(c.Migrations) == 0 {
		return 0
	}
	return c.Migrations[len(c.Migrations)-1].Version
}

// Open opens (creating if needed) the database at path, enables WAL and
// migrates every component. A path of ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, comps ...Component) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("sqlitedb"), "open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	dsn := "file::memory:?_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer for an embedded database; also keeps :memory: on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			l.Error("enable WAL failed", slog.Any("err", err))
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	if err := ensureVersionTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, c := range comps {
		if err := Migrate(ctx, db, c); err != nil {
			_ = db.Close()
			l.Error("migration failed", slog.String("component", c.Name), slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("database ready")
	return db, nil
}

func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		component   TEXT PRIMARY KEY,
		schema      INTEGER NOT NULL,
		app         TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("create version table: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied schema version of a component, 0 if none.
func SchemaVersion(ctx context.Context, db *sql.DB, component string) (int, error) {
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM schema_version WHERE component=?`, component).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return cur, nil
}

// Migrate applies the pending migrations of c, each in its own transaction.
// A database newer than the code is left untouched.
func Migrate(ctx context.Context, db *sql.DB, c Component) error {
	cur, err := SchemaVersion(ctx, db, c.Name)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if cur == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (component, schema, app, created_at, updated_at) VALUES(?, 0, ?, ?, ?)`,
			c.Name, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	}
	if cur > c.current() {
		return nil
	}
	for _, m := range c.Migrations {
		if m.Version <= cur {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s/%d: %w", c.Name, m.Version, err)
		}
		for _, q := range m.Stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %s/%d stmt failed: %w", c.Name, m.Version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE schema_version SET schema=?, app=?, updated_at=? WHERE component=?`,
			m.Version, version.String(), time.Now().UTC().Format(time.RFC3339), c.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s/%d update version: %w", c.Name, m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %s/%d commit: %w", c.Name, m.Version, err)
		}
		cur = m.Version
	}
	return nil
}

// Check runs PRAGMA quick_check and reports whether the database looks healthy.
func Check(ctx context.Context, db *sql.DB) error {
	var res string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&res); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(res), "ok") {
		return fmt.Errorf("quick_check: %s", res)
	}
	return nil
}

// OpenOrRecover is Open, except that a database that fails to open or fails
// its integrity check is moved aside to <path>.corrupt-<timestamp> and
// recreated empty.
func OpenOrRecover(ctx context.Context, path string, comps ...Component) (*sql.DB, bool, error) {
	db, err := Open(ctx, path, comps...)
	if err == nil {
		if err = Check(ctx, db); err == nil {
			return db, false, nil
		}
		_ = db.Close()
	}
	if path == ":memory:" {
		return nil, false, err
	}
	applog.WithComponent("sqlitedb").Warn("database unusable, recreating", slog.String("path", path), slog.Any("err", err))
	backup := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405"))
	if rerr := os.Rename(path, backup); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		return nil, false, fmt.Errorf("move corrupt database: %w (open err: %v)", rerr, err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	db, err = Open(ctx, path, comps...)
	if err != nil {
		return nil, false, err
	}
	return db, true, nil
}
