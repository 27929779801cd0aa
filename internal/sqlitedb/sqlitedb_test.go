/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package sqlitedb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

var testComp = Component{Name: "things", Migrations: []Migration{
	{Version: 1, Stmts: []string{`CREATE TABLE things (id TEXT PRIMARY KEY);`}},
	{Version: 2, Stmts: []string{`ALTER TABLE things ADD COLUMN label TEXT;`}},
}}

func TestOpen_MigratesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "test.sqlite")
	db, err := Open(ctx, path, testComp)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if v, _ := SchemaVersion(ctx, db, "things"); v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO things (id, label) VALUES ('a', 'b')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_ = db.Close()

	db, err = Open(ctx, path, testComp)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM things`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("data lost across reopen: n=%d err=%v", n, err)
	}
	var mode string
	_ = db.QueryRowContext(ctx, `PRAGMA journal_mode;`).Scan(&mode)
	if mode != "wal" {
		t.Fatalf("expected WAL, got %q", mode)
	}
}

func TestComponentsMigrateIndependently(t *testing.T) {
	ctx := context.Background()
	other := Component{Name: "other", Migrations: []Migration{{Version: 1, Stmts: []string{`CREATE TABLE other (k TEXT);`}}}}
	db, err := Open(ctx, ":memory:", testComp, other)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	a, _ := SchemaVersion(ctx, db, "things")
	b, _ := SchemaVersion(ctx, db, "other")
	if a != 2 || b != 1 {
		t.Fatalf("unexpected versions %d %d", a, b)
	}
	if err := Check(ctx, db); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestOpenOrRecover_ReplacesGarbage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bad.sqlite")
	if err := os.WriteFile(path, []byte("definitely not sqlite, just some bytes that are long enough to matter"), 0o644); err != nil {
		t.Fatal(err)
	}
	db, recovered, err := OpenOrRecover(ctx, path, testComp)
	if err != nil {
		t.Fatalf("OpenOrRecover: %v", err)
	}
	defer db.Close()
	if !recovered {
		t.Fatalf("expected recovery")
	}
	matches, _ := filepath.Glob(path + ".corrupt-*")
	if len(matches) != 1 {
		t.Fatalf("expected a backup of the corrupt file, got %v", matches)
	}
}
