/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gallerybuilder/internal/layout"
	"gallerybuilder/internal/sqlitedb"
)

// SQLiteComponent is the layout table set inside a SQLite database.
var SQLiteComponent = sqlitedb.Component{
	Name: "layouts",
	Migrations: []sqlitedb.Migration{
		{Version: 1, Stmts: []string{
			`CREATE TABLE IF NOT EXISTS layouts (
				id         TEXT PRIMARY KEY,
				name       TEXT NOT NULL,
				schema     TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);`,
		}},
		{Version: 2, Stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_layouts_updated ON layouts(updated_at DESC);`,
		}},
	},
}

// SQLiteStore keeps layouts in SQLite, schemas as wire JSON.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

// OpenSQLiteStore opens (or creates) the database file at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, _, err := sqlitedb.OpenOrRecover(ctx, path, SQLiteComponent)
	if err != nil {
		return nil, fmt.Errorf("open layout db: %w", err)
	}
	return &SQLiteStore{db: db, owned: true}, nil
}

// NewSQLiteStore uses an already opened and migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore { return &SQLiteStore{db: db} }

func (s *SQLiteStore) List(ctx context.Context) ([]layout.SavedLayout, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, schema, created_at, updated_at FROM layouts`)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []layout.SavedLayout
	for rows.Next() {
		l, err := scanLayout(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (layout.SavedLayout, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, schema, created_at, updated_at FROM layouts WHERE id = ?`, id)
	l, err := scanLayout(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return layout.SavedLayout{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return l, err
}

func (s *SQLiteStore) Put(ctx context.Context, l layout.SavedLayout) error {
	if err := checkID(l.ID); err != nil {
		return err
	}
	doc, err := layout.Encode(l.Schema)
	if err != nil {
		return fmt.Errorf("encode layout %s: %w", l.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO layouts(id, name, schema, created_at, updated_at) VALUES(?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, schema=excluded.schema, updated_at=excluded.updated_at`,
		l.ID, l.Name, string(doc), l.CreatedAt.UTC().Format(time.RFC3339Nano), l.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put layout %s: %w", l.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM layouts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete layout %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func scanLayout(scan func(dest ...any) error) (layout.SavedLayout, error) {
	var (
		l                layout.SavedLayout
		doc              string
		created, updated string
	)
	if err := scan(&l.ID, &l.Name, &doc, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return l, err
		}
		return l, fmt.Errorf("scan layout: %w", err)
	}
	s, err := layout.Decode([]byte(doc))
	if err != nil {
		return l, fmt.Errorf("decode layout %s: %w", l.ID, err)
	}
	l.Schema = s
	if l.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return l, fmt.Errorf("parse created_at of %s: %w", l.ID, err)
	}
	if l.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return l, fmt.Errorf("parse updated_at of %s: %w", l.ID, err)
	}
	return l, nil
}
