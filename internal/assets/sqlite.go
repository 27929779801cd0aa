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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gallerybuilder/internal/sqlitedb"
)

// SQLiteComponent is the asset table set inside the shared SQLite database.
var SQLiteComponent = sqlitedb.Component{
	Name: "assets",
	Migrations: []sqlitedb.Migration{
		{Version: 1, Stmts: []string{
			`CREATE TABLE IF NOT EXISTS assets (
				category     TEXT NOT NULL,
				name         TEXT NOT NULL,
				content_type TEXT NOT NULL,
				data         BLOB NOT NULL,
				updated_at   TEXT NOT NULL,
				PRIMARY KEY(category, name)
			);`,
		}},
		{Version: 2, Stmts: []string{
			`ALTER TABLE assets ADD COLUMN size INTEGER NOT NULL DEFAULT 0;`,
			`UPDATE assets SET size = length(data);`,
		}},
	},
}

// SQLiteStore keeps assets as blobs in SQLite.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

// OpenSQLiteStore opens (or creates) the database file at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, _, err := sqlitedb.OpenOrRecover(ctx, path, SQLiteComponent)
	if err != nil {
		return nil, fmt.Errorf("open asset db: %w", err)
	}
	return &SQLiteStore{db: db, owned: true}, nil
}

// NewSQLiteStore uses an already opened database, for sharing one file with
// the layout registry. The caller migrates SQLiteComponent and closes db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore { return &SQLiteStore{db: db} }

func (s *SQLiteStore) Put(ctx context.Context, cat Category, name string, data []byte) error {
	if err := checkKey(cat, name); err != nil {
		return fmt.Errorf("put asset: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO assets (category, name, content_type, data, size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(category, name) DO UPDATE SET
			content_type=excluded.content_type, data=excluded.data, size=excluded.size, updated_at=excluded.updated_at`,
		string(cat), name, ContentTypeFor(name, data), data, len(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put asset %s/%s: %w", cat, name, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, cat Category, name string) (Asset, error) {
	a := Asset{Category: cat, Name: name}
	err := s.db.QueryRowContext(ctx, `SELECT content_type, data FROM assets WHERE category=? AND name=?`, string(cat), name).
		Scan(&a.ContentType, &a.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Asset{}, fmt.Errorf("%s/%s: %w", cat, name, ErrNotFound)
	}
	if err != nil {
		return Asset{}, fmt.Errorf("get asset %s/%s: %w", cat, name, err)
	}
	return a, nil
}

func (s *SQLiteStore) List(ctx context.Context, cat Category) ([]Asset, error) {
	if _, err := ParseCategory(string(cat)); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name, content_type, data FROM assets WHERE category=? ORDER BY name`, string(cat))
	if err != nil {
		return nil, fmt.Errorf("list assets %s: %w", cat, err)
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		a := Asset{Category: cat}
		if err := rows.Scan(&a.Name, &a.ContentType, &a.Data); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, cat Category, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE category=? AND name=?`, string(cat), name); err != nil {
		return fmt.Errorf("delete asset %s/%s: %w", cat, name, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, cat Category) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE category=?`, string(cat)); err != nil {
		return fmt.Errorf("clear assets %s: %w", cat, err)
	}
	return nil
}

// Close closes the database if this store opened it.
func (s *SQLiteStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
