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
	"fmt"
	"sync"

	"gallerybuilder/internal/layout"
)

// MemoryStore keeps layouts in a map. Stored values are deep copies.
type MemoryStore struct {
	mu      sync.RWMutex
	layouts map[string]layout.SavedLayout
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{layouts: map[string]layout.SavedLayout{}}
}

func (m *MemoryStore) List(_ context.Context) ([]layout.SavedLayout, error) {
	m.mu.RLock()
	out := make([]layout.SavedLayout, 0, len(m.layouts))
	for _, l := range m.layouts {
		l.Schema = l.Schema.Clone()
		out = append(out, l)
	}
	m.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (layout.SavedLayout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.layouts[id]
	if !ok {
		return layout.SavedLayout{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	l.Schema = l.Schema.Clone()
	return l, nil
}

func (m *MemoryStore) Put(_ context.Context, l layout.SavedLayout) error {
	if err := checkID(l.ID); err != nil {
		return err
	}
	l.Schema = l.Schema.Clone()
	m.mu.Lock()
	m.layouts[l.ID] = l
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layouts[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(m.layouts, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
