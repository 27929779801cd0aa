/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// MemoryStore keeps assets in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[Category]map[string]Asset
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[Category]map[string]Asset{}}
}

func (m *MemoryStore) Put(_ context.Context, cat Category, name string, data []byte) error {
	if err := checkKey(cat, name); err != nil {
		return fmt.Errorf("put asset: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[cat] == nil {
		m.data[cat] = map[string]Asset{}
	}
	m.data[cat][name] = Asset{Category: cat, Name: name, ContentType: ContentTypeFor(name, data), Data: bytes.Clone(data)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, cat Category, name string) (Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.data[cat][name]
	if !ok {
		return Asset{}, fmt.Errorf("%s/%s: %w", cat, name, ErrNotFound)
	}
	a.Data = bytes.Clone(a.Data)
	return a, nil
}

func (m *MemoryStore) List(_ context.Context, cat Category) ([]Asset, error) {
	if _, err := ParseCategory(string(cat)); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := slices.Sorted(maps.Keys(m.data[cat]))
	out := make([]Asset, 0, len(names))
	for _, n := range names {
		a := m.data[cat][n]
		a.Data = bytes.Clone(a.Data)
		out = append(out, a)
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, cat Category, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[cat], name)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, cat Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, cat)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
