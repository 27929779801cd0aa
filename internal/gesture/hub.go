/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gesture turns pointer input into element updates. Pointer moves and
// releases are delivered through a Hub that stands in for document-level
// listeners; a gesture holds a subscription only while it is active.
package gesture

import (
	"sync"

	"gallerybuilder/internal/geometry"
)

// Listener receives global pointer events.
type Listener interface {
	PointerMove(p geometry.Pt)
	PointerUp(p geometry.Pt)
}

// ListenerFuncs adapts two functions to a Listener. Nil funcs are skipped.
type ListenerFuncs struct {
	Move func(geometry.Pt)
	Up   func(geometry.Pt)
}

func (l ListenerFuncs) PointerMove(p geometry.Pt) {
	if l.Move != nil {
		l.Move(p)
	}
}

func (l ListenerFuncs) PointerUp(p geometry.Pt) {
	if l.Up != nil {
		l.Up(p)
	}
}

type entry struct {
	id uint64
	l  Listener
}

// Hub fans pointer events out to attached listeners. It is safe for concurrent use.
type Hub struct {
	mu      sync.Mutex
	nextID  uint64
	entries []entry
}

// NewHub returns an empty hub.
func NewHub() *Hub { return &Hub{} }

// Subscription is the handle returned by Attach.
type Subscription struct {
	hub  *Hub
	id   uint64
	once sync.Once
}

// Attach registers l until the returned subscription is released.
func (h *Hub) Attach(l Listener) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.entries = append(h.entries, entry{id: h.nextID, l: l})
	return &Subscription{hub: h, id: h.nextID}
}

// Release detaches the listener. Calling it more than once is a no-op.
func (s *Subscription) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.hub.detach(s.id) })
}

func (h *Hub) detach(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.entries {
		if e.id == id {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return
		}
	}
}

// Len reports the number of attached listeners.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *Hub) snapshot() []Listener {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Listener, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.l
	}
	return out
}

// Move dispatches a pointer move. Listeners may release themselves while handling it.
func (h *Hub) Move(p geometry.Pt) {
	for _, l := range h.snapshot() {
		l.PointerMove(p)
	}
}

// Up dispatches a pointer release.
func (h *Hub) Up(p geometry.Pt) {
	for _, l := range h.snapshot() {
		l.PointerUp(p)
	}
}

// Session scopes one hub subscription to the lifetime of a gesture.
// The zero value is idle; End is safe on every exit path.
type Session struct {
	sub *Subscription
}

// Start attaches l, ending any previous subscription of this session first.
func (s *Session) Start(h *Hub, l Listener) {
	s.End()
	s.sub = h.Attach(l)
}

// End releases the subscription if one is held.
func (s *Session) End() {
	if s.sub != nil {
		s.sub.Release()
		s.sub = nil
	}
}

// Active reports whether the session holds a subscription.
func (s *Session) Active() bool { return s.sub != nil }
