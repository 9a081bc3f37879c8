// Package feed fans out per-record change notifications to subscribers.
//
// A Hub is the change feed the tree store subscribes each entry to: data
// sources publish record ids when the underlying row changes and every live
// subscription for that id is invoked.
package feed

import (
	"sync"
)

// Subscription is returned by Subscribe; Release stops delivery.
type Subscription interface {
	Release()
}

// Hub is safe for concurrent use. Callbacks run on the publisher's
// goroutine, outside the hub lock.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]func()
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]func())}
}

type subscription struct {
	hub  *Hub
	id   string
	seq  uint64
	once sync.Once
}

func (s *subscription) Release() {
	s.once.Do(func() { s.hub.remove(s.id, s.seq) })
}

// Subscribe registers fn for changes to id.
func (h *Hub) Subscribe(id string, fn func()) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	seq := h.nextID
	m := h.subs[id]
	if m == nil {
		m = make(map[uint64]func())
		h.subs[id] = m
	}
	m[seq] = fn
	return &subscription{hub: h, id: id, seq: seq}
}

func (h *Hub) remove(id string, seq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.subs[id]
	delete(m, seq)
	if len(m) == 0 {
		delete(h.subs, id)
	}
}

// Publish notifies every subscriber of each id and returns how many
// callbacks ran.
func (h *Hub) Publish(ids ...string) int {
	var fns []func()
	h.mu.Lock()
	for _, id := range ids {
		for _, fn := range h.subs[id] {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Count returns the number of live subscriptions for id.
func (h *Hub) Count(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

// Total returns the number of live subscriptions across all ids.
func (h *Hub) Total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.subs {
		n += len(m)
	}
	return n
}
