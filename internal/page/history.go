package page

import (
	"slices"
	"sync"
)

// History is the routing collaborator: it reports the current location
// and notifies listeners of every change.
type History interface {
	Location() Location
	Listen(fn func(Location)) (unlisten func())
}

// MemoryHistory is a History driven by explicit Push calls, used by the
// hydration websocket and the terminal browser.
type MemoryHistory struct {
	mu        sync.Mutex
	current   Location
	nextID    int
	listeners map[int]func(Location)
}

func NewMemoryHistory(initial Location) *MemoryHistory {
	return &MemoryHistory{current: initial, listeners: make(map[int]func(Location))}
}

func (h *MemoryHistory) Location() Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *MemoryHistory) Listen(fn func(Location)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Push moves to loc and calls the listeners in registration order.
func (h *MemoryHistory) Push(loc Location) {
	h.mu.Lock()
	h.current = loc
	ids := make([]int, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	fns := make([]func(Location), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, h.listeners[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(loc)
	}
}

// Listeners reports how many listeners are attached.
func (h *MemoryHistory) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
