// Package observe fans state snapshots out to subscribers.
package observe

import "sync"

// Hub delivers published values to every live subscriber, in subscription
// order, on the publishing goroutine. The zero value is ready to use.
type Hub[T any] struct {
	mu   sync.Mutex
	next int
	ids  []int
	subs map[int]func(T)
}

// Subscribe registers fn and returns a func that removes it.
func (h *Hub[T]) Subscribe(fn func(T)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(T))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	h.ids = append(h.ids, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			for i, v := range h.ids {
				if v == id {
					h.ids = append(h.ids[:i], h.ids[i+1:]...)
					break
				}
			}
		})
	}
}

func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	fns := make([]func(T), 0, len(h.ids))
	for _, id := range h.ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
