// Package realtime fans lightweight board events out to live subscribers.
// Delivery is best effort: nothing is replayed for a subscriber that was
// disconnected or too slow.
package realtime

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	EventPost    = "post"
	EventComment = "comment"
	EventLike    = "like"
)

const DefaultBuffer = 16

type Event struct {
	Name string         `json:"event"`
	Data map[string]any `json:"data"`
}

// Hub is created once per process and shared by reference.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[chan Event]struct{}), buffer: buffer}
}

// Subscribe registers a new channel. It is deregistered and closed when ctx
// ends, or earlier if the hub drops it for falling behind.
func (h *Hub) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		h.drop(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Broadcast never blocks: a subscriber whose buffer is full is dropped.
func (h *Hub) Broadcast(name string, data map[string]any) {
	ev := Event{Name: name, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Debugf("[realtime] dropping slow subscriber on %s event", name)
			h.drop(ch)
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// drop must be called with h.mu held.
func (h *Hub) drop(ch chan Event) {
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}
