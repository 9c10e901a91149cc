package events

import (
	"log"
	"sync"
	"time"
)

// Handler is a callback invoked when a matching event is published.
type Handler func(Event)

type subscription struct {
	types   map[EventType]struct{} // nil means every event
	handler Handler
}

// Bus is a thread-safe in-process publish/subscribe bus. The monitor
// publishes status transitions on it; the notify dispatcher and the
// websocket hub subscribe.
type Bus struct {
	mu          sync.RWMutex
	subscribers []subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for the given event types. With no types
// the handler receives everything.
func (b *Bus) Subscribe(handler Handler, types ...EventType) {
	sub := subscription{handler: handler}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()
}

// Publish delivers an event to all matching subscribers, synchronously in
// the caller's goroutine. Subscribers that need buffering run their own
// channel. A zero timestamp is filled in.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.types != nil {
			if _, ok := sub.types[e.Type]; !ok {
				continue
			}
		}
		deliver(sub.handler, e)
	}
}

// deliver isolates subscriber panics so one bad handler cannot take down
// the monitor loop.
func deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("events: subscriber panic on %s: %v", e.Type, r)
		}
	}()
	h(e)
}
