// Package events carries change notifications between components. Writers
// publish after a confirmed mutation; dependents subscribe to refresh their
// projections instead of patching local state.
package events

import "sync"

// Topic identifies a class of state change.
type Topic string

const (
	TopicCatalog   Topic = "catalog"
	TopicOrders    Topic = "orders"
	TopicRefunds   Topic = "refunds"
	TopicState     Topic = "contract_state"
	TopicOwnership Topic = "ownership"
)

// Bus is a synchronous publish/subscribe fan-out. Handlers run on the
// publisher's goroutine, so subscribers should hand off long work.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Topic]map[int]func(Topic)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[int]func(Topic))}
}

// Subscribe registers fn for a topic and returns an unsubscribe func.
func (b *Bus) Subscribe(t Topic, fn func(Topic)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[t] == nil {
		b.subs[t] = make(map[int]func(Topic))
	}
	id := b.nextID
	b.nextID++
	b.subs[t][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[t], id)
	}
}

// Publish invokes every handler registered for the topic.
func (b *Bus) Publish(t Topic) {
	b.mu.RLock()
	handlers := make([]func(Topic), 0, len(b.subs[t]))
	for _, fn := range b.subs[t] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(t)
	}
}
