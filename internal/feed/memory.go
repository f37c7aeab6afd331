package feed

import (
	"context"
	"sync"
)

// memoryBus is a synchronous in-process bus. It backs single-process
// deployments without Redis, and tests.
type memoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]HandlerFunc
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus() Bus {
	return &memoryBus{subs: make(map[string]map[int]HandlerFunc)}
}

// Publish synchronously invokes subscribed handlers for the channel.
func (b *memoryBus) Publish(ctx context.Context, channel string, event Event) error {
	b.mu.RLock()
	handlers := make([]HandlerFunc, 0, len(b.subs[channel]))
	for _, handler := range b.subs[channel] {
		handlers = append(handlers, handler)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
	return nil
}

// Subscribe registers the handler on every given channel.
func (b *memoryBus) Subscribe(ctx context.Context, handler HandlerFunc, channels ...string) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	for _, channel := range channels {
		if b.subs[channel] == nil {
			b.subs[channel] = make(map[int]HandlerFunc)
		}
		b.subs[channel][id] = handler
	}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		for _, channel := range channels {
			delete(b.subs[channel], id)
		}
		b.mu.Unlock()
	}, nil
}
