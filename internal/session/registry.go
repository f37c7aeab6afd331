package session

import (
	"context"
	"sync"

	"github.com/push-hr/helpdesk/internal/domain"
)

// Registry keeps one live session store per authenticated principal. HTTP
// requests and the SSE stream of the same principal share a store, so
// optimistic state and feed reconciliation stay consistent across them.
type Registry struct {
	mu      sync.Mutex
	manager *Manager
	entries map[string]*registryEntry
}

type registryEntry struct {
	store *Store
	close func()
}

// NewRegistry creates an empty registry.
func NewRegistry(manager *Manager) *Registry {
	return &Registry{manager: manager, entries: make(map[string]*registryEntry)}
}

// Acquire returns the principal's session store, opening it on first use.
// The cached principal is refreshed on every call so role changes take
// effect on the next request.
func (r *Registry) Acquire(ctx context.Context, self *domain.Profile) (*Store, error) {
	r.mu.Lock()
	entry, ok := r.entries[self.ID]
	r.mu.Unlock()
	if ok {
		entry.store.SetSelf(self)
		return entry.store, nil
	}

	store, closeFn, err := r.manager.Open(ctx, self)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[self.ID]; ok {
		// lost the race; keep the first store
		closeFn()
		existing.store.SetSelf(self)
		return existing.store, nil
	}
	r.entries[self.ID] = &registryEntry{store: store, close: closeFn}
	return store, nil
}

// Release drops a principal's session and its feed subscriptions.
func (r *Registry) Release(userID string) {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	delete(r.entries, userID)
	r.mu.Unlock()
	if ok {
		entry.store.CloseTicket()
		entry.close()
	}
}

// CloseAll tears down every session, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()
	for _, e := range entries {
		e.store.CloseTicket()
		e.close()
	}
}
