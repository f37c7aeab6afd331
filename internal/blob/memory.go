package blob

import (
	"context"
	"io"
	"sync"
)

// MemoryStore keeps uploads in memory. Used in tests and when no object
// store is configured.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailUploads forces Upload to return an error, for exercising the
	// optimistic-rollback path in tests.
	FailUploads error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if s.FailUploads != nil {
		return s.FailUploads
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[path] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PublicURL(path string) string {
	return "memory://" + path
}

// Object returns a stored object's bytes.
func (s *MemoryStore) Object(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	return data, ok
}
