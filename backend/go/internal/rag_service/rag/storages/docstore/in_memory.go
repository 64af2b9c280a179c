package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
)

// InMemoryDocStore is a thread-safe, in-memory implementation of the DocStore interface.
type InMemoryDocStore struct {
	mu    sync.RWMutex
	store map[string][]string
}

// NewInMemoryDocStore creates a new InMemoryDocStore.
func NewInMemoryDocStore() *InMemoryDocStore {
	return &InMemoryDocStore{store: make(map[string][]string)}
}

// Upsert replaces the chunk ids of filename.
func (s *InMemoryDocStore) Upsert(ctx context.Context, filename string, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[filename] = append([]string(nil), chunkIDs...)
	return nil
}

// Get returns the chunk ids of filename.
func (s *InMemoryDocStore) Get(ctx context.Context, filename string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.store[filename]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", filename, ragerr.ErrNotFound)
	}
	return append([]string(nil), ids...), nil
}

// ListFilenames returns all filenames in sorted order.
func (s *InMemoryDocStore) ListFilenames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.store))
	for name := range s.store {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes filename.
func (s *InMemoryDocStore) Delete(ctx context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, filename)
	return nil
}

func (s *InMemoryDocStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// compile-time check to ensure InMemoryDocStore implements the DocStore interface
var _ interfaces.DocStore = (*InMemoryDocStore)(nil)
