// Package inmemory provides a map-backed persistence port, used as the
// default when no storage path is configured and as the workhorse in tests.
package inmemory

import (
	"context"
	"sync"

	"github.com/parallaxfi/weft/providers/persistence"
)

// Store keeps snapshots in process memory.
type Store struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{slots: make(map[string][]byte)}
}

// Save overwrites the slot. A copy of data is kept so callers may reuse the
// buffer.
func (s *Store) Save(_ context.Context, slot string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	s.slots[slot] = copied
	return nil
}

// Load returns the last saved snapshot for the slot.
func (s *Store) Load(_ context.Context, slot string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, exists := s.slots[slot]
	if !exists {
		return nil, persistence.ErrNotFound
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}
