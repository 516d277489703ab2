package cursor

import (
	"context"
	"maps"
	"sync"
	"time"
)

// MemoryStore keeps cursors in process memory. Pair it only with a storage
// backend that is just as ephemeral.
type MemoryStore struct {
	mu    sync.RWMutex
	state map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: make(map[string]time.Time)}
}

func (s *MemoryStore) Get(_ context.Context, sourceID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state[sourceID]
	return t, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, sourceID string, lastSynced time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[sourceID] = lastSynced
	return nil
}

// All returns a copy of every stored cursor.
func (s *MemoryStore) All(context.Context) (map[string]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.state), nil
}
