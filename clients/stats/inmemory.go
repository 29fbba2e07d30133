package stats

import (
	"context"
	"sync"
)

// InMemoryStore is a Store local to a single process
type InMemoryStore struct {
	counts map[string]int64
	mutex  sync.RWMutex
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		counts: make(map[string]int64),
	}
}

func (s *InMemoryStore) Increment(ctx context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.counts[key]++

	return nil
}

func (s *InMemoryStore) Counts(ctx context.Context) (map[string]int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	snapshot := make(map[string]int64, len(s.counts))
	for key, count := range s.counts {
		snapshot[key] = count
	}

	return snapshot, nil
}

func (s *InMemoryStore) Healthcheck(ctx context.Context) error {
	return nil
}
