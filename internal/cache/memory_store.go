package cache

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. It backs tests and serves as the
// last-resort cache when Redis is not configured.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
	queues map[string][][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		queues: make(map[string][][]byte),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.values[key]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, true
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.values[key] = cp
}

func (s *MemoryStore) AppendToQueue(_ context.Context, queue string, item []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(item))
	copy(cp, item)
	s.queues[queue] = append(s.queues[queue], cp)
}

func (s *MemoryStore) DrainQueue(_ context.Context, queue string, max int) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[queue]
	if len(q) == 0 {
		return nil
	}
	n := max
	if n > len(q) {
		n = len(q)
	}
	items := q[:n]
	s.queues[queue] = q[n:]
	return items
}

// QueueLen reports the number of queued items. Test helper.
func (s *MemoryStore) QueueLen(queue string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[queue])
}
