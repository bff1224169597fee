package assessment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultMemoryCapacity is the number of records a MemoryStore keeps when no
// capacity is given.
const DefaultMemoryCapacity = 1000

// MemoryStore is a thread-safe, bounded Store. Once full, the oldest record
// is evicted for each new one.
type MemoryStore struct {
	mu       sync.RWMutex
	ring     []*Record
	next     int
	size     int
	byID     map[uuid.UUID]*Record
	capacity int
}

// NewMemoryStore creates a MemoryStore holding at most capacity records.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{
		ring:     make([]*Record, capacity),
		byID:     make(map[uuid.UUID]*Record, capacity),
		capacity: capacity,
	}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, r *Record) error {
	cp := *r

	s.mu.Lock()
	defer s.mu.Unlock()

	if old := s.ring[s.next]; old != nil {
		delete(s.byID, old.ID)
	}
	s.ring[s.next] = &cp
	s.byID[cp.ID] = &cp
	s.next = (s.next + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*Record, error) {
	limit = clampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, s.size)
	out := make([]*Record, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + s.capacity) % s.capacity
		cp := *s.ring[idx]
		out = append(out, &cp)
	}
	return out, nil
}

// Len implements Store.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size, nil
}
