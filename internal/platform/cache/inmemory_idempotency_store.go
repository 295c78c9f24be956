package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	resp      *StoredResponse
	expiresAt time.Time
}

// InMemoryIdempotencyStore implements IdempotencyStore with a map.
// This is suitable for single-instance deployments and testing.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewInMemoryIdempotencyStore creates an empty store. Expired entries are dropped lazily.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{entries: make(map[string]entry), now: time.Now}
}

func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && s.now().Before(e.expiresAt) {
		return false, nil
	}
	s.entries[key] = entry{expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *InMemoryIdempotencyStore) Load(_ context.Context, key string) (*StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	if e.resp == nil {
		return nil, ErrInFlight
	}
	resp := *e.resp
	return &resp, nil
}

func (s *InMemoryIdempotencyStore) Complete(_ context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{resp: &resp, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Size returns the number of live entries.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if s.now().Before(e.expiresAt) {
			n++
		}
	}
	return n
}

var _ IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
