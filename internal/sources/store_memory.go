package sources

import (
	"context"
	"sync"
	"time"

	"crosscheck/internal/domain"
	"crosscheck/pkg/platform/sentinel"
)

// MemoryCacheStore is an in-process cache with TTL expiry. Expired entries
// are dropped lazily on read.
type MemoryCacheStore struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryCacheEntry struct {
	candidates []domain.Candidate
	expires    time.Time
}

func NewMemoryCacheStore(ttl time.Duration) *MemoryCacheStore {
	return &MemoryCacheStore{
		entries: make(map[string]memoryCacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryCacheStore) Find(_ context.Context, key string) ([]domain.Candidate, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if s.now().After(entry.expires) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, sentinel.ErrNotFound
	}
	out := make([]domain.Candidate, len(entry.candidates))
	copy(out, entry.candidates)
	return out, nil
}

func (s *MemoryCacheStore) Save(_ context.Context, key string, candidates []domain.Candidate) error {
	stored := make([]domain.Candidate, len(candidates))
	copy(stored, candidates)
	s.mu.Lock()
	s.entries[key] = memoryCacheEntry{
		candidates: stored,
		expires:    s.now().Add(s.ttl),
	}
	s.mu.Unlock()
	return nil
}
