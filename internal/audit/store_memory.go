package audit

import (
	"context"
	"sync"

	id "crosscheck/pkg/domain"
)

// MemoryStore keeps trails in process memory. Sequence numbers are per run.
type MemoryStore struct {
	mu     sync.RWMutex
	trails map[id.RunID][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trails: make(map[id.RunID][]Entry)}
}

func (s *MemoryStore) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Seq = int64(len(s.trails[entry.RunID]) + 1)
	s.trails[entry.RunID] = append(s.trails[entry.RunID], *entry)
	return nil
}

func (s *MemoryStore) ListByRun(_ context.Context, runID id.RunID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trail := s.trails[runID]
	out := make([]Entry, len(trail))
	copy(out, trail)
	return out, nil
}
