package screening

import (
	"context"
	"fmt"
	"sort"
	"sync"

	id "crosscheck/pkg/domain"
	"crosscheck/pkg/platform/sentinel"
)

// MemorySnapshotStore keeps run snapshots in process memory.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	snaps map[id.RunID]Snapshot
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snaps: make(map[id.RunID]Snapshot)}
}

func (s *MemorySnapshotStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.RunID] = snap
	return nil
}

func (s *MemorySnapshotStore) Find(_ context.Context, runID id.RunID) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[runID]
	if !ok {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", runID, sentinel.ErrNotFound)
	}
	return snap, nil
}

func (s *MemorySnapshotStore) List(_ context.Context) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
