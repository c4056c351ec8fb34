package screening

import (
	"context"
	"time"

	"crosscheck/internal/domain"
	"crosscheck/internal/risk"
	id "crosscheck/pkg/domain"
)

// Snapshot is the persisted form of a run: everything needed to resume after
// a restart. It round-trips losslessly through JSON.
type Snapshot struct {
	RunID      id.RunID               `json:"run_id"`
	Identity   domain.ClientIdentity  `json:"identity"`
	State      State                  `json:"state"`
	Paused     bool                   `json:"paused"`
	Rounds     []SearchRound          `json:"rounds"`
	Evidence   []domain.EvidenceEntry `json:"evidence"`
	Assessment *risk.Assessment       `json:"assessment,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// SnapshotStore persists run snapshots. Save overwrites; a run has exactly
// one current snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Find(ctx context.Context, runID id.RunID) (Snapshot, error)
	List(ctx context.Context) ([]Snapshot, error)
}
