package screening

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosscheck/internal/domain"
	"crosscheck/internal/risk"
	id "crosscheck/pkg/domain"
	"crosscheck/pkg/platform/sentinel"
)

func sampleSnapshot() Snapshot {
	created := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	cand := domain.Candidate{
		ID:          id.NewCandidateID(),
		Source:      "pep-registry",
		Category:    domain.CategoryPEP,
		Title:       "Viktor Orlov",
		Name:        "Viktor Orlov",
		Nationality: "RU",
		RetrievedAt: created,
	}
	return Snapshot{
		RunID:    id.NewRunID(),
		Identity: domain.ClientIdentity{Name: "Viktor Orlov", EntityType: domain.EntityIndividual, Nationality: "RU"},
		State:    StateAwaitingDecision,
		Rounds: []SearchRound{{
			Number:     1,
			Trigger:    TriggerAutomatic,
			Queries:    []string{"Viktor Orlov", "Viktor Orlov RU"},
			IssuedAt:   created,
			Outcome:    OutcomeCompleted,
			Candidates: 4,
			Retained:   1,
		}},
		Evidence: []domain.EvidenceEntry{{
			Seq:   1,
			Round: 1,
			Decision: domain.MatchDecision{
				Candidate:     cand,
				Score:         0.91,
				MatchedFields: []domain.MatchedField{domain.FieldName, domain.FieldNationality},
				Decision:      domain.DecisionAccepted,
			},
			AppendedAt: created.Add(2 * time.Second),
		}},
		Assessment: &risk.Assessment{CompositeScore: 0.52, Tier: risk.TierMedium, GeneratedAt: created.Add(time.Minute)},
		CreatedAt:  created,
		UpdatedAt:  created.Add(time.Minute),
	}
}

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	snap := sampleSnapshot()

	body, err := json.Marshal(snap)
	require.NoError(t, err)

	var got Snapshot
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, snap, got)
}

func TestMemorySnapshotStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySnapshotStore()

	_, err := store.Find(ctx, id.NewRunID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	first := sampleSnapshot()
	second := sampleSnapshot()
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Find(ctx, first.RunID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	// Save overwrites the run's snapshot in place.
	first.State = StateDone
	require.NoError(t, store.Save(ctx, first))
	got, err = store.Find(ctx, first.RunID)
	require.NoError(t, err)
	assert.Equal(t, StateDone, got.State)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.RunID, all[0].RunID, "list is ordered by creation time")
}
