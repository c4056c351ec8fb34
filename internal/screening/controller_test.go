package screening

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosscheck/internal/audit"
	"crosscheck/internal/dispatch"
	"crosscheck/internal/domain"
	"crosscheck/internal/platform/config"
	"crosscheck/internal/risk"
	"crosscheck/internal/sources"
	id "crosscheck/pkg/domain"
	"crosscheck/pkg/platform/sentinel"
)

// nameMatcher accepts any candidate whose name equals the subject's,
// rejects everything else. Deterministic stand-in for the fuzzy matcher.
type nameMatcher struct{}

func (nameMatcher) Evaluate(identity domain.ClientIdentity, cand domain.Candidate) domain.MatchDecision {
	if !strings.EqualFold(cand.Name, identity.Name) {
		return domain.MatchDecision{Candidate: cand, Score: 0.2, Decision: domain.DecisionRejected, Reason: "name mismatch"}
	}
	return domain.MatchDecision{
		Candidate:     cand,
		Score:         0.92,
		MatchedFields: []domain.MatchedField{domain.FieldName, domain.FieldDateOfBirth},
		Decision:      domain.DecisionAccepted,
	}
}

type harness struct {
	controller *Controller
	trail      *audit.MemoryStore
	snapshots  *MemorySnapshotStore
}

func newHarness(t *testing.T, adapters ...sources.Adapter) *harness {
	t.Helper()
	logger := slog.Default()

	d := dispatch.New(logger, nil)
	for _, a := range adapters {
		d.Register(a, config.RateLimit{RequestsPerMinute: 6000, ConcurrentRequests: 8})
	}

	trail := audit.NewMemoryStore()
	snapshots := NewMemorySnapshotStore()
	cfg := config.Screening{
		ResultsPerQuery: 5,
		RoundTimeout:    5 * time.Second,
		MaxAutoRounds:   3,
		CacheTTL:        time.Minute,
	}
	controller := NewController(
		d,
		nameMatcher{},
		risk.NewEngine(config.Default().Risk),
		audit.NewPublisher(trail, nil, logger),
		snapshots,
		nil,
		cfg,
		logger,
	)
	return &harness{controller: controller, trail: trail, snapshots: snapshots}
}

func pepAdapter(results ...domain.Candidate) *sources.MockAdapter {
	return &sources.MockAdapter{SourceID: "pep-registry", Cat: domain.CategoryPEP, Results: results}
}

func candidateNamed(name string) domain.Candidate {
	return domain.Candidate{Name: name, Title: name, DateOfBirth: "1975-03-12"}
}

func individual(name string) domain.ClientIdentity {
	return domain.ClientIdentity{Name: name, EntityType: domain.EntityIndividual}
}

func TestController_RoundOneQueryCountFollowsIdentity(t *testing.T) {
	cases := []struct {
		name     string
		identity domain.ClientIdentity
		queries  int
	}{
		{"name only", individual("Viktor Orlov"), 1},
		{
			"with nationality",
			domain.ClientIdentity{Name: "Viktor Orlov", EntityType: domain.EntityIndividual, Nationality: "RU"},
			2,
		},
		{
			"with nationality and occupation",
			domain.ClientIdentity{
				Name: "Viktor Orlov", EntityType: domain.EntityIndividual,
				Nationality: "RU", Occupation: "minister",
			},
			3,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, pepAdapter())
			ctx := context.Background()

			view, err := h.controller.StartRun(ctx, tc.identity)
			require.NoError(t, err)
			assert.Equal(t, StateRound1Running, view.State)

			view, err = h.controller.waitDecisionPoint(ctx, view.ID)
			require.NoError(t, err)
			assert.Equal(t, StateAwaitingDecision, view.State)
			require.Len(t, view.Rounds, 1)
			assert.Equal(t, TriggerAutomatic, view.Rounds[0].Trigger)
			assert.Equal(t, OutcomeCompleted, view.Rounds[0].Outcome)
			assert.Len(t, view.Rounds[0].Queries, tc.queries)
		})
	}
}

func TestController_RejectsInvalidIdentity(t *testing.T) {
	h := newHarness(t)
	_, err := h.controller.StartRun(context.Background(), domain.ClientIdentity{EntityType: domain.EntityIndividual})
	require.Error(t, err)
}

func TestController_RetainsMatchesAndOrdersEvidence(t *testing.T) {
	h := newHarness(t,
		pepAdapter(candidateNamed("Viktor Orlov"), candidateNamed("Pyotr Orlov")),
		&sources.MockAdapter{
			SourceID: "ofac", Cat: domain.CategorySanctions,
			Results: []domain.Candidate{candidateNamed("Viktor Orlov")},
		},
	)
	ctx := context.Background()

	view, err := h.controller.StartRun(ctx, individual("Viktor Orlov"))
	require.NoError(t, err)
	view, err = h.controller.waitDecisionPoint(ctx, view.ID)
	require.NoError(t, err)

	// Two sources each matched once; the near-namesake was rejected.
	assert.Equal(t, 2, view.EvidenceCount)
	assert.Equal(t, 3, view.Rounds[0].Candidates)
	assert.Equal(t, 2, view.Rounds[0].Retained)

	entries, err := h.controller.Evidence(ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Seq)
		assert.Equal(t, 1, entry.Round)
		assert.Equal(t, domain.DecisionAccepted, entry.Decision.Decision)
	}
}

func TestController_SourceFailureIsAGapNotAnError(t *testing.T) {
	h := newHarness(t,
		pepAdapter(candidateNamed("Viktor Orlov")),
		&sources.MockAdapter{SourceID: "newsapi", Cat: domain.CategoryAdverseMedia, Err: sentinel.ErrSourceUnavailable},
	)
	ctx := context.Background()

	view, err := h.controller.StartRun(ctx, individual("Viktor Orlov"))
	require.NoError(t, err)
	view, err = h.controller.waitDecisionPoint(ctx, view.ID)
	require.NoError(t, err)

	require.Len(t, view.Rounds, 1)
	assert.Equal(t, OutcomeCompleted, view.Rounds[0].Outcome)
	assert.Equal(t, 1, view.Rounds[0].Failures)
	assert.Equal(t, 1, view.EvidenceCount)

	trail, err := h.trail.ListByRun(ctx, view.ID)
	require.NoError(t, err)
	var failed bool
	for _, entry := range trail {
		if entry.Action == audit.ActionSourceFailed {
			failed = true
		}
	}
	assert.True(t, failed, "trail should record the source failure")
}

func TestController_StopProducesAssessmentEvenWithEmptyLog(t *testing.T) {
	h := newHarness(t, pepAdapter())
	ctx := context.Background()

	view, err := h.controller.StartRun(ctx, individual("John Doe"))
	require.NoError(t, err)
	runID := view.ID

	_, err = h.controller.waitDecisionPoint(ctx, runID)
	require.NoError(t, err)

	view, err = h.controller.Decide(ctx, runID, OperatorDecision{Type: DecideStop})
	require.NoError(t, err)
	assert.Equal(t, StateDone, view.State)

	assessment, err := h.controller.Assessment(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, risk.TierLow, assessment.Tier)
	assert.Less(t, assessment.CompositeScore, 0.4)

	// The run is finished; every further decision is refused.
	_, err = h.controller.Decide(ctx, runID, OperatorDecision{Type: DecideContinueSuggested})
	assert.ErrorIs(t, err, sentinel.ErrRunFinished)
}

func TestController_SkipAtDecisionPointRecordsSkippedRound(t *testing.T) {
	h := newHarness(t, pepAdapter())
	ctx := context.Background()

	view, err := h.controller.StartRun(ctx, individual("John Doe"))
	require.NoError(t, err)
	runID := view.ID
	_, err = h.controller.waitDecisionPoint(ctx, runID)
	require.NoError(t, err)

	view, err = h.controller.Decide(ctx, runID, OperatorDecision{Type: DecideSkip})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingDecision, view.State)
	require.Len(t, view.Rounds, 2)
	assert.Equal(t, OutcomeSkipped, view.Rounds[1].Outcome)
	assert.NotEmpty(t, view.SuggestedQuery)
}

func TestController_PauseDefersPromptAndBlocksRounds(t *testing.T) {
	h := newHarness(t, pepAdapter())
	ctx := context.Background()

	view, err := h.controller.StartRun(ctx, individual("John Doe"))
	require.NoError(t, err)
	runID := view.ID
	_, err = h.controller.waitDecisionPoint(ctx, runID)
	require.NoError(t, err)

	view, err = h.controller.Decide(ctx, runID, OperatorDecision{Type: DecidePause})
	require.NoError(t, err)
	assert.True(t, view.Paused)
	assert.Empty(t, view.SuggestedQuery, "no prompt while paused")

	_, err = h.controller.Decide(ctx, runID, OperatorDecision{Type: DecideContinueSuggested})
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	_, err = h.controller.Decide(ctx, runID, OperatorDecision{Type: DecideSkip})
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	view, err = h.controller.Decide(ctx, runID, OperatorDecision{Type: DecideResume})
	require.NoError(t, err)
	assert.False(t, view.Paused)
	assert.NotEmpty(t, view.SuggestedQuery)

	// Stop works regardless of pause state.
	_, err = h.controller.Decide(ctx, runID, OperatorDecision{Type: DecidePause})
	require.NoError(t, err)
	view, err = h.controller.Decide(ctx, runID, OperatorDecision{Type: DecideStop})
	require.NoError(t, err)
	assert.Equal(t, StateDone, view.State)
}

func TestController_CustomRoundUsesOperatorQuery(t *testing.T) {
	h := newHarness(t, pepAdapter())
	ctx := context.Background()

	view, err := h.controller.StartRun(ctx, individual("John Doe"))
	require.NoError(t, err)
	runID := view.ID
	_, err = h.controller.waitDecisionPoint(ctx, runID)
	require.NoError(t, err)

	_, err = h.controller.Decide(ctx, runID, OperatorDecision{
		Type:  DecideContinueCustom,
		Query: "John Doe offshore holdings",
	})
	require.NoError(t, err)

	view, err = h.controller.waitDecisionPoint(ctx, runID)
	require.NoError(t, err)
	require.Len(t, view.Rounds, 2)
	assert.Equal(t, TriggerOperator, view.Rounds[1].Trigger)
	assert.Equal(t, []string{"John Doe offshore holdings"}, view.Rounds[1].Queries)
}

func TestController_CustomRoundRequiresQuery(t *testing.T) {
	h := newHarness(t, pepAdapter())
	_, err := h.controller.Decide(context.Background(),
		id.NewRunID(), OperatorDecision{Type: DecideContinueCustom})
	require.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestController_UnknownRun(t *testing.T) {
	h := newHarness(t)
	_, err := h.controller.Get(context.Background(), id.NewRunID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestController_SkipWhileRunningAbandonsCollection(t *testing.T) {
	slow := &sources.MockAdapter{
		SourceID: "pep-registry",
		Cat:      domain.CategoryPEP,
		Latency:  500 * time.Millisecond,
		Results:  []domain.Candidate{candidateNamed("John Doe")},
	}
	h := newHarness(t, slow)
	ctx := context.Background()

	view, err := h.controller.StartRun(ctx, individual("John Doe"))
	require.NoError(t, err)
	run, err := h.controller.run(view.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		run.mu.Lock()
		defer run.mu.Unlock()
		return run.stopCollect != nil
	}, time.Second, 5*time.Millisecond, "round never started collecting")

	_, err = h.controller.Decide(ctx, view.ID, OperatorDecision{Type: DecideSkip})
	require.NoError(t, err)

	start := time.Now()
	view, err = h.controller.waitDecisionPoint(ctx, view.ID)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond,
		"skip should not wait for the in-flight source call")

	require.Len(t, view.Rounds, 1)
	assert.Equal(t, OutcomeSkipped, view.Rounds[0].Outcome)
	assert.Zero(t, view.EvidenceCount, "results from an abandoned round are discarded")
}

func TestController_StopWhileRunningFinalizesImmediately(t *testing.T) {
	slow := &sources.MockAdapter{
		SourceID: "pep-registry",
		Cat:      domain.CategoryPEP,
		Latency:  500 * time.Millisecond,
		Results:  []domain.Candidate{candidateNamed("John Doe")},
	}
	h := newHarness(t, slow)
	ctx := context.Background()

	view, err := h.controller.StartRun(ctx, individual("John Doe"))
	require.NoError(t, err)
	run, err := h.controller.run(view.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		run.mu.Lock()
		defer run.mu.Unlock()
		return run.stopCollect != nil
	}, time.Second, 5*time.Millisecond, "round never started collecting")

	view, err = h.controller.Decide(ctx, view.ID, OperatorDecision{Type: DecideStop})
	require.NoError(t, err)
	assert.Equal(t, StateDone, view.State)
	require.NotNil(t, view.Assessment)
	assert.Zero(t, view.EvidenceCount)
}

func TestController_SuggestedQueriesWalkSearchTermsThenRefinements(t *testing.T) {
	identity := domain.ClientIdentity{
		Name:        "John Doe",
		EntityType:  domain.EntityIndividual,
		SearchTerms: []string{"mining", "arbitration"},
	}
	assert.Equal(t, "John Doe mining", suggestQuery(identity, 1))
	assert.Equal(t, "John Doe arbitration", suggestQuery(identity, 2))
	assert.Equal(t, "John Doe sanctions", suggestQuery(identity, 3))
	assert.Equal(t, "John Doe fraud", suggestQuery(identity, 4))
}

func TestController_RunBatchAutoPolicy(t *testing.T) {
	h := newHarness(t, pepAdapter(candidateNamed("Viktor Orlov")))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	view, err := h.controller.RunBatch(ctx, individual("Viktor Orlov"), AutoPolicy{MaxRounds: 3})
	require.NoError(t, err)

	assert.Equal(t, StateDone, view.State)
	require.Len(t, view.Rounds, 3)
	assert.Equal(t, TriggerAutomatic, view.Rounds[0].Trigger)
	assert.Equal(t, TriggerOperator, view.Rounds[1].Trigger)
	require.NotNil(t, view.Assessment)
	assert.Greater(t, view.Assessment.CompositeScore, 0.0)
}

func TestController_RestoreResumesAtDecisionPoint(t *testing.T) {
	h := newHarness(t, pepAdapter(candidateNamed("Viktor Orlov")))
	ctx := context.Background()

	view, err := h.controller.StartRun(ctx, individual("Viktor Orlov"))
	require.NoError(t, err)
	runID := view.ID
	_, err = h.controller.waitDecisionPoint(ctx, runID)
	require.NoError(t, err)

	// Fresh controller backed by the same snapshot store, as after a restart.
	restored := newHarness(t, pepAdapter())
	restored.controller.snapshots = h.snapshots
	require.NoError(t, restored.controller.Restore(ctx))

	view, err = restored.controller.Get(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingDecision, view.State)
	assert.Equal(t, 1, view.EvidenceCount)

	view, err = restored.controller.Decide(ctx, runID, OperatorDecision{Type: DecideStop})
	require.NoError(t, err)
	assert.Equal(t, StateDone, view.State)
	require.NotNil(t, view.Assessment)
}

func TestController_RestoreFinishesInterruptedFinalization(t *testing.T) {
	h := newHarness(t, pepAdapter(candidateNamed("Viktor Orlov")))
	ctx := context.Background()

	view, err := h.controller.StartRun(ctx, individual("Viktor Orlov"))
	require.NoError(t, err)
	runID := view.ID
	_, err = h.controller.waitDecisionPoint(ctx, runID)
	require.NoError(t, err)

	// Rewrite the snapshot as if the process died between the finalizing
	// and done transitions: state persisted, assessment not yet computed.
	snap, err := h.snapshots.Find(ctx, runID)
	require.NoError(t, err)
	snap.State = StateFinalizing
	snap.Assessment = nil
	require.NoError(t, h.snapshots.Save(ctx, snap))

	restored := newHarness(t, pepAdapter())
	restored.controller.snapshots = h.snapshots
	require.NoError(t, restored.controller.Restore(ctx))

	view, err = restored.controller.Get(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, StateDone, view.State)
	require.NotNil(t, view.Assessment)
	assert.Greater(t, view.Assessment.CompositeScore, 0.0)

	_, err = restored.controller.Decide(ctx, runID, OperatorDecision{Type: DecideStop})
	assert.ErrorIs(t, err, sentinel.ErrRunFinished)
}

func TestController_RoundTransitionWakesBatchWaiter(t *testing.T) {
	h := newHarness(t, pepAdapter())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	view, err := h.controller.StartRun(ctx, individual("John Doe"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := h.controller.waitDecisionPoint(ctx, view.ID)
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("waiter never woke up")
	}
}
