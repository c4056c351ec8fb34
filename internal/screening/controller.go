package screening

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"crosscheck/internal/audit"
	"crosscheck/internal/domain"
	"crosscheck/internal/platform/config"
	"crosscheck/internal/risk"
	"crosscheck/internal/screening/metrics"
	"crosscheck/internal/sources"
	id "crosscheck/pkg/domain"
	"crosscheck/pkg/platform/sentinel"
	pstrings "crosscheck/pkg/platform/strings"
)

// Dispatcher issues rate-limited queries against registered sources.
type Dispatcher interface {
	Submit(ctx context.Context, sourceID id.SourceID, criteria sources.Criteria) ([]domain.Candidate, error)
	Sources() []id.SourceID
}

// Matcher decides whether a candidate refers to the subject.
type Matcher interface {
	Evaluate(identity domain.ClientIdentity, cand domain.Candidate) domain.MatchDecision
}

// Assessor turns the evidence log into a risk assessment.
type Assessor interface {
	Assess(identity domain.ClientIdentity, entries []domain.EvidenceEntry, at time.Time) risk.Assessment
}

// AuditPublisher records run activity on the trail.
type AuditPublisher interface {
	Emit(ctx context.Context, runID id.RunID, action string, payload any) error
}

// Controller owns the run state machines. Each run has a single writer: the
// goroutine executing its current round, or the operator call mutating it
// under the run lock.
type Controller struct {
	dispatcher Dispatcher
	matcher    Matcher
	assessor   Assessor
	audit      AuditPublisher
	snapshots  SnapshotStore
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	cfg        config.Screening
	now        func() time.Time

	mu   sync.RWMutex
	runs map[id.RunID]*runState
}

type runState struct {
	mu         sync.Mutex
	id         id.RunID
	identity   domain.ClientIdentity
	state      State
	paused     bool
	rounds     []SearchRound
	evidence   domain.EvidenceLog
	assessment *risk.Assessment
	createdAt  time.Time
	updatedAt  time.Time

	// stopCollect cancels result collection for the running round. In-flight
	// source calls finish on their own; their output is discarded.
	stopCollect context.CancelFunc
	// notify is closed and replaced on every state transition.
	notify chan struct{}
}

func NewController(
	dispatcher Dispatcher,
	matcher Matcher,
	assessor Assessor,
	auditPublisher AuditPublisher,
	snapshots SnapshotStore,
	m *metrics.Metrics,
	cfg config.Screening,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		dispatcher: dispatcher,
		matcher:    matcher,
		assessor:   assessor,
		audit:      auditPublisher,
		snapshots:  snapshots,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("crosscheck/screening"),
		cfg:        cfg,
		now:        time.Now,
		runs:       make(map[id.RunID]*runState),
	}
}

// StartRun validates the identity, creates the run, and launches round 1 in
// the background. The returned view shows the run already in Round1Running.
func (c *Controller) StartRun(ctx context.Context, identity domain.ClientIdentity) (RunView, error) {
	if err := identity.Validate(); err != nil {
		return RunView{}, fmt.Errorf("invalid identity: %w", err)
	}
	identity.SearchTerms = pstrings.DedupeAndTrim(identity.SearchTerms)

	now := c.now()
	run := &runState{
		id:        id.NewRunID(),
		identity:  identity,
		state:     StateRound1Running,
		createdAt: now,
		updatedAt: now,
		notify:    make(chan struct{}),
	}

	c.mu.Lock()
	c.runs[run.id] = run
	c.mu.Unlock()

	if err := c.audit.Emit(ctx, run.id, audit.ActionRunStarted, identity); err != nil {
		c.logger.ErrorContext(ctx, "audit run start failed", "run_id", run.id, "error", err)
	}
	c.logger.InfoContext(ctx, "screening run started",
		"run_id", run.id, "client", identity.Name, "entity_type", identity.EntityType)

	go c.runRound(run, round1Criteria(identity), TriggerAutomatic)

	return c.view(run), nil
}

// Decide applies one operator event to a run's state machine.
func (c *Controller) Decide(ctx context.Context, runID id.RunID, decision OperatorDecision) (RunView, error) {
	if err := decision.Validate(); err != nil {
		return RunView{}, fmt.Errorf("%w: %v", sentinel.ErrInvalidState, err)
	}
	run, err := c.run(runID)
	if err != nil {
		return RunView{}, err
	}

	if err := c.audit.Emit(ctx, runID, audit.ActionOperatorDecision, decision); err != nil {
		c.logger.ErrorContext(ctx, "audit operator decision failed", "run_id", runID, "error", err)
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	if run.state == StateDone || run.state == StateFinalizing {
		return RunView{}, fmt.Errorf("%w: run already finished", sentinel.ErrRunFinished)
	}

	switch decision.Type {
	case DecidePause:
		run.paused = true
		c.transitionLocked(ctx, run, run.state)
		c.emitLocked(ctx, run, audit.ActionRunPaused, nil)

	case DecideResume:
		run.paused = false
		c.transitionLocked(ctx, run, run.state)
		c.emitLocked(ctx, run, audit.ActionRunResumed, nil)

	case DecideStop:
		if run.stopCollect != nil {
			run.stopCollect()
			run.stopCollect = nil
		}
		c.emitLocked(ctx, run, audit.ActionRunStopped, nil)
		c.finalizeLocked(ctx, run)

	case DecideSkip:
		switch {
		case run.state.running():
			// Cancels collection only; the round goroutine records the
			// skipped outcome and advances the state machine.
			if run.stopCollect != nil {
				run.stopCollect()
				run.stopCollect = nil
			}
		case run.state == StateAwaitingDecision && !run.paused:
			run.rounds = append(run.rounds, SearchRound{
				Number:   len(run.rounds) + 1,
				Trigger:  TriggerOperator,
				Queries:  []string{suggestQuery(run.identity, len(run.rounds))},
				IssuedAt: c.now(),
				Outcome:  OutcomeSkipped,
			})
			c.metrics.IncrementRounds(string(TriggerOperator), string(OutcomeSkipped))
			c.transitionLocked(ctx, run, StateAwaitingDecision)
		default:
			return RunView{}, fmt.Errorf("%w: cannot skip while %s", sentinel.ErrInvalidState, describeLocked(run))
		}

	case DecideContinueSuggested, DecideContinueCustom:
		if run.state != StateAwaitingDecision || run.paused {
			return RunView{}, fmt.Errorf("%w: cannot start a round while %s", sentinel.ErrInvalidState, describeLocked(run))
		}
		query := decision.Query
		if decision.Type == DecideContinueSuggested {
			query = suggestQuery(run.identity, len(run.rounds))
		}
		criteria := []sources.Criteria{customCriteria(run.identity, query)}
		c.transitionLocked(ctx, run, StateRoundRunning)
		go c.runRound(run, criteria, TriggerOperator)
	}

	return c.viewLocked(run), nil
}

// Get returns the current view of a run.
func (c *Controller) Get(_ context.Context, runID id.RunID) (RunView, error) {
	run, err := c.run(runID)
	if err != nil {
		return RunView{}, err
	}
	return c.view(run), nil
}

// Evidence returns the run's evidence log in append order.
func (c *Controller) Evidence(_ context.Context, runID id.RunID) ([]domain.EvidenceEntry, error) {
	run, err := c.run(runID)
	if err != nil {
		return nil, err
	}
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.evidence.Entries(), nil
}

// Assessment returns the final risk assessment of a finished run.
func (c *Controller) Assessment(_ context.Context, runID id.RunID) (risk.Assessment, error) {
	run, err := c.run(runID)
	if err != nil {
		return risk.Assessment{}, err
	}
	run.mu.Lock()
	defer run.mu.Unlock()
	if run.assessment == nil {
		return risk.Assessment{}, fmt.Errorf("%w: assessment not generated yet", sentinel.ErrNotFound)
	}
	return *run.assessment, nil
}

// RunBatch executes a full run unattended, feeding decision points from the
// policy until the run finishes.
func (c *Controller) RunBatch(ctx context.Context, identity domain.ClientIdentity, decider Decider) (RunView, error) {
	view, err := c.StartRun(ctx, identity)
	if err != nil {
		return RunView{}, err
	}
	runID := view.ID

	for {
		view, err = c.waitDecisionPoint(ctx, runID)
		if err != nil {
			return RunView{}, err
		}
		if view.State == StateDone {
			return view, nil
		}
		decision, err := decider.Decide(ctx, view)
		if err != nil {
			return RunView{}, fmt.Errorf("policy decision: %w", err)
		}
		if _, err := c.Decide(ctx, runID, decision); err != nil {
			return RunView{}, err
		}
	}
}

// waitDecisionPoint blocks until the run needs a decision or is done.
func (c *Controller) waitDecisionPoint(ctx context.Context, runID id.RunID) (RunView, error) {
	for {
		run, err := c.run(runID)
		if err != nil {
			return RunView{}, err
		}
		run.mu.Lock()
		state, paused, notify := run.state, run.paused, run.notify
		run.mu.Unlock()

		if state == StateDone || (state == StateAwaitingDecision && !paused) {
			return c.view(run), nil
		}
		select {
		case <-notify:
		case <-ctx.Done():
			return RunView{}, ctx.Err()
		}
	}
}

func (c *Controller) run(runID id.RunID) (*runState, error) {
	c.mu.RLock()
	run, ok := c.runs[runID]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, sentinel.ErrNotFound)
	}
	return run, nil
}

// transitionLocked updates state, wakes waiters and persists a snapshot.
// Callers hold run.mu.
func (c *Controller) transitionLocked(ctx context.Context, run *runState, next State) {
	run.state = next
	run.updatedAt = c.now()
	close(run.notify)
	run.notify = make(chan struct{})
	c.saveSnapshotLocked(ctx, run)
}

func (c *Controller) finalizeLocked(ctx context.Context, run *runState) {
	c.transitionLocked(ctx, run, StateFinalizing)

	assessment := c.assessor.Assess(run.identity, run.evidence.Entries(), c.now())
	run.assessment = &assessment
	c.emitLocked(ctx, run, audit.ActionAssessmentGenerated, assessment)
	c.metrics.IncrementRunsCompleted(string(assessment.Tier))

	c.logger.InfoContext(ctx, "screening run finished",
		"run_id", run.id,
		"rounds", len(run.rounds),
		"evidence", run.evidence.Len(),
		"composite_score", assessment.CompositeScore,
		"tier", assessment.Tier)

	c.transitionLocked(ctx, run, StateDone)
}

func (c *Controller) emitLocked(ctx context.Context, run *runState, action string, payload any) {
	if err := c.audit.Emit(ctx, run.id, action, payload); err != nil {
		c.logger.ErrorContext(ctx, "audit emit failed", "run_id", run.id, "action", action, "error", err)
	}
}

func (c *Controller) saveSnapshotLocked(ctx context.Context, run *runState) {
	if c.snapshots == nil {
		return
	}
	snap := Snapshot{
		RunID:      run.id,
		Identity:   run.identity,
		State:      run.state,
		Paused:     run.paused,
		Rounds:     append([]SearchRound(nil), run.rounds...),
		Evidence:   run.evidence.Entries(),
		Assessment: run.assessment,
		CreatedAt:  run.createdAt,
		UpdatedAt:  run.updatedAt,
	}
	if err := c.snapshots.Save(ctx, snap); err != nil {
		c.logger.ErrorContext(ctx, "snapshot save failed", "run_id", run.id, "error", err)
	}
}

// Restore loads persisted runs back into memory. Runs that were mid-round
// when the process died resume at the decision point; the interrupted round
// keeps its paused outcome. Runs caught between the finalizing and done
// transitions finish finalizing from the restored evidence.
func (c *Controller) Restore(ctx context.Context) error {
	if c.snapshots == nil {
		return nil
	}
	snaps, err := c.snapshots.List(ctx)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, snap := range snaps {
		state := snap.State
		rounds := append([]SearchRound(nil), snap.Rounds...)
		if state.running() {
			state = StateAwaitingDecision
			if n := len(rounds); n > 0 && rounds[n-1].Outcome == "" {
				rounds[n-1].Outcome = OutcomePaused
			}
		}
		run := &runState{
			id:         snap.RunID,
			identity:   snap.Identity,
			state:      state,
			paused:     snap.Paused,
			rounds:     rounds,
			assessment: snap.Assessment,
			createdAt:  snap.CreatedAt,
			updatedAt:  snap.UpdatedAt,
			notify:     make(chan struct{}),
		}
		run.evidence.Restore(snap.Evidence)
		if run.state == StateFinalizing {
			c.finalizeLocked(ctx, run)
		}
		c.runs[snap.RunID] = run
	}
	c.logger.InfoContext(ctx, "screening runs restored", "count", len(snaps))
	return nil
}

func (c *Controller) view(run *runState) RunView {
	run.mu.Lock()
	defer run.mu.Unlock()
	return c.viewLocked(run)
}

func (c *Controller) viewLocked(run *runState) RunView {
	v := RunView{
		ID:            run.id,
		Identity:      run.identity,
		State:         run.state,
		Paused:        run.paused,
		Rounds:        append([]SearchRound(nil), run.rounds...),
		EvidenceCount: run.evidence.Len(),
		Assessment:    run.assessment,
		CreatedAt:     run.createdAt,
		UpdatedAt:     run.updatedAt,
	}
	if run.state == StateAwaitingDecision && !run.paused {
		v.SuggestedQuery = suggestQuery(run.identity, len(run.rounds))
	}
	return v
}

func describeLocked(run *runState) string {
	if run.paused {
		return "paused"
	}
	return string(run.state)
}
