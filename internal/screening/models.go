// Package screening drives the multi-round search lifecycle: round 1 runs
// automatically, every later round is operator-directed, and the run ends in
// exactly one risk assessment.
package screening

import (
	"time"

	"crosscheck/internal/domain"
	"crosscheck/internal/risk"
	id "crosscheck/pkg/domain"
)

// State is the controller's position in the run lifecycle.
type State string

const (
	StateIdle             State = "idle"
	StateRound1Running    State = "round1_running"
	StateAwaitingDecision State = "awaiting_operator_decision"
	StateRoundRunning     State = "round_running"
	StateFinalizing       State = "finalizing"
	StateDone             State = "done"
)

// running reports whether a round is currently gathering results.
func (s State) running() bool {
	return s == StateRound1Running || s == StateRoundRunning
}

// RoundTrigger records who initiated a round.
type RoundTrigger string

const (
	TriggerAutomatic RoundTrigger = "automatic"
	TriggerOperator  RoundTrigger = "operator"
)

// RoundOutcome records how a round ended.
type RoundOutcome string

const (
	OutcomeCompleted RoundOutcome = "completed"
	OutcomeSkipped   RoundOutcome = "skipped"
	OutcomePaused    RoundOutcome = "paused"
)

// SearchRound is one completed or abandoned round. Rounds are strictly
// ordered; round 1 is always automatic.
type SearchRound struct {
	Number     int          `json:"number"`
	Trigger    RoundTrigger `json:"trigger"`
	Queries    []string     `json:"queries"`
	IssuedAt   time.Time    `json:"issued_at"`
	Outcome    RoundOutcome `json:"outcome"`
	Candidates int          `json:"candidates"` // raw candidates evaluated
	Retained   int          `json:"retained"`   // appended to the evidence log
	Failures   int          `json:"failures"`   // source failures recorded as gaps
}

// RunView is the externally visible snapshot of a run. It is a copy; holding
// one never blocks the controller.
type RunView struct {
	ID             id.RunID              `json:"id"`
	Identity       domain.ClientIdentity `json:"identity"`
	State          State                 `json:"state"`
	Paused         bool                  `json:"paused"`
	Rounds         []SearchRound         `json:"rounds"`
	EvidenceCount  int                   `json:"evidence_count"`
	SuggestedQuery string                `json:"suggested_query,omitempty"`
	Assessment     *risk.Assessment      `json:"assessment,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}
