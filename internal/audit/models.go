// Package audit records the append-only trail of every screening run: round
// boundaries, source outcomes, retained candidates, operator decisions and
// the final assessment. The trail is what makes a run reviewable afterwards.
package audit

import (
	"context"
	"encoding/json"
	"time"

	id "crosscheck/pkg/domain"
)

// Actor identifies who caused an entry.
type Actor string

const (
	ActorSystem   Actor = "system"
	ActorOperator Actor = "operator"
)

// Actions recorded on the trail.
const (
	ActionRunStarted          = "run_started"
	ActionRoundStarted        = "round_started"
	ActionSourceQueried       = "source_queried"
	ActionSourceFailed        = "source_failed"
	ActionCandidateRetained   = "candidate_retained"
	ActionDecisionRequested   = "decision_requested"
	ActionOperatorDecision    = "operator_decision"
	ActionRunPaused           = "run_paused"
	ActionRunResumed          = "run_resumed"
	ActionRunStopped          = "run_stopped"
	ActionAssessmentGenerated = "assessment_generated"
)

// Entry is one audit record. Seq is assigned by the store on append and is
// strictly increasing within a run.
type Entry struct {
	Seq       int64           `json:"seq"`
	RunID     id.RunID        `json:"run_id"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     Actor           `json:"actor"`
	Operator  string          `json:"operator,omitempty"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`

	// Request metadata captured from the operator's HTTP request; empty for
	// system entries.
	RequestID string `json:"request_id,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
}

// Store persists the trail. Append assigns Entry.Seq.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	ListByRun(ctx context.Context, runID id.RunID) ([]Entry, error)
}
