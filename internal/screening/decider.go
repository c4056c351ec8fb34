package screening

import (
	"context"
	"fmt"
	"strings"
)

// DecisionType is an operator event at a decision point.
type DecisionType string

const (
	DecideContinueSuggested DecisionType = "continue_suggested"
	DecideContinueCustom    DecisionType = "continue_custom"
	DecideSkip              DecisionType = "skip"
	DecidePause             DecisionType = "pause"
	DecideResume            DecisionType = "resume"
	DecideStop              DecisionType = "stop"
)

// OperatorDecision is one operator event. Query is required for
// continue_custom and ignored otherwise.
type OperatorDecision struct {
	Type  DecisionType `json:"type"`
	Query string       `json:"query,omitempty"`
}

// Validate rejects malformed decisions before they reach the state machine.
func (d OperatorDecision) Validate() error {
	switch d.Type {
	case DecideContinueSuggested, DecideSkip, DecidePause, DecideResume, DecideStop:
		return nil
	case DecideContinueCustom:
		if strings.TrimSpace(d.Query) == "" {
			return fmt.Errorf("continue_custom requires a query")
		}
		return nil
	}
	return fmt.Errorf("unknown decision type: %q", d.Type)
}

// Decider supplies decisions when no operator is attached. The controller
// calls it at every decision point with the current run view.
type Decider interface {
	Decide(ctx context.Context, run RunView) (OperatorDecision, error)
}

// AutoPolicy is the unattended policy: continue with the suggested query
// until MaxRounds rounds have run, then stop.
type AutoPolicy struct {
	MaxRounds int
}

func (p AutoPolicy) Decide(_ context.Context, run RunView) (OperatorDecision, error) {
	if len(run.Rounds) >= p.MaxRounds {
		return OperatorDecision{Type: DecideStop}, nil
	}
	return OperatorDecision{Type: DecideContinueSuggested}, nil
}
