package screening

import (
	"context"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"crosscheck/internal/audit"
	"crosscheck/internal/domain"
	"crosscheck/internal/sources"
	id "crosscheck/pkg/domain"
)

type sourceResult struct {
	source     id.SourceID
	query      string
	candidates []domain.Candidate
	err        error
}

// runRound executes one scatter/gather round: every query goes to every
// registered source concurrently, results funnel back through a single
// collector (this goroutine), which is the only writer of the evidence log.
//
// Two cancellation scopes exist. dispatchCtx bounds the source calls with the
// round timeout. collectCtx gates collection only: skip and stop cancel it,
// in-flight source calls finish on their own and their output is dropped.
func (c *Controller) runRound(run *runState, criteria []sources.Criteria, trigger RoundTrigger) {
	start := c.now()

	ctx, span := c.tracer.Start(context.Background(), "screening.round",
		trace.WithAttributes(attribute.String("run_id", run.id.String())))
	defer span.End()

	dispatchCtx, cancelDispatch := context.WithTimeout(ctx, c.cfg.RoundTimeout)
	defer cancelDispatch()
	collectCtx, cancelCollect := context.WithCancel(ctx)
	defer cancelCollect()

	run.mu.Lock()
	number := len(run.rounds) + 1
	run.rounds = append(run.rounds, SearchRound{
		Number:   number,
		Trigger:  trigger,
		Queries:  queryStrings(criteria),
		IssuedAt: start,
	})
	roundIdx := number - 1
	run.stopCollect = cancelCollect
	run.mu.Unlock()

	span.SetAttributes(attribute.Int("round", number))
	c.emit(ctx, run, audit.ActionRoundStarted, map[string]any{
		"round":   number,
		"trigger": trigger,
		"queries": queryStrings(criteria),
	})

	srcs := c.dispatcher.Sources()
	slices.Sort(srcs)

	results := make(chan sourceResult)
	var wg sync.WaitGroup
	for _, src := range srcs {
		for _, crit := range criteria {
			wg.Add(1)
			go func(src id.SourceID, crit sources.Criteria) {
				defer wg.Done()
				candidates, err := c.dispatcher.Submit(dispatchCtx, src, crit)
				select {
				case results <- sourceResult{source: src, query: criteriaQuery(crit), candidates: candidates, err: err}:
				case <-collectCtx.Done():
				}
			}(src, crit)
		}
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var evaluated, retained, failures int

collect:
	for {
		select {
		case res, ok := <-results:
			if !ok {
				break collect
			}
			if res.err != nil {
				failures++
				c.logger.WarnContext(ctx, "source failed, round continues without it",
					"run_id", run.id, "round", number, "source", res.source, "error", res.err)
				c.emit(ctx, run, audit.ActionSourceFailed, map[string]any{
					"round":  number,
					"source": res.source,
					"query":  res.query,
					"reason": res.err.Error(),
				})
				continue
			}
			c.emit(ctx, run, audit.ActionSourceQueried, map[string]any{
				"round":      number,
				"source":     res.source,
				"query":      res.query,
				"candidates": len(res.candidates),
			})

			candidates := res.candidates
			if c.cfg.ResultsPerQuery > 0 && len(candidates) > c.cfg.ResultsPerQuery {
				candidates = candidates[:c.cfg.ResultsPerQuery]
			}
			for _, cand := range candidates {
				evaluated++
				if cand.RetrievedAt.IsZero() {
					cand.RetrievedAt = c.now()
				}
				decision := c.matcher.Evaluate(run.identity, cand)
				c.metrics.IncrementDecisions(string(decision.Decision))
				if decision.Decision == domain.DecisionRejected {
					continue
				}
				if entry, ok := c.append(run, collectCtx, number, decision); ok {
					retained++
					c.emit(ctx, run, audit.ActionCandidateRetained, map[string]any{
						"seq":      entry.Seq,
						"round":    number,
						"source":   cand.Source,
						"score":    decision.Score,
						"decision": decision.Decision,
					})
				}
			}

		case <-collectCtx.Done():
			break collect
		}
	}

	cancelled := collectCtx.Err() != nil

	run.mu.Lock()
	defer run.mu.Unlock()

	round := &run.rounds[roundIdx]
	round.Candidates = evaluated
	round.Retained = retained
	round.Failures = failures
	run.stopCollect = nil

	if run.state == StateFinalizing || run.state == StateDone {
		// Stop won the race; the run already finalized with the evidence
		// collected so far.
		round.Outcome = OutcomeSkipped
		return
	}

	round.Outcome = OutcomeCompleted
	if cancelled {
		round.Outcome = OutcomeSkipped
	}
	c.metrics.IncrementRounds(string(trigger), string(round.Outcome))
	c.metrics.ObserveRoundDuration(c.now().Sub(start))

	c.emitLocked(ctx, run, audit.ActionDecisionRequested, map[string]any{
		"round":    number,
		"outcome":  round.Outcome,
		"retained": retained,
		"failures": failures,
	})
	c.transitionLocked(ctx, run, StateAwaitingDecision)
}

// append writes one evidence entry atomically. It refuses the write when
// collection was cancelled or the run finalized, so a skip or stop can never
// leave a partial entry behind.
func (c *Controller) append(run *runState, collectCtx context.Context, round int, decision domain.MatchDecision) (domain.EvidenceEntry, bool) {
	run.mu.Lock()
	defer run.mu.Unlock()
	if collectCtx.Err() != nil || run.state == StateFinalizing || run.state == StateDone {
		return domain.EvidenceEntry{}, false
	}
	return run.evidence.Append(round, decision, c.now()), true
}

// emit audits outside the run lock.
func (c *Controller) emit(ctx context.Context, run *runState, action string, payload any) {
	if err := c.audit.Emit(ctx, run.id, action, payload); err != nil {
		c.logger.ErrorContext(ctx, "audit emit failed", "run_id", run.id, "action", action, "error", err)
	}
}

func criteriaQuery(c sources.Criteria) string {
	return queryStrings([]sources.Criteria{c})[0]
}
