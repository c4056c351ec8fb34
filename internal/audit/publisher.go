package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	id "crosscheck/pkg/domain"
	"crosscheck/pkg/requestcontext"
)

// Publisher appends audit entries. Persistence is synchronous so the trail
// never lags the run; sink fan-out happens in the background worker and a
// full sink buffer drops the sink copy, not the stored entry.
type Publisher struct {
	store  Store
	sink   chan<- Entry
	logger *slog.Logger
}

func NewPublisher(store Store, sink chan<- Entry, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, sink: sink, logger: logger}
}

// Emit records an entry for the run. Actor metadata comes from the request
// context: entries with an authenticated operator are operator entries,
// everything else is system activity.
func (p *Publisher) Emit(ctx context.Context, runID id.RunID, action string, payload any) error {
	entry := Entry{
		RunID:     runID,
		Timestamp: requestcontext.Now(ctx),
		Actor:     ActorSystem,
		Action:    action,
		RequestID: requestcontext.RequestID(ctx),
	}
	if operator := requestcontext.Operator(ctx); operator != "" {
		entry.Actor = ActorOperator
		entry.Operator = operator
		entry.UserAgent = requestcontext.UserAgent(ctx)
		entry.ClientIP = requestcontext.ClientIP(ctx)
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode audit payload for %s: %w", action, err)
		}
		entry.Payload = raw
	}

	if err := p.store.Append(ctx, &entry); err != nil {
		return fmt.Errorf("append audit entry %s: %w", action, err)
	}

	if p.sink != nil {
		select {
		case p.sink <- entry:
		default:
			p.logger.WarnContext(ctx, "audit sink buffer full, dropping sink copy",
				"run_id", runID, "action", action, "seq", entry.Seq)
		}
	}
	return nil
}

// List returns the full trail for a run in append order.
func (p *Publisher) List(ctx context.Context, runID id.RunID) ([]Entry, error) {
	return p.store.ListByRun(ctx, runID)
}
