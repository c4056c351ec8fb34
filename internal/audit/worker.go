package audit

import (
	"context"
	"log/slog"
)

// Sink receives audit entries after they are persisted locally. Kafka is the
// production implementation; tests use in-process collectors.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}

// Worker consumes audit entries from the publisher's channel and forwards
// them to the sink. Sink failures are logged and skipped; the store already
// holds the entry.
type Worker struct {
	sink   Sink
	inbox  <-chan Entry
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Entry, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			if err := w.sink.Publish(ctx, entry); err != nil {
				w.logger.ErrorContext(ctx, "audit sink publish failed",
					"run_id", entry.RunID, "action", entry.Action, "seq", entry.Seq, "error", err)
			}
		}
	}
}
