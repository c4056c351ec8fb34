package audit

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "crosscheck/pkg/domain"
	"crosscheck/pkg/requestcontext"
)

func TestPublisher_SystemEntry(t *testing.T) {
	store := NewMemoryStore()
	p := NewPublisher(store, nil, slog.Default())
	runID := id.NewRunID()

	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)
	ctx = requestcontext.WithRequestID(ctx, "req-1")

	require.NoError(t, p.Emit(ctx, runID, ActionRunStarted, map[string]string{"name": "John Smith"}))

	trail, err := p.List(ctx, runID)
	require.NoError(t, err)
	require.Len(t, trail, 1)

	entry := trail[0]
	assert.Equal(t, int64(1), entry.Seq)
	assert.Equal(t, ActorSystem, entry.Actor)
	assert.Empty(t, entry.Operator)
	assert.Equal(t, ActionRunStarted, entry.Action)
	assert.Equal(t, at, entry.Timestamp)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.JSONEq(t, `{"name":"John Smith"}`, string(entry.Payload))
}

func TestPublisher_OperatorEntryCapturesRequestMetadata(t *testing.T) {
	store := NewMemoryStore()
	p := NewPublisher(store, nil, slog.Default())
	runID := id.NewRunID()

	ctx := requestcontext.WithOperator(context.Background(), "analyst@bank.example")
	ctx = requestcontext.WithUserAgent(ctx, "Firefox 128 on Linux")
	ctx = requestcontext.WithClientIP(ctx, "10.1.2.3")

	require.NoError(t, p.Emit(ctx, runID, ActionOperatorDecision, map[string]string{"decision": "skip"}))

	trail, err := p.List(ctx, runID)
	require.NoError(t, err)
	require.Len(t, trail, 1)

	entry := trail[0]
	assert.Equal(t, ActorOperator, entry.Actor)
	assert.Equal(t, "analyst@bank.example", entry.Operator)
	assert.Equal(t, "Firefox 128 on Linux", entry.UserAgent)
	assert.Equal(t, "10.1.2.3", entry.ClientIP)
}

func TestMemoryStore_SequencePerRun(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	runA, runB := id.NewRunID(), id.NewRunID()

	for range 3 {
		require.NoError(t, store.Append(ctx, &Entry{RunID: runA, Action: ActionRoundStarted}))
	}
	require.NoError(t, store.Append(ctx, &Entry{RunID: runB, Action: ActionRunStarted}))

	trailA, err := store.ListByRun(ctx, runA)
	require.NoError(t, err)
	require.Len(t, trailA, 3)
	for i, entry := range trailA {
		assert.Equal(t, int64(i+1), entry.Seq)
	}

	trailB, err := store.ListByRun(ctx, runB)
	require.NoError(t, err)
	require.Len(t, trailB, 1)
	assert.Equal(t, int64(1), trailB[0].Seq)
}

type collectorSink struct {
	mu      sync.Mutex
	entries []Entry
}

func (c *collectorSink) Publish(_ context.Context, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	return nil
}

func (c *collectorSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func TestWorker_ForwardsToSink(t *testing.T) {
	store := NewMemoryStore()
	inbox := make(chan Entry, 16)
	p := NewPublisher(store, inbox, slog.Default())
	sink := &collectorSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := NewWorker(sink, inbox, slog.Default())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	runID := id.NewRunID()
	require.NoError(t, p.Emit(ctx, runID, ActionRunStarted, nil))
	require.NoError(t, p.Emit(ctx, runID, ActionRunStopped, nil))

	require.Eventually(t, func() bool { return sink.len() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
