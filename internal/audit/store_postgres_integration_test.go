//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosscheck/internal/platform/postgres"
	id "crosscheck/pkg/domain"
	"crosscheck/pkg/testutil/containers"
)

func TestPostgresStore_Integration(t *testing.T) {
	ctx := context.Background()
	pool, err := postgres.Connect(ctx, containers.PostgresURL(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migrate is idempotent")

	runA, runB := id.NewRunID(), id.NewRunID()
	at := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	for i, action := range []string{ActionRunStarted, ActionRoundStarted, ActionRunStopped} {
		entry := &Entry{
			RunID:     runA,
			Timestamp: at.Add(time.Duration(i) * time.Second),
			Actor:     ActorSystem,
			Action:    action,
			Payload:   json.RawMessage(`{"round":1}`),
			RequestID: "req-1",
		}
		require.NoError(t, store.Append(ctx, entry))
		assert.NotZero(t, entry.Seq)
	}
	require.NoError(t, store.Append(ctx, &Entry{
		RunID: runB, Timestamp: at, Actor: ActorOperator, Operator: "analyst1",
		Action: ActionOperatorDecision, UserAgent: "Chrome 120 on Windows 10", ClientIP: "10.0.0.7",
	}))

	trail, err := store.ListByRun(ctx, runA)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	for i := 1; i < len(trail); i++ {
		assert.Greater(t, trail[i].Seq, trail[i-1].Seq, "seq strictly increases within a run")
	}
	assert.Equal(t, ActionRunStarted, trail[0].Action)
	assert.JSONEq(t, `{"round":1}`, string(trail[0].Payload))

	other, err := store.ListByRun(ctx, runB)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, ActorOperator, other[0].Actor)
	assert.Equal(t, "analyst1", other[0].Operator)
	assert.Equal(t, "10.0.0.7", other[0].ClientIP)
	assert.Nil(t, other[0].Payload, "entries without payload stay empty")
}
