package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosscheck/pkg/platform/sentinel"
)

func TestTokenBucket_StartsFull(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	b := newTokenBucket(30, func() time.Time { return now })

	assert.InDelta(t, 30, b.available(), 1e-9)

	for range 30 {
		require.NoError(t, b.take(context.Background()))
	}
	assert.InDelta(t, 0, b.available(), 1e-9)
}

func TestTokenBucket_RefillsAtPerMinuteRate(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	b := newTokenBucket(60, func() time.Time { return now })

	for range 60 {
		require.NoError(t, b.take(context.Background()))
	}

	// 60 rpm refills one token per second.
	now = now.Add(time.Second)
	assert.InDelta(t, 1, b.available(), 1e-9)
	require.NoError(t, b.take(context.Background()))

	// Refill never exceeds capacity.
	now = now.Add(time.Hour)
	assert.InDelta(t, 60, b.available(), 1e-9)
}

func TestTokenBucket_TimeoutWhileWaiting(t *testing.T) {
	b := newTokenBucket(1, nil)
	require.NoError(t, b.take(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := b.take(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrRateLimitTimeout)
	assert.Less(t, time.Since(start), 5*time.Second, "caller must not wait for the full refill")
}
