//go:build integration

package sources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosscheck/internal/domain"
	"crosscheck/internal/platform/config"
	"crosscheck/internal/platform/redis"
	"crosscheck/pkg/platform/sentinel"
	"crosscheck/pkg/testutil"
	"crosscheck/pkg/testutil/containers"
)

func TestRedisCacheStore_Integration(t *testing.T) {
	ctx := context.Background()
	client, err := redis.New(config.Redis{URL: containers.RedisURL(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisCacheStore(client, time.Minute)
	key := Criteria{Name: "Viktor Orlov"}.CacheKey()
	candidates := []domain.Candidate{{
		Source:   "pep-registry",
		Category: domain.CategoryPEP,
		Name:     "Viktor Orlov",
		Title:    "Viktor Orlov, Minister of Energy",
	}}

	testutil.Given(t, "an empty cache", func(t *testing.T) {
		_, err := store.Find(ctx, "source:pep-registry:"+key)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	testutil.When(t, "results are saved", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "source:pep-registry:"+key, candidates))
	})

	testutil.Then(t, "they round-trip through redis", func(t *testing.T) {
		got, err := store.Find(ctx, "source:pep-registry:"+key)
		require.NoError(t, err)
		assert.Equal(t, candidates, got)
	})
}

func TestRedisCacheStore_ExpiresEntries(t *testing.T) {
	ctx := context.Background()
	client, err := redis.New(config.Redis{URL: containers.RedisURL(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisCacheStore(client, time.Second)
	require.NoError(t, store.Save(ctx, "source:x:short", []domain.Candidate{{Name: "A"}}))

	require.Eventually(t, func() bool {
		_, err := store.Find(ctx, "source:x:short")
		return err != nil
	}, 5*time.Second, 200*time.Millisecond, "entry should expire")
}
