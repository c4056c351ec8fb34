package sources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosscheck/internal/domain"
)

func TestCachedAdapter_ServesRepeatsFromCache(t *testing.T) {
	mock := &MockAdapter{
		SourceID: "pep_registry",
		Cat:      domain.CategoryPEP,
		Results:  []domain.Candidate{{ID: domain.NewCandidateID(), Name: "John Smith"}},
	}
	cached := WithCache(mock, NewMemoryCacheStore(time.Minute), testLogger())
	criteria := Criteria{Name: "John Smith", Nationality: "USA"}

	first, err := cached.Query(context.Background(), criteria)
	require.NoError(t, err)
	second, err := cached.Query(context.Background(), criteria)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mock.Calls(), "second query never reaches the source")
}

func TestCachedAdapter_DistinctCriteriaMiss(t *testing.T) {
	mock := &MockAdapter{SourceID: "s", Cat: domain.CategorySanctions}
	cached := WithCache(mock, NewMemoryCacheStore(time.Minute), testLogger())

	_, err := cached.Query(context.Background(), Criteria{Name: "John Smith"})
	require.NoError(t, err)
	_, err = cached.Query(context.Background(), Criteria{Name: "John Smith", DateOfBirth: "1965-03-15"})
	require.NoError(t, err)

	assert.Equal(t, 2, mock.Calls())
}

func TestCachedAdapter_NilCachePassesThrough(t *testing.T) {
	mock := &MockAdapter{SourceID: "s", Cat: domain.CategorySanctions}
	cached := WithCache(mock, nil, testLogger())

	_, err := cached.Query(context.Background(), Criteria{Name: "x"})
	require.NoError(t, err)
	_, err = cached.Query(context.Background(), Criteria{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls())
}

func TestMemoryCacheStore_TTLExpiry(t *testing.T) {
	store := NewMemoryCacheStore(time.Minute)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(context.Background(), "k", []domain.Candidate{{Name: "x"}}))

	got, err := store.Find(context.Background(), "k")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	now = now.Add(2 * time.Minute)
	_, err = store.Find(context.Background(), "k")
	assert.Error(t, err)
}
