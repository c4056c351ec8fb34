package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"crosscheck/internal/domain"
	"crosscheck/pkg/platform/sentinel"
)

// CacheStore persists query results keyed by source and criteria.
type CacheStore interface {
	Find(ctx context.Context, key string) ([]domain.Candidate, error)
	Save(ctx context.Context, key string, candidates []domain.Candidate) error
}

// CachedAdapter serves repeated queries from the cache. Cache failures are
// logged and treated as misses; the source of truth is always reachable
// through the wrapped adapter.
type CachedAdapter struct {
	inner  Adapter
	cache  CacheStore
	logger *slog.Logger
}

func WithCache(inner Adapter, cache CacheStore, logger *slog.Logger) *CachedAdapter {
	return &CachedAdapter{inner: inner, cache: cache, logger: logger}
}

func (a *CachedAdapter) ID() domain.SourceID             { return a.inner.ID() }
func (a *CachedAdapter) Category() domain.SourceCategory { return a.inner.Category() }

func (a *CachedAdapter) Query(ctx context.Context, criteria Criteria) ([]domain.Candidate, error) {
	key := fmt.Sprintf("source:%s:%s", a.inner.ID(), criteria.CacheKey())

	if a.cache != nil {
		cached, err := a.cache.Find(ctx, key)
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, sentinel.ErrNotFound):
			a.logger.WarnContext(ctx, "source cache read failed", "source", a.inner.ID(), "error", err)
		}
	}

	candidates, err := a.inner.Query(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		if err := a.cache.Save(ctx, key, candidates); err != nil {
			a.logger.WarnContext(ctx, "source cache write failed", "source", a.inner.ID(), "error", err)
		}
	}
	return candidates, nil
}
