package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"crosscheck/internal/domain"
	"crosscheck/internal/platform/redis"
	"crosscheck/pkg/platform/sentinel"
)

// RedisCacheStore shares cached query results across instances.
type RedisCacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCacheStore(client *redis.Client, ttl time.Duration) *RedisCacheStore {
	return &RedisCacheStore{client: client, ttl: ttl}
}

func (s *RedisCacheStore) Find(ctx context.Context, key string) ([]domain.Candidate, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var candidates []domain.Candidate
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return nil, fmt.Errorf("decode cached candidates %s: %w", key, err)
	}
	return candidates, nil
}

func (s *RedisCacheStore) Save(ctx context.Context, key string, candidates []domain.Candidate) error {
	raw, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encode candidates %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
