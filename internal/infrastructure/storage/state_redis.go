package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/ports"
)

const (
	redisDialTimeout = 3 * time.Second
	redisPingTimeout = 2 * time.Second
)

// RedisStateStore keeps the resume sets as two Redis sets so several hosts
// can share one worklist.
type RedisStateStore struct {
	client     redis.UniversalClient
	fetchedKey string
	failedKey  string
}

var _ ports.StateStore = (*RedisStateStore)(nil)

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	opts.DialTimeout = redisDialTimeout

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	return client, nil
}

// NewRedisStateStore stores under <prefix>:fetched and <prefix>:failed.
func NewRedisStateStore(client redis.UniversalClient, prefix string) *RedisStateStore {
	if prefix == "" {
		prefix = "cinemascanner"
	}
	return &RedisStateStore{
		client:     client,
		fetchedKey: prefix + ":fetched",
		failedKey:  prefix + ":failed",
	}
}

// Load reads both sets.
func (s *RedisStateStore) Load(ctx context.Context) (domain.ResumeState, error) {
	fetched, err := s.client.SMembers(ctx, s.fetchedKey).Result()
	if err != nil {
		return domain.ResumeState{}, fmt.Errorf("load fetched set: %w", err)
	}
	failed, err := s.client.SMembers(ctx, s.failedKey).Result()
	if err != nil {
		return domain.ResumeState{}, fmt.Errorf("load failed set: %w", err)
	}
	return normalizeState(domain.ResumeState{
		Fetched: domain.NewSet(fetched...),
		Failed:  domain.NewSet(failed...),
	}), nil
}

// Save replaces both sets in a single MULTI/EXEC.
func (s *RedisStateStore) Save(ctx context.Context, state domain.ResumeState) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		replaceSet(ctx, pipe, s.fetchedKey, state.Fetched.Sorted())
		replaceSet(ctx, pipe, s.failedKey, state.Failed.Sorted())
		return nil
	})
	if err != nil {
		return fmt.Errorf("save resume state: %w", err)
	}
	return nil
}

func replaceSet(ctx context.Context, pipe redis.Pipeliner, key string, members []string) {
	pipe.Del(ctx, key)
	if len(members) == 0 {
		return
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	pipe.SAdd(ctx, key, args...)
}
