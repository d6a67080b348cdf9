package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces session keys in a shared Redis instance.
const redisKeyPrefix = "townhall:session:"

// RedisStore is a SessionStore backed by Redis, for deployments with more
// than one server process. Expiry is handled by per-key TTL, so Sweep is a
// no-op kept for interface symmetry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore with the given per-session TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Get loads and decodes a session. A missing or expired key maps to
// ErrSessionNotFound.
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chat: redis get session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("chat: decode session %s: %w", id, err)
	}
	if s.Answers == nil {
		s.Answers = make(map[uint]string)
	}
	return &s, nil
}

// Put encodes and stores the session. The TTL is anchored to CreatedAt so a
// busy session still expires one TTL after creation, matching the in-memory
// sweep semantics.
func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("chat: encode session %s: %w", s.ID, err)
	}
	remaining := time.Until(s.CreatedAt.Add(r.ttl))
	if remaining <= 0 {
		remaining = time.Second
	}
	if err := r.client.Set(ctx, redisKey(s.ID), data, remaining).Err(); err != nil {
		return fmt.Errorf("chat: redis put session %s: %w", s.ID, err)
	}
	return nil
}

// Delete removes a session key.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("chat: redis delete session %s: %w", id, err)
	}
	return nil
}

// Sweep is a no-op; Redis evicts expired keys itself.
func (r *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}
