// Package idempotency deduplicates retried write requests by client key.
package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ScopeOrder         = "order"
	ScopePurchaseOrder = "purchase_order"
)

// Store tracks which keys are being, or have been, executed.
type Store interface {
	// Claim returns true if the caller now owns key and should execute the request.
	Claim(ctx context.Context, scope, key string) (bool, error)
	// Complete records the resource created for key.
	Complete(ctx context.Context, scope, key string, resourceID int64) error
	// Release forgets key so that a failed request can be retried.
	Release(ctx context.Context, scope, key string) error
}

type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func redisKey(scope, key string) string {
	return fmt.Sprintf("idempotent-key:%s:%s", scope, key)
}

func (s *RedisStore) Claim(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, redisKey(scope, key), "in-flight", s.ttl).Result()
}

func (s *RedisStore) Complete(ctx context.Context, scope, key string, resourceID int64) error {
	return s.rdb.Set(ctx, redisKey(scope, key), resourceID, s.ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, redisKey(scope, key)).Err()
}

// MemoryStore is the in-process Store used with the memory repository.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, keys: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Claim(ctx context.Context, scope, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := redisKey(scope, key)
	if exp, ok := s.keys[k]; ok && s.now().Before(exp) {
		return false, nil
	}
	s.keys[k] = s.now().Add(s.ttl)
	return true, nil
}

func (s *MemoryStore) Complete(ctx context.Context, scope, key string, resourceID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[redisKey(scope, key)] = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Release(ctx context.Context, scope, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, redisKey(scope, key))
	return nil
}
