package cart

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/go-redis/redis/v8"
)

// RedisStore keeps one hash per user: cart:<user> -> {product_id: quantity}.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func cartKey(userID int) string {
	return fmt.Sprintf("cart:%d", userID)
}

func (s *RedisStore) Get(ctx context.Context, userID int) (*entity.Cart, error) {
	fields, err := s.rdb.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	quantities := make(map[int]int, len(fields))
	for field, value := range fields {
		pid, err := strconv.Atoi(field)
		if err != nil {
			logger.Warn().Msgf("Ignoring malformed cart field %q for user %d", field, userID)
			continue
		}
		qty, err := strconv.Atoi(value)
		if err != nil || qty < 1 {
			continue
		}
		quantities[pid] = qty
	}
	return entity.NewCart(userID, quantities), nil
}

func (s *RedisStore) AddItem(ctx context.Context, userID, productID, quantity int) error {
	key := cartKey(userID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, strconv.Itoa(productID), int64(quantity))
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

func (s *RedisStore) SetItem(ctx context.Context, userID, productID, quantity int) error {
	key := cartKey(userID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, strconv.Itoa(productID), quantity)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

func (s *RedisStore) RemoveItem(ctx context.Context, userID, productID int) error {
	return s.rdb.HDel(ctx, cartKey(userID), strconv.Itoa(productID)).Err()
}

func (s *RedisStore) Clear(ctx context.Context, userID int) error {
	return s.rdb.Del(ctx, cartKey(userID)).Err()
}
