package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	maxJitterMinutes = 5
	maxUpdateRetries = 5
)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 24 * time.Hour
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, sessionID string) ([]domain.CartLineItem, error) {
	data, err := r.client.Get(ctx, cacheKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeLines(data)
}

// Set stores the lines with a jittered TTL.
func (r RedisCache) Set(ctx context.Context, sessionID string, lines []domain.CartLineItem) error {
	data, err := encodeLines(lines)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, cacheKey(sessionID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Update runs fn inside a WATCH/MULTI transaction on the cart key and retries when another writer
// changed the key before the write was committed.
func (r RedisCache) Update(
	ctx context.Context,
	sessionID string,
	fn func([]domain.CartLineItem) []domain.CartLineItem,
) ([]domain.CartLineItem, error) {
	key := cacheKey(sessionID)
	var result []domain.CartLineItem

	txf := func(tx *redis.Tx) error {
		var lines []domain.CartLineItem
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get failed: %w", err)
		default:
			if lines, err = decodeLines(data); err != nil {
				return err
			}
		}

		result = fn(lines)
		out, err := encodeLines(result)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, r.ttl())
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, ErrConflict
}

func (r RedisCache) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cacheKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// ttl is jittered so that carts written together do not expire together.
func (r RedisCache) ttl() time.Duration {
	return r.baseTTL + time.Duration(rand.Intn(maxJitterMinutes))*time.Minute
}

func encodeLines(lines []domain.CartLineItem) ([]byte, error) {
	if lines == nil {
		lines = []domain.CartLineItem{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return data, nil
}

func decodeLines(data []byte) ([]domain.CartLineItem, error) {
	var lines []domain.CartLineItem
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}

func cacheKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
