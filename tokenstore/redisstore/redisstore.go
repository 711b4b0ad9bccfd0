package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/elearn-web/tokenstore"
	"github.com/redis/go-redis/v9"
)

var _ tokenstore.Storage = (*Storage)(nil)

// Storage keeps one browser's tokens in Redis under "<prefix>:<key>".
type Storage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New returns storage scoped to prefix. A zero ttl stores keys without expiry.
func New(client *redis.Client, prefix string, ttl time.Duration) *Storage {
	return &Storage{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *Storage) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

func (r *Storage) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s from Redis: %w", key, err)
	}
	return value, nil
}

// Set writes values and resets the TTL of both token keys, so a refresh token that
// was not rotated expires together with the access token written beside it.
func (r *Storage) Set(ctx context.Context, values map[string]string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, r.redisKey(k), v, r.ttl)
		}
		if r.ttl <= 0 {
			return nil
		}
		for _, k := range []string{tokenstore.AccessTokenKey, tokenstore.RefreshTokenKey} {
			if _, written := values[k]; !written {
				pipe.Expire(ctx, r.redisKey(k), r.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set tokens in Redis: %w", err)
	}
	return nil
}

func (r *Storage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		redisKeys = append(redisKeys, r.redisKey(k))
	}
	if err := r.client.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("failed to delete tokens from Redis: %w", err)
	}
	return nil
}
