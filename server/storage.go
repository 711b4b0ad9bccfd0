package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/elearn-web/internal/config"
	"github.com/jrsteele09/elearn-web/tokenstore"
	"github.com/jrsteele09/elearn-web/tokenstore/memory"
	"github.com/jrsteele09/elearn-web/tokenstore/redisstore"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "elearn:browser"

// StorageFactory hands out the token storage for one browser.
type StorageFactory interface {
	ForBrowser(browserID string) tokenstore.Storage
	Close() error
}

// NewStorageFactory picks memory or redis storage from config. Redis keys expire after ttl.
func NewStorageFactory(cfg config.StorageConfig, ttl time.Duration) (StorageFactory, error) {
	switch cfg.GetTokenStorage() {
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddress(),
			Password: cfg.GetRedisPassword(),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.GetRedisAddress(), err)
		}
		return NewRedisStorageFactory(client, ttl), nil
	default:
		return NewMemoryStorageFactory(), nil
	}
}

type memoryFactory struct{}

// NewMemoryStorageFactory gives every browser a fresh in-process store.
// Tokens live only as long as the browser's session entry.
func NewMemoryStorageFactory() StorageFactory {
	return memoryFactory{}
}

func (memoryFactory) ForBrowser(string) tokenstore.Storage {
	return memory.New()
}

func (memoryFactory) Close() error { return nil }

type redisFactory struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStorageFactory scopes each browser's tokens under its own key prefix.
func NewRedisStorageFactory(client *redis.Client, ttl time.Duration) StorageFactory {
	return &redisFactory{client: client, ttl: ttl}
}

func (f *redisFactory) ForBrowser(browserID string) tokenstore.Storage {
	return redisstore.New(f.client, redisKeyPrefix+":"+browserID, f.ttl)
}

func (f *redisFactory) Close() error {
	return f.client.Close()
}
