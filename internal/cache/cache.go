// Package cache provides per-key locks and short-lived marks, kept either
// in process memory or in Redis so several API instances can share them.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dating-api/internal/config"
)

// Locker serialises work on a key.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func
	// releases the lock and is safe to call more than once.
	Lock(ctx context.Context, key string) (func(), error)
}

// Marker remembers keys for a limited time.
type Marker interface {
	// Mark records key for ttl. It reports true when key was not marked yet.
	Mark(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Cache interface {
	Locker
	Marker
	Close() error
}

// New builds the backend selected by cfg.Type.
func New(ctx context.Context, cfg config.CacheConfig, log logrus.FieldLogger) (Cache, error) {
	switch cfg.Type {
	case "", "memory":
		log.Info("Using in-memory cache")
		return NewMemory(cfg.Memory.DefaultExpiration, cfg.Memory.GCInterval), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.Timeout,
			ReadTimeout:  cfg.Redis.Timeout,
			WriteTimeout: cfg.Redis.Timeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.WithField("address", cfg.Redis.Address).Info("Connected to Redis")
		return NewRedis(client, cfg.Redis.LockTTL, log), nil
	default:
		return nil, fmt.Errorf("unsupported cache type %q", cfg.Type)
	}
}
