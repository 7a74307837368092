package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	lockPrefix = "dating:lock:"
	markPrefix = "dating:mark:"

	lockRetryInterval = 25 * time.Millisecond
)

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis shares locks and marks between API instances.
type Redis struct {
	client  *redis.Client
	lockTTL time.Duration
	log     logrus.FieldLogger
}

func NewRedis(client *redis.Client, lockTTL time.Duration, log logrus.FieldLogger) *Redis {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &Redis{client: client, lockTTL: lockTTL, log: log}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := unlockScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil {
			r.log.WithError(err).WithField("key", key).Warn("Failed to release lock")
		}
	}, nil
}

func (r *Redis) Mark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, markPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", key, err)
	}
	return ok, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
