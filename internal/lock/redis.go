package lock

import (
	"alcyxob/rehab-app/internal/logger"
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another holder is left alone.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

const defaultRetryInterval = 25 * time.Millisecond

// Redis is a lock shared by every server instance using the same Redis.
type Redis struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	log           *logger.Logger
	newToken      func() string
}

func NewRedis(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	return &Redis{
		client:        client,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		log:           log,
		newToken:      uuid.NewString,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	token := r.newToken()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ErrNotAcquired
		case <-time.After(r.retryInterval):
		}
	}

	return func() {
		// The request context may already be cancelled; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil {
			r.log.Warn("failed to release lock", "key", key, "error", err)
		}
	}, nil
}
