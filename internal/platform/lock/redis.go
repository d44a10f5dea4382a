package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still carries our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`

// Redis is a Locker shared by every instance pointed at the same Redis.
// A lock outlives a crashed holder by at most ttl.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	token  func() string
	logger *zap.Logger
}

func NewRedis(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client: client,
		prefix: "leaveflow:lock:",
		ttl:    ttl,
		token:  uuid.NewString,
		logger: logger.Named("lock.redis"),
	}
}

func (r *Redis) TryLock(ctx context.Context, key string) (func(), error) {
	full := r.prefix + key
	token := r.token()
	ok, err := r.client.SetNX(ctx, full, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", full, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			deleted, err := r.client.Eval(releaseCtx, releaseScript, []string{full}, token).Int64()
			if err != nil {
				r.logger.Warn("release lock failed", zap.String("key", full), zap.Error(err))
				return
			}
			if deleted == 0 {
				r.logger.Warn("lock expired before release", zap.String("key", full))
			}
		})
	}, nil
}
