package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLocker serializes admission per user across processes using a
// SET NX lease. Used when more than one instance accepts uploads.
type RedisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	retryWait time.Duration
}

// NewRedisLocker creates a cross-process per-user locker.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client:    client,
		ttl:       10 * time.Second,
		retryWait: 50 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := fmt.Sprintf("voxledger:admission:%s", userID)
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire admission lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryWait):
		}
	}

	unlock := func() {
		// Release only our own lease; an expired lock may belong to
		// someone else by now.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		l.client.Eval(context.Background(), script, []string{key}, token)
	}
	return unlock, nil
}
