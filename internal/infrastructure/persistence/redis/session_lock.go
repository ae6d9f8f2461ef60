package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// 仅当 value 仍是本次持有者的 token 时才删除，避免误删过期后被他人重新获取的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionLocker 基于 SET NX PX 的会话互斥锁
type SessionLocker struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewSessionLocker 创建会话锁
func NewSessionLocker(client *Client, prefix string, ttl time.Duration) *SessionLocker {
	return &SessionLocker{client: client, prefix: prefix, ttl: ttl}
}

// TryLock 非阻塞获取会话锁；锁已被占用时 ok 为 false
func (l *SessionLocker) TryLock(ctx context.Context, sessionID string) (func(context.Context) error, bool, error) {
	key := l.prefix + sessionID
	ctx, span := tracer.Start(ctx, "redis.SessionLocker.TryLock",
		trace.WithAttributes(attribute.String("redis.key", key)))
	defer span.End()

	token := uuid.NewString()
	ok, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	span.SetAttributes(attribute.Bool("lock.acquired", ok))
	if !ok {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client.rdb, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("failed to release session lock: %w", err)
		}
		return nil
	}
	return unlock, true, nil
}
