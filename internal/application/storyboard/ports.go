package storyboard

import (
	"context"

	"storyboard-ai-api/internal/domain/entity"
)

// SessionLocker 会话级互斥，ok=false 表示锁已被其他请求持有
type SessionLocker interface {
	TryLock(ctx context.Context, sessionID string) (unlock func(context.Context) error, ok bool, err error)
}

// EventPublisher 会话事件发布
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event *entity.SessionEvent) error
}
