package storyboard

import (
	"context"
	"errors"
	"fmt"

	"storyboard-ai-api/internal/domain/entity"
	"storyboard-ai-api/internal/domain/repository"
	"storyboard-ai-api/pkg/logger"
)

// ErrMalformedEvent 事件缺少 ID 或会话 ID
var ErrMalformedEvent = errors.New("malformed session event")

// EventArchiver 将事件流中的会话事件落库（job-worker 使用）
type EventArchiver struct {
	events repository.SessionEventRepository
}

// NewEventArchiver 创建事件归档器
func NewEventArchiver(events repository.SessionEventRepository) *EventArchiver {
	return &EventArchiver{events: events}
}

// Archive 写入一条事件；重复投递由仓储按 ID 去重
func (a *EventArchiver) Archive(ctx context.Context, event *entity.SessionEvent) error {
	if event == nil || event.ID == "" || event.SessionUUID == "" {
		return ErrMalformedEvent
	}
	ctx = logger.WithContext(ctx, logger.SessionIDKey, event.SessionUUID)
	if err := a.events.Create(ctx, event); err != nil {
		return fmt.Errorf("archive event %s: %w", event.ID, err)
	}
	logger.Debug(ctx, "session event archived", "event_id", event.ID, "type", string(event.Type))
	return nil
}

// PublishSessionEvent 未启用消息流时由服务直接调用，事件同步落库
func (a *EventArchiver) PublishSessionEvent(ctx context.Context, event *entity.SessionEvent) error {
	return a.Archive(ctx, event)
}
