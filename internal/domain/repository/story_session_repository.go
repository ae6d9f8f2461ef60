// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"

	"storyboard-ai-api/internal/domain/entity"
)

var (
	// ErrVersionConflict 乐观锁版本不匹配（会话已被其他请求更新）
	ErrVersionConflict = errors.New("version conflict")
)

// StorySessionRepository 故事会话仓储
type StorySessionRepository interface {
	Create(ctx context.Context, session *entity.StorySession) error
	// GetByUUID 不存在时返回 nil, nil
	GetByUUID(ctx context.Context, uuid string) (*entity.StorySession, error)
	// Update 以 session.Version 作为期望版本整体写入 Scenes，成功后版本号加一
	Update(ctx context.Context, session *entity.StorySession) error
}

// SessionEventRepository 会话事件仓储
type SessionEventRepository interface {
	// Create 重复 ID 视为已处理，不返回错误
	Create(ctx context.Context, event *entity.SessionEvent) error
	ListBySession(ctx context.Context, sessionUUID string, pagination Pagination) (*PagedResult[*entity.SessionEvent], error)
}
