package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"storyboard-ai-api/internal/domain/entity"
	"storyboard-ai-api/internal/domain/repository"
)

// SessionEventRepository 会话事件仓储实现
type SessionEventRepository struct {
	client *Client
}

// NewSessionEventRepository 创建会话事件仓储
func NewSessionEventRepository(client *Client) *SessionEventRepository {
	return &SessionEventRepository{client: client}
}

// Create 写入事件；消息重投时按主键去重
func (r *SessionEventRepository) Create(ctx context.Context, event *entity.SessionEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.SessionEventRepository.Create")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(event).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create session event: %w", err)
	}
	return nil
}

// ListBySession 按时间顺序分页列出会话事件
func (r *SessionEventRepository) ListBySession(ctx context.Context, sessionUUID string, pagination repository.Pagination) (*repository.PagedResult[*entity.SessionEvent], error) {
	ctx, span := tracer.Start(ctx, "postgres.SessionEventRepository.ListBySession")
	defer span.End()

	db := r.client.db.WithContext(ctx)

	var total int64
	if err := db.Model(&entity.SessionEvent{}).Where("session_uuid = ?", sessionUUID).Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count session events: %w", err)
	}

	var events []*entity.SessionEvent
	if err := db.Where("session_uuid = ?", sessionUUID).
		Order("created_at ASC").Order("id ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&events).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list session events: %w", err)
	}

	return repository.NewPagedResult(events, total, pagination), nil
}

var _ repository.SessionEventRepository = (*SessionEventRepository)(nil)
