package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storyboard-ai-api/internal/domain/entity"
	"storyboard-ai-api/internal/domain/repository"
)

// StorySessionRepository 故事会话仓储实现
type StorySessionRepository struct {
	client *Client
}

// NewStorySessionRepository 创建故事会话仓储
func NewStorySessionRepository(client *Client) *StorySessionRepository {
	return &StorySessionRepository{client: client}
}

// Create 创建会话
func (r *StorySessionRepository) Create(ctx context.Context, session *entity.StorySession) error {
	ctx, span := tracer.Start(ctx, "postgres.StorySessionRepository.Create")
	defer span.End()

	if session.Version == 0 {
		session.Version = 1
	}

	db := r.client.db.WithContext(ctx)
	if err := db.Create(session).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create story session: %w", err)
	}
	return nil
}

// GetByUUID 按对外 UUID 查询会话
func (r *StorySessionRepository) GetByUUID(ctx context.Context, uuid string) (*entity.StorySession, error) {
	ctx, span := tracer.Start(ctx, "postgres.StorySessionRepository.GetByUUID")
	defer span.End()

	db := r.client.db.WithContext(ctx)
	var session entity.StorySession
	if err := db.First(&session, "uuid = ?", uuid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get story session: %w", err)
	}
	return &session, nil
}

// Update 带版本校验整体覆盖 scenes
func (r *StorySessionRepository) Update(ctx context.Context, session *entity.StorySession) error {
	ctx, span := tracer.Start(ctx, "postgres.StorySessionRepository.Update")
	defer span.End()

	now := time.Now()
	db := r.client.db.WithContext(ctx)
	result := db.Model(&entity.StorySession{}).
		Where("uuid = ? AND version = ?", session.UUID, session.Version).
		Updates(map[string]any{
			"scenes":     session.Scenes,
			"version":    session.Version + 1,
			"updated_at": now,
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to update story session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrVersionConflict
	}

	session.Version++
	session.UpdatedAt = now
	return nil
}

var _ repository.StorySessionRepository = (*StorySessionRepository)(nil)
