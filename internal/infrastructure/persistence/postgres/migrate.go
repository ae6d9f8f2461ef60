package postgres

import (
	"context"
	"fmt"

	"storyboard-ai-api/internal/domain/entity"
)

// Migrate 创建或升级表结构
func (c *Client) Migrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.Migrate")
	defer span.End()

	if err := c.db.WithContext(ctx).AutoMigrate(
		&entity.StorySession{},
		&entity.SessionEvent{},
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
