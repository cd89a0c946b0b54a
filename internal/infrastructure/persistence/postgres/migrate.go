// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"fmt"

	"bookagent-api/internal/domain/entity"
)

// Migrate 执行数据库结构迁移
func (c *Client) Migrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.Migrate")
	defer span.End()

	err := c.db.WithContext(ctx).AutoMigrate(
		&entity.User{},
		&entity.Template{},
		&entity.Book{},
		&entity.Chapter{},
		&entity.Task{},
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
