// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"bookagent-api/internal/domain/entity"
)

// ChapterFilter 章节过滤条件
type ChapterFilter struct {
	Status entity.ChapterStatus
}

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// Create 创建章节
	Create(ctx context.Context, chapter *entity.Chapter) error

	// GetByID 根据 ID 获取章节
	GetByID(ctx context.Context, id string) (*entity.Chapter, error)

	// Update 更新章节
	Update(ctx context.Context, chapter *entity.Chapter) error

	// Delete 删除章节
	Delete(ctx context.Context, id string) error

	// ListByBook 获取图书章节列表（按排序键排序）
	ListByBook(ctx context.Context, bookID string, filter *ChapterFilter) ([]*entity.Chapter, error)

	// UpdateContent 更新章节内容
	UpdateContent(ctx context.Context, id, content string) error

	// CountByTemplate 统计引用指定模板的章节数
	CountByTemplate(ctx context.Context, templateID string) (int64, error)

	// NextSortOrder 获取图书内下一个排序键
	NextSortOrder(ctx context.Context, bookID string) (int, error)
}
