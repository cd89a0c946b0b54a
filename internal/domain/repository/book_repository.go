// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"bookagent-api/internal/domain/entity"
)

// BookFilter 图书过滤条件
type BookFilter struct {
	// AuthorID 非空时只返回该作者的图书
	AuthorID string
	// IncludePublic 为真时额外包含公开图书
	IncludePublic bool
	Status        entity.BookStatus
}

// BookRepository 图书仓储接口
type BookRepository interface {
	// Create 创建图书
	Create(ctx context.Context, book *entity.Book) error

	// GetByID 根据 ID 获取图书
	GetByID(ctx context.Context, id string) (*entity.Book, error)

	// Update 更新图书
	Update(ctx context.Context, book *entity.Book) error

	// Delete 删除图书（章节级联删除）
	Delete(ctx context.Context, id string) error

	// List 获取图书列表
	List(ctx context.Context, filter *BookFilter, pagination Pagination) (*PagedResult[*entity.Book], error)
}
