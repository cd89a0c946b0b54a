// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"bookagent-api/internal/domain/entity"
)

// TemplateFilter 模板过滤条件
type TemplateFilter struct {
	Type      entity.TemplateType
	IsDefault *bool
}

// TemplateRepository 模板仓储接口
type TemplateRepository interface {
	// Create 创建模板
	Create(ctx context.Context, template *entity.Template) error

	// GetByID 根据 ID 获取模板
	GetByID(ctx context.Context, id string) (*entity.Template, error)

	// GetByName 根据名称获取模板
	GetByName(ctx context.Context, name string) (*entity.Template, error)

	// Update 更新模板
	Update(ctx context.Context, template *entity.Template) error

	// Delete 删除模板
	Delete(ctx context.Context, id string) error

	// List 获取模板列表
	List(ctx context.Context, filter *TemplateFilter, pagination Pagination) (*PagedResult[*entity.Template], error)

	// ClearDefaultByType 清除同类型其他模板的默认标记
	ClearDefaultByType(ctx context.Context, templateType entity.TemplateType, excludeID string) error

	// GetDefaultByType 获取指定类型的默认模板
	GetDefaultByType(ctx context.Context, templateType entity.TemplateType) (*entity.Template, error)
}
