// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
)

// TemplateRepository 模板仓储实现
type TemplateRepository struct {
	client *Client
}

// NewTemplateRepository 创建模板仓储
func NewTemplateRepository(client *Client) *TemplateRepository {
	return &TemplateRepository{client: client}
}

// Create 创建模板
func (r *TemplateRepository) Create(ctx context.Context, template *entity.Template) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(template).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取模板
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*entity.Template, error) {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var template entity.Template
	if err := db.First(&template, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &template, nil
}

// GetByName 根据名称获取模板
func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*entity.Template, error) {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.GetByName")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var template entity.Template
	if err := db.First(&template, "name = ?", name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get template by name: %w", err)
	}
	return &template, nil
}

// Update 更新模板
func (r *TemplateRepository) Update(ctx context.Context, template *entity.Template) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(template).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update template: %w", err)
	}
	return nil
}

// Delete 删除模板
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Template{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// List 获取模板列表
func (r *TemplateRepository) List(ctx context.Context, filter *repository.TemplateFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Template], error) {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Template{})

	if filter != nil {
		if filter.Type != "" {
			query = query.Where("template_type = ?", filter.Type)
		}
		if filter.IsDefault != nil {
			query = query.Where("is_default = ?", *filter.IsDefault)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	var templates []*entity.Template
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&templates).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return repository.NewPagedResult(templates, total, pagination), nil
}

// ClearDefaultByType 清除同类型其他模板的默认标记
// 与新默认模板的写入在同一事务内执行，保证每种类型最多一个默认
func (r *TemplateRepository) ClearDefaultByType(ctx context.Context, templateType entity.TemplateType, excludeID string) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.ClearDefaultByType")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Template{}).
		Where("template_type = ? AND is_default = ? AND id <> ?", templateType, true, excludeID).
		Update("is_default", false).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear default templates: %w", err)
	}
	return nil
}

// GetDefaultByType 获取指定类型的默认模板
func (r *TemplateRepository) GetDefaultByType(ctx context.Context, templateType entity.TemplateType) (*entity.Template, error) {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.GetDefaultByType")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var template entity.Template
	if err := db.First(&template, "template_type = ? AND is_default = ?", templateType, true).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get default template: %w", err)
	}
	return &template, nil
}
