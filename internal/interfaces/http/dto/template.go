// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"bookagent-api/internal/domain/entity"
)

// CreateTemplateRequest 创建模板请求
type CreateTemplateRequest struct {
	Name        string         `json:"name" binding:"required,max=255"`
	Description string         `json:"description"`
	Content     string         `json:"content" binding:"required"`
	Type        string         `json:"type" binding:"required,oneof=book chapter section"`
	Version     string         `json:"version" binding:"omitempty,max=50"`
	IsDefault   bool           `json:"is_default"`
	Metadata    map[string]any `json:"metadata"`
}

// UpdateTemplateRequest 更新模板请求
// 指针字段为 nil 表示不修改该字段
type UpdateTemplateRequest struct {
	Name        *string        `json:"name" binding:"omitempty,max=255"`
	Description *string        `json:"description"`
	Content     *string        `json:"content"`
	Type        *string        `json:"type" binding:"omitempty,oneof=book chapter section"`
	Version     *string        `json:"version" binding:"omitempty,max=50"`
	IsDefault   *bool          `json:"is_default"`
	Metadata    map[string]any `json:"metadata"`
}

// TemplateResponse 模板响应
type TemplateResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Content     string              `json:"content"`
	Type        entity.TemplateType `json:"type"`
	Version     string              `json:"version"`
	IsDefault   bool                `json:"is_default"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
	AuthorID    *string             `json:"author_id,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TemplateListResponse 模板列表响应
type TemplateListResponse struct {
	Items []*TemplateResponse `json:"items"`
}

// ToTemplateResponse 实体转换为响应
func ToTemplateResponse(t *entity.Template) *TemplateResponse {
	if t == nil {
		return nil
	}
	return &TemplateResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Content:     t.Content,
		Type:        t.Type,
		Version:     t.Version,
		IsDefault:   t.IsDefault,
		Metadata:    t.Metadata,
		AuthorID:    t.AuthorID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ToTemplateListResponse 实体列表转换为响应
func ToTemplateListResponse(templates []*entity.Template) *TemplateListResponse {
	items := make([]*TemplateResponse, len(templates))
	for i, t := range templates {
		items[i] = ToTemplateResponse(t)
	}
	return &TemplateListResponse{Items: items}
}

// ApplyToTemplate 更新实体
func (r *UpdateTemplateRequest) ApplyToTemplate(t *entity.Template) {
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.Content != nil {
		t.Content = *r.Content
	}
	if r.Type != nil {
		t.Type = entity.TemplateType(*r.Type)
	}
	if r.Version != nil {
		t.Version = *r.Version
	}
	if r.IsDefault != nil {
		t.IsDefault = *r.IsDefault
	}
	if r.Metadata != nil {
		t.Metadata = r.Metadata
	}
	t.UpdatedAt = time.Now()
}
