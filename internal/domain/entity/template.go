// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// TemplateType 模板类型
type TemplateType string

const (
	TemplateTypeBook    TemplateType = "book"
	TemplateTypeChapter TemplateType = "chapter"
	TemplateTypeSection TemplateType = "section"
)

// ValidTemplateType 检查模板类型是否合法
func ValidTemplateType(t TemplateType) bool {
	switch t {
	case TemplateTypeBook, TemplateTypeChapter, TemplateTypeSection:
		return true
	}
	return false
}

// Template 内容模板实体
// 每种类型最多只有一个默认模板，切换默认在同一事务内完成
type Template struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(255);uniqueIndex;not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	Content     string         `json:"content" gorm:"type:text;not null"`
	Type        TemplateType   `json:"type" gorm:"column:template_type;type:varchar(50);not null"`
	Version     string         `json:"version" gorm:"type:varchar(50);default:'1.0'"`
	IsDefault   bool           `json:"is_default" gorm:"default:false"`
	Metadata    map[string]any `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	AuthorID    *string        `json:"author_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Template) TableName() string {
	return "templates"
}

// NewTemplate 创建新模板
func NewTemplate(name, content string, templateType TemplateType) *Template {
	now := time.Now()
	return &Template{
		ID:        uuid.NewString(),
		Name:      name,
		Content:   content,
		Type:      templateType,
		Version:   "1.0",
		CreatedAt: now,
		UpdatedAt: now,
	}
}
