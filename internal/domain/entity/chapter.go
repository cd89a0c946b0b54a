// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChapterStatus 章节状态
type ChapterStatus string

const (
	ChapterStatusDraft     ChapterStatus = "draft"
	ChapterStatusInReview  ChapterStatus = "in_review"
	ChapterStatusPublished ChapterStatus = "published"
	ChapterStatusArchived  ChapterStatus = "archived"
)

// ValidChapterStatus 检查章节状态是否合法
func ValidChapterStatus(s ChapterStatus) bool {
	switch s {
	case ChapterStatusDraft, ChapterStatusInReview, ChapterStatusPublished, ChapterStatusArchived:
		return true
	}
	return false
}

// Chapter 章节实体
// SortOrder 为书内排序键，允许重复，列表按 (sort_order, created_at) 排序
type Chapter struct {
	ID         string         `json:"id" gorm:"type:uuid;primaryKey"`
	BookID     string         `json:"book_id" gorm:"type:uuid;index;not null"`
	TemplateID *string        `json:"template_id,omitempty" gorm:"type:uuid;index"`
	Title      string         `json:"title" gorm:"type:varchar(255);not null"`
	Content    string         `json:"content,omitempty" gorm:"type:text"`
	SortOrder  int            `json:"order" gorm:"column:sort_order;not null;default:0"`
	Status     ChapterStatus  `json:"status" gorm:"type:varchar(50);default:'draft'"`
	Metadata   map[string]any `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// NewChapter 创建新章节
func NewChapter(bookID, title string, sortOrder int) *Chapter {
	now := time.Now()
	return &Chapter{
		ID:        uuid.NewString(),
		BookID:    bookID,
		Title:     title,
		SortOrder: sortOrder,
		Status:    ChapterStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetContent 设置章节内容
func (c *Chapter) SetContent(content string) {
	c.Content = content
	c.UpdatedAt = time.Now()
}

// HasContent 检查章节是否已有内容
func (c *Chapter) HasContent() bool {
	return c.Content != ""
}
