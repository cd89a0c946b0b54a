// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"bookagent-api/internal/domain/entity"
)

// CreateChapterRequest 创建章节请求
// Order 缺省时追加到书末
type CreateChapterRequest struct {
	Title      string         `json:"title" binding:"required,max=255"`
	Content    string         `json:"content"`
	Order      *int           `json:"order" binding:"omitempty,min=0"`
	TemplateID *string        `json:"template_id" binding:"omitempty,uuid"`
	Metadata   map[string]any `json:"metadata"`
}

// UpdateChapterRequest 更新章节请求
// 指针字段为 nil 表示不修改该字段
type UpdateChapterRequest struct {
	Title      *string        `json:"title" binding:"omitempty,max=255"`
	Content    *string        `json:"content"`
	Order      *int           `json:"order" binding:"omitempty,min=0"`
	Status     *string        `json:"status" binding:"omitempty,oneof=draft in_review published archived"`
	TemplateID *string        `json:"template_id" binding:"omitempty,uuid"`
	Metadata   map[string]any `json:"metadata"`
}

// ChapterResponse 章节响应
type ChapterResponse struct {
	ID         string               `json:"id"`
	BookID     string               `json:"book_id"`
	TemplateID *string              `json:"template_id,omitempty"`
	Title      string               `json:"title"`
	Content    string               `json:"content,omitempty"`
	Order      int                  `json:"order"`
	Status     entity.ChapterStatus `json:"status"`
	Metadata   map[string]any       `json:"metadata,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// ChapterListResponse 章节列表响应
type ChapterListResponse struct {
	Items []*ChapterResponse `json:"items"`
}

// ToChapterResponse 实体转换为响应
func ToChapterResponse(ch *entity.Chapter) *ChapterResponse {
	if ch == nil {
		return nil
	}
	return &ChapterResponse{
		ID:         ch.ID,
		BookID:     ch.BookID,
		TemplateID: ch.TemplateID,
		Title:      ch.Title,
		Content:    ch.Content,
		Order:      ch.SortOrder,
		Status:     ch.Status,
		Metadata:   ch.Metadata,
		CreatedAt:  ch.CreatedAt,
		UpdatedAt:  ch.UpdatedAt,
	}
}

// ToChapterListResponse 实体列表转换为响应
func ToChapterListResponse(chapters []*entity.Chapter) *ChapterListResponse {
	items := make([]*ChapterResponse, len(chapters))
	for i, ch := range chapters {
		items[i] = ToChapterResponse(ch)
	}
	return &ChapterListResponse{Items: items}
}

// ApplyToChapter 更新实体
func (r *UpdateChapterRequest) ApplyToChapter(ch *entity.Chapter) {
	if r.Title != nil {
		ch.Title = *r.Title
	}
	if r.Content != nil {
		ch.Content = *r.Content
	}
	if r.Order != nil {
		ch.SortOrder = *r.Order
	}
	if r.Status != nil {
		ch.Status = entity.ChapterStatus(*r.Status)
	}
	if r.TemplateID != nil {
		ch.TemplateID = r.TemplateID
	}
	if r.Metadata != nil {
		ch.Metadata = r.Metadata
	}
	ch.UpdatedAt = time.Now()
}
