// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"bookagent-api/internal/domain/entity"
)

// CreateBookRequest 创建图书请求
type CreateBookRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"omitempty"`
	CoverImage  string `json:"cover_image" binding:"omitempty,max=512"`
	IsPublic    bool   `json:"is_public"`
}

// UpdateBookRequest 更新图书请求
// 指针字段为 nil 表示不修改该字段
type UpdateBookRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	Status      *string `json:"status" binding:"omitempty,oneof=draft published archived"`
	CoverImage  *string `json:"cover_image" binding:"omitempty,max=512"`
	IsPublic    *bool   `json:"is_public"`
}

// BookResponse 图书响应
type BookResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      entity.BookStatus `json:"status"`
	CoverImage  string            `json:"cover_image,omitempty"`
	IsPublic    bool              `json:"is_public"`
	AuthorID    string            `json:"author_id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// BookListResponse 图书列表响应
type BookListResponse struct {
	Items []*BookResponse `json:"items"`
}

// ToBookResponse 实体转换为响应
func ToBookResponse(b *entity.Book) *BookResponse {
	if b == nil {
		return nil
	}
	return &BookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Status:      b.Status,
		CoverImage:  b.CoverImage,
		IsPublic:    b.IsPublic,
		AuthorID:    b.AuthorID,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// ToBookListResponse 实体列表转换为响应
func ToBookListResponse(books []*entity.Book) *BookListResponse {
	items := make([]*BookResponse, len(books))
	for i, b := range books {
		items[i] = ToBookResponse(b)
	}
	return &BookListResponse{Items: items}
}

// ApplyToBook 更新实体
func (r *UpdateBookRequest) ApplyToBook(b *entity.Book) {
	if r.Title != nil {
		b.Title = *r.Title
	}
	if r.Description != nil {
		b.Description = *r.Description
	}
	if r.Status != nil {
		b.Status = entity.BookStatus(*r.Status)
	}
	if r.CoverImage != nil {
		b.CoverImage = *r.CoverImage
	}
	if r.IsPublic != nil {
		b.IsPublic = *r.IsPublic
	}
	b.UpdatedAt = time.Now()
}
