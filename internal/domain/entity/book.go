// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// BookStatus 图书状态
type BookStatus string

const (
	BookStatusDraft     BookStatus = "draft"
	BookStatusPublished BookStatus = "published"
	BookStatusArchived  BookStatus = "archived"
)

// ValidBookStatus 检查图书状态是否合法
func ValidBookStatus(s BookStatus) bool {
	switch s {
	case BookStatusDraft, BookStatusPublished, BookStatusArchived:
		return true
	}
	return false
}

// Book 图书实体
type Book struct {
	ID          string     `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string     `json:"title" gorm:"type:varchar(255);not null"`
	Description string     `json:"description,omitempty" gorm:"type:text"`
	Status      BookStatus `json:"status" gorm:"type:varchar(50);default:'draft'"`
	CoverImage  string     `json:"cover_image,omitempty" gorm:"type:varchar(512)"`
	IsPublic    bool       `json:"is_public" gorm:"default:false"`
	AuthorID    string     `json:"author_id" gorm:"type:uuid;index;not null"`
	Chapters    []Chapter  `json:"chapters,omitempty" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Book) TableName() string {
	return "books"
}

// NewBook 创建新图书
func NewBook(authorID, title string) *Book {
	now := time.Now()
	return &Book{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    BookStatusDraft,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AccessibleBy 检查用户是否可以读取该图书
func (b *Book) AccessibleBy(userID string, admin bool) bool {
	return b.IsPublic || admin || b.AuthorID == userID
}

// EditableBy 检查用户是否可以修改该图书
func (b *Book) EditableBy(userID string, admin bool) bool {
	return admin || b.AuthorID == userID
}
