package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookAccess(t *testing.T) {
	book := NewBook("author-1", "Go 语言实战")

	// 私有图书只有作者和管理员可见
	assert.True(t, book.AccessibleBy("author-1", false))
	assert.True(t, book.AccessibleBy("other", true))
	assert.False(t, book.AccessibleBy("other", false))

	// 公开图书所有人可见，但仍只有作者和管理员可编辑
	book.IsPublic = true
	assert.True(t, book.AccessibleBy("other", false))
	assert.False(t, book.EditableBy("other", false))
	assert.True(t, book.EditableBy("author-1", false))
	assert.True(t, book.EditableBy("other", true))
}

func TestValidBookStatus(t *testing.T) {
	assert.True(t, ValidBookStatus(BookStatusDraft))
	assert.True(t, ValidBookStatus(BookStatusPublished))
	assert.True(t, ValidBookStatus(BookStatusArchived))
	assert.False(t, ValidBookStatus("deleted"))
	assert.False(t, ValidBookStatus(""))
}
