// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/interfaces/http/dto"
	"bookagent-api/pkg/logger"
)

// ChapterHandler 章节处理器
type ChapterHandler struct {
	chapterRepo  repository.ChapterRepository
	bookRepo     repository.BookRepository
	templateRepo repository.TemplateRepository
}

// NewChapterHandler 创建章节处理器
func NewChapterHandler(
	chapterRepo repository.ChapterRepository,
	bookRepo repository.BookRepository,
	templateRepo repository.TemplateRepository,
) *ChapterHandler {
	return &ChapterHandler{
		chapterRepo:  chapterRepo,
		bookRepo:     bookRepo,
		templateRepo: templateRepo,
	}
}

// loadBook 加载图书并做权限检查
// needEdit 为真时要求编辑权限
func (h *ChapterHandler) loadBook(c *gin.Context, bookID string, needEdit bool) (*entity.Book, bool) {
	ctx := c.Request.Context()

	book, err := h.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		logger.Error(ctx, "failed to get book", err)
		dto.InternalError(c, "failed to get book")
		return nil, false
	}
	if book == nil || !book.AccessibleBy(c.GetString("user_id"), isAdmin(c)) {
		dto.NotFound(c, "book not found")
		return nil, false
	}
	if needEdit && !book.EditableBy(c.GetString("user_id"), isAdmin(c)) {
		dto.Forbidden(c, "not the author of this book")
		return nil, false
	}
	return book, true
}

// checkTemplate 校验模板引用存在
func (h *ChapterHandler) checkTemplate(c *gin.Context, templateID *string) bool {
	if templateID == nil {
		return true
	}
	ctx := c.Request.Context()

	tpl, err := h.templateRepo.GetByID(ctx, *templateID)
	if err != nil {
		logger.Error(ctx, "failed to get template", err)
		dto.InternalError(c, "failed to check template")
		return false
	}
	if tpl == nil {
		dto.BadRequest(c, "template not found")
		return false
	}
	return true
}

// CreateChapter 在图书下创建章节
// order 缺省时追加到书末
func (h *ChapterHandler) CreateChapter(c *gin.Context) {
	ctx := c.Request.Context()

	book, ok := h.loadBook(c, dto.BindBookID(c), true)
	if !ok {
		return
	}

	var req dto.CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !h.checkTemplate(c, req.TemplateID) {
		return
	}

	sortOrder := 0
	if req.Order != nil {
		sortOrder = *req.Order
	} else {
		next, err := h.chapterRepo.NextSortOrder(ctx, book.ID)
		if err != nil {
			logger.Error(ctx, "failed to get next sort order", err)
			dto.InternalError(c, "failed to create chapter")
			return
		}
		sortOrder = next
	}

	chapter := entity.NewChapter(book.ID, req.Title, sortOrder)
	chapter.Content = req.Content
	chapter.TemplateID = req.TemplateID
	chapter.Metadata = req.Metadata

	if err := h.chapterRepo.Create(ctx, chapter); err != nil {
		logger.Error(ctx, "failed to create chapter", err)
		dto.InternalError(c, "failed to create chapter")
		return
	}

	dto.Created(c, dto.ToChapterResponse(chapter))
}

// ListChapters 获取图书章节列表（按排序键排序）
func (h *ChapterHandler) ListChapters(c *gin.Context) {
	ctx := c.Request.Context()

	book, ok := h.loadBook(c, dto.BindBookID(c), false)
	if !ok {
		return
	}

	filter := &repository.ChapterFilter{
		Status: entity.ChapterStatus(c.Query("status")),
	}
	chapters, err := h.chapterRepo.ListByBook(ctx, book.ID, filter)
	if err != nil {
		logger.Error(ctx, "failed to list chapters", err)
		dto.InternalError(c, "failed to list chapters")
		return
	}

	dto.Success(c, dto.ToChapterListResponse(chapters))
}

// loadChapter 加载章节并校验所属图书的权限
func (h *ChapterHandler) loadChapter(c *gin.Context, chapterID string, needEdit bool) (*entity.Chapter, bool) {
	ctx := c.Request.Context()

	chapter, err := h.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		logger.Error(ctx, "failed to get chapter", err)
		dto.InternalError(c, "failed to get chapter")
		return nil, false
	}
	if chapter == nil {
		dto.NotFound(c, "chapter not found")
		return nil, false
	}

	if _, ok := h.loadBook(c, chapter.BookID, needEdit); !ok {
		return nil, false
	}
	return chapter, true
}

// GetChapter 获取章节详情
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	chapter, ok := h.loadChapter(c, dto.BindChapterID(c), false)
	if !ok {
		return
	}
	dto.Success(c, dto.ToChapterResponse(chapter))
}

// UpdateChapter 更新章节
func (h *ChapterHandler) UpdateChapter(c *gin.Context) {
	ctx := c.Request.Context()

	chapter, ok := h.loadChapter(c, dto.BindChapterID(c), true)
	if !ok {
		return
	}

	var req dto.UpdateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !h.checkTemplate(c, req.TemplateID) {
		return
	}

	req.ApplyToChapter(chapter)
	if err := h.chapterRepo.Update(ctx, chapter); err != nil {
		logger.Error(ctx, "failed to update chapter", err)
		dto.InternalError(c, "failed to update chapter")
		return
	}

	dto.Success(c, dto.ToChapterResponse(chapter))
}

// DeleteChapter 删除章节
func (h *ChapterHandler) DeleteChapter(c *gin.Context) {
	ctx := c.Request.Context()

	chapter, ok := h.loadChapter(c, dto.BindChapterID(c), true)
	if !ok {
		return
	}

	if err := h.chapterRepo.Delete(ctx, chapter.ID); err != nil {
		logger.Error(ctx, "failed to delete chapter", err)
		dto.InternalError(c, "failed to delete chapter")
		return
	}

	dto.NoContent(c)
}
