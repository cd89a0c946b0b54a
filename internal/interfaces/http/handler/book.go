// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/interfaces/http/dto"
	"bookagent-api/pkg/logger"
)

// BookHandler 图书处理器
type BookHandler struct {
	bookRepo repository.BookRepository
}

// NewBookHandler 创建图书处理器
func NewBookHandler(bookRepo repository.BookRepository) *BookHandler {
	return &BookHandler{bookRepo: bookRepo}
}

// loadAccessibleBook 加载图书并做读权限检查
// 图书不存在或当前用户不可见时返回 404，响应已写入
func (h *BookHandler) loadAccessibleBook(c *gin.Context, id string) (*entity.Book, bool) {
	ctx := c.Request.Context()

	book, err := h.bookRepo.GetByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "failed to get book", err)
		dto.InternalError(c, "failed to get book")
		return nil, false
	}
	if book == nil || !book.AccessibleBy(c.GetString("user_id"), isAdmin(c)) {
		dto.NotFound(c, "book not found")
		return nil, false
	}
	return book, true
}

// CreateBook 创建图书
// @Summary 创建图书
// @Tags Books
// @Accept json
// @Produce json
// @Param body body dto.CreateBookRequest true "图书信息"
// @Success 201 {object} dto.Response[dto.BookResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	book := entity.NewBook(c.GetString("user_id"), req.Title)
	book.Description = req.Description
	book.CoverImage = req.CoverImage
	book.IsPublic = req.IsPublic

	if err := h.bookRepo.Create(ctx, book); err != nil {
		logger.Error(ctx, "failed to create book", err)
		dto.InternalError(c, "failed to create book")
		return
	}

	dto.Created(c, dto.ToBookResponse(book))
}

// ListBooks 获取图书列表
// 返回当前用户的图书及公开图书，管理员可见全部
func (h *BookHandler) ListBooks(c *gin.Context) {
	ctx := c.Request.Context()

	page := dto.BindPage(c)
	filter := &repository.BookFilter{
		Status: entity.BookStatus(c.Query("status")),
	}
	if !isAdmin(c) {
		filter.AuthorID = c.GetString("user_id")
		filter.IncludePublic = true
	}

	result, err := h.bookRepo.List(ctx, filter, repository.NewPagination(page.Page, page.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list books", err)
		dto.InternalError(c, "failed to list books")
		return
	}

	dto.SuccessWithPage(c, dto.ToBookListResponse(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetBook 获取图书详情
func (h *BookHandler) GetBook(c *gin.Context) {
	book, ok := h.loadAccessibleBook(c, dto.BindBookID(c))
	if !ok {
		return
	}
	dto.Success(c, dto.ToBookResponse(book))
}

// UpdateBook 更新图书
// 可见但无编辑权限返回 403
func (h *BookHandler) UpdateBook(c *gin.Context) {
	ctx := c.Request.Context()

	book, ok := h.loadAccessibleBook(c, dto.BindBookID(c))
	if !ok {
		return
	}
	if !book.EditableBy(c.GetString("user_id"), isAdmin(c)) {
		dto.Forbidden(c, "not the author of this book")
		return
	}

	var req dto.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	req.ApplyToBook(book)
	if err := h.bookRepo.Update(ctx, book); err != nil {
		logger.Error(ctx, "failed to update book", err)
		dto.InternalError(c, "failed to update book")
		return
	}

	dto.Success(c, dto.ToBookResponse(book))
}

// DeleteBook 删除图书（章节级联删除）
func (h *BookHandler) DeleteBook(c *gin.Context) {
	ctx := c.Request.Context()

	book, ok := h.loadAccessibleBook(c, dto.BindBookID(c))
	if !ok {
		return
	}
	if !book.EditableBy(c.GetString("user_id"), isAdmin(c)) {
		dto.Forbidden(c, "not the author of this book")
		return
	}

	if err := h.bookRepo.Delete(ctx, book.ID); err != nil {
		logger.Error(ctx, "failed to delete book", err)
		dto.InternalError(c, "failed to delete book")
		return
	}

	dto.NoContent(c)
}
