// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"bookagent-api/internal/application/task"
	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/interfaces/http/dto"
	"bookagent-api/pkg/logger"
)

// TaskHandler 异步任务处理器
type TaskHandler struct {
	manager  *task.Manager
	bookRepo repository.BookRepository
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(manager *task.Manager, bookRepo repository.BookRepository) *TaskHandler {
	return &TaskHandler{
		manager:  manager,
		bookRepo: bookRepo,
	}
}

// checkBookEditable 校验图书存在且当前用户可编辑
func (h *TaskHandler) checkBookEditable(c *gin.Context, bookID string) bool {
	ctx := c.Request.Context()

	book, err := h.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		logger.Error(ctx, "failed to get book", err)
		dto.InternalError(c, "failed to get book")
		return false
	}
	if book == nil || !book.AccessibleBy(c.GetString("user_id"), isAdmin(c)) {
		dto.NotFound(c, "book not found")
		return false
	}
	if !book.EditableBy(c.GetString("user_id"), isAdmin(c)) {
		dto.Forbidden(c, "not the author of this book")
		return false
	}
	return true
}

// GenerateBook 提交图书内容生成任务
// @Summary 提交图书内容生成任务
// @Tags Tasks
// @Accept json
// @Produce json
// @Param body body dto.GenerateBookRequest true "生成参数"
// @Success 202 {object} dto.Response[dto.TaskResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/tasks/generate-book [post]
func (h *TaskHandler) GenerateBook(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !h.checkBookEditable(c, req.BookID) {
		return
	}

	t, err := h.manager.StartBookGeneration(ctx, c.GetString("user_id"), req.BookID, req.ChapterIDs)
	if err != nil {
		logger.Error(ctx, "failed to start book generation", err)
		dto.FromError(c, err)
		return
	}

	dto.Accepted(c, dto.ToTaskResponse(t))
}

// ExportBook 提交图书导出任务
// 不支持的格式返回 422
func (h *TaskHandler) ExportBook(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ExportBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !h.checkBookEditable(c, req.BookID) {
		return
	}

	t, err := h.manager.StartBookExport(ctx, c.GetString("user_id"), req.BookID, req.Format)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Accepted(c, dto.ToTaskResponse(t))
}

// GetTaskStatus 查询任务状态
func (h *TaskHandler) GetTaskStatus(c *gin.Context) {
	ctx := c.Request.Context()

	t, err := h.manager.GetStatus(ctx, c.GetString("user_id"), isAdmin(c), dto.BindTaskID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.ToTaskResponse(t))
}

// CancelTask 请求取消任务
// 已到终态的任务返回 cancelled=false
func (h *TaskHandler) CancelTask(c *gin.Context) {
	ctx := c.Request.Context()

	cancelled, err := h.manager.Cancel(ctx, c.GetString("user_id"), isAdmin(c), dto.BindTaskID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Success(c, &dto.CancelTaskResponse{Cancelled: cancelled})
}

// ListTasks 查询当前用户提交的任务列表
func (h *TaskHandler) ListTasks(c *gin.Context) {
	ctx := c.Request.Context()

	page := dto.BindPage(c)
	filter := &repository.TaskFilter{
		Type:   entity.TaskType(c.Query("type")),
		Status: entity.TaskStatus(c.Query("status")),
	}

	result, err := h.manager.List(ctx, c.GetString("user_id"), filter,
		repository.NewPagination(page.Page, page.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list tasks", err)
		dto.FromError(c, err)
		return
	}

	dto.SuccessWithPage(c, dto.ToTaskListResponse(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}
