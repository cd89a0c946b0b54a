// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/interfaces/http/dto"
	"bookagent-api/pkg/logger"
)

// TemplateHandler 模板处理器
type TemplateHandler struct {
	templateRepo repository.TemplateRepository
	chapterRepo  repository.ChapterRepository
	txMgr        repository.Transactor
}

// NewTemplateHandler 创建模板处理器
func NewTemplateHandler(
	templateRepo repository.TemplateRepository,
	chapterRepo repository.ChapterRepository,
	txMgr repository.Transactor,
) *TemplateHandler {
	return &TemplateHandler{
		templateRepo: templateRepo,
		chapterRepo:  chapterRepo,
		txMgr:        txMgr,
	}
}

// CreateTemplate 创建模板
// 标记为默认时在同一事务内清除同类型其他模板的默认标记
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	existing, err := h.templateRepo.GetByName(ctx, req.Name)
	if err != nil {
		logger.Error(ctx, "failed to check template name", err)
		dto.InternalError(c, "failed to create template")
		return
	}
	if existing != nil {
		dto.Conflict(c, "template name already exists")
		return
	}

	tpl := entity.NewTemplate(req.Name, req.Content, entity.TemplateType(req.Type))
	tpl.Description = req.Description
	tpl.IsDefault = req.IsDefault
	tpl.Metadata = req.Metadata
	if req.Version != "" {
		tpl.Version = req.Version
	}
	if userID := c.GetString("user_id"); userID != "" {
		tpl.AuthorID = &userID
	}

	err = h.txMgr.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := h.templateRepo.Create(txCtx, tpl); err != nil {
			return err
		}
		if tpl.IsDefault {
			return h.templateRepo.ClearDefaultByType(txCtx, tpl.Type, tpl.ID)
		}
		return nil
	})
	if err != nil {
		logger.Error(ctx, "failed to create template", err)
		dto.InternalError(c, "failed to create template")
		return
	}

	dto.Created(c, dto.ToTemplateResponse(tpl))
}

// ListTemplates 获取模板列表
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	ctx := c.Request.Context()

	page := dto.BindPage(c)
	filter := &repository.TemplateFilter{
		Type: entity.TemplateType(c.Query("type")),
	}
	if v := c.Query("is_default"); v != "" {
		isDefault := v == "true"
		filter.IsDefault = &isDefault
	}

	result, err := h.templateRepo.List(ctx, filter, repository.NewPagination(page.Page, page.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list templates", err)
		dto.InternalError(c, "failed to list templates")
		return
	}

	dto.SuccessWithPage(c, dto.ToTemplateListResponse(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetTemplate 获取模板详情
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	tpl, err := h.templateRepo.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get template", err)
		dto.InternalError(c, "failed to get template")
		return
	}
	if tpl == nil {
		dto.NotFound(c, "template not found")
		return
	}

	dto.Success(c, dto.ToTemplateResponse(tpl))
}

// UpdateTemplate 更新模板
// 升格为默认时在同一事务内完成默认切换
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	tpl, err := h.templateRepo.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get template", err)
		dto.InternalError(c, "failed to get template")
		return
	}
	if tpl == nil {
		dto.NotFound(c, "template not found")
		return
	}

	var req dto.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.Name != nil && *req.Name != tpl.Name {
		existing, err := h.templateRepo.GetByName(ctx, *req.Name)
		if err != nil {
			logger.Error(ctx, "failed to check template name", err)
			dto.InternalError(c, "failed to update template")
			return
		}
		if existing != nil {
			dto.Conflict(c, "template name already exists")
			return
		}
	}

	req.ApplyToTemplate(tpl)

	err = h.txMgr.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := h.templateRepo.Update(txCtx, tpl); err != nil {
			return err
		}
		if tpl.IsDefault {
			return h.templateRepo.ClearDefaultByType(txCtx, tpl.Type, tpl.ID)
		}
		return nil
	})
	if err != nil {
		logger.Error(ctx, "failed to update template", err)
		dto.InternalError(c, "failed to update template")
		return
	}

	dto.Success(c, dto.ToTemplateResponse(tpl))
}

// DeleteTemplate 删除模板
// 仍被章节引用的模板返回 409
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	ctx := c.Request.Context()

	id := dto.BindID(c)
	tpl, err := h.templateRepo.GetByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "failed to get template", err)
		dto.InternalError(c, "failed to delete template")
		return
	}
	if tpl == nil {
		dto.NotFound(c, "template not found")
		return
	}

	count, err := h.chapterRepo.CountByTemplate(ctx, id)
	if err != nil {
		logger.Error(ctx, "failed to count template references", err)
		dto.InternalError(c, "failed to delete template")
		return
	}
	if count > 0 {
		dto.Conflict(c, "template is referenced by chapters")
		return
	}

	if err := h.templateRepo.Delete(ctx, id); err != nil {
		logger.Error(ctx, "failed to delete template", err)
		dto.InternalError(c, "failed to delete template")
		return
	}

	dto.NoContent(c)
}
