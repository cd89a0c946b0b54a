// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"bookagent-api/internal/application/ai"
	"bookagent-api/internal/interfaces/http/dto"
	"bookagent-api/pkg/logger"
)

// AIHandler AI 内容生成处理器
type AIHandler struct {
	svc       *ai.Service
	generator ai.ChapterGenerator
}

// NewAIHandler 创建 AI 处理器
// generator 为带缓存的章节生成器
func NewAIHandler(svc *ai.Service, generator ai.ChapterGenerator) *AIHandler {
	return &AIHandler{
		svc:       svc,
		generator: generator,
	}
}

// Chat 聊天补全
// @Summary 聊天补全
// @Tags AI
// @Accept json
// @Produce json
// @Param body body dto.ChatRequest true "对话消息"
// @Success 200 {object} dto.Response[dto.ChatResponse]
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/ai/chat [post]
func (h *AIHandler) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.Chat(ctx, req.ToLLMRequest())
	if err != nil {
		logger.Error(ctx, "chat completion failed", err)
		dto.FromError(c, err)
		return
	}

	dto.Success(c, &dto.ChatResponse{
		Content: resp.FirstContent(),
		Model:   resp.Model,
		Usage:   &resp.Usage,
	})
}

// ChatStream 流式聊天补全
// 以 SSE 转发模型输出，结束时发送 done 事件
func (h *AIHandler) ChatStream(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	stream, err := h.svc.ChatStream(ctx, req.ToLLMRequest())
	if err != nil {
		logger.Error(ctx, "stream chat completion failed", err)
		dto.FromError(c, err)
		return
	}
	defer stream.Close()

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	index := 0

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			// 客户端断开
			return false
		default:
		}

		chunk, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn(ctx, "stream read failed", "error", err.Error())
				c.SSEvent("error", gin.H{"message": "stream interrupted"})
				return false
			}
			c.SSEvent("done", gin.H{"index": index})
			return false
		}

		c.SSEvent("content", gin.H{
			"chunk": chunk.DeltaContent(),
			"index": index,
		})
		index++
		return true
	})
}

// GenerateChapter 生成章节内容
// 命中缓存时直接返回缓存结果
func (h *AIHandler) GenerateChapter(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	content, err := h.generator.GenerateChapterContent(ctx, req.ToChapterRequest())
	if err != nil {
		logger.Error(ctx, "chapter generation failed", err)
		dto.FromError(c, err)
		return
	}

	dto.Success(c, &dto.GenerateChapterResponse{Content: content})
}

// GenerateOutline 生成图书大纲
func (h *AIHandler) GenerateOutline(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateOutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	outline, err := h.svc.GenerateBookOutline(ctx, ai.OutlineRequest{
		Title:        req.Title,
		Description:  req.Description,
		ChapterCount: req.ChapterCount,
	})
	if err != nil {
		logger.Error(ctx, "outline generation failed", err)
		dto.FromError(c, err)
		return
	}

	dto.Success(c, outline)
}
