// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"bookagent-api/internal/application/ai"
	"bookagent-api/internal/infrastructure/llm"
)

// ChatMessage 对话消息
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest 对话请求
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages" binding:"required,min=1,dive"`
	Model       string        `json:"model"`
	Temperature *float64      `json:"temperature" binding:"omitempty,gte=0,lte=2"`
	MaxTokens   *int          `json:"max_tokens" binding:"omitempty,gt=0"`
}

// ToLLMRequest 转换为 LLM 客户端请求
func (r *ChatRequest) ToLLMRequest() llm.ChatRequest {
	messages := make([]llm.Message, len(r.Messages))
	for i, m := range r.Messages {
		messages[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return llm.ChatRequest{
		Model:       r.Model,
		Messages:    messages,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	}
}

// ChatResponse 对话响应
type ChatResponse struct {
	Content string     `json:"content"`
	Model   string     `json:"model"`
	Usage   *llm.Usage `json:"usage,omitempty"`
}

// GenerateChapterRequest 章节内容生成请求
type GenerateChapterRequest struct {
	Title        string `json:"title" binding:"required,max=255"`
	Description  string `json:"description"`
	Style        string `json:"style" binding:"omitempty,oneof=academic technical casual instructional"`
	Language     string `json:"language" binding:"omitempty,max=32"`
	TargetLength string `json:"target_length" binding:"omitempty,oneof=short medium long"`
}

// ToChapterRequest 转换为生成服务请求
func (r *GenerateChapterRequest) ToChapterRequest() ai.ChapterRequest {
	return ai.ChapterRequest{
		Title:        r.Title,
		Description:  r.Description,
		Style:        r.Style,
		Language:     r.Language,
		TargetLength: r.TargetLength,
	}
}

// GenerateChapterResponse 章节内容生成响应
type GenerateChapterResponse struct {
	Content string `json:"content"`
}

// GenerateOutlineRequest 图书大纲生成请求
type GenerateOutlineRequest struct {
	Title        string `json:"title" binding:"required,max=255"`
	Description  string `json:"description"`
	ChapterCount int    `json:"chapter_count" binding:"omitempty,gt=0,lte=100"`
}
