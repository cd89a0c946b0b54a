// Package ai 提供基于 LLM 的内容生成服务
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bookagent-api/internal/infrastructure/llm"
	"bookagent-api/pkg/errors"
	"bookagent-api/pkg/logger"
	"bookagent-api/pkg/metrics"
)

// ChatClient LLM 客户端抽象
type ChatClient interface {
	ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
	StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatStream, error)
}

// systemPrompt 内容生成的系统提示词
const systemPrompt = "你是一位经验丰富的技术图书作者，擅长撰写结构清晰、内容翔实的技术章节。"

// styleDescriptions 写作风格描述
var styleDescriptions = map[string]string{
	"academic":      "学术严谨，引用规范，论证充分",
	"technical":     "技术精准，示例丰富，注重工程实践",
	"casual":        "轻松易懂，贴近日常，深入浅出",
	"instructional": "循序渐进，步骤清晰，适合教学场景",
}

// lengthHints 目标篇幅提示
var lengthHints = map[string]string{
	"short":  "约500字",
	"medium": "约1000-1500字",
	"long":   "2000字以上",
}

// ChapterRequest 章节内容生成请求
type ChapterRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Style        string `json:"style"`
	Language     string `json:"language"`
	TargetLength string `json:"target_length"`
}

// OutlineRequest 图书大纲生成请求
type OutlineRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChapterCount int    `json:"chapter_count"`
}

// OutlineChapter 大纲中的章节条目
type OutlineChapter struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Outline 图书大纲
// 当模型输出无法解析为结构化 JSON 时，Chapters 为空且 Raw 保留原始文本
type Outline struct {
	Chapters []OutlineChapter `json:"chapters"`
	Raw      string           `json:"raw,omitempty"`
}

// Service 内容生成服务
type Service struct {
	client ChatClient
}

// NewService 创建内容生成服务
func NewService(client ChatClient) *Service {
	return &Service{client: client}
}

// wrapLLMError 保留 LLM 客户端错误的错误码与 HTTP 状态
// 客户端返回的 429/503 等结构化错误必须原样透传到 API 边界，
// 只有未分类的错误才补默认错误码
func wrapLLMError(err error, code errors.ErrorCode, message string) error {
	if errors.IsAppError(err) {
		return err
	}
	return errors.Wrap(err, code, message)
}

// buildChapterPrompt 构造章节生成提示词
func buildChapterPrompt(req ChapterRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "请为技术图书撰写一个章节，标题为《%s》。\n", req.Title)
	if req.Description != "" {
		fmt.Fprintf(&sb, "章节要点：%s\n", req.Description)
	}

	style := req.Style
	if style == "" {
		style = "technical"
	}
	if desc, ok := styleDescriptions[style]; ok {
		fmt.Fprintf(&sb, "写作风格：%s（%s）。\n", style, desc)
	} else {
		fmt.Fprintf(&sb, "写作风格：%s。\n", style)
	}

	length := req.TargetLength
	if length == "" {
		length = "medium"
	}
	if hint, ok := lengthHints[length]; ok {
		fmt.Fprintf(&sb, "目标篇幅：%s。\n", hint)
	}

	language := req.Language
	if language == "" {
		language = "zh"
	}
	fmt.Fprintf(&sb, "使用语言：%s。\n", language)
	sb.WriteString("使用 Markdown 格式输出，包含小节标题，必要时给出代码示例。")

	return sb.String()
}

// GenerateChapterContent 生成章节内容
func (s *Service) GenerateChapterContent(ctx context.Context, req ChapterRequest) (string, error) {
	style := req.Style
	if style == "" {
		style = "technical"
	}

	start := time.Now()
	resp, err := s.client.ChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: buildChapterPrompt(req)},
		},
	})
	if err != nil {
		metrics.ContentGenerationTotal.WithLabelValues(style, "error").Inc()
		return "", wrapLLMError(err, errors.CodeGenerationFailed, "failed to generate chapter content")
	}

	content := resp.FirstContent()
	if content == "" {
		metrics.ContentGenerationTotal.WithLabelValues(style, "error").Inc()
		return "", errors.New(errors.CodeGenerationFailed, "LLM returned empty content")
	}

	metrics.ContentGenerationTotal.WithLabelValues(style, "success").Inc()
	metrics.ContentGenerationDuration.WithLabelValues(style).Observe(time.Since(start).Seconds())

	return content, nil
}

// GenerateBookOutline 生成图书大纲
// 模型输出优先按 JSON 解析，解析失败时在 Raw 中保留原始文本
func (s *Service) GenerateBookOutline(ctx context.Context, req OutlineRequest) (*Outline, error) {
	chapterCount := req.ChapterCount
	if chapterCount <= 0 {
		chapterCount = 10
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "请为图书《%s》设计 %d 个章节的大纲。\n", req.Title, chapterCount)
	if req.Description != "" {
		fmt.Fprintf(&sb, "图书简介：%s\n", req.Description)
	}
	sb.WriteString(`以 JSON 数组输出，每个元素形如 {"title": "章节标题", "summary": "章节摘要"}，不要输出其他内容。`)

	resp, err := s.client.ChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: sb.String()},
		},
	})
	if err != nil {
		return nil, wrapLLMError(err, errors.CodeGenerationFailed, "failed to generate book outline")
	}

	raw := resp.FirstContent()
	chapters, ok := parseOutlineChapters(raw)
	if !ok {
		logger.Warn(ctx, "outline output is not valid JSON, returning raw text")
		return &Outline{Raw: raw}, nil
	}

	return &Outline{Chapters: chapters}, nil
}

// parseOutlineChapters 尽力从模型输出中解析章节数组
// 容忍 Markdown 代码块包裹以及数组前后的说明文字
func parseOutlineChapters(raw string) ([]OutlineChapter, bool) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var chapters []OutlineChapter
	if err := json.Unmarshal([]byte(text[start:end+1]), &chapters); err != nil {
		return nil, false
	}
	if len(chapters) == 0 {
		return nil, false
	}
	return chapters, true
}

// ImproveContent 按指示改进已有内容
func (s *Service) ImproveContent(ctx context.Context, content, instructions string) (string, error) {
	prompt := fmt.Sprintf("请按以下要求改进这段内容，保持 Markdown 格式：\n要求：%s\n\n原文：\n%s", instructions, content)

	resp, err := s.client.ChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", wrapLLMError(err, errors.CodeGenerationFailed, "failed to improve content")
	}
	return resp.FirstContent(), nil
}

// GenerateCodeExamples 为指定主题生成代码示例
func (s *Service) GenerateCodeExamples(ctx context.Context, topic, language string) (string, error) {
	if language == "" {
		language = "python"
	}
	prompt := fmt.Sprintf("请用 %s 语言为主题「%s」编写可运行的代码示例，附带简要说明，使用 Markdown 代码块输出。", language, topic)

	resp, err := s.client.ChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", wrapLLMError(err, errors.CodeGenerationFailed, "failed to generate code examples")
	}
	return resp.FirstContent(), nil
}

// Chat 透传聊天补全请求
func (s *Service) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := s.client.ChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapLLMError(err, errors.CodeLLMCallFailed, "chat completion failed")
	}
	return resp, nil
}

// ChatStream 透传流式聊天补全请求
func (s *Service) ChatStream(ctx context.Context, req llm.ChatRequest) (*llm.ChatStream, error) {
	stream, err := s.client.StreamChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapLLMError(err, errors.CodeLLMCallFailed, "stream chat completion failed")
	}
	return stream, nil
}
