// Package llm 提供兼容 OpenAI Chat Completions 协议的客户端
// 支持 openai / azure / custom 三类提供商，429 限流自动重试
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookagent-api/internal/config"
	"bookagent-api/pkg/errors"
	"bookagent-api/pkg/logger"
	"bookagent-api/pkg/metrics"
)

var tracer = otel.Tracer("llm")

// Client LLM 客户端
type Client struct {
	cfg      config.LLMConfig
	baseURL  string
	httpDo   *http.Client // 非流式请求，带整体超时
	httpFlow *http.Client // 流式请求，只依赖 context 取消
}

// NewClient 创建 LLM 客户端
func NewClient(cfg config.LLMConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	return &Client{
		cfg:      cfg,
		baseURL:  baseURL,
		httpDo:   &http.Client{Timeout: cfg.Timeout},
		httpFlow: &http.Client{},
	}
}

// Provider 返回当前提供商
func (c *Client) Provider() Provider {
	return Provider(c.cfg.Provider)
}

// Model 返回默认模型名称
func (c *Client) Model() string {
	return c.cfg.Model
}

// endpoint 构造聊天补全端点
// azure 的部署路径中包含模型名，并要求 api-version 查询参数
func (c *Client) endpoint(model string) string {
	if c.Provider() == ProviderAzure {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			c.baseURL, model, c.cfg.APIVersion)
	}
	return c.baseURL + "/chat/completions"
}

// buildPayload 填充默认参数
func (c *Client) buildPayload(req ChatRequest, stream bool) chatPayload {
	payload := chatPayload{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      stream,
	}
	if payload.Model == "" {
		payload.Model = c.cfg.Model
	}
	if req.Temperature != nil {
		payload.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		payload.MaxTokens = *req.MaxTokens
	}
	return payload
}

// newHTTPRequest 构造带认证头的请求
func (c *Client) newHTTPRequest(ctx context.Context, url string, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.Provider() == ProviderAzure && c.cfg.APIVersion != "" {
		httpReq.Header.Set("api-version", c.cfg.APIVersion)
	}
	return httpReq, nil
}

// ChatCompletion 发送聊天补全请求
// 命中 429 限流时重试同一请求，最多 MaxRetries 次；其他错误立即返回
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := c.buildPayload(req, false)

	ctx, span := tracer.Start(ctx, "llm.ChatCompletion",
		trace.WithAttributes(
			attribute.String("llm.provider", string(c.Provider())),
			attribute.String("llm.model", payload.Model),
		))
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.endpoint(payload.Model)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		httpReq, err := c.newHTTPRequest(ctx, url, body)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		resp, err := c.httpDo.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == c.cfg.MaxRetries {
				break
			}
			logger.Warn(ctx, "LLM request failed, retrying",
				"attempt", attempt, "max_retries", c.cfg.MaxRetries, "error", err.Error())
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = errors.New(errors.CodeTooManyRequests, "LLM provider rate limited").
				WithDetail(string(respBody))
			if attempt == c.cfg.MaxRetries {
				break
			}
			metrics.LLMRetryTotal.WithLabelValues(string(c.Provider()), payload.Model).Inc()
			logger.Warn(ctx, "LLM rate limited, retrying",
				"attempt", attempt, "max_retries", c.cfg.MaxRetries)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			metrics.LLMCallTotal.WithLabelValues(string(c.Provider()), payload.Model, "error").Inc()
			err := errors.New(errors.CodeLLMProviderError,
				fmt.Sprintf("LLM provider returned status %d", resp.StatusCode)).
				WithDetail(string(respBody))
			span.RecordError(err)
			return nil, err
		}

		var chatResp ChatResponse
		err = json.NewDecoder(resp.Body).Decode(&chatResp)
		resp.Body.Close()
		if err != nil {
			metrics.LLMCallTotal.WithLabelValues(string(c.Provider()), payload.Model, "error").Inc()
			span.RecordError(err)
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		metrics.LLMCallTotal.WithLabelValues(string(c.Provider()), payload.Model, "success").Inc()
		metrics.LLMCallDuration.WithLabelValues(string(c.Provider()), payload.Model).
			Observe(time.Since(start).Seconds())
		metrics.LLMTokensUsed.WithLabelValues(string(c.Provider()), payload.Model, "prompt").
			Add(float64(chatResp.Usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(string(c.Provider()), payload.Model, "completion").
			Add(float64(chatResp.Usage.CompletionTokens))

		return &chatResp, nil
	}

	metrics.LLMCallTotal.WithLabelValues(string(c.Provider()), payload.Model, "error").Inc()
	span.RecordError(lastErr)
	return nil, lastErr
}

// StreamChatCompletion 发送流式聊天补全请求
// 返回的 Stream 按 SSE 分片前向迭代，调用方负责 Close
func (c *Client) StreamChatCompletion(ctx context.Context, req ChatRequest) (*ChatStream, error) {
	payload := c.buildPayload(req, true)

	ctx, span := tracer.Start(ctx, "llm.StreamChatCompletion",
		trace.WithAttributes(
			attribute.String("llm.provider", string(c.Provider())),
			attribute.String("llm.model", payload.Model),
		))
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := c.newHTTPRequest(ctx, c.endpoint(payload.Model), body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpFlow.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		metrics.LLMCallTotal.WithLabelValues(string(c.Provider()), payload.Model, "error").Inc()
		err := errors.New(errors.CodeLLMProviderError,
			fmt.Sprintf("LLM provider returned status %d", resp.StatusCode)).
			WithDetail(string(respBody))
		span.RecordError(err)
		return nil, err
	}

	metrics.LLMCallTotal.WithLabelValues(string(c.Provider()), payload.Model, "success").Inc()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &ChatStream{
		ctx:     ctx,
		body:    resp.Body,
		scanner: scanner,
	}, nil
}

// ChatStream 流式响应迭代器
type ChatStream struct {
	ctx     context.Context
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// Recv 读取下一个分片
// 流结束或收到 [DONE] 终止符时返回 io.EOF，无法解析的分片记录日志后跳过
func (s *ChatStream) Recv() (*StreamChunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimSpace(line[len("data: "):])
		if data == "[DONE]" {
			s.done = true
			return nil, io.EOF
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			logger.Warn(s.ctx, "failed to parse SSE fragment", "data", data)
			continue
		}
		return &chunk, nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("stream read failed: %w", err)
	}
	return nil, io.EOF
}

// Close 关闭流
func (s *ChatStream) Close() error {
	s.done = true
	return s.body.Close()
}
