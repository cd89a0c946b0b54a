package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookagent-api/internal/config"
	"bookagent-api/pkg/errors"
)

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    "openai",
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "gpt-4",
		Temperature: 0.7,
		MaxTokens:   2000,
		Timeout:     5 * time.Second,
		MaxRetries:  3,
	}
}

func chatResponseJSON(content string) string {
	resp := ChatResponse{
		Model: "gpt-4",
		Choices: []Choice{
			{Message: Message{Role: RoleAssistant, Content: content}},
		},
		Usage: Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "gpt-4", payload["model"])
		assert.Equal(t, false, payload["stream"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatResponseJSON("第一章内容"))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "写一章"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "第一章内容", resp.FirstContent())
}

func TestChatCompletionRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":"rate limited"}`)
			return
		}
		_, _ = io.WriteString(w, chatResponseJSON("ok"))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.FirstContent())
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatCompletionExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	appErr := errors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.CodeTooManyRequests, appErr.Code)
}

func TestChatCompletionNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"bad request"}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	appErr := errors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.CodeLLMProviderError, appErr.Code)
}

func TestAzureEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "2024-02-01", r.Header.Get("api-version"))
		_, _ = io.WriteString(w, chatResponseJSON("azure ok"))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Provider = "azure"
	cfg.APIVersion = "2024-02-01"

	client := NewClient(cfg)
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "azure ok", resp.FirstContent())
}

func streamChunkJSON(content string) string {
	chunk := StreamChunk{
		Choices: []StreamChoice{{Delta: StreamDelta{Content: content}}},
	}
	data, _ := json.Marshal(chunk)
	return string(data)
}

func TestStreamChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, true, payload["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: "+streamChunkJSON("你")+"\n\n")
		_, _ = io.WriteString(w, "data: "+streamChunkJSON("好")+"\n\n")
		_, _ = io.WriteString(w, "data: not-json\n\n")
		_, _ = io.WriteString(w, ": comment line\n\n")
		_, _ = io.WriteString(w, "data: "+streamChunkJSON("！")+"\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	stream, err := client.StreamChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "打个招呼"}},
	})
	require.NoError(t, err)
	defer stream.Close()

	var got []string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk.DeltaContent())
	}

	// 无法解析的分片被跳过，[DONE] 结束迭代
	assert.Equal(t, []string{"你", "好", "！"}, got)

	// 结束后继续读取仍返回 EOF
	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestStreamChatCompletionErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.StreamChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	appErr := errors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.CodeLLMProviderError, appErr.Code)
}
