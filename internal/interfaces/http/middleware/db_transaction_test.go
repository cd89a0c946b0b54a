package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// countingTx 记录事务调用的事务管理器
type countingTx struct {
	calls int
}

func (t *countingTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

func newTxRouter(tx *countingTx) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.Use(DBTransaction(tx))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	v1.GET("/books", ok)
	v1.POST("/ai/chat", ok)
	v1.POST("/ai/chat/stream", ok)
	v1.POST("/ai/generate/chapter", ok)
	return r
}

func TestDBTransactionWrapsRequest(t *testing.T) {
	tx := &countingTx{}
	w := doGet(newTxRouter(tx), "/api/v1/books")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, tx.calls)
}

// LLM 调用耗时可达分钟级，AI 接口不持有请求级事务连接
func TestDBTransactionExemptsAIRoutes(t *testing.T) {
	for _, path := range []string{
		"/api/v1/ai/chat",
		"/api/v1/ai/chat/stream",
		"/api/v1/ai/generate/chapter",
	} {
		tx := &countingTx{}
		w := doPost(newTxRouter(tx), path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Zero(t, tx.calls, path)
	}
}
