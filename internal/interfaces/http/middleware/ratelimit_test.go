package middleware

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// fakeLimiter 记录限流键的限流器
type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.err
}

func newRateLimitRouter(cfg RateLimitConfig, limiter RateLimiter, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
	})
	r.Use(RateLimit(cfg, limiter))
	r.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitDenied(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	r := newRateLimitRouter(RateLimitConfig{Enabled: true}, limiter, "user-1")

	w := doGet(r, "/api")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

// 已认证请求按用户限流，匿名请求按客户端 IP 限流
func TestRateLimitKeying(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	w := doGet(newRateLimitRouter(RateLimitConfig{Enabled: true}, limiter, "user-1"), "/api")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"ratelimit:user:user-1"}, limiter.keys)

	anon := &fakeLimiter{allowed: true}
	w = doGet(newRateLimitRouter(RateLimitConfig{Enabled: true}, anon, ""), "/api")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, anon.keys[0], "ratelimit:ip:")
}

func TestRateLimitSkipsHealthPath(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	r := newRateLimitRouter(RateLimitConfig{Enabled: true}, limiter, "user-1")

	w := doGet(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, limiter.keys)
}

// 限流器故障时放行，避免 Redis 抖动影响业务
func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &fakeLimiter{err: fmt.Errorf("redis down")}
	r := newRateLimitRouter(RateLimitConfig{Enabled: true}, limiter, "user-1")

	w := doGet(r, "/api")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	r := newRateLimitRouter(RateLimitConfig{Enabled: false}, limiter, "user-1")

	w := doGet(r, "/api")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, limiter.keys)
}
