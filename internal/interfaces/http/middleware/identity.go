// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// identityContextKey 用户身份上下文 Key 类型
type identityContextKey string

const (
	// UserIDKey 用户 ID 上下文 Key
	UserIDKey identityContextKey = "user_id"
)

// Identity 用户身份上下文中间件
// 将认证中间件解析出的用户 ID 注入 request context，供下游各层使用
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetString("user_id"); userID != "" {
			ctx := context.WithValue(c.Request.Context(), UserIDKey, userID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// GetUserID 从 context 中获取用户 ID
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetUserIDFromGin 从 Gin Context 中获取用户 ID
func GetUserIDFromGin(c *gin.Context) string {
	return c.GetString("user_id")
}

// IsAdminFromGin 从 Gin Context 中获取管理员标记
func IsAdminFromGin(c *gin.Context) bool {
	return c.GetBool("is_admin")
}
