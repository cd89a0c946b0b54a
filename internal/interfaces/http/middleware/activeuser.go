// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookagent-api/internal/domain/repository"
	"bookagent-api/pkg/logger"
)

// ActiveUser 活跃用户校验中间件
// 令牌有效期内用户可能被删除或停用，认证通过后逐请求核对用户状态；
// 已删除与已停用用户统一返回 401，响应不可区分
func ActiveUser(userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 免认证路径没有用户身份，直接放行
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		user, err := userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			logger.Error(c.Request.Context(), "failed to check user status", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":     500,
				"message":  "internal server error",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}
		if user == nil || !user.IsActive {
			abortUnauthorized(c, "authentication required")
			return
		}

		c.Next()
	}
}
