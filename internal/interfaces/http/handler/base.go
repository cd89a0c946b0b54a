package handler

import (
	"github.com/gin-gonic/gin"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/interfaces/http/dto"
	"bookagent-api/pkg/logger"
)

// resolveCurrentUser 解析当前登录用户
// 令牌有效但用户已删除或被停用时返回 401，响应已写入
func resolveCurrentUser(c *gin.Context, userRepo repository.UserRepository) (*entity.User, bool) {
	ctx := c.Request.Context()

	userID := c.GetString("user_id")
	if userID == "" {
		dto.Unauthorized(c, "authentication required")
		return nil, false
	}

	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Error(ctx, "failed to resolve current user", err)
		dto.InternalError(c, "internal server error")
		return nil, false
	}
	if user == nil || !user.IsActive {
		dto.Unauthorized(c, "authentication required")
		return nil, false
	}

	return user, true
}

// isAdmin 检查当前请求是否来自管理员
func isAdmin(c *gin.Context) bool {
	return c.GetBool("is_admin")
}
