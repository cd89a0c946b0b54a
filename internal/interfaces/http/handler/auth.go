// Package handler 提供 HTTP 请求处理器
package handler

import (
	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/interfaces/http/dto"
	"bookagent-api/internal/interfaces/http/middleware"
	"bookagent-api/pkg/logger"
	"bookagent-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtManager *utils.JWTManager
	userRepo   repository.UserRepository
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg middleware.AuthConfig, userRepo repository.UserRepository) *AuthHandler {
	return &AuthHandler{
		jwtManager: utils.NewJWTManager(cfg.Secret, cfg.Issuer, cfg.TTL),
		userRepo:   userRepo,
	}
}

// Register 注册
// @Summary 用户注册
// @Description 创建新用户
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 201 {object} dto.Response[dto.AuthUserDTO]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	// 检查邮箱是否已存在
	exists, err := h.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to check email existence", err)
		dto.InternalError(c, "registration failed")
		return
	}
	if exists {
		dto.Conflict(c, "email already registered")
		return
	}

	// 检查用户名是否已存在
	exists, err = h.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		logger.Error(ctx, "failed to check username existence", err)
		dto.InternalError(c, "registration failed")
		return
	}
	if exists {
		dto.Conflict(c, "username already taken")
		return
	}

	// 创建用户实体
	user := entity.NewUser(req.Email, req.Username, req.FullName)
	if err := user.SetPassword(req.Password); err != nil {
		logger.Error(ctx, "failed to hash password", err)
		dto.InternalError(c, "registration failed")
		return
	}

	// 保存用户
	if err := h.userRepo.Create(ctx, user); err != nil {
		logger.Error(ctx, "failed to create user", err)
		dto.InternalError(c, "registration failed")
		return
	}

	dto.Created(c, dto.ToAuthUserDTO(user))
}

// Token 登录换取访问令牌
// @Summary 用户登录
// @Description 校验用户名密码并签发 Bearer 令牌，接受表单编码提交
// @Tags Auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "用户名"
// @Param password formData string true "密码"
// @Success 200 {object} dto.Response[dto.TokenResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/v1/auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		dto.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	// 查询用户
	user, err := h.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "login failed")
		return
	}

	// 用户不存在、密码错误、账号停用返回同一响应，不泄露原因
	if user == nil || !user.CheckPassword(req.Password) || !user.IsActive {
		dto.Unauthorized(c, "incorrect username or password")
		return
	}

	// 更新登录状态
	if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login time", "error", err, "user_id", user.ID)
	}

	// 生成 Token
	token, err := h.jwtManager.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		logger.Error(ctx, "failed to generate token", err)
		dto.InternalError(c, "failed to generate token")
		return
	}

	dto.Success(c, &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.jwtManager.TTL().Seconds()),
	})
}
