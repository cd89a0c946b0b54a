// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"bookagent-api/internal/domain/entity"
	"bookagent-api/internal/domain/repository"
	"bookagent-api/internal/interfaces/http/dto"
	"bookagent-api/pkg/logger"
)

// UserHandler 用户处理器
type UserHandler struct {
	userRepo repository.UserRepository
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// GetMe 获取当前用户信息
// @Summary 获取当前用户
// @Tags Users
// @Produce json
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/v1/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, ok := resolveCurrentUser(c, h.userRepo)
	if !ok {
		return
	}
	dto.Success(c, dto.ToUserResponse(user))
}

// UpdateMe 更新当前用户信息
// 普通用户只能修改邮箱、姓名和密码
func (h *UserHandler) UpdateMe(c *gin.Context) {
	ctx := c.Request.Context()

	user, ok := resolveCurrentUser(c, h.userRepo)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.Email != nil && *req.Email != user.Email {
		exists, err := h.userRepo.ExistsByEmail(ctx, *req.Email)
		if err != nil {
			logger.Error(ctx, "failed to check email existence", err)
			dto.InternalError(c, "update failed")
			return
		}
		if exists {
			dto.Conflict(c, "email already registered")
			return
		}
		user.Email = *req.Email
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Password != nil {
		if err := user.SetPassword(*req.Password); err != nil {
			logger.Error(ctx, "failed to hash password", err)
			dto.InternalError(c, "update failed")
			return
		}
	}

	if err := h.userRepo.Update(ctx, user); err != nil {
		logger.Error(ctx, "failed to update user", err)
		dto.InternalError(c, "update failed")
		return
	}

	dto.Success(c, dto.ToUserResponse(user))
}

// CreateUser 创建用户（管理员）
func (h *UserHandler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

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

	user := entity.NewUser(req.Email, req.Username, req.FullName)
	user.IsAdmin = req.IsAdmin
	if err := user.SetPassword(req.Password); err != nil {
		logger.Error(ctx, "failed to hash password", err)
		dto.InternalError(c, "registration failed")
		return
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		logger.Error(ctx, "failed to create user", err)
		dto.InternalError(c, "registration failed")
		return
	}

	dto.Created(c, dto.ToUserResponse(user))
}

// ListUsers 获取用户列表（管理员）
func (h *UserHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	page := dto.BindPage(c)
	result, err := h.userRepo.List(ctx, repository.NewPagination(page.Page, page.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list users", err)
		dto.InternalError(c, "failed to list users")
		return
	}

	dto.SuccessWithPage(c, dto.ToUserListResponse(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetUser 获取指定用户（管理员）
func (h *UserHandler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.userRepo.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "failed to get user")
		return
	}
	if user == nil {
		dto.NotFound(c, "user not found")
		return
	}

	dto.Success(c, dto.ToUserResponse(user))
}

// UpdateUser 更新指定用户（管理员）
func (h *UserHandler) UpdateUser(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.userRepo.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "failed to get user")
		return
	}
	if user == nil {
		dto.NotFound(c, "user not found")
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.Email != nil && *req.Email != user.Email {
		exists, err := h.userRepo.ExistsByEmail(ctx, *req.Email)
		if err != nil {
			logger.Error(ctx, "failed to check email existence", err)
			dto.InternalError(c, "update failed")
			return
		}
		if exists {
			dto.Conflict(c, "email already registered")
			return
		}
	}

	req.ApplyToUser(user)
	if req.Password != nil {
		if err := user.SetPassword(*req.Password); err != nil {
			logger.Error(ctx, "failed to hash password", err)
			dto.InternalError(c, "update failed")
			return
		}
	}

	if err := h.userRepo.Update(ctx, user); err != nil {
		logger.Error(ctx, "failed to update user", err)
		dto.InternalError(c, "update failed")
		return
	}

	dto.Success(c, dto.ToUserResponse(user))
}

// DeleteUser 删除指定用户（管理员）
func (h *UserHandler) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()

	id := dto.BindID(c)
	user, err := h.userRepo.GetByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "failed to delete user")
		return
	}
	if user == nil {
		dto.NotFound(c, "user not found")
		return
	}

	if err := h.userRepo.Delete(ctx, id); err != nil {
		logger.Error(ctx, "failed to delete user", err)
		dto.InternalError(c, "failed to delete user")
		return
	}

	dto.NoContent(c)
}
