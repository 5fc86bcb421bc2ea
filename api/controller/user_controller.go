package controller

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	domainErrors "github.com/jsrice7391/redeemer-recovery/domain/errors"
	"github.com/jsrice7391/redeemer-recovery/usecase"

	"github.com/gin-gonic/gin"
)

// --- 响应结构定义 ---

// ErrorResponse 错误响应结构
// 数据库等上游故障只返回笼统消息，具体原因写日志，不泄漏给客户端
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// --- 控制器定义 ---

// UserController 用户 HTTP 控制器
// 唯一职责：请求解析/校验 + 业务结果到状态码的翻译
type UserController struct {
	userUseCase *usecase.UserUseCase
}

// NewUserController 创建 UserController 实例
func NewUserController(userUseCase *usecase.UserUseCase) *UserController {
	return &UserController{userUseCase: userUseCase}
}

// ListUsers 获取全部用户
// GET /api/users
// 按创建时间倒序返回，空表返回 []
// 带 ?email= 查询参数时退化为单点查询（服务端点查询，替代客户端全量过滤）
func (uc *UserController) ListUsers(c *gin.Context) {
	if email := c.Query("email"); email != "" {
		uc.getUserByEmail(c, email)
		return
	}

	users, err := uc.userUseCase.ListUsers()
	if err != nil {
		uc.internalError(c, "ListUsers", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser 获取单个用户
// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := uc.userUseCase.GetUser(id)
	if err != nil {
		uc.internalError(c, "GetUser", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// getUserByEmail 按邮箱的单点查询
// GET /api/users?email=jane@x.com
func (uc *UserController) getUserByEmail(c *gin.Context, email string) {
	user, err := uc.userUseCase.GetUserByEmail(email)
	if errors.Is(err, domainErrors.ErrValidation) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email is required"})
		return
	}
	if err != nil {
		uc.internalError(c, "GetUserByEmail", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateUserRequest 创建用户请求结构
// 格式校验交给 gin binding（validator），非法输入不会触达持久层
type CreateUserRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	AvatarURL string `json:"avatarUrl"`
}

// CreateUser 创建新用户
// POST /api/users
// 请求体: { "name": "xxx", "email": "xxx@yyy.com" }
func (uc *UserController) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and valid email are required"})
		return
	}

	user, err := uc.userUseCase.CreateUser(req.Name, req.Email, req.AvatarURL)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrEmailConflict):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "email already exists"})
		case errors.Is(err, domainErrors.ErrValidation):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and valid email are required"})
		default:
			uc.internalError(c, "CreateUser", err)
		}
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUserRequest 更新用户请求结构
// 所有字段都可选，只更新传入的字段；空请求体 {} 也合法
type UpdateUserRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email" binding:"omitempty,email"`
	AvatarURL *string `json:"avatarUrl"`
}

// UpdateUser 部分更新用户
// PUT /api/users/:id
func (uc *UserController) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := uc.userUseCase.UpdateUser(id, req.Name, req.Email, req.AvatarURL)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrEmailConflict):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "email already taken by another user"})
		case errors.Is(err, domainErrors.ErrValidation):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid field value"})
		default:
			uc.internalError(c, "UpdateUser", err)
		}
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// PatchUser 按 RFC 7386 JSON Merge Patch 部分更新用户
// PATCH /api/users/:id
// 请求体即补丁本身，例如 { "name": "New Name" } 或 { "avatarUrl": null }
func (uc *UserController) PatchUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	patch, err := io.ReadAll(c.Request.Body)
	if err != nil || len(patch) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "merge patch body is required"})
		return
	}

	user, err := uc.userUseCase.PatchUser(id, patch)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrEmailConflict):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "email already taken by another user"})
		case errors.Is(err, domainErrors.ErrValidation):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid merge patch", Details: err.Error()})
		default:
			uc.internalError(c, "PatchUser", err)
		}
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser 删除用户
// DELETE /api/users/:id
// 成功返回 204 无响应体；记录不存在返回 404
func (uc *UserController) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	removed, err := uc.userUseCase.DeleteUser(id)
	if err != nil {
		uc.internalError(c, "DeleteUser", err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ProvisionRequest 身份绑定请求结构
// name/email 来自已认证身份的声明（由外部认证流程提供）
type ProvisionRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	AvatarURL string `json:"avatarUrl"`
}

// ProvisionUser 身份绑定：按邮箱 get-or-create
// POST /api/provision
// 新建返回 201，已存在返回 200（记录原样返回，name 不会被覆盖）
func (uc *UserController) ProvisionUser(c *gin.Context) {
	var req ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and valid email are required"})
		return
	}

	user, created, err := uc.userUseCase.Provision(req.Name, req.Email, req.AvatarURL)
	if err != nil {
		if errors.Is(err, domainErrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and valid email are required"})
			return
		}
		uc.internalError(c, "ProvisionUser", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, user)
}

// parseID 解析路径参数中的用户 ID
// 非数字属于非法输入，返回 400 而不是 404
func parseID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "id must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

// internalError 上游故障统一处理：记日志，对外只给笼统消息
func (uc *UserController) internalError(c *gin.Context, op string, err error) {
	log.Printf("[API] ❌ %s 失败: %v", op, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
