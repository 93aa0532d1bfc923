package admin

import (
	"time"

	"github.com/milhas-next/internal/http/response"
	"github.com/milhas-next/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string   `json:"token"`
	User      gin.H    `json:"user"`
	ExpiresAt string   `json:"expires_at"`
	Roles     []string `json:"roles"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req service.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.AuthService.Login(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	roles, err := h.AuthzService.AdminRoles(result.Admin.ID)
	if err != nil {
		requestLog(c).Warnw("admin_login_load_roles_failed", "admin_id", result.Admin.ID, "error", err)
		roles = []string{}
	}
	requestLog(c).Infow("admin_login_success", "admin_id", result.Admin.ID, "username", result.Admin.Username)

	response.Success(c, LoginResponse{
		Token: result.Token,
		User: gin.H{
			"id":       result.Admin.ID,
			"username": result.Admin.Username,
			"name":     result.Admin.DisplayName,
			"is_super": result.Admin.IsSuper,
		},
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
		Roles:     roles,
	})
}

// GetAdminMe 当前登录管理员及其角色
func (h *Handler) GetAdminMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeUnauthorized, "error.token_invalid", nil)
		return
	}
	roles, err := h.AuthzService.AdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{
		"id":            admin.ID,
		"username":      admin.Username,
		"name":          admin.DisplayName,
		"is_super":      admin.IsSuper,
		"last_login_at": admin.LastLoginAt,
		"roles":         roles,
	})
}

// AdminLogout 使当前管理员所有 Token 失效
func (h *Handler) AdminLogout(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	if err := h.AuthService.RevokeTokens(c.Request.Context(), adminID); err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, gin.H{"revoked": true})
}
