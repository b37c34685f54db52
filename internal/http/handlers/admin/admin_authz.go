package admin

import (
	"github.com/dujiao-next/payout-receipts/internal/http/response"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/models"

	"github.com/gin-gonic/gin"
)

type setAdminRolesRequest struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 当前管理员的角色、策略与可执行的导出类型
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	isSuper := c.GetBool("admin_is_super")

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	exportTypes := h.BatchExportService.Types()
	if !isSuper {
		exportTypes, err = h.AuthzService.ExportTypesFor(adminID, exportTypes)
		if err != nil {
			respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
			return
		}
	}

	response.Success(c, gin.H{
		"admin_id":     adminID,
		"is_super":     isSuper,
		"roles":        roles,
		"policies":     policies,
		"export_types": exportTypes,
	})
}

// ListAuthzRoles 角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzAdminRoles 指定管理员的角色
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	target, ok := h.loadTargetAdmin(c, "error.config_fetch_failed")
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(target.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.config_fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// SetAuthzAdminRoles 覆盖设置管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	target, ok := h.loadTargetAdmin(c, "error.save_failed")
	if !ok {
		return
	}
	var req setAdminRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.SetAdminRoles(target.ID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	operatorID, _ := c.Get("admin_id")
	logger.Infow("payout_admin_roles_updated",
		"operator_admin_id", operatorID,
		"target_admin_id", target.ID,
		"target_username", target.Username,
		"roles", req.Roles,
	)
	response.Success(c, nil)
}

// loadTargetAdmin 解析路径中的管理员 ID 并确认其存在
func (h *Handler) loadTargetAdmin(c *gin.Context, failKey string) (*models.Admin, bool) {
	id, ok := pathID(c, "error.admin_id_invalid")
	if !ok {
		return nil, false
	}
	target, err := h.AdminRepo.GetByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, failKey, err)
		return nil, false
	}
	if target == nil {
		respondError(c, response.CodeNotFound, "error.admin_not_found", nil)
		return nil, false
	}
	return target, true
}
