package admin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/constants"
	handlershared "github.com/dujiao-next/payout-receipts/internal/http/handlers/shared"
	"github.com/dujiao-next/payout-receipts/internal/http/response"
	"github.com/dujiao-next/payout-receipts/internal/models"
	"github.com/dujiao-next/payout-receipts/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePayoutJobRequest 创建批量任务请求
type CreatePayoutJobRequest struct {
	Type    string   `json:"type" binding:"required"`
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Minimum string   `json:"minimum"`
	Status  []string `json:"status"`
	UserID  uint     `json:"user_id"`
}

// RunPayoutJobStepRequest 执行任务步骤请求
type RunPayoutJobStepRequest struct {
	Step int `json:"step" binding:"required"`
}

// PayoutJobResponse 批量任务返回
type PayoutJobResponse struct {
	Job    *models.BatchJob         `json:"job"`
	Result *service.BatchStepResult `json:"result,omitempty"`
}

// CreatePayoutJob 创建批量任务并执行第一步
func (h *Handler) CreatePayoutJob(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req CreatePayoutJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	job, result, err := h.BatchExportService.CreateJob(c.Request.Context(), adminID, req.Type, service.PayoutBatchParams{
		Start:   strings.TrimSpace(req.Start),
		End:     strings.TrimSpace(req.End),
		Minimum: strings.TrimSpace(req.Minimum),
		Status:  req.Status,
		UserID:  req.UserID,
	})
	if err != nil {
		respondPayoutJobError(c, err)
		return
	}
	response.Success(c, PayoutJobResponse{Job: job, Result: result})
}

// RunPayoutJobStep 执行任务指定步骤
func (h *Handler) RunPayoutJobStep(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req RunPayoutJobStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if req.Step < 1 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	result, err := h.BatchExportService.RunStep(c.Request.Context(), adminID, c.Param("id"), req.Step)
	if err != nil {
		respondPayoutJobError(c, err)
		return
	}
	response.Success(c, result)
}

// GetPayoutJob 查询任务状态
func (h *Handler) GetPayoutJob(c *gin.Context) {
	job, err := h.BatchExportService.GetJob(c.Param("id"))
	if err != nil {
		respondPayoutJobError(c, err)
		return
	}
	data := gin.H{"job": job}
	if job.Status == constants.BatchJobStatusDone && job.FilePath != "" {
		downloadURL, err := h.BatchExportService.DownloadURL(job)
		if err != nil {
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		data["download_url"] = downloadURL
	}
	response.Success(c, data)
}

// ListPayoutExportTypes 已注册的导出类型
func (h *Handler) ListPayoutExportTypes(c *gin.Context) {
	response.Success(c, h.BatchExportService.Types())
}

// DownloadPayoutFile 通过签名令牌下载付款文件
func (h *Handler) DownloadPayoutFile(c *gin.Context) {
	job, path, err := h.BatchExportService.ResolveDownload(c.Param("id"), c.Query("token"))
	if err != nil {
		respondPayoutJobError(c, err)
		return
	}
	filename := fmt.Sprintf("edd-commission-payout-%s.csv", job.CreatedAt.Format("01-02-2006"))
	requestLog(c).Infow("payout_file_downloaded", "job_id", job.ID, "admin_id", job.AdminID)
	response.Attachment(c, path, filename, "text/csv; charset=utf-8")
}

// GetPayoutSettings 获取付款回执设置
func (h *Handler) GetPayoutSettings(c *gin.Context) {
	setting, err := h.SettingService.GetPayoutReceiptSetting(h.Config.Payout)
	if err != nil {
		respondError(c, response.CodeInternal, "error.payout_setting_fetch_failed", err)
		return
	}
	response.Success(c, setting)
}

// UpdatePayoutSettings 更新付款回执设置
func (h *Handler) UpdatePayoutSettings(c *gin.Context) {
	var req service.PayoutReceiptSettingPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	setting, err := h.SettingService.PatchPayoutReceiptSetting(h.Config.Payout, req)
	if err != nil {
		if errors.Is(err, service.ErrPayoutSettingInvalid) {
			respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "error.payout_setting_update_failed", err)
		return
	}
	response.Success(c, setting)
}

// GetPayoutTemplateTags 模板标签帮助文本
func (h *Handler) GetPayoutTemplateTags(c *gin.Context) {
	response.Success(c, gin.H{
		"payout_receipt": service.DisplayTemplateTags(service.PayoutReceiptTemplateTags),
		"payout_report":  service.DisplayTemplateTags(service.PayoutReportTemplateTags),
		"sale_alert":     service.DisplayTemplateTags(service.GroupedSaleAlertTemplateTags),
	})
}

// GetAdminCommissions 佣金列表
func (h *Handler) GetAdminCommissions(c *gin.Context) {
	page, pageSize := pageQuery(c)

	userID, err := handlershared.QueryUint(c, "user_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	paymentID, err := handlershared.QueryUint(c, "payment_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	rows, total, err := h.CommissionService.List(service.CommissionListInput{
		Page:      page,
		PageSize:  pageSize,
		UserID:    userID,
		PaymentID: paymentID,
		Statuses:  c.QueryArray("status"),
		Start:     c.Query("start"),
		End:       c.Query("end"),
	})
	if err != nil {
		if errors.Is(err, service.ErrPayoutDateInvalid) {
			respondError(c, response.CodeBadRequest, "error.payout_date_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetCommissionStatuses 佣金状态选项
func (h *Handler) GetCommissionStatuses(c *gin.Context) {
	response.Success(c, h.CommissionService.Statuses())
}

// GetCommissionUsers 有佣金记录的用户（回执筛选下拉）
func (h *Handler) GetCommissionUsers(c *gin.Context) {
	page, pageSize := pageQuery(c)

	users, total, err := h.CommissionService.ListUsers(strings.TrimSpace(c.Query("keyword")), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, users, response.BuildPagination(page, pageSize, total))
}

// UpdateUserPayoutProfile 修改用户收款邮箱与提醒开关
func (h *Handler) UpdateUserPayoutProfile(c *gin.Context) {
	userID, ok := pathID(c, "error.bad_request")
	if !ok {
		return
	}
	var req service.PayoutProfilePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	user, err := h.CommissionService.UpdatePayoutProfile(userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		case errors.Is(err, service.ErrPayoutEmailInvalid):
			respondError(c, response.CodeBadRequest, "error.payout_email_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.user_update_failed", err)
		}
		return
	}
	response.Success(c, user)
}

// TriggerCommissionAlerts 支付完成后触发合并销售提醒
func (h *Handler) TriggerCommissionAlerts(c *gin.Context) {
	paymentID, ok := pathID(c, "error.bad_request")
	if !ok {
		return
	}
	queued, err := h.SaleAlertService.Trigger(c.Request.Context(), paymentID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			respondError(c, response.CodeNotFound, "error.payment_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.sale_alert_failed", err)
		return
	}
	response.Success(c, gin.H{"queued": queued})
}

func respondPayoutJobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportForbidden):
		respondError(c, response.CodeForbidden, "error.payout_export_forbidden", nil)
	case errors.Is(err, service.ErrExportTypeInvalid):
		respondError(c, response.CodeBadRequest, "error.payout_export_type_invalid", nil)
	case errors.Is(err, service.ErrBatchJobNotFound):
		respondError(c, response.CodeNotFound, "error.payout_job_not_found", nil)
	case errors.Is(err, service.ErrBatchStepBusy):
		respondError(c, response.CodeConflict, "error.payout_step_busy", nil)
	case errors.Is(err, service.ErrPayoutDateInvalid):
		respondError(c, response.CodeBadRequest, "error.payout_date_invalid", nil)
	case errors.Is(err, service.ErrPayoutMinimumInvalid):
		respondError(c, response.CodeBadRequest, "error.payout_minimum_invalid", nil)
	case errors.Is(err, service.ErrDownloadTokenInvalid):
		respondError(c, response.CodeUnauthorized, "error.payout_download_token_invalid", nil)
	case errors.Is(err, service.ErrPayoutFileNotFound):
		respondError(c, response.CodeNotFound, "error.payout_file_not_found", nil)
	default:
		respondError(c, response.CodeInternal, "error.internal", err)
	}
}
