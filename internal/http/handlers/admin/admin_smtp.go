package admin

import (
	"errors"
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/http/response"
	"github.com/dujiao-next/payout-receipts/internal/service"

	"github.com/gin-gonic/gin"
)

// GetSMTPSettings SMTP 配置（密码脱敏）
func (h *Handler) GetSMTPSettings(c *gin.Context) {
	setting, err := h.SettingService.GetSMTPSetting(h.Config.Email)
	if err != nil {
		respondError(c, response.CodeInternal, "error.settings_fetch_failed", err)
		return
	}
	response.Success(c, setting.Masked())
}

// UpdateSMTPSettings 保存 SMTP 配置并立即作用于邮件服务
func (h *Handler) UpdateSMTPSettings(c *gin.Context) {
	var req service.SMTPSettingPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	setting, err := h.SettingService.PatchSMTPSetting(h.Config.Email, req)
	if err != nil {
		if errors.Is(err, service.ErrSMTPConfigInvalid) {
			respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "error.settings_save_failed", err)
		return
	}

	h.Config.Email = setting.Config()
	if h.EmailService != nil {
		h.EmailService.SetConfig(&h.Config.Email)
	}
	response.Success(c, setting.Masked())
}

// SMTPTestSendRequest 测试发送；SMTP 字段可选，用于保存前试发
type SMTPTestSendRequest struct {
	ToEmail string                    `json:"to_email" binding:"required"`
	Subject string                    `json:"subject"`
	Body    string                    `json:"body"`
	SMTP    *service.SMTPSettingPatch `json:"smtp"`
}

// TestSMTPSettings 使用当前（或叠加未保存的）配置发送测试邮件
func (h *Handler) TestSMTPSettings(c *gin.Context) {
	var req SMTPTestSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	toEmail := strings.TrimSpace(req.ToEmail)
	if toEmail == "" {
		respondError(c, response.CodeBadRequest, "error.email_invalid", nil)
		return
	}

	setting, err := h.SettingService.GetSMTPSetting(h.Config.Email)
	if err != nil {
		respondError(c, response.CodeInternal, "error.settings_fetch_failed", err)
		return
	}
	if req.SMTP != nil {
		setting = service.PreviewSMTPSetting(setting, *req.SMTP)
	}
	sendCfg := setting.Config()
	sendCfg.Enabled = true

	err = service.NewEmailService(&sendCfg).SendCustomEmail(toEmail, req.Subject, req.Body)
	switch {
	case err == nil:
		requestLog(c).Infow("smtp_test_sent", "to", toEmail, "host", sendCfg.Host)
		response.Success(c, gin.H{"sent": true})
	case errors.Is(err, service.ErrInvalidEmail):
		respondError(c, response.CodeBadRequest, "error.email_invalid", nil)
	case errors.Is(err, service.ErrEmailRecipientRejected):
		respondError(c, response.CodeBadRequest, "error.email_recipient_not_found", nil)
	case errors.Is(err, service.ErrEmailServiceDisabled), errors.Is(err, service.ErrEmailServiceNotConfigured):
		respondError(c, response.CodeBadRequest, "error.email_service_not_configured", err)
	default:
		respondError(c, response.CodeInternal, "error.smtp_test_failed", err)
	}
}
