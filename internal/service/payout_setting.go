package service

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/models"
)

const (
	defaultPayoutReceiptSubject = "Payout Receipt"
	defaultPayoutReportSubject  = "Payout Report"
	defaultSaleAlertSubject     = "New Sale!"
)

// PayoutReceiptSetting 付款回执与销售提醒设置
type PayoutReceiptSetting struct {
	DisablePayoutReceipts bool   `json:"disable_payout_receipts"`
	Subject               string `json:"subject"`
	Message               string `json:"message"`
	ShowAmounts           bool   `json:"show_amounts"`
	ShowCurrency          bool   `json:"show_currency"`
	ShowSales             bool   `json:"show_sales"`

	AdminDisablePayoutReport bool   `json:"admin_disable_payout_report"`
	AdminSubject             string `json:"admin_subject"`
	AdminMessage             string `json:"admin_message"`
	AdminEmail               string `json:"admin_email"`
	AdminShowPayoutEmail     bool   `json:"admin_show_payout_email"`

	GroupedNotifications      bool   `json:"grouped_notifications"`
	DisableSaleAlerts         bool   `json:"disable_sale_alerts"`
	DisableFreePurchaseAlerts bool   `json:"disable_free_purchase_alerts"`
	SaleAlertSubject          string `json:"sale_alert_subject"`
	SaleAlertMessage          string `json:"sale_alert_message"`
	SaleAlertShowAmounts      bool   `json:"sale_alert_show_amounts"`
	SaleAlertShowRates        bool   `json:"sale_alert_show_rates"`
}

// PayoutReceiptSettingPatch 付款回执设置补丁
type PayoutReceiptSettingPatch struct {
	DisablePayoutReceipts     *bool   `json:"disable_payout_receipts"`
	Subject                   *string `json:"subject"`
	Message                   *string `json:"message"`
	ShowAmounts               *bool   `json:"show_amounts"`
	ShowCurrency              *bool   `json:"show_currency"`
	ShowSales                 *bool   `json:"show_sales"`
	AdminDisablePayoutReport  *bool   `json:"admin_disable_payout_report"`
	AdminSubject              *string `json:"admin_subject"`
	AdminMessage              *string `json:"admin_message"`
	AdminEmail                *string `json:"admin_email"`
	AdminShowPayoutEmail      *bool   `json:"admin_show_payout_email"`
	GroupedNotifications      *bool   `json:"grouped_notifications"`
	DisableSaleAlerts         *bool   `json:"disable_sale_alerts"`
	DisableFreePurchaseAlerts *bool   `json:"disable_free_purchase_alerts"`
	SaleAlertSubject          *string `json:"sale_alert_subject"`
	SaleAlertMessage          *string `json:"sale_alert_message"`
	SaleAlertShowAmounts      *bool   `json:"sale_alert_show_amounts"`
	SaleAlertShowRates        *bool   `json:"sale_alert_show_rates"`
}

// DefaultPayoutReceiptMessage 付款回执默认正文
func DefaultPayoutReceiptMessage(siteName string) string {
	return "Hello {name},\n\n" +
		fmt.Sprintf("You have received a payout of {amount} for the period of {start_date} - {end_date} from %s!", siteName) + "\n\n" +
		"Items sold: {commissions}\n\n" +
		"Thank you"
}

// DefaultPayoutReportMessage 管理员付款汇总默认正文
func DefaultPayoutReportMessage(siteName string) string {
	return "Hello,\n\n" +
		fmt.Sprintf("You have sent payout of {amount} for the period of {start_date} - {end_date} from %s!", siteName) + "\n\n" +
		"Recipients: {recipients}\n\n" +
		"Thank you"
}

// DefaultSaleAlertMessage 合并销售提醒默认正文
func DefaultSaleAlertMessage(siteName string) string {
	return "Hello {name},\n\n" +
		fmt.Sprintf("You have made a new sale for a total of {amount} on %s!", siteName) + "\n\n" +
		"Items sold: {commissions}\n\n" +
		"Thank you"
}

// PayoutReceiptDefaultSetting 根据静态配置生成默认设置
func PayoutReceiptDefaultSetting(cfg config.PayoutConfig) PayoutReceiptSetting {
	siteName := strings.TrimSpace(cfg.SiteName)
	return PayoutReceiptSetting{
		Subject:              defaultPayoutReceiptSubject,
		Message:              DefaultPayoutReceiptMessage(siteName),
		ShowAmounts:          true,
		ShowCurrency:         true,
		ShowSales:            true,
		AdminSubject:         defaultPayoutReportSubject,
		AdminMessage:         DefaultPayoutReportMessage(siteName),
		AdminEmail:           strings.TrimSpace(cfg.AdminEmail),
		SaleAlertSubject:     defaultSaleAlertSubject,
		SaleAlertMessage:     DefaultSaleAlertMessage(siteName),
		SaleAlertShowAmounts: true,
		SaleAlertShowRates:   true,
	}
}

// NormalizePayoutReceiptSetting 归一化设置，空主题与空正文回退默认值
func NormalizePayoutReceiptSetting(setting PayoutReceiptSetting, defaults PayoutReceiptSetting) PayoutReceiptSetting {
	setting.Subject = strings.TrimSpace(setting.Subject)
	setting.AdminSubject = strings.TrimSpace(setting.AdminSubject)
	setting.SaleAlertSubject = strings.TrimSpace(setting.SaleAlertSubject)
	setting.AdminEmail = strings.TrimSpace(setting.AdminEmail)
	if setting.Subject == "" {
		setting.Subject = defaults.Subject
	}
	if setting.AdminSubject == "" {
		setting.AdminSubject = defaults.AdminSubject
	}
	if setting.SaleAlertSubject == "" {
		setting.SaleAlertSubject = defaults.SaleAlertSubject
	}
	if strings.TrimSpace(setting.Message) == "" {
		setting.Message = defaults.Message
	}
	if strings.TrimSpace(setting.AdminMessage) == "" {
		setting.AdminMessage = defaults.AdminMessage
	}
	if strings.TrimSpace(setting.SaleAlertMessage) == "" {
		setting.SaleAlertMessage = defaults.SaleAlertMessage
	}
	return setting
}

// ValidatePayoutReceiptSetting 校验设置合法性
func ValidatePayoutReceiptSetting(setting PayoutReceiptSetting) error {
	if setting.AdminEmail != "" && !isValidEmail(setting.AdminEmail) {
		return fmt.Errorf("%w: 管理员收件邮箱格式无效", ErrPayoutSettingInvalid)
	}
	if len([]rune(setting.Subject)) > 200 || len([]rune(setting.AdminSubject)) > 200 || len([]rune(setting.SaleAlertSubject)) > 200 {
		return fmt.Errorf("%w: 邮件主题不能超过 200 个字符", ErrPayoutSettingInvalid)
	}
	return nil
}

// PayoutReceiptSettingToMap 转换为 settings 表结构
func PayoutReceiptSettingToMap(setting PayoutReceiptSetting) map[string]interface{} {
	return map[string]interface{}{
		"disable_payout_receipts":      setting.DisablePayoutReceipts,
		"subject":                      setting.Subject,
		"message":                      setting.Message,
		"show_amounts":                 setting.ShowAmounts,
		"show_currency":                setting.ShowCurrency,
		"show_sales":                   setting.ShowSales,
		"admin_disable_payout_report":  setting.AdminDisablePayoutReport,
		"admin_subject":                setting.AdminSubject,
		"admin_message":                setting.AdminMessage,
		"admin_email":                  setting.AdminEmail,
		"admin_show_payout_email":      setting.AdminShowPayoutEmail,
		"grouped_notifications":        setting.GroupedNotifications,
		"disable_sale_alerts":          setting.DisableSaleAlerts,
		"disable_free_purchase_alerts": setting.DisableFreePurchaseAlerts,
		"sale_alert_subject":           setting.SaleAlertSubject,
		"sale_alert_message":           setting.SaleAlertMessage,
		"sale_alert_show_amounts":      setting.SaleAlertShowAmounts,
		"sale_alert_show_rates":        setting.SaleAlertShowRates,
	}
}

func payoutReceiptSettingFromJSON(raw models.JSON, fallback PayoutReceiptSetting) PayoutReceiptSetting {
	next := fallback
	if raw == nil {
		return next
	}
	next.DisablePayoutReceipts = readBool(raw, "disable_payout_receipts", next.DisablePayoutReceipts)
	next.Subject = readString(raw, "subject", next.Subject)
	next.Message = readText(raw, "message", next.Message)
	next.ShowAmounts = readBool(raw, "show_amounts", next.ShowAmounts)
	next.ShowCurrency = readBool(raw, "show_currency", next.ShowCurrency)
	next.ShowSales = readBool(raw, "show_sales", next.ShowSales)
	next.AdminDisablePayoutReport = readBool(raw, "admin_disable_payout_report", next.AdminDisablePayoutReport)
	next.AdminSubject = readString(raw, "admin_subject", next.AdminSubject)
	next.AdminMessage = readText(raw, "admin_message", next.AdminMessage)
	next.AdminEmail = readString(raw, "admin_email", next.AdminEmail)
	next.AdminShowPayoutEmail = readBool(raw, "admin_show_payout_email", next.AdminShowPayoutEmail)
	next.GroupedNotifications = readBool(raw, "grouped_notifications", next.GroupedNotifications)
	next.DisableSaleAlerts = readBool(raw, "disable_sale_alerts", next.DisableSaleAlerts)
	next.DisableFreePurchaseAlerts = readBool(raw, "disable_free_purchase_alerts", next.DisableFreePurchaseAlerts)
	next.SaleAlertSubject = readString(raw, "sale_alert_subject", next.SaleAlertSubject)
	next.SaleAlertMessage = readText(raw, "sale_alert_message", next.SaleAlertMessage)
	next.SaleAlertShowAmounts = readBool(raw, "sale_alert_show_amounts", next.SaleAlertShowAmounts)
	next.SaleAlertShowRates = readBool(raw, "sale_alert_show_rates", next.SaleAlertShowRates)
	return next
}

// GetPayoutReceiptSetting 获取付款回执设置（settings 优先，空时回退默认值）
func (s *SettingService) GetPayoutReceiptSetting(cfg config.PayoutConfig) (PayoutReceiptSetting, error) {
	defaults := PayoutReceiptDefaultSetting(cfg)
	value, err := s.GetByKey(constants.SettingKeyPayoutReceiptConfig)
	if err != nil {
		return defaults, err
	}
	if value == nil {
		return defaults, nil
	}
	return NormalizePayoutReceiptSetting(payoutReceiptSettingFromJSON(value, defaults), defaults), nil
}

// PatchPayoutReceiptSetting 基于补丁更新付款回执设置
func (s *SettingService) PatchPayoutReceiptSetting(cfg config.PayoutConfig, patch PayoutReceiptSettingPatch) (PayoutReceiptSetting, error) {
	current, err := s.GetPayoutReceiptSetting(cfg)
	if err != nil {
		return PayoutReceiptSetting{}, err
	}
	next := current
	applyBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	applyBool(&next.DisablePayoutReceipts, patch.DisablePayoutReceipts)
	applyString(&next.Subject, patch.Subject)
	applyString(&next.Message, patch.Message)
	applyBool(&next.ShowAmounts, patch.ShowAmounts)
	applyBool(&next.ShowCurrency, patch.ShowCurrency)
	applyBool(&next.ShowSales, patch.ShowSales)
	applyBool(&next.AdminDisablePayoutReport, patch.AdminDisablePayoutReport)
	applyString(&next.AdminSubject, patch.AdminSubject)
	applyString(&next.AdminMessage, patch.AdminMessage)
	applyString(&next.AdminEmail, patch.AdminEmail)
	applyBool(&next.AdminShowPayoutEmail, patch.AdminShowPayoutEmail)
	applyBool(&next.GroupedNotifications, patch.GroupedNotifications)
	applyBool(&next.DisableSaleAlerts, patch.DisableSaleAlerts)
	applyBool(&next.DisableFreePurchaseAlerts, patch.DisableFreePurchaseAlerts)
	applyString(&next.SaleAlertSubject, patch.SaleAlertSubject)
	applyString(&next.SaleAlertMessage, patch.SaleAlertMessage)
	applyBool(&next.SaleAlertShowAmounts, patch.SaleAlertShowAmounts)
	applyBool(&next.SaleAlertShowRates, patch.SaleAlertShowRates)

	normalized := NormalizePayoutReceiptSetting(next, PayoutReceiptDefaultSetting(cfg))
	if err := ValidatePayoutReceiptSetting(normalized); err != nil {
		return PayoutReceiptSetting{}, err
	}
	if _, err := s.Update(constants.SettingKeyPayoutReceiptConfig, PayoutReceiptSettingToMap(normalized)); err != nil {
		return PayoutReceiptSetting{}, err
	}
	return normalized, nil
}
