package i18n

var messages = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":                   "请求参数错误",
		"error.internal":                      "服务器内部错误",
		"error.unauthorized":                  "未登录或登录已过期",
		"error.auth_header_missing":           "缺少认证信息",
		"error.auth_header_invalid":           "认证信息格式错误",
		"error.token_invalid":                 "登录凭证无效",
		"error.forbidden":                     "无权限执行该操作",
		"error.too_many_requests":             "请求过于频繁，请稍后再试",
		"error.admin_login_invalid":           "用户名或密码错误",
		"error.payout_export_forbidden":       "您没有导出佣金数据的权限",
		"error.payout_export_type_invalid":    "不支持的批量导出类型",
		"error.payout_job_not_found":          "批量任务不存在",
		"error.payout_step_busy":              "上一步仍在执行，请稍后重试",
		"error.payout_date_invalid":           "日期格式应为 MM/DD/YYYY",
		"error.payout_download_token_invalid": "下载链接无效或已过期",
		"error.payout_file_not_found":         "付款文件不存在",
		"error.payout_setting_invalid":        "付款回执配置无效",
		"error.payout_setting_fetch_failed":   "获取付款回执配置失败",
		"error.payout_setting_update_failed":  "更新付款回执配置失败",
		"error.commission_fetch_failed":       "获取佣金记录失败",
		"error.user_not_found":                "用户不存在",
		"error.user_update_failed":            "更新用户失败",
		"error.payment_not_found":             "支付记录不存在",
		"error.sale_alert_failed":             "发送销售提醒失败",
		"error.payout_email_invalid":          "收款邮箱格式错误",
		"error.rate_limit_login":              "登录尝试次数过多，请 %d 秒后再试",
		"error.jwt_secret_missing":            "JWT 密钥未配置",
		"error.token_revoked":                 "登录凭证已失效，请重新登录",
		"error.rate_limited":                  "请求过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable":        "限流服务不可用",
		"error.login_failed":                  "登录失败",
		"error.password_old_invalid":          "原密码错误",
		"error.password_weak":                 "新密码强度不足",
		"error.admin_not_found":               "管理员不存在",
		"error.save_failed":                   "保存失败",
		"error.config_fetch_failed":           "获取配置失败",
		"error.admin_id_invalid":              "管理员 ID 无效",
		"error.admin_id_type_invalid":         "管理员 ID 类型错误",
		"error.settings_fetch_failed":         "获取设置失败",
		"error.settings_save_failed":          "保存设置失败",
		"error.email_invalid":                 "邮箱格式错误",
		"error.email_recipient_not_found":     "收件人邮箱不存在",
		"error.email_service_not_configured":  "邮件服务未配置",
		"error.smtp_test_failed":              "发送测试邮件失败",
		"error.payout_minimum_invalid":        "最低付款金额格式错误",
	},
	LocaleTW: {
		"error.bad_request":                   "請求參數錯誤",
		"error.internal":                      "伺服器內部錯誤",
		"error.unauthorized":                  "未登入或登入已過期",
		"error.auth_header_missing":           "缺少認證資訊",
		"error.auth_header_invalid":           "認證資訊格式錯誤",
		"error.token_invalid":                 "登入憑證無效",
		"error.forbidden":                     "無權限執行該操作",
		"error.too_many_requests":             "請求過於頻繁，請稍後再試",
		"error.admin_login_invalid":           "使用者名稱或密碼錯誤",
		"error.payout_export_forbidden":       "您沒有匯出佣金資料的權限",
		"error.payout_export_type_invalid":    "不支援的批次匯出類型",
		"error.payout_job_not_found":          "批次任務不存在",
		"error.payout_step_busy":              "上一步仍在執行，請稍後重試",
		"error.payout_date_invalid":           "日期格式應為 MM/DD/YYYY",
		"error.payout_download_token_invalid": "下載連結無效或已過期",
		"error.payout_file_not_found":         "付款檔案不存在",
		"error.payout_setting_invalid":        "付款回執設定無效",
		"error.payout_setting_fetch_failed":   "取得付款回執設定失敗",
		"error.payout_setting_update_failed":  "更新付款回執設定失敗",
		"error.commission_fetch_failed":       "取得佣金紀錄失敗",
		"error.user_not_found":                "使用者不存在",
		"error.user_update_failed":            "更新使用者失敗",
		"error.payment_not_found":             "付款紀錄不存在",
		"error.sale_alert_failed":             "發送銷售提醒失敗",
		"error.payout_email_invalid":          "收款信箱格式錯誤",
		"error.rate_limit_login":              "登入嘗試次數過多，請 %d 秒後再試",
		"error.jwt_secret_missing":            "JWT 金鑰未設定",
		"error.token_revoked":                 "登入憑證已失效，請重新登入",
		"error.rate_limited":                  "請求過於頻繁，請 %d 秒後再試",
		"error.rate_limit_unavailable":        "限流服務不可用",
		"error.login_failed":                  "登入失敗",
		"error.password_old_invalid":          "原密碼錯誤",
		"error.password_weak":                 "新密碼強度不足",
		"error.admin_not_found":               "管理員不存在",
		"error.save_failed":                   "儲存失敗",
		"error.config_fetch_failed":           "取得設定失敗",
		"error.admin_id_invalid":              "管理員 ID 無效",
		"error.admin_id_type_invalid":         "管理員 ID 類型錯誤",
		"error.settings_fetch_failed":         "取得設定失敗",
		"error.settings_save_failed":          "儲存設定失敗",
		"error.email_invalid":                 "信箱格式錯誤",
		"error.email_recipient_not_found":     "收件人信箱不存在",
		"error.email_service_not_configured":  "郵件服務未設定",
		"error.smtp_test_failed":              "發送測試郵件失敗",
		"error.payout_minimum_invalid":        "最低付款金額格式錯誤",
	},
	LocaleEN: {
		"error.bad_request":                   "Invalid request parameters",
		"error.internal":                      "Internal server error",
		"error.unauthorized":                  "Not signed in or session expired",
		"error.auth_header_missing":           "Missing authorization header",
		"error.auth_header_invalid":           "Malformed authorization header",
		"error.token_invalid":                 "Invalid token",
		"error.forbidden":                     "You are not allowed to perform this action",
		"error.too_many_requests":             "Too many requests, please retry later",
		"error.admin_login_invalid":           "Invalid username or password",
		"error.payout_export_forbidden":       "You do not have permission to export commission data",
		"error.payout_export_type_invalid":    "Unsupported batch export type",
		"error.payout_job_not_found":          "Batch job not found",
		"error.payout_step_busy":              "The previous step is still running, please retry",
		"error.payout_date_invalid":           "Dates must use MM/DD/YYYY",
		"error.payout_download_token_invalid": "Download link is invalid or expired",
		"error.payout_file_not_found":         "Payout file not found",
		"error.payout_setting_invalid":        "Invalid payout receipt settings",
		"error.payout_setting_fetch_failed":   "Failed to load payout receipt settings",
		"error.payout_setting_update_failed":  "Failed to update payout receipt settings",
		"error.commission_fetch_failed":       "Failed to load commissions",
		"error.user_not_found":                "User not found",
		"error.user_update_failed":            "Failed to update user",
		"error.payment_not_found":             "Payment not found",
		"error.sale_alert_failed":             "Failed to send sale alerts",
		"error.payout_email_invalid":          "Invalid payout email",
		"error.rate_limit_login":              "Too many login attempts, retry in %d seconds",
		"error.jwt_secret_missing":            "JWT secret is not configured",
		"error.token_revoked":                 "Token has been revoked, please sign in again",
		"error.rate_limited":                  "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":        "Rate limiter unavailable",
		"error.login_failed":                  "Login failed",
		"error.password_old_invalid":          "Old password is incorrect",
		"error.password_weak":                 "New password is too weak",
		"error.admin_not_found":               "Admin not found",
		"error.save_failed":                   "Failed to save",
		"error.config_fetch_failed":           "Failed to load configuration",
		"error.admin_id_invalid":              "Invalid admin ID",
		"error.admin_id_type_invalid":         "Invalid admin ID type",
		"error.settings_fetch_failed":         "Failed to load settings",
		"error.settings_save_failed":          "Failed to save settings",
		"error.email_invalid":                 "Invalid email address",
		"error.email_recipient_not_found":     "Recipient email not found",
		"error.email_service_not_configured":  "Email service is not configured",
		"error.smtp_test_failed":              "Failed to send test email",
		"error.payout_minimum_invalid":        "Invalid minimum payout amount",
	},
}
