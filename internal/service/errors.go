package service

import "errors"

var (
	// ErrNotFound 通用资源不存在
	ErrNotFound = errors.New("资源不存在")
	// ErrInvalidCredentials 账号或密码错误
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidPassword    = errors.New("原密码错误")
	ErrWeakPassword       = errors.New("密码长度至少 8 位")

	ErrEmailServiceDisabled      = errors.New("邮件服务未启用")
	ErrEmailServiceNotConfigured = errors.New("邮件服务未配置")
	ErrInvalidEmail              = errors.New("邮箱格式无效")
	ErrEmailRecipientRejected    = errors.New("收件人邮箱被拒收")

	// ErrExportForbidden 当前管理员无权执行导出
	ErrExportForbidden = errors.New("无权执行该导出任务")
	// ErrExportTypeInvalid 未注册的导出类型
	ErrExportTypeInvalid = errors.New("导出类型无效")
	// ErrBatchJobNotFound 批处理任务不存在
	ErrBatchJobNotFound = errors.New("批处理任务不存在")
	// ErrBatchStepBusy 同一任务的上一步仍在执行
	ErrBatchStepBusy = errors.New("任务步骤执行中")
	// ErrPayoutDateInvalid 日期格式无效
	ErrPayoutDateInvalid = errors.New("日期格式无效")
	// ErrPayoutMinimumInvalid 最低金额格式无效
	ErrPayoutMinimumInvalid = errors.New("最低金额格式无效")
	// ErrPayoutSettingInvalid 付款回执设置无效
	ErrPayoutSettingInvalid = errors.New("付款回执设置无效")
	// ErrSMTPConfigInvalid SMTP 配置无效
	ErrSMTPConfigInvalid = errors.New("SMTP 配置无效")
	// ErrDownloadTokenInvalid 下载令牌无效或已过期
	ErrDownloadTokenInvalid = errors.New("下载令牌无效")
	// ErrPayoutFileNotFound 付款文件不存在
	ErrPayoutFileNotFound = errors.New("付款文件不存在")

	// ErrStagingCorrupt 暂存内容无法解析
	ErrStagingCorrupt = errors.New("暂存数据损坏")
	// ErrUnresolvableReference 佣金关联的购物车项不存在
	ErrUnresolvableReference = errors.New("购物车项不存在")
	// ErrNoMatchingData 没有符合条件的佣金
	ErrNoMatchingData = errors.New("没有符合条件的佣金")
	// ErrEmptyRange 未提供起止日期
	ErrEmptyRange = errors.New("未提供日期范围")

	ErrUserNotFound       = errors.New("用户不存在")
	ErrPaymentNotFound    = errors.New("支付记录不存在")
	ErrPayoutEmailInvalid = errors.New("收款邮箱格式无效")
)
