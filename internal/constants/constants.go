package constants

// 佣金状态常量
const (
	CommissionStatusUnpaid  = "unpaid"
	CommissionStatusPaid    = "paid"
	CommissionStatusRevoked = "revoked"
)

// 佣金计算类型常量
const (
	CommissionTypePercentage = "percentage"
	CommissionTypeFlat       = "flat"
)

// 分组模式常量
const (
	GroupModeDownloadID = "download_id"
	GroupModeUserID     = "user_id"
	GroupModeEmail      = "email"
	GroupModeHash       = "hash"
)

// 店铺佣金计算基数常量
const (
	CalcBaseSubtotal    = "subtotal"
	CalcBaseTotalPreTax = "total_pre_tax"
	CalcBaseGross       = "gross"
)

// 批量导出类型常量
const (
	ExportTypePayoutReceipts     = "commissions_payout_receipts"
	ExportTypeSendPayoutReceipts = "commissions_send_payout_receipts"
)

// 批量任务状态常量
const (
	BatchJobStatusRunning = "running"
	BatchJobStatusDone    = "done"
	BatchJobStatusEmpty   = "empty"
	BatchJobStatusFailed  = "failed"
)

// 暂存驱动常量
const (
	StagingDriverFile  = "file"
	StagingDriverRedis = "redis"
)

// 设置键常量
const (
	SettingKeyPayoutReceiptConfig = "payout_receipt_config"
	// 待通知用户列表（写入与读取使用同一键）
	SettingKeyPayoutUserIDsToNotify = "_edd_payout_receipts_user_ids_to_notify"
	// 历史版本进度计算读取的拼写不一致的键
	SettingKeyLegacyPaymentUserIDsToNotify = "_edd_payment_receipts_user_ids_to_notify"
	SettingKeySiteConfig                   = "site_config"
	SettingKeySMTPConfig                   = "smtp_config"
)

// 队列任务常量
const (
	QueueDefault           = "default"
	QueueMail              = "mail"
	TaskPayoutReceiptEmail = "payout:receipt_email"
	TaskSaleAlert          = "commission:sale_alert"
)

// 分组键分隔符
const GroupKeySeparator = "_"

// 批量步骤默认分页大小
const PayoutDefaultPageSize = 25

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)
