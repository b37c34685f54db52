package queue

import (
	"encoding/json"

	"github.com/dujiao-next/payout-receipts/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPayoutReceiptEmail 付款回执邮件投递任务
	TaskPayoutReceiptEmail = constants.TaskPayoutReceiptEmail
	// TaskSaleAlert 合并销售提醒任务
	TaskSaleAlert = constants.TaskSaleAlert
)

// PayoutReceiptEmailPayload 付款回执邮件任务载荷（已渲染的邮件）
type PayoutReceiptEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	JobID   string `json:"job_id,omitempty"`
	UserID  uint   `json:"user_id,omitempty"`
}

// SaleAlertPayload 合并销售提醒任务载荷
type SaleAlertPayload struct {
	PaymentID uint `json:"payment_id"`
}

// NewPayoutReceiptEmailTask 创建付款回执邮件任务
func NewPayoutReceiptEmailTask(payload PayoutReceiptEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPayoutReceiptEmail, body), nil
}

// NewSaleAlertTask 创建合并销售提醒任务
func NewSaleAlertTask(payload SaleAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSaleAlert, body), nil
}
