package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/provider"
	"github.com/dujiao-next/payout-receipts/internal/queue"
	"github.com/dujiao-next/payout-receipts/internal/service"

	"github.com/hibiken/asynq"
)

// MailSender 邮件发送能力
type MailSender interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

// SaleAlertSender 合并销售提醒能力
type SaleAlertSender interface {
	SendGroupedAlerts(ctx context.Context, paymentID uint) (int, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	mailer     MailSender
	alerts     SaleAlertSender
	staging    service.StagingStore
	stagingTTL time.Duration
}

// NewConsumer 从容器创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return nil
	}
	consumer := &Consumer{
		staging:    c.StagingStore,
		stagingTTL: c.StagingTTL(),
	}
	// 接口字段避免持有类型化 nil
	if c.EmailService != nil {
		consumer.mailer = c.EmailService
	}
	if c.SaleAlertService != nil {
		consumer.alerts = c.SaleAlertService
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPayoutReceiptEmail, c.handlePayoutReceiptEmail)
	mux.HandleFunc(queue.TaskSaleAlert, c.handleSaleAlert)
}

func (c *Consumer) handlePayoutReceiptEmail(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payout_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PayoutReceiptEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payout_email_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	receiver := strings.TrimSpace(payload.To)
	if receiver == "" {
		logger.Debugw("worker_payout_email_skip_empty_receiver", "job_id", payload.JobID, "user_id", payload.UserID)
		return nil
	}
	if c.mailer == nil {
		logger.Warnw("worker_payout_email_skip_mailer_nil", "receiver_email", receiver)
		return nil
	}
	if err := c.mailer.Deliver(ctx, receiver, payload.Subject, payload.Body); err != nil {
		switch {
		case errors.Is(err, service.ErrEmailRecipientRejected):
			logger.Warnw("worker_payout_email_recipient_rejected", "receiver_email", receiver, "error", err)
			return nil
		case errors.Is(err, service.ErrEmailServiceDisabled), errors.Is(err, service.ErrEmailServiceNotConfigured):
			logger.Warnw("worker_payout_email_service_unavailable", "receiver_email", receiver, "error", err)
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		default:
			logger.Warnw("worker_payout_email_send_failed",
				"receiver_email", receiver,
				"job_id", payload.JobID,
				"user_id", payload.UserID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleSaleAlert(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_sale_alert_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SaleAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_sale_alert_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.PaymentID == 0 {
		logger.Debugw("worker_sale_alert_skip_invalid_payload", "payment_id", payload.PaymentID)
		return nil
	}
	if c.alerts == nil {
		logger.Warnw("worker_sale_alert_skip_service_nil", "payment_id", payload.PaymentID)
		return nil
	}
	sent, err := c.alerts.SendGroupedAlerts(ctx, payload.PaymentID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			logger.Debugw("worker_sale_alert_skip_payment_not_found", "payment_id", payload.PaymentID)
			return nil
		}
		logger.Warnw("worker_sale_alert_failed", "payment_id", payload.PaymentID, "sent", sent, "error", err)
		return err
	}
	logger.Debugw("worker_sale_alert_done", "payment_id", payload.PaymentID, "sent", sent)
	return nil
}

// sweepStaging 清理过期的暂存中间结果
func (c *Consumer) sweepStaging(ctx context.Context) {
	if c == nil || c.staging == nil || c.stagingTTL <= 0 {
		return
	}
	removed, err := c.staging.Sweep(ctx, c.stagingTTL)
	if err != nil {
		logger.Warnw("worker_staging_sweep_failed", "error", err)
		return
	}
	if removed > 0 {
		logger.Infow("worker_staging_swept", "removed", removed)
	}
}
