package service

import (
	"context"

	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/models"
)

const (
	payoutReceiptsSentMessage    = "Payout receipts sent."
	payoutReceiptsNothingMessage = "No pending payout receipts."
	// payoutReceiptsRefreshAfterMs 发送完成后前端刷新页面的延迟
	payoutReceiptsRefreshAfterMs = 2000
)

// PayoutReceiptSender 回执发送能力
type PayoutReceiptSender interface {
	SendUserReceipt(ctx context.Context, userID uint, params PayoutReceiptParams) (bool, error)
	SendAdminReport(ctx context.Context, params PayoutReceiptParams) (bool, error)
}

// PayoutNotificationDispatcher 分步发送付款回执
type PayoutNotificationDispatcher struct {
	pending  *PendingNotificationStore
	receipts PayoutReceiptSender
	pageSize int
}

// NewPayoutNotificationDispatcher 创建回执发送器
func NewPayoutNotificationDispatcher(pending *PendingNotificationStore, receipts PayoutReceiptSender, pageSize int) *PayoutNotificationDispatcher {
	if pageSize <= 0 {
		pageSize = constants.PayoutDefaultPageSize
	}
	return &PayoutNotificationDispatcher{pending: pending, receipts: receipts, pageSize: pageSize}
}

// Type 导出类型
func (d *PayoutNotificationDispatcher) Type() string {
	return constants.ExportTypeSendPayoutReceipts
}

// Step 每步发送一页用户回执，用户发完后发送管理员汇总并清理待通知列表
func (d *PayoutNotificationDispatcher) Step(ctx context.Context, job *models.BatchJob, step int) (*BatchStepResult, error) {
	log := logger.JobLogger(job.ID, d.Type(), step)
	pending, err := d.pending.Load()
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return &BatchStepResult{Step: step, Percentage: 100, Done: true, Empty: true, Message: payoutReceiptsNothingMessage}, nil
	}
	if step < 1 {
		step = 1
	}
	params := PayoutReceiptParamsFromPending(pending)

	batch := pageUserIDs(pending.UserIDs, step, d.pageSize)
	if len(batch) > 0 {
		for _, userID := range batch {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sent, err := d.receipts.SendUserReceipt(ctx, userID, params)
			if err != nil {
				log.Warnw("payout_receipt_send_failed", "user_id", userID, "error", err)
				continue
			}
			if !sent {
				log.Debugw("payout_receipt_skipped", "user_id", userID)
			}
		}
		return &BatchStepResult{Step: step, Percentage: d.percentage(step)}, nil
	}

	if _, err := d.receipts.SendAdminReport(ctx, params); err != nil {
		log.Warnw("payout_report_send_failed", "error", err)
	}
	if err := d.pending.Delete(); err != nil {
		return nil, err
	}
	log.Infow("payout_receipts_dispatched", "users", len(pending.UserIDs))
	return &BatchStepResult{
		Step:           step,
		Percentage:     100,
		Done:           true,
		Message:        payoutReceiptsSentMessage,
		RefreshAfterMs: payoutReceiptsRefreshAfterMs,
	}, nil
}

func (d *PayoutNotificationDispatcher) percentage(step int) int {
	progress, err := d.pending.LoadForProgress()
	if err != nil {
		logger.Warnw("payout_progress_fetch_failed", "error", err)
		return 100
	}
	total := 0
	if progress != nil {
		total = len(progress.UserIDs)
	}
	return BatchPercentage(d.pageSize, step, int64(total))
}

func pageUserIDs(userIDs []uint, step, pageSize int) []uint {
	offset := (step - 1) * pageSize
	if offset < 0 || offset >= len(userIDs) {
		return nil
	}
	end := offset + pageSize
	if end > len(userIDs) {
		end = len(userIDs)
	}
	return userIDs[offset:end]
}
