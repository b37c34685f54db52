package service

import (
	"context"

	"github.com/dujiao-next/payout-receipts/internal/queue"
)

// PayoutMailer 已渲染邮件的投递接口
type PayoutMailer interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

// QueuedPayoutMailer 队列启用时异步投递，否则同步发送
type QueuedPayoutMailer struct {
	queueClient *queue.Client
	email       *EmailService
}

// NewQueuedPayoutMailer 创建邮件投递器
func NewQueuedPayoutMailer(queueClient *queue.Client, email *EmailService) *QueuedPayoutMailer {
	return &QueuedPayoutMailer{queueClient: queueClient, email: email}
}

// Deliver 投递邮件
func (m *QueuedPayoutMailer) Deliver(ctx context.Context, to, subject, body string) error {
	if m.queueClient != nil && m.queueClient.Enabled() {
		return m.queueClient.EnqueuePayoutReceiptEmail(queue.PayoutReceiptEmailPayload{
			To:      to,
			Subject: subject,
			Body:    body,
		})
	}
	if m.email == nil {
		return ErrEmailServiceNotConfigured
	}
	return m.email.Deliver(ctx, to, subject, body)
}
