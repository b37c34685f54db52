package queue

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// MailQueue 邮件队列名称
	MailQueue = constants.QueueMail

	receiptEmailMaxRetry = 5
	saleAlertRetention   = 10 * time.Minute
	defaultConcurrency   = 10
)

// Client 队列客户端，队列未启用时所有入队均为空操作
type Client struct {
	client *asynq.Client
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(redisOpt(cfg))}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueuePayoutReceiptEmail 推送付款回执邮件任务
func (c *Client) EnqueuePayoutReceiptEmail(payload PayoutReceiptEmailPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPayoutReceiptEmailTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, []asynq.Option{asynq.Queue(MailQueue), asynq.MaxRetry(receiptEmailMaxRetry)}, opts)
}

// EnqueueSaleAlert 推送合并销售提醒任务，同一支付在保留期内只入队一次
func (c *Client) EnqueueSaleAlert(payload SaleAlertPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewSaleAlertTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, []asynq.Option{
		asynq.Queue(DefaultQueue),
		asynq.TaskID(saleAlertTaskID(payload.PaymentID)),
		asynq.Retention(saleAlertRetention),
	}, opts)
}

func (c *Client) enqueue(task *asynq.Task, base, extra []asynq.Option) error {
	info, err := c.client.Enqueue(task, append(base, extra...)...)
	if err != nil {
		return err
	}
	logger.Debugw("queue_task_enqueued", "task_type", task.Type(), "task_id", info.ID, "queue", info.Queue)
	return nil
}

func saleAlertTaskID(paymentID uint) string {
	return fmt.Sprintf("sale-alert-%d", paymentID)
}

// BuildServerConfig 生成 worker 端的连接与调度配置，邮件队列总是参与调度
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := defaultConcurrency
	queues := map[string]int{DefaultQueue: 1}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			queues = make(map[string]int, len(cfg.Queues)+1)
			for name, weight := range cfg.Queues {
				queues[name] = weight
			}
		}
	}
	if _, ok := queues[MailQueue]; !ok {
		queues[MailQueue] = 1
	}
	return redisOpt(cfg), asynq.Config{
		Concurrency:  concurrency,
		Queues:       queues,
		Logger:       logger.NewQueueLogger(),
		ErrorHandler: asynq.ErrorHandlerFunc(logTaskFailure),
	}
}

func logTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	logger.Warnw("queue_task_failed",
		"task_type", task.Type(),
		"retried", retried,
		"max_retry", maxRetry,
		"error", err,
	)
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
