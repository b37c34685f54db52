package queue

import (
	"encoding/json"
	"testing"

	"github.com/dujiao-next/payout-receipts/internal/config"
)

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("disabled client should not report enabled")
	}
	if err := client.EnqueuePayoutReceiptEmail(PayoutReceiptEmailPayload{To: "a@example.com"}); err != nil {
		t.Fatalf("disabled enqueue should be noop: %v", err)
	}
	if err := client.EnqueueSaleAlert(SaleAlertPayload{PaymentID: 1}); err != nil {
		t.Fatalf("disabled enqueue should be noop: %v", err)
	}
}

func TestNewPayoutReceiptEmailTask(t *testing.T) {
	task, err := NewPayoutReceiptEmailTask(PayoutReceiptEmailPayload{To: "a@example.com", Subject: "Payout Receipt", Body: "<ul></ul>", UserID: 7})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskPayoutReceiptEmail {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var payload PayoutReceiptEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if payload.UserID != 7 || payload.To != "a@example.com" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{})
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected addr: %s", opt.Addr)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("unexpected concurrency: %d", cfg.Concurrency)
	}
	if cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("unexpected queues: %+v", cfg.Queues)
	}
	if cfg.Logger == nil {
		t.Fatalf("server logger should be set")
	}
}

func TestBuildServerConfigAlwaysSchedulesMailQueue(t *testing.T) {
	queues := map[string]int{"default": 4}
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: "redis", Port: 6380, DB: 2, Queues: queues})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Queues["default"] != 4 || cfg.Queues[MailQueue] != 1 {
		t.Fatalf("unexpected queues: %+v", cfg.Queues)
	}
	if _, ok := queues[MailQueue]; ok {
		t.Fatalf("configured queue map must not be mutated")
	}
	if cfg.ErrorHandler == nil {
		t.Fatalf("error handler should be set")
	}
}

func TestSaleAlertTaskIDIsStablePerPayment(t *testing.T) {
	if saleAlertTaskID(42) != saleAlertTaskID(42) || saleAlertTaskID(42) == saleAlertTaskID(43) {
		t.Fatalf("task id should be derived from payment id")
	}
}
