package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/models"

	"github.com/shopspring/decimal"
)

func stagingBucket(email string, amount int64, ids ...uint) *GroupedPayouts {
	grouped := NewGroupedPayouts()
	key := EncodeGroupKey(KeyParts{Email: email, Currency: "USD"}, constants.GroupModeHash)
	grouped.Keys = append(grouped.Keys, key)
	grouped.Buckets[key] = &PayoutBucket{
		Email:       email,
		Currency:    "USD",
		Amount:      decimal.NewFromInt(amount),
		Commissions: ids,
	}
	return grouped
}

func TestFileStagingStoreMergeAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewFileStagingStore(t.TempDir())
	exportType := constants.ExportTypePayoutReceipts

	if err := store.Merge(ctx, exportType, "job-a", stagingBucket("a@example.com", 5, 1)); err != nil {
		t.Fatalf("merge first failed: %v", err)
	}
	if err := store.Merge(ctx, exportType, "job-a", stagingBucket("a@example.com", 7, 2)); err != nil {
		t.Fatalf("merge second failed: %v", err)
	}
	if err := store.Merge(ctx, exportType, "job-b", stagingBucket("a@example.com", 100, 3)); err != nil {
		t.Fatalf("merge other job failed: %v", err)
	}

	loaded, err := store.Load(ctx, exportType, "job-a")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Len() != 1 || !loaded.TotalAmount().Equal(decimal.NewFromInt(12)) {
		t.Fatalf("unexpected staged total %s (%d groups)", loaded.TotalAmount(), loaded.Len())
	}
	if _, err := os.Stat(store.Path(exportType, "job-a")); err != nil {
		t.Fatalf("expected staging file: %v", err)
	}
	if filepath.Base(store.Path(exportType, "job-a")) != "edd-commissions_payout_receipts-job-a.json" {
		t.Fatalf("unexpected staging file name %s", store.Path(exportType, "job-a"))
	}

	if err := store.Clear(ctx, exportType, "job-a"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	loaded, err = store.Load(ctx, exportType, "job-a")
	if err != nil || loaded.Len() != 0 {
		t.Fatalf("expected empty after clear, len=%d err=%v", loaded.Len(), err)
	}
	other, err := store.Load(ctx, exportType, "job-b")
	if err != nil || !other.TotalAmount().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("other job staging should be untouched, err=%v", err)
	}
}

func TestFileStagingStoreKeepsSharesForPartialReplay(t *testing.T) {
	ctx := context.Background()
	store := NewFileStagingStore(t.TempDir())
	exportType := constants.ExportTypePayoutReceipts
	grouping := newTestGrouping(constants.CalcBaseSubtotal)

	first, err := grouping.Group(ctx, []models.Commission{
		{ID: 1, UserID: 1, PaymentID: 100, CartIndex: 0, Amount: money("4"), Currency: "USD"},
		{ID: 2, UserID: 1, PaymentID: 100, CartIndex: 1, Amount: money("1.5"), Currency: "USD"},
	}, constants.GroupModeHash)
	if err != nil {
		t.Fatalf("group first page failed: %v", err)
	}
	// 第二页与第一页重叠一条佣金
	second, err := grouping.Group(ctx, []models.Commission{
		{ID: 2, UserID: 1, PaymentID: 100, CartIndex: 1, Amount: money("1.5"), Currency: "USD"},
		{ID: 3, UserID: 1, PaymentID: 100, CartIndex: 0, Amount: money("2"), Currency: "USD"},
	}, constants.GroupModeHash)
	if err != nil {
		t.Fatalf("group second page failed: %v", err)
	}
	if err := store.Merge(ctx, exportType, "job-p", first); err != nil {
		t.Fatalf("merge first failed: %v", err)
	}
	if err := store.Merge(ctx, exportType, "job-p", second); err != nil {
		t.Fatalf("merge second failed: %v", err)
	}

	loaded, err := store.Load(ctx, exportType, "job-p")
	if err != nil || loaded.Len() != 1 {
		t.Fatalf("unexpected staging len=%d err=%v", loaded.Len(), err)
	}
	bucket := loaded.Buckets[loaded.Keys[0]]
	if !bucket.Amount.Equal(decimal.RequireFromString("7.5")) || bucket.SalesCount() != 3 {
		t.Fatalf("unexpected staged bucket amount=%s sales=%d", bucket.Amount, bucket.SalesCount())
	}
	// subtotal 基数：(20-4) + (8-1.5) + (20-2)
	if !bucket.StoreCommission.Equal(decimal.RequireFromString("40.5")) || !bucket.Subtotal.Equal(decimal.NewFromInt(48)) {
		t.Fatalf("unexpected staged cart totals store=%s subtotal=%s", bucket.StoreCommission, bucket.Subtotal)
	}
	if len(bucket.Shares) != 3 {
		t.Fatalf("per-commission shares should survive the staging file, got %d", len(bucket.Shares))
	}
}

func TestFileStagingStoreCorruptContentResets(t *testing.T) {
	ctx := context.Background()
	store := NewFileStagingStore(t.TempDir())
	exportType := constants.ExportTypePayoutReceipts
	if err := os.WriteFile(store.Path(exportType, "job-c"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt file failed: %v", err)
	}
	loaded, err := store.Load(ctx, exportType, "job-c")
	if err != nil || loaded.Len() != 0 {
		t.Fatalf("corrupt staging should load as empty, len=%d err=%v", loaded.Len(), err)
	}
	if err := store.Merge(ctx, exportType, "job-c", stagingBucket("c@example.com", 3, 9)); err != nil {
		t.Fatalf("merge after corrupt failed: %v", err)
	}
	loaded, err = store.Load(ctx, exportType, "job-c")
	if err != nil || !loaded.TotalAmount().Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected total after reinit, err=%v", err)
	}
}

func TestFileStagingStoreRejectsTraversal(t *testing.T) {
	store := NewFileStagingStore(t.TempDir())
	if err := store.Merge(context.Background(), "../etc", "job", NewGroupedPayouts()); err == nil {
		t.Fatalf("expected invalid name error")
	}
}

func TestFileStagingStoreSweep(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStagingStore(dir)
	exportType := constants.ExportTypePayoutReceipts
	if err := store.Merge(ctx, exportType, "old", stagingBucket("o@example.com", 1, 1)); err != nil {
		t.Fatalf("merge old failed: %v", err)
	}
	if err := store.Merge(ctx, exportType, "new", stagingBucket("n@example.com", 1, 2)); err != nil {
		t.Fatalf("merge new failed: %v", err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(store.Path(exportType, "old"), past, past); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}
	removed, err := store.Sweep(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(store.Path(exportType, "new")); err != nil {
		t.Fatalf("fresh staging should remain: %v", err)
	}
}
