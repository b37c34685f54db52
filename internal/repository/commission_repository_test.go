package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCommissionRepositoryTest(t *testing.T) (*GormCommissionRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Commission{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewCommissionRepository(db), db
}

func seedCommission(t *testing.T, db *gorm.DB, userID uint, amount int64, status string, createdAt time.Time) models.Commission {
	t.Helper()
	row := models.Commission{
		UserID:     userID,
		DownloadID: 1,
		PaymentID:  1,
		Amount:     models.NewMoneyFromDecimal(decimal.NewFromInt(amount)),
		Type:       constants.CommissionTypePercentage,
		Currency:   "USD",
		Status:     status,
		CreatedAt:  createdAt,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}
	return row
}

func TestCommissionRepositoryListPagesInIDOrder(t *testing.T) {
	repo, db := setupCommissionRepositoryTest(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedCommission(t, db, 1, int64(i+1), constants.CommissionStatusUnpaid, now)
	}

	page1, err := repo.List(CommissionListFilter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list page 1 failed: %v", err)
	}
	page3, err := repo.List(CommissionListFilter{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("list page 3 failed: %v", err)
	}
	page4, err := repo.List(CommissionListFilter{Page: 4, PageSize: 2})
	if err != nil {
		t.Fatalf("list page 4 failed: %v", err)
	}
	if len(page1) != 2 || page1[0].ID >= page1[1].ID {
		t.Fatalf("page 1 should hold two rows in id order, got %+v", page1)
	}
	if len(page3) != 1 {
		t.Fatalf("page 3 should hold one row, got %d", len(page3))
	}
	if len(page4) != 0 {
		t.Fatalf("page 4 should be empty, got %d", len(page4))
	}
}

func TestCommissionRepositoryFiltersStatusUserAndRange(t *testing.T) {
	repo, db := setupCommissionRepositoryTest(t)
	inRange := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	outOfRange := time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)

	seedCommission(t, db, 1, 10, constants.CommissionStatusUnpaid, inRange)
	seedCommission(t, db, 1, 10, constants.CommissionStatusPaid, inRange)
	seedCommission(t, db, 1, 10, constants.CommissionStatusRevoked, inRange)
	seedCommission(t, db, 2, 10, constants.CommissionStatusUnpaid, inRange)
	seedCommission(t, db, 1, 10, constants.CommissionStatusUnpaid, outOfRange)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
	filter := CommissionListFilter{
		UserID:      1,
		Statuses:    []string{constants.CommissionStatusPaid, constants.CommissionStatusUnpaid},
		CreatedFrom: &from,
		CreatedTo:   &to,
	}
	total, err := repo.Count(filter)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 matching commissions, got %d", total)
	}

	filter.UserID = 0
	total, err = repo.Count(filter)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 matching commissions for all users, got %d", total)
	}
}

func TestCommissionRepositoryListUsers(t *testing.T) {
	repo, db := setupCommissionRepositoryTest(t)
	users := []models.User{
		{Email: "alice@example.com", Username: "alice"},
		{Email: "bob@example.com", Username: "bob"},
		{Email: "carol@example.com", Username: "carol"},
	}
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("create user failed: %v", err)
		}
	}
	now := time.Now()
	seedCommission(t, db, users[0].ID, 5, constants.CommissionStatusUnpaid, now)
	seedCommission(t, db, users[2].ID, 5, constants.CommissionStatusUnpaid, now)

	rows, total, err := repo.ListUsers(CommissionUserListFilter{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 payees, got total=%d len=%d", total, len(rows))
	}

	rows, _, err = repo.ListUsers(CommissionUserListFilter{Keyword: "car"})
	if err != nil {
		t.Fatalf("list users by keyword failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Username != "carol" {
		t.Fatalf("keyword search should find carol, got %+v", rows)
	}
}
