package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openRepositoryTestDB(t *testing.T, tables ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_query_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(tables...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func TestSettingRepositoryUpsertOverwrites(t *testing.T) {
	repo := NewSettingRepository(openRepositoryTestDB(t, &models.Setting{}))

	if _, err := repo.Upsert("payout_receipt_config", models.JSON{"admin_email": "a@example.com"}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if _, err := repo.Upsert("payout_receipt_config", models.JSON{"admin_email": "b@example.com"}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	setting, err := repo.GetByKey("payout_receipt_config")
	if err != nil || setting == nil {
		t.Fatalf("get setting failed: %v", err)
	}
	if setting.ValueJSON["admin_email"] != "b@example.com" {
		t.Fatalf("upsert should overwrite, got %v", setting.ValueJSON)
	}
	if err := repo.Delete("payout_receipt_config"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if setting, err := repo.GetByKey("payout_receipt_config"); err != nil || setting != nil {
		t.Fatalf("deleted setting should be nil, got %+v err=%v", setting, err)
	}
}

func TestUserRepositoryGetByEmailIgnoresCase(t *testing.T) {
	db := openRepositoryTestDB(t, &models.User{})
	repo := NewUserRepository(db)
	if err := repo.Create(&models.User{Email: "alice@example.com", Username: "alice"}); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	user, err := repo.GetByEmail(" Alice@Example.com ")
	if err != nil || user == nil || user.Username != "alice" {
		t.Fatalf("lookup by email failed: %+v err=%v", user, err)
	}
	if missing, err := repo.GetByID(0); err != nil || missing != nil {
		t.Fatalf("zero id should return nil, got %+v err=%v", missing, err)
	}
	if missing, err := repo.GetByID(999); err != nil || missing != nil {
		t.Fatalf("unknown id should return nil, got %+v err=%v", missing, err)
	}
}

func TestApplyPaginationClampsPage(t *testing.T) {
	db := openRepositoryTestDB(t, &models.User{})
	for i := 0; i < 3; i++ {
		if err := db.Create(&models.User{Email: fmt.Sprintf("u%d@example.com", i), Username: fmt.Sprintf("u%d", i)}).Error; err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	var rows []models.User
	if err := applyPagination(db.Model(&models.User{}).Order("id asc"), 0, 2).Find(&rows).Error; err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rows) != 2 || rows[0].Username != "u0" {
		t.Fatalf("page 0 should behave like page 1, got %+v", rows)
	}
}
