package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/cache"
	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/models"
	"github.com/dujiao-next/payout-receipts/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]error
}

func (m *recordingMailer) Deliver(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.fail[to]; ok {
		return err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) to(address string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]sentMail, 0)
	for _, mail := range m.sent {
		if mail.To == address {
			result = append(result, mail)
		}
	}
	return result
}

type staticExportAuthorizer struct {
	allowed map[uint]bool
}

func (a *staticExportAuthorizer) CanExport(adminID uint, _ string) (bool, error) {
	return a.allowed[adminID], nil
}

type payoutFixture struct {
	db         *gorm.DB
	cfg        *config.Config
	settings   *SettingService
	pending    *PendingNotificationStore
	staging    *FileStagingStore
	mailer     *recordingMailer
	receipts   *PayoutReceiptService
	builder    *PayoutFileBuilder
	dispatcher *PayoutNotificationDispatcher
	alerts     *SaleAlertService
	batch      *BatchExportService
	commission *CommissionService
	authorizer *staticExportAuthorizer
}

func setupPayoutFixture(t *testing.T) *payoutFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:payout_fixture_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	uploadDir := t.TempDir()
	cfg := &config.Config{}
	cfg.Server.BaseURL = "https://shop.example.com/"
	cfg.JWT.SecretKey = "test-secret"
	cfg.Upload.Dir = uploadDir
	cfg.Payout = testPayoutConfig()
	cfg.Payout.DownloadTokenTTLMinutes = 10

	settingRepo := repository.NewSettingRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)

	settings := NewSettingService(settingRepo)
	resolver := NewRepositoryPayoutResolver(paymentRepo, userRepo)
	grouping := NewPayoutGroupingService(resolver, resolver, cfg.Payout.CalcBase)
	formatter := NewCurrencyFormatter("USD")
	staging := NewFileStagingStore(uploadDir)
	pending := NewPendingNotificationStore(settings, cfg.Payout.LegacyProgressKey)
	mailer := &recordingMailer{fail: map[string]error{}}

	receipts := NewPayoutReceiptService(cfg, settings, commissionRepo, userRepo, productRepo, grouping, formatter, mailer)
	receipts.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.Local) }
	builder := NewPayoutFileBuilder(commissionRepo, grouping, staging, pending, formatter, uploadDir, cfg.Payout.PageSize)
	dispatcher := NewPayoutNotificationDispatcher(pending, receipts, cfg.Payout.PageSize)
	alerts := NewSaleAlertService(cfg, settings, commissionRepo, paymentRepo, userRepo, productRepo, grouping, formatter, mailer, nil)
	authorizer := &staticExportAuthorizer{allowed: map[uint]bool{}}
	batch := NewBatchExportService(
		cfg,
		repository.NewBatchJobRepository(db),
		repository.NewAdminRepository(db),
		NewBatchExporterRegistry(builder, dispatcher),
		authorizer,
		cache.NewWithClient(nil, ""),
	)

	fixture := &payoutFixture{
		db:         db,
		cfg:        cfg,
		settings:   settings,
		pending:    pending,
		staging:    staging,
		mailer:     mailer,
		receipts:   receipts,
		builder:    builder,
		dispatcher: dispatcher,
		alerts:     alerts,
		batch:      batch,
		commission: NewCommissionService(commissionRepo, userRepo),
		authorizer: authorizer,
	}
	fixture.seed(t)
	return fixture
}

func (f *payoutFixture) create(t *testing.T, value interface{}) {
	t.Helper()
	if err := f.db.Create(value).Error; err != nil {
		t.Fatalf("seed %T failed: %v", value, err)
	}
}

// seed 两个收款人、两件商品、一笔支付；1 月内 3 条有效佣金，另有 1 条撤销与 1 条 2 月佣金
func (f *payoutFixture) seed(t *testing.T) {
	t.Helper()
	f.create(t, &models.Admin{ID: 1, Username: "root", PasswordHash: "x", IsSuper: true})
	f.create(t, &models.Admin{ID: 2, Username: "auditor", PasswordHash: "x"})

	f.create(t, &models.User{ID: 1, Email: "alice@example.com", Username: "alice", FirstName: "Alice", LastName: "Smith", PayoutEmail: "alice.pay@example.com", Status: constants.UserStatusActive})
	f.create(t, &models.User{ID: 2, Email: "bob@example.com", Username: "bob", DisplayName: "Bobby", Status: constants.UserStatusActive})
	f.create(t, &models.User{ID: 3, Email: "buyer@example.com", Username: "buyer", Status: constants.UserStatusActive})
	f.create(t, &models.UserAddress{UserID: 1, Line1: "1 Main St", City: "Springfield", Zip: "12345", State: "IL", Country: "US"})

	f.create(t, &models.Product{ID: 1, Slug: "ebook", Title: "Ebook", PriceAmount: money("20"), VariablePrice: true,
		Prices: []models.ProductPrice{{Index: 1, Name: "Pro", Amount: money("20")}}})
	f.create(t, &models.Product{ID: 2, Slug: "theme", Title: "Theme", PriceAmount: money("10")})

	completed := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	f.create(t, &models.Payment{
		ID: 100, UserID: 3, Email: "buyer@example.com", FirstName: "Bea", LastName: "Buyer", ReceiptID: "rcpt-100",
		Gateway: "paypal", IPAddress: "10.0.0.1", Currency: "USD", Total: money("31"), Status: "complete",
		CompletedAt: &completed,
		CartItems: []models.PaymentCartItem{
			{CartIndex: 0, DownloadID: 1, Quantity: 1, ItemPrice: money("20"), Subtotal: money("20"), Tax: money("2"), Price: money("22")},
			{CartIndex: 1, DownloadID: 2, Quantity: 1, ItemPrice: money("10"), Subtotal: money("8"), Tax: money("1"), Price: money("9"), Discount: money("2")},
		},
	})

	priceOption := uint(1)
	inRange := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	f.create(t, &models.Commission{ID: 1, UserID: 1, DownloadID: 1, PriceID: &priceOption, PaymentID: 100, CartIndex: 0,
		Amount: money("4"), Rate: money("20"), Type: constants.CommissionTypePercentage, Currency: "USD", Status: constants.CommissionStatusUnpaid, CreatedAt: inRange})
	f.create(t, &models.Commission{ID: 2, UserID: 2, DownloadID: 1, PaymentID: 100, CartIndex: 0,
		Amount: money("3"), Rate: money("3"), Type: constants.CommissionTypeFlat, Currency: "USD", Status: constants.CommissionStatusPaid, CreatedAt: inRange})
	f.create(t, &models.Commission{ID: 3, UserID: 1, DownloadID: 2, PaymentID: 100, CartIndex: 1,
		Amount: money("1.5"), Rate: money("15"), Type: constants.CommissionTypePercentage, Currency: "USD", Status: constants.CommissionStatusUnpaid, CreatedAt: inRange})
	f.create(t, &models.Commission{ID: 4, UserID: 2, DownloadID: 2, PaymentID: 100, CartIndex: 1,
		Amount: money("50"), Rate: money("50"), Type: constants.CommissionTypePercentage, Currency: "USD", Status: constants.CommissionStatusRevoked, CreatedAt: inRange})
	f.create(t, &models.Commission{ID: 5, UserID: 1, DownloadID: 2, PaymentID: 100, CartIndex: 1,
		Amount: money("9"), Rate: money("90"), Type: constants.CommissionTypePercentage, Currency: "USD", Status: constants.CommissionStatusUnpaid,
		CreatedAt: time.Date(2024, 2, 15, 12, 0, 0, 0, time.Local)})
}

func januaryParams() PayoutBatchParams {
	return PayoutBatchParams{Start: "2024-01-01", End: "2024-01-31"}
}
