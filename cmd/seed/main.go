package main

import (
	"fmt"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func money(value float64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromFloat(value))
}

func uintPtr(v uint) *uint {
	return &v
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	db, err := models.OpenDB(cfg.Database.ToDBOptions(false))
	if err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(db); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 收款用户
	users := []models.User{
		{
			Email: "alice@example.com", Username: "alice", DisplayName: "Alice",
			FirstName: "Alice", LastName: "Smith", PayoutEmail: "alice.pay@example.com",
			Address: &models.UserAddress{Line1: "1 Main St", City: "Springfield", Zip: "12345", State: "IL", Country: "US"},
		},
		{Email: "bob@example.com", Username: "bob", DisplayName: "Bobby"},
		{Email: "carol@example.com", Username: "carol", FirstName: "Carol", LastName: "Jones", DisableFreePurchaseAlerts: true},
	}
	userIDs := map[string]uint{}
	for i := range users {
		user := users[i]
		var existing models.User
		if err := db.Where("username = ?", user.Username).First(&existing).Error; err != nil {
			if err := db.Create(&user).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", user.Username, err)
				continue
			}
			stdLog.Printf("Created user: %s", user.Username)
			userIDs[user.Username] = user.ID
			continue
		}
		stdLog.Printf("User already exists: %s", user.Username)
		userIDs[user.Username] = existing.ID
	}

	// 商品
	products := []models.Product{
		{Slug: "ebook", Title: "Ebook", PriceAmount: money(20), VariablePrice: true, Prices: []models.ProductPrice{
			{Index: 0, Name: "Basic", Amount: money(10)},
			{Index: 1, Name: "Pro", Amount: money(20)},
		}},
		{Slug: "theme", Title: "Theme", PriceAmount: money(15)},
		{Slug: "plugin-pack", Title: "Plugin Pack", PriceAmount: money(49)},
	}
	productIDs := map[string]uint{}
	for i := range products {
		product := products[i]
		var existing models.Product
		if err := db.Where("slug = ?", product.Slug).First(&existing).Error; err != nil {
			if err := db.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Slug, err)
				continue
			}
			stdLog.Printf("Created product: %s", product.Slug)
			productIDs[product.Slug] = product.ID
			continue
		}
		stdLog.Printf("Product already exists: %s", product.Slug)
		productIDs[product.Slug] = existing.ID
	}

	// 支付与佣金
	now := time.Now()
	base := time.Date(now.Year(), now.Month(), 1, 10, 0, 0, 0, time.UTC)
	payments := []struct {
		payment     models.Payment
		commissions []models.Commission
	}{
		{
			payment: models.Payment{
				Email: "buyer@example.com", FirstName: "Bea", LastName: "Buyer", ReceiptID: "seed-receipt-1001",
				Gateway: "paypal", IPAddress: "10.0.0.1", Currency: "USD", Total: money(35), Status: "complete",
				CompletedAt: &base,
				CartItems: []models.PaymentCartItem{
					{CartIndex: 0, DownloadID: productIDs["ebook"], PriceID: uintPtr(1), Quantity: 1, ItemPrice: money(20), Subtotal: money(20), Price: money(20)},
					{CartIndex: 1, DownloadID: productIDs["theme"], Quantity: 1, ItemPrice: money(15), Subtotal: money(15), Price: money(15)},
				},
			},
			commissions: []models.Commission{
				{UserID: userIDs["alice"], DownloadID: productIDs["ebook"], PriceID: uintPtr(1), CartIndex: 0, Amount: money(6), Rate: money(30), Type: constants.CommissionTypePercentage, Status: constants.CommissionStatusUnpaid},
				{UserID: userIDs["bob"], DownloadID: productIDs["theme"], CartIndex: 1, Amount: money(3), Rate: money(20), Type: constants.CommissionTypePercentage, Status: constants.CommissionStatusUnpaid},
			},
		},
		{
			payment: models.Payment{
				Email: "second@example.com", FirstName: "Sam", LastName: "Second", ReceiptID: "seed-receipt-1002",
				Gateway: "stripe", IPAddress: "10.0.0.2", Currency: "USD", Total: money(49), Status: "complete",
				CompletedAt: timePtr(base.Add(48 * time.Hour)),
				CartItems: []models.PaymentCartItem{
					{CartIndex: 0, DownloadID: productIDs["plugin-pack"], Quantity: 1, ItemPrice: money(49), Subtotal: money(49), Price: money(49)},
				},
			},
			commissions: []models.Commission{
				{UserID: userIDs["alice"], DownloadID: productIDs["plugin-pack"], CartIndex: 0, Amount: money(5), Rate: money(5), Type: constants.CommissionTypeFlat, Status: constants.CommissionStatusPaid},
				{UserID: userIDs["carol"], DownloadID: productIDs["plugin-pack"], CartIndex: 0, Amount: money(4.9), Rate: money(10), Type: constants.CommissionTypePercentage, Status: constants.CommissionStatusUnpaid},
			},
		},
		{
			payment: models.Payment{
				Email: "free@example.com", FirstName: "Fay", LastName: "Free", ReceiptID: "seed-receipt-1003",
				Gateway: "manual", Currency: "USD", Total: money(0), Status: "complete",
				CompletedAt: timePtr(base.Add(72 * time.Hour)),
				CartItems: []models.PaymentCartItem{
					{CartIndex: 0, DownloadID: productIDs["theme"], Quantity: 1, ItemPrice: money(15), Subtotal: money(15), Discount: money(15)},
				},
			},
			commissions: []models.Commission{
				{UserID: userIDs["carol"], DownloadID: productIDs["theme"], CartIndex: 0, Amount: money(0), Rate: money(10), Type: constants.CommissionTypePercentage, Status: constants.CommissionStatusRevoked},
			},
		},
	}

	commissionCount := 0
	for i := range payments {
		entry := payments[i]
		err := db.Transaction(func(tx *gorm.DB) error {
			var existing models.Payment
			if err := tx.Where("receipt_id = ?", entry.payment.ReceiptID).First(&existing).Error; err == nil {
				stdLog.Printf("Payment already exists: %s", entry.payment.ReceiptID)
				return nil
			}
			payment := entry.payment
			payment.CreatedAt = *payment.CompletedAt
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			for j := range entry.commissions {
				record := entry.commissions[j]
				record.PaymentID = payment.ID
				record.Currency = payment.Currency
				record.CreatedAt = payment.CreatedAt
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
				commissionCount++
			}
			stdLog.Printf("Created payment: %s", payment.ReceiptID)
			return nil
		})
		if err != nil {
			stdLog.Printf("Failed to create payment %s: %v", entry.payment.ReceiptID, err)
		}
	}

	// 站点与付款回执配置
	settings := map[string]models.JSON{
		constants.SettingKeySiteConfig: {
			"site_name":  "Demo Store",
			"site_email": "store@example.com",
		},
		constants.SettingKeyPayoutReceiptConfig: {
			"admin_email":             "admin@example.com",
			"admin_show_payout_email": true,
			"grouped_notifications":   true,
		},
	}
	for key, value := range settings {
		var setting models.Setting
		if err := db.Where("key = ?", key).First(&setting).Error; err != nil {
			setting = models.Setting{Key: key, ValueJSON: value}
			if err := db.Create(&setting).Error; err != nil {
				stdLog.Printf("Failed to create setting %s: %v", key, err)
			} else {
				stdLog.Printf("Created setting: %s", key)
			}
			continue
		}
		stdLog.Printf("Setting already exists: %s", key)
	}

	fmt.Println("\n✅ Payout demo data created successfully!")
	fmt.Println("Summary:")
	fmt.Printf("- %d Users (alice / bob / carol)\n", len(userIDs))
	fmt.Printf("- %d Products\n", len(productIDs))
	fmt.Printf("- %d Commissions across %d payments\n", commissionCount, len(payments))
	fmt.Println("- Site and payout receipt settings")
}

func timePtr(t time.Time) *time.Time {
	return &t
}
