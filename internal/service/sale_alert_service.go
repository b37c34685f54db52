package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/models"
	"github.com/dujiao-next/payout-receipts/internal/queue"
	"github.com/dujiao-next/payout-receipts/internal/repository"

	"github.com/hibiken/asynq"
)

// SaleAlertService 购买完成后按收款人合并发送销售提醒
type SaleAlertService struct {
	cfg            *config.Config
	settings       *SettingService
	commissionRepo repository.CommissionRepository
	paymentRepo    repository.PaymentRepository
	userRepo       repository.UserRepository
	productRepo    repository.ProductRepository
	grouping       *PayoutGroupingService
	formatter      *CurrencyFormatter
	mailer         PayoutMailer
	queueClient    *queue.Client
}

// NewSaleAlertService 创建销售提醒服务
func NewSaleAlertService(
	cfg *config.Config,
	settings *SettingService,
	commissionRepo repository.CommissionRepository,
	paymentRepo repository.PaymentRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	grouping *PayoutGroupingService,
	formatter *CurrencyFormatter,
	mailer PayoutMailer,
	queueClient *queue.Client,
) *SaleAlertService {
	return &SaleAlertService{
		cfg:            cfg,
		settings:       settings,
		commissionRepo: commissionRepo,
		paymentRepo:    paymentRepo,
		userRepo:       userRepo,
		productRepo:    productRepo,
		grouping:       grouping,
		formatter:      formatter,
		mailer:         mailer,
		queueClient:    queueClient,
	}
}

// Trigger 购买完成触发：队列启用时异步执行，否则直接发送
func (s *SaleAlertService) Trigger(ctx context.Context, paymentID uint) (bool, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return false, err
	}
	if payment == nil {
		return false, ErrPaymentNotFound
	}
	if s.queueClient != nil && s.queueClient.Enabled() {
		err := s.queueClient.EnqueueSaleAlert(queue.SaleAlertPayload{PaymentID: paymentID})
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			return false, err
		}
		return true, nil
	}
	if _, err := s.SendGroupedAlerts(ctx, paymentID); err != nil {
		return false, err
	}
	return false, nil
}

// SendGroupedAlerts 为一笔支付的每个收款人发送一封合并提醒，返回发送数量
func (s *SaleAlertService) SendGroupedAlerts(ctx context.Context, paymentID uint) (int, error) {
	setting, err := s.settings.GetPayoutReceiptSetting(s.cfg.Payout)
	if err != nil {
		return 0, err
	}
	if !setting.GroupedNotifications || setting.DisableSaleAlerts {
		return 0, nil
	}

	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return 0, err
	}
	if payment == nil {
		return 0, ErrPaymentNotFound
	}
	records, err := s.commissionRepo.ListByPayment(paymentID)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	grouped, err := s.grouping.Group(ctx, records, constants.GroupModeUserID)
	if err != nil {
		return 0, err
	}

	byID := make(map[uint]*models.Commission, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}
	buyer, err := s.buyerInfo(payment)
	if err != nil {
		return 0, err
	}
	products := make(map[uint]*models.Product)
	siteName := s.siteName()

	sent := 0
	var sendErr error
	grouped.Each(func(key string, bucket *PayoutBucket) {
		if sendErr != nil {
			return
		}
		if err := ctx.Err(); err != nil {
			sendErr = err
			return
		}
		parts, _ := DecodeGroupKey(key, constants.GroupModeUserID)
		user, err := s.userRepo.GetByID(parts.UserID)
		if err != nil {
			sendErr = err
			return
		}
		if user == nil || user.DisableSaleAlerts {
			return
		}
		if bucket.Amount.IsZero() && (setting.DisableFreePurchaseAlerts || user.DisableFreePurchaseAlerts) {
			return
		}

		var list strings.Builder
		list.WriteString("<ul>")
		for _, commissionID := range bucket.Commissions {
			record, ok := byID[commissionID]
			if !ok {
				continue
			}
			product, err := s.lookupProduct(products, record.DownloadID)
			if err != nil {
				sendErr = err
				return
			}
			list.WriteString("<li>")
			list.WriteString(s.alertListItem(product, record, setting))
			list.WriteString("</li>")
		}
		list.WriteString("</ul>")

		address, err := s.userRepo.GetAddress(user.ID)
		if err != nil {
			sendErr = err
			return
		}
		tags := BlankTagValues(GroupedSaleAlertTemplateTags)
		tags["commissions"] = list.String()
		tags["amount"] = s.formatter.Money(bucket.Amount, bucket.Currency)
		tags["date"] = s.formatDate(payment)
		tags["name"] = UserDisplayName(user)
		tags["fullname"] = UserFullName(user)
		tags["user_id"] = formatUint(user.ID)
		tags["username"] = user.Username
		tags["address"] = FormatUserAddress(address)
		tags["price"] = s.formatter.Money(bucket.ItemPrice, bucket.Currency)
		tags["tax"] = s.formatter.Money(bucket.Tax, bucket.Currency)
		tags["payment_id"] = formatUint(payment.ID)
		tags["store_commission"] = s.formatter.Money(bucket.StoreCommission, bucket.Currency)
		tags["sitename"] = siteName
		tags["buyer_name"] = buyer.name
		tags["buyer_fullname"] = buyer.fullname
		tags["buyer_username"] = buyer.username
		tags["buyer_user_email"] = payment.Email
		tags["buyer_address"] = FormatPaymentAddress(payment.Address)
		tags["receipt_id"] = payment.ReceiptID
		tags["payment_method"] = payment.Gateway
		tags["ip_address"] = payment.IPAddress

		body := RenderTemplate(setting.SaleAlertMessage, tags)
		if err := s.mailer.Deliver(ctx, user.Email, setting.SaleAlertSubject, body); err != nil {
			logger.Warnw("sale_alert_send_failed", "payment_id", payment.ID, "user_id", user.ID, "error", err)
			return
		}
		sent++
	})
	if sendErr != nil {
		return sent, sendErr
	}
	logger.Infow("sale_alerts_delivered", "payment_id", payment.ID, "recipients", sent)
	return sent, nil
}

func (s *SaleAlertService) alertListItem(product *models.Product, record *models.Commission, setting PayoutReceiptSetting) string {
	var b strings.Builder
	b.WriteString("<strong>")
	b.WriteString(productName(product, record.DownloadID))
	b.WriteString("</strong>")
	if optionName := product.PriceOptionName(record.PriceID); optionName != "" {
		b.WriteString(" - ")
		b.WriteString(optionName)
	}
	if setting.SaleAlertShowAmounts {
		b.WriteString(" - ")
		b.WriteString(s.formatter.Money(record.Amount.Decimal, record.Currency))
	}
	if setting.SaleAlertShowRates {
		if record.Type == constants.CommissionTypeFlat {
			b.WriteString(" (Flat rate)")
		} else {
			b.WriteString(fmt.Sprintf(" (%s%%)", record.Rate.Decimal.String()))
		}
	}
	return b.String()
}

type saleAlertBuyer struct {
	name     string
	fullname string
	username string
}

func (s *SaleAlertService) buyerInfo(payment *models.Payment) (saleAlertBuyer, error) {
	buyer := saleAlertBuyer{
		name:     strings.TrimSpace(payment.FirstName),
		fullname: strings.TrimSpace(strings.TrimSpace(payment.FirstName) + " " + strings.TrimSpace(payment.LastName)),
	}
	if payment.UserID == 0 {
		return buyer, nil
	}
	account, err := s.userRepo.GetByID(payment.UserID)
	if err != nil {
		return buyer, err
	}
	if account != nil {
		buyer.username = account.Username
	}
	return buyer, nil
}

func (s *SaleAlertService) lookupProduct(cache map[uint]*models.Product, id uint) (*models.Product, error) {
	if product, ok := cache[id]; ok {
		return product, nil
	}
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	cache[id] = product
	return product, nil
}

func (s *SaleAlertService) siteName() string {
	name, err := s.settings.GetSiteName(s.cfg.Payout.SiteName)
	if err != nil {
		logger.Warnw("sale_alert_site_name_fetch_failed", "error", err)
	}
	return name
}

func (s *SaleAlertService) formatDate(payment *models.Payment) string {
	layout := strings.TrimSpace(s.cfg.Payout.DateFormat)
	if layout == "" {
		layout = "January 2, 2006"
	}
	completed := payment.CreatedAt
	if payment.CompletedAt != nil {
		completed = *payment.CompletedAt
	}
	if completed.IsZero() {
		completed = time.Now()
	}
	return completed.Format(layout)
}
