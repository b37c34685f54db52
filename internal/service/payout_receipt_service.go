package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/models"
	"github.com/dujiao-next/payout-receipts/internal/repository"

	"github.com/shopspring/decimal"
)

// PayoutReceiptParams 发送回执的日期范围与过滤条件
type PayoutReceiptParams struct {
	Start   string
	End     string
	Status  []string
	Minimum string
	// UserIDs 非空时管理员汇总仅包含这些用户
	UserIDs []uint
	// Payees 非 nil 时只统计名单内的用户与币种，不再套用最低金额
	Payees []PendingPayee
}

// PayoutReceiptParamsFromPending 从待通知列表构建参数
func PayoutReceiptParamsFromPending(pending *PendingNotifications) PayoutReceiptParams {
	if pending == nil {
		return PayoutReceiptParams{}
	}
	return PayoutReceiptParams{
		Start:   pending.Start,
		End:     pending.End,
		Status:  append([]string(nil), pending.Status...),
		Minimum: pending.Minimum,
		UserIDs: append([]uint(nil), pending.UserIDs...),
		Payees:  pending.Payees,
	}
}

type payeeKey struct {
	userID   uint
	currency string
}

func payeeKeyOf(record *models.Commission) payeeKey {
	return payeeKey{userID: record.UserID, currency: strings.ToUpper(strings.TrimSpace(record.Currency))}
}

// eligibleCommissions 过滤出可计入回执的佣金：有名单时按名单，否则按用户与币种合计套用最低金额（含等于）
func eligibleCommissions(records []models.Commission, params PayoutReceiptParams) ([]models.Commission, error) {
	allowed := make(map[payeeKey]struct{})
	if params.Payees != nil {
		for _, payee := range params.Payees {
			allowed[payeeKey{userID: payee.UserID, currency: strings.ToUpper(strings.TrimSpace(payee.Currency))}] = struct{}{}
		}
	} else {
		minimum, err := parsePayoutMinimum(params.Minimum)
		if err != nil {
			return nil, err
		}
		if minimum == nil {
			return records, nil
		}
		sums := make(map[payeeKey]decimal.Decimal)
		for i := range records {
			key := payeeKeyOf(&records[i])
			sums[key] = sums[key].Add(records[i].Amount.Decimal)
		}
		for key, sum := range sums {
			if !sum.LessThan(*minimum) {
				allowed[key] = struct{}{}
			}
		}
	}
	filtered := make([]models.Commission, 0, len(records))
	for i := range records {
		if _, ok := allowed[payeeKeyOf(&records[i])]; ok {
			filtered = append(filtered, records[i])
		}
	}
	return filtered, nil
}

// payoutTotals 金额汇总
type payoutTotals struct {
	Amount          decimal.Decimal
	ItemPrice       decimal.Decimal
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Price           decimal.Decimal
	Discount        decimal.Decimal
	StoreCommission decimal.Decimal
}

func (t *payoutTotals) add(bucket *PayoutBucket) {
	t.Amount = t.Amount.Add(bucket.Amount)
	t.ItemPrice = t.ItemPrice.Add(bucket.ItemPrice)
	t.Subtotal = t.Subtotal.Add(bucket.Subtotal)
	t.Tax = t.Tax.Add(bucket.Tax)
	t.Price = t.Price.Add(bucket.Price)
	t.Discount = t.Discount.Add(bucket.Discount)
	t.StoreCommission = t.StoreCommission.Add(bucket.StoreCommission)
}

// PayoutReceiptService 付款回执与管理员汇总邮件
type PayoutReceiptService struct {
	cfg            *config.Config
	settings       *SettingService
	commissionRepo repository.CommissionRepository
	userRepo       repository.UserRepository
	productRepo    repository.ProductRepository
	grouping       *PayoutGroupingService
	formatter      *CurrencyFormatter
	mailer         PayoutMailer
	now            func() time.Time
}

// NewPayoutReceiptService 创建付款回执服务
func NewPayoutReceiptService(
	cfg *config.Config,
	settings *SettingService,
	commissionRepo repository.CommissionRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	grouping *PayoutGroupingService,
	formatter *CurrencyFormatter,
	mailer PayoutMailer,
) *PayoutReceiptService {
	return &PayoutReceiptService{
		cfg:            cfg,
		settings:       settings,
		commissionRepo: commissionRepo,
		userRepo:       userRepo,
		productRepo:    productRepo,
		grouping:       grouping,
		formatter:      formatter,
		mailer:         mailer,
		now:            time.Now,
	}
}

// SendUserReceipt 向单个用户发送付款回执；返回是否实际投递
func (s *PayoutReceiptService) SendUserReceipt(ctx context.Context, userID uint, params PayoutReceiptParams) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	setting, err := s.settings.GetPayoutReceiptSetting(s.cfg.Payout)
	if err != nil {
		return false, err
	}
	if setting.DisablePayoutReceipts {
		return false, nil
	}

	filter, err := buildPayoutCommissionFilter(params.Start, params.End, params.Status, userID)
	if err != nil {
		return false, err
	}
	records, err := s.commissionRepo.List(filter)
	if err != nil {
		return false, err
	}
	records, err = eligibleCommissions(records, params)
	if err != nil {
		return false, err
	}
	grouped, err := s.grouping.Group(ctx, records, constants.GroupModeDownloadID)
	if err != nil {
		return false, err
	}
	if grouped.Len() == 0 {
		return false, nil
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, ErrUserNotFound
	}

	products := make(map[uint]*models.Product)
	var totals payoutTotals
	var list strings.Builder
	list.WriteString("<ul>")
	var listErr error
	grouped.Each(func(key string, bucket *PayoutBucket) {
		if listErr != nil {
			return
		}
		totals.add(bucket)
		parts, _ := DecodeGroupKey(key, constants.GroupModeDownloadID)
		product, err := s.lookupProduct(products, parts.DownloadID)
		if err != nil {
			listErr = err
			return
		}
		list.WriteString("<li>")
		list.WriteString(s.receiptListItem(product, parts, bucket, setting))
		list.WriteString("</li>")
	})
	if listErr != nil {
		return false, listErr
	}
	list.WriteString("</ul>")

	address, err := s.userRepo.GetAddress(userID)
	if err != nil {
		return false, err
	}
	siteName := s.siteName()
	tags := BlankTagValues(PayoutReceiptTemplateTags)
	tags["commissions"] = list.String()
	tags["amount"] = s.formatter.Money(totals.Amount, "")
	tags["date"] = s.formatDate(s.now())
	tags["name"] = UserDisplayName(user)
	tags["address"] = FormatUserAddress(address)
	tags["user_id"] = formatUint(user.ID)
	tags["username"] = user.Username
	tags["fullname"] = UserFullName(user)
	tags["subtotal"] = s.formatter.Money(totals.Subtotal, "")
	tags["item_price"] = s.formatter.Money(totals.ItemPrice, "")
	tags["tax"] = s.formatter.Money(totals.Tax, "")
	tags["price"] = s.formatter.Money(totals.Price, "")
	tags["discount"] = s.formatter.Money(totals.Discount, "")
	tags["sitename"] = siteName
	tags["store_commission"] = s.formatter.Money(totals.StoreCommission, "")
	tags["start_date"] = s.formatDateString(params.Start)
	tags["end_date"] = s.formatDateString(params.End)
	tags["payout_email"] = PayoutEmailOf(user)

	body := RenderTemplate(setting.Message, tags)
	if err := s.mailer.Deliver(ctx, user.Email, setting.Subject, body); err != nil {
		return false, err
	}
	logger.Infow("payout_receipt_delivered",
		"user_id", user.ID,
		"groups", grouped.Len(),
		"amount", totals.Amount.StringFixed(2),
	)
	return true, nil
}

// SendAdminReport 发送管理员付款汇总；返回是否实际投递
func (s *PayoutReceiptService) SendAdminReport(ctx context.Context, params PayoutReceiptParams) (bool, error) {
	setting, err := s.settings.GetPayoutReceiptSetting(s.cfg.Payout)
	if err != nil {
		return false, err
	}
	if setting.AdminDisablePayoutReport {
		return false, nil
	}
	recipient := strings.TrimSpace(setting.AdminEmail)
	if recipient == "" {
		logger.Warnw("payout_report_recipient_missing")
		return false, nil
	}

	filter, err := buildPayoutCommissionFilter(params.Start, params.End, params.Status, 0)
	if err != nil {
		return false, err
	}
	records, err := s.commissionRepo.List(filter)
	if err != nil {
		return false, err
	}
	records, err = eligibleCommissions(filterCommissionsByUsers(records, params.UserIDs), params)
	if err != nil {
		return false, err
	}
	grouped, err := s.grouping.Group(ctx, records, constants.GroupModeUserID)
	if err != nil {
		return false, err
	}
	if grouped.Len() == 0 {
		return false, nil
	}
	var totals payoutTotals
	var list strings.Builder
	list.WriteString("<ul>")
	var listErr error
	grouped.Each(func(key string, bucket *PayoutBucket) {
		if listErr != nil {
			return
		}
		parts, _ := DecodeGroupKey(key, constants.GroupModeUserID)
		user, err := s.userRepo.GetByID(parts.UserID)
		if err != nil {
			listErr = err
			return
		}
		totals.add(bucket)
		list.WriteString("<li>")
		list.WriteString(s.reportListItem(user, bucket, setting))
		list.WriteString("</li>")
	})
	if listErr != nil {
		return false, listErr
	}
	list.WriteString("</ul>")

	tags := BlankTagValues(PayoutReportTemplateTags)
	tags["recipients"] = list.String()
	tags["amount"] = s.formatter.Money(totals.Amount, "")
	tags["date"] = s.formatDate(s.now())
	tags["subtotal"] = s.formatter.Money(totals.Subtotal, "")
	tags["price"] = s.formatter.Money(totals.ItemPrice, "")
	tags["tax"] = s.formatter.Money(totals.Tax, "")
	tags["sitename"] = s.siteName()
	tags["store_commission"] = s.formatter.Money(totals.StoreCommission, "")
	tags["start_date"] = s.formatDateString(params.Start)
	tags["end_date"] = s.formatDateString(params.End)

	body := RenderTemplate(setting.AdminMessage, tags)
	if err := s.mailer.Deliver(ctx, recipient, setting.AdminSubject, body); err != nil {
		return false, err
	}
	logger.Infow("payout_report_delivered",
		"recipient", recipient,
		"groups", grouped.Len(),
		"amount", totals.Amount.StringFixed(2),
	)
	return true, nil
}

func (s *PayoutReceiptService) receiptListItem(product *models.Product, parts KeyParts, bucket *PayoutBucket, setting PayoutReceiptSetting) string {
	var b strings.Builder
	b.WriteString("<strong>")
	b.WriteString(productName(product, parts.DownloadID))
	b.WriteString("</strong>")
	if optionName := product.PriceOptionName(bucket.PriceID); optionName != "" {
		b.WriteString(" - ")
		b.WriteString(optionName)
	}
	if !setting.ShowAmounts {
		return b.String()
	}
	b.WriteString(" - ")
	b.WriteString(s.formatter.Money(bucket.Amount, parts.Currency))
	if setting.ShowCurrency {
		b.WriteString(" ")
		b.WriteString(parts.Currency)
	}
	if setting.ShowSales {
		b.WriteString(fmt.Sprintf(" (%d Sales)", bucket.SalesCount()))
	}
	return b.String()
}

func (s *PayoutReceiptService) reportListItem(user *models.User, bucket *PayoutBucket, setting PayoutReceiptSetting) string {
	var b strings.Builder
	b.WriteString("<strong>")
	b.WriteString(UserFullName(user))
	b.WriteString("</strong>")
	if setting.AdminShowPayoutEmail {
		b.WriteString(" (")
		b.WriteString(PayoutEmailOf(user))
		b.WriteString(")")
	}
	b.WriteString(" - ")
	b.WriteString(s.formatter.Money(bucket.Amount, bucket.Currency))
	if setting.ShowCurrency {
		b.WriteString(" ")
		b.WriteString(bucket.Currency)
	}
	if setting.ShowSales {
		b.WriteString(fmt.Sprintf(" (%d Sales)", bucket.SalesCount()))
	}
	return b.String()
}

func (s *PayoutReceiptService) lookupProduct(cache map[uint]*models.Product, id uint) (*models.Product, error) {
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

func (s *PayoutReceiptService) siteName() string {
	name, err := s.settings.GetSiteName(s.cfg.Payout.SiteName)
	if err != nil {
		logger.Warnw("payout_site_name_fetch_failed", "error", err)
	}
	return name
}

func (s *PayoutReceiptService) formatDate(t time.Time) string {
	layout := strings.TrimSpace(s.cfg.Payout.DateFormat)
	if layout == "" {
		layout = "January 2, 2006"
	}
	return t.Format(layout)
}

func (s *PayoutReceiptService) formatDateString(raw string) string {
	parsed, err := ParsePayoutDate(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return s.formatDate(parsed)
}

func productName(product *models.Product, id uint) string {
	if product == nil || strings.TrimSpace(product.Title) == "" {
		return fmt.Sprintf("#%d", id)
	}
	return product.Title
}

func filterCommissionsByUsers(records []models.Commission, userIDs []uint) []models.Commission {
	if len(userIDs) == 0 {
		return records
	}
	allowed := make(map[uint]struct{}, len(userIDs))
	for _, id := range userIDs {
		allowed[id] = struct{}{}
	}
	filtered := make([]models.Commission, 0, len(records))
	for _, record := range records {
		if _, ok := allowed[record.UserID]; ok {
			filtered = append(filtered, record)
		}
	}
	return filtered
}
