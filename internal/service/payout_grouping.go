package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/logger"
	"github.com/dujiao-next/payout-receipts/internal/models"
	"github.com/dujiao-next/payout-receipts/internal/repository"

	"github.com/shopspring/decimal"
)

// PayoutBucket 同一分组键下的佣金汇总
type PayoutBucket struct {
	Email           string          `json:"email"`
	Currency        string          `json:"currency"`
	UserID          uint            `json:"user_id"`
	DownloadID      uint            `json:"download_id,omitempty"`
	PriceID         *uint           `json:"price_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	ItemPrice       decimal.Decimal `json:"item_price"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Price           decimal.Decimal `json:"price"`
	Discount        decimal.Decimal `json:"discount"`
	StoreCommission decimal.Decimal `json:"store_commission"`
	Commissions     []uint          `json:"commissions"`
	// Shares 每条佣金的金额明细，按佣金 ID 索引
	Shares map[uint]PayoutShare `json:"shares,omitempty"`
}

// PayoutShare 单条佣金计入分组的金额
type PayoutShare struct {
	Amount          decimal.Decimal `json:"amount"`
	ItemPrice       decimal.Decimal `json:"item_price"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Price           decimal.Decimal `json:"price"`
	Discount        decimal.Decimal `json:"discount"`
	StoreCommission decimal.Decimal `json:"store_commission"`
}

func (s PayoutShare) add(other PayoutShare) PayoutShare {
	return PayoutShare{
		Amount:          s.Amount.Add(other.Amount),
		ItemPrice:       s.ItemPrice.Add(other.ItemPrice),
		Subtotal:        s.Subtotal.Add(other.Subtotal),
		Tax:             s.Tax.Add(other.Tax),
		Price:           s.Price.Add(other.Price),
		Discount:        s.Discount.Add(other.Discount),
		StoreCommission: s.StoreCommission.Add(other.StoreCommission),
	}
}

func (s PayoutShare) sub(other PayoutShare) PayoutShare {
	return PayoutShare{
		Amount:          s.Amount.Sub(other.Amount),
		ItemPrice:       s.ItemPrice.Sub(other.ItemPrice),
		Subtotal:        s.Subtotal.Sub(other.Subtotal),
		Tax:             s.Tax.Sub(other.Tax),
		Price:           s.Price.Sub(other.Price),
		Discount:        s.Discount.Sub(other.Discount),
		StoreCommission: s.StoreCommission.Sub(other.StoreCommission),
	}
}

// SalesCount 汇总的佣金条数
func (b *PayoutBucket) SalesCount() int {
	return len(b.Commissions)
}

func (b *PayoutBucket) hasCommission(id uint) bool {
	for _, existing := range b.Commissions {
		if existing == id {
			return true
		}
	}
	return false
}

func (b *PayoutBucket) totals() PayoutShare {
	return PayoutShare{
		Amount:          b.Amount,
		ItemPrice:       b.ItemPrice,
		Subtotal:        b.Subtotal,
		Tax:             b.Tax,
		Price:           b.Price,
		Discount:        b.Discount,
		StoreCommission: b.StoreCommission,
	}
}

func (b *PayoutBucket) setTotals(t PayoutShare) {
	b.Amount = t.Amount
	b.ItemPrice = t.ItemPrice
	b.Subtotal = t.Subtotal
	b.Tax = t.Tax
	b.Price = t.Price
	b.Discount = t.Discount
	b.StoreCommission = t.StoreCommission
}

// shareOf 单条佣金的明细；只含一条佣金的桶即为该佣金本身
func (b *PayoutBucket) shareOf(id uint) (PayoutShare, bool) {
	if share, ok := b.Shares[id]; ok {
		return share, true
	}
	if len(b.Commissions) == 1 && b.Commissions[0] == id {
		return b.totals(), true
	}
	return PayoutShare{}, false
}

func (b *PayoutBucket) add(other *PayoutBucket) {
	b.setTotals(b.totals().add(other.totals()))
	for _, id := range other.Commissions {
		if share, ok := other.shareOf(id); ok {
			b.recordShare(id, share)
		}
	}
	b.Commissions = append(b.Commissions, other.Commissions...)
}

func (b *PayoutBucket) recordShare(id uint, share PayoutShare) {
	if b.Shares == nil {
		b.Shares = make(map[uint]PayoutShare, 1)
	}
	b.Shares[id] = share
}

func (b *PayoutBucket) clone() *PayoutBucket {
	copied := *b
	copied.Commissions = append([]uint(nil), b.Commissions...)
	copied.Shares = nil
	for _, id := range b.Commissions {
		if share, ok := b.shareOf(id); ok {
			copied.recordShare(id, share)
		}
	}
	return &copied
}

// mergeFrom 只累加尚未计入的佣金；重叠部分缺少明细无法拆分时不合并并返回 false
func (b *PayoutBucket) mergeFrom(incoming *PayoutBucket) bool {
	var fresh, overlap []uint
	seen := make(map[uint]struct{}, len(incoming.Commissions))
	for _, id := range incoming.Commissions {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if b.hasCommission(id) {
			overlap = append(overlap, id)
		} else {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return true
	}
	if len(overlap) == 0 && len(fresh) == len(incoming.Commissions) {
		b.add(incoming)
		return true
	}

	shares := make(map[uint]PayoutShare, len(fresh))
	for _, id := range fresh {
		share, ok := incoming.shareOf(id)
		if !ok {
			break
		}
		shares[id] = share
	}
	if len(shares) == len(fresh) {
		total := b.totals()
		for _, id := range fresh {
			total = total.add(shares[id])
			b.recordShare(id, shares[id])
			b.Commissions = append(b.Commissions, id)
		}
		b.setTotals(total)
		return true
	}

	// 新增佣金无明细时，用重叠部分的已知明细求差
	known := PayoutShare{}
	for _, id := range overlap {
		share, ok := incoming.shareOf(id)
		if !ok {
			share, ok = b.shareOf(id)
		}
		if !ok {
			return false
		}
		known = known.add(share)
	}
	b.setTotals(b.totals().add(incoming.totals().sub(known)))
	b.Commissions = append(b.Commissions, fresh...)
	return true
}

// GroupedPayouts 分组结果，Keys 保持首次出现顺序
type GroupedPayouts struct {
	Keys    []string                 `json:"keys"`
	Buckets map[string]*PayoutBucket `json:"buckets"`
}

// NewGroupedPayouts 创建空分组结果
func NewGroupedPayouts() *GroupedPayouts {
	return &GroupedPayouts{Keys: []string{}, Buckets: map[string]*PayoutBucket{}}
}

// Len 分组数量
func (g *GroupedPayouts) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Keys)
}

// Each 按首次出现顺序遍历
func (g *GroupedPayouts) Each(fn func(key string, bucket *PayoutBucket)) {
	if g == nil {
		return
	}
	for _, key := range g.Keys {
		if bucket, ok := g.Buckets[key]; ok {
			fn(key, bucket)
		}
	}
}

// Merge 合并另一份分组结果；按佣金 ID 去重，重放的佣金不重复累加
func (g *GroupedPayouts) Merge(other *GroupedPayouts) {
	if other == nil {
		return
	}
	if g.Buckets == nil {
		g.Buckets = map[string]*PayoutBucket{}
	}
	other.Each(func(key string, incoming *PayoutBucket) {
		existing, ok := g.Buckets[key]
		if !ok {
			g.Buckets[key] = incoming.clone()
			g.Keys = append(g.Keys, key)
			return
		}
		if !existing.mergeFrom(incoming) {
			logger.Warnw("payout_staging_merge_ambiguous",
				"group_key", key,
				"staged_commissions", len(existing.Commissions),
				"incoming_commissions", len(incoming.Commissions),
			)
		}
	})
}

// TotalAmount 所有分组金额合计
func (g *GroupedPayouts) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	g.Each(func(_ string, bucket *PayoutBucket) {
		total = total.Add(bucket.Amount)
	})
	return total
}

// CartItemResolver 根据支付与购物车序号解析购物车项
type CartItemResolver interface {
	ResolveCartItem(paymentID, cartIndex uint) (*models.PaymentCartItem, error)
}

// PayoutEmailResolver 解析用户的收款邮箱
type PayoutEmailResolver interface {
	ResolvePayoutEmail(userID uint) (string, error)
}

// RepositoryPayoutResolver 基于仓库的解析器实现
type RepositoryPayoutResolver struct {
	paymentRepo repository.PaymentRepository
	userRepo    repository.UserRepository
}

// NewRepositoryPayoutResolver 创建仓库解析器
func NewRepositoryPayoutResolver(paymentRepo repository.PaymentRepository, userRepo repository.UserRepository) *RepositoryPayoutResolver {
	return &RepositoryPayoutResolver{paymentRepo: paymentRepo, userRepo: userRepo}
}

// ResolveCartItem 查询购物车项，不存在返回 ErrUnresolvableReference
func (r *RepositoryPayoutResolver) ResolveCartItem(paymentID, cartIndex uint) (*models.PaymentCartItem, error) {
	if paymentID == 0 {
		return nil, ErrUnresolvableReference
	}
	item, err := r.paymentRepo.GetCartItem(paymentID, cartIndex)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrUnresolvableReference
	}
	return item, nil
}

// ResolvePayoutEmail 有效收款邮箱优先，否则回退账号邮箱
func (r *RepositoryPayoutResolver) ResolvePayoutEmail(userID uint) (string, error) {
	user, err := r.userRepo.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	return PayoutEmailOf(user), nil
}

// PayoutEmailOf 返回用户收款邮箱
func PayoutEmailOf(user *models.User) string {
	if user == nil {
		return ""
	}
	if isValidEmail(user.PayoutEmail) {
		return strings.TrimSpace(user.PayoutEmail)
	}
	return strings.TrimSpace(user.Email)
}

func isValidEmail(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	addr, err := mail.ParseAddress(trimmed)
	return err == nil && addr.Address == trimmed
}

// PayoutGroupingService 佣金分组汇总
type PayoutGroupingService struct {
	cartItems CartItemResolver
	emails    PayoutEmailResolver
	calcBase  string
}

// NewPayoutGroupingService 创建分组服务
func NewPayoutGroupingService(cartItems CartItemResolver, emails PayoutEmailResolver, calcBase string) *PayoutGroupingService {
	return &PayoutGroupingService{cartItems: cartItems, emails: emails, calcBase: normalizeCalcBase(calcBase)}
}

// Group 按模式汇总佣金记录，记录为空时返回空结果
func (s *PayoutGroupingService) Group(ctx context.Context, records []models.Commission, mode string) (*GroupedPayouts, error) {
	result := NewGroupedPayouts()
	if len(records) == 0 {
		return result, nil
	}
	emailCache := make(map[uint]string)
	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record := &records[i]
		email, ok := emailCache[record.UserID]
		if !ok {
			resolved, err := s.emails.ResolvePayoutEmail(record.UserID)
			if err != nil {
				return nil, err
			}
			email = resolved
			emailCache[record.UserID] = email
			if email == "" {
				logger.Warnw("payout_commission_user_missing",
					"commission_id", record.ID,
					"user_id", record.UserID,
				)
			}
		}

		bucket, err := s.bucketFor(record, email)
		if err != nil {
			return nil, err
		}
		key := EncodeGroupKey(KeyParts{
			DownloadID: record.DownloadID,
			PriceID:    PriceIDString(record.PriceID),
			UserID:     record.UserID,
			Email:      groupKeyEmail(email, record.UserID),
			Currency:   record.Currency,
		}, mode)

		if existing, ok := result.Buckets[key]; ok {
			existing.add(bucket)
			continue
		}
		result.Buckets[key] = bucket
		result.Keys = append(result.Keys, key)
	}
	return result, nil
}

func (s *PayoutGroupingService) bucketFor(record *models.Commission, email string) (*PayoutBucket, error) {
	bucket := &PayoutBucket{
		Email:           email,
		Currency:        record.Currency,
		UserID:          record.UserID,
		DownloadID:      record.DownloadID,
		PriceID:         record.PriceID,
		Amount:          record.Amount.Decimal,
		ItemPrice:       decimal.Zero,
		Subtotal:        decimal.Zero,
		Tax:             decimal.Zero,
		Price:           decimal.Zero,
		Discount:        decimal.Zero,
		StoreCommission: decimal.Zero,
		Commissions:     []uint{record.ID},
	}
	item, err := s.cartItems.ResolveCartItem(record.PaymentID, record.CartIndex)
	if err != nil {
		if !errors.Is(err, ErrUnresolvableReference) {
			return nil, err
		}
		logger.Debugw("payout_cart_item_unresolvable",
			"commission_id", record.ID,
			"payment_id", record.PaymentID,
			"cart_index", record.CartIndex,
		)
	} else {
		bucket.ItemPrice = item.ItemPrice.Decimal
		bucket.Subtotal = item.Subtotal.Decimal
		bucket.Tax = item.Tax.Decimal
		bucket.Price = item.Price.Decimal
		bucket.Discount = item.Discount.Decimal
		bucket.StoreCommission = StoreCommissionAmount(item, record.Amount.Decimal, s.calcBase)
	}
	bucket.recordShare(record.ID, bucket.totals())
	return bucket, nil
}

// groupKeyEmail 用户已不存在时以用户 ID 占位，避免哈希与邮箱模式下互相合并
func groupKeyEmail(email string, userID uint) string {
	if email != "" {
		return email
	}
	return "#user-" + formatUint(userID)
}

// StoreCommissionAmount 按计算基数得出店铺留存佣金
func StoreCommissionAmount(item *models.PaymentCartItem, amount decimal.Decimal, calcBase string) decimal.Decimal {
	if item == nil {
		return decimal.Zero
	}
	switch normalizeCalcBase(calcBase) {
	case constants.CalcBaseSubtotal:
		return item.Subtotal.Decimal.Sub(amount)
	case constants.CalcBaseTotalPreTax:
		return item.Price.Decimal.Sub(item.Tax.Decimal).Sub(amount)
	default:
		return item.Price.Decimal.Sub(amount)
	}
}

func normalizeCalcBase(calcBase string) string {
	trimmed := strings.ToLower(strings.TrimSpace(calcBase))
	if trimmed == "" {
		return constants.CalcBaseSubtotal
	}
	return trimmed
}
