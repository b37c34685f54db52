package repository

import (
	"github.com/dujiao-next/payout-receipts/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository 支付记录数据访问接口
type PaymentRepository interface {
	GetByID(id uint) (*models.Payment, error)
	GetCartItem(paymentID, cartIndex uint) (*models.PaymentCartItem, error)
	Create(payment *models.Payment) error
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// GetByID 根据 ID 获取支付记录（含购物车快照）
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	return findOne[models.Payment](r.db.Preload("CartItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("cart_index asc")
	}).Where("id = ?", id))
}

// GetCartItem 获取支付中指定序号的购物车项
func (r *GormPaymentRepository) GetCartItem(paymentID, cartIndex uint) (*models.PaymentCartItem, error) {
	return findOne[models.PaymentCartItem](r.db.Where("payment_id = ? AND cart_index = ?", paymentID, cartIndex))
}

// Create 创建支付记录（连同购物车快照）
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}
