package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录（一次结账）
type Payment struct {
	ID          uint           `gorm:"primarykey" json:"id"`                               // 主键
	UserID      uint           `gorm:"index" json:"user_id"`                               // 买家用户ID（游客为 0）
	Email       string         `gorm:"not null" json:"email"`                              // 买家邮箱
	FirstName   string         `gorm:"default:''" json:"first_name"`                       // 买家名
	LastName    string         `gorm:"default:''" json:"last_name"`                        // 买家姓
	ReceiptID   string         `gorm:"uniqueIndex;not null" json:"receipt_id"`             // 收据编号
	Gateway     string         `gorm:"not null;default:''" json:"gateway"`                 // 支付方式
	IPAddress   string         `gorm:"default:''" json:"ip_address"`                       // 下单 IP
	Currency    string         `gorm:"not null" json:"currency"`                           // 币种
	Total       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total"` // 支付总额
	Status      string         `gorm:"index;not null" json:"status"`                       // 支付状态
	CompletedAt *time.Time     `gorm:"index" json:"completed_at"`                          // 完成时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间

	Address   PaymentAddress    `gorm:"embedded;embeddedPrefix:address_" json:"address"`  // 账单地址
	CartItems []PaymentCartItem `gorm:"foreignKey:PaymentID" json:"cart_items,omitempty"` // 购物车快照
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}

// PaymentAddress 支付时填写的账单地址
type PaymentAddress struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// PaymentCartItem 支付购物车项快照
type PaymentCartItem struct {
	ID         uint  `gorm:"primarykey" json:"id"`                                                // 主键
	PaymentID  uint  `gorm:"not null;index;uniqueIndex:idx_payment_cart_index" json:"payment_id"` // 支付ID
	CartIndex  uint  `gorm:"not null;uniqueIndex:idx_payment_cart_index" json:"cart_index"`       // 购物车序号
	DownloadID uint  `gorm:"not null;index" json:"download_id"`                                   // 商品ID
	PriceID    *uint `json:"price_id,omitempty"`                                                  // 价格选项
	Quantity   int   `gorm:"not null;default:1" json:"quantity"`                                  // 数量
	ItemPrice  Money `gorm:"type:decimal(20,2);not null;default:0" json:"item_price"`             // 单价
	Subtotal   Money `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`               // 小计
	Tax        Money `gorm:"type:decimal(20,2);not null;default:0" json:"tax"`                    // 税费
	Price      Money `gorm:"type:decimal(20,2);not null;default:0" json:"price"`                  // 含税实付
	Discount   Money `gorm:"type:decimal(20,2);not null;default:0" json:"discount"`               // 折扣
}

// TableName 指定表名
func (PaymentCartItem) TableName() string {
	return "payment_cart_items"
}
