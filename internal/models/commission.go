package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission 单笔销售佣金记录
type Commission struct {
	ID         uint           `gorm:"primarykey" json:"id"`                                       // 主键
	UserID     uint           `gorm:"not null;index" json:"user_id"`                              // 收款用户ID
	DownloadID uint           `gorm:"not null;index" json:"download_id"`                          // 商品ID
	PriceID    *uint          `json:"price_id,omitempty"`                                         // 价格选项
	PaymentID  uint           `gorm:"not null;index" json:"payment_id"`                           // 支付ID
	CartIndex  uint           `gorm:"not null;default:0" json:"cart_index"`                       // 购物车序号
	Amount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`        // 佣金金额
	Rate       Money          `gorm:"type:decimal(10,2);not null;default:0" json:"rate"`          // 佣金比例或固定金额
	Type       string         `gorm:"type:varchar(20);not null;default:'percentage'" json:"type"` // 佣金类型
	Currency   string         `gorm:"type:varchar(10);not null" json:"currency"`                  // 币种
	Status     string         `gorm:"type:varchar(20);not null;index" json:"status"`              // 佣金状态
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt  time.Time      `json:"updated_at"`                                                 // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"` // 收款用户
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}
