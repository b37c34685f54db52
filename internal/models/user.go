package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（佣金收款人）
type User struct {
	ID                        uint           `gorm:"primarykey" json:"id"`                                // 主键
	Email                     string         `gorm:"uniqueIndex;not null" json:"email"`                   // 邮箱
	Username                  string         `gorm:"uniqueIndex;not null" json:"username"`                // 登录名
	DisplayName               string         `gorm:"default:''" json:"display_name"`                      // 昵称
	FirstName                 string         `gorm:"default:''" json:"first_name"`                        // 名
	LastName                  string         `gorm:"default:''" json:"last_name"`                         // 姓
	PayoutEmail               string         `gorm:"default:''" json:"payout_email"`                      // 收款邮箱
	DisableSaleAlerts         bool           `gorm:"not null;default:false" json:"disable_sale_alerts"`   // 关闭销售提醒
	DisableFreePurchaseAlerts bool           `gorm:"not null;default:false" json:"disable_free_purchase"` // 关闭免费订单提醒
	Status                    string         `gorm:"default:'active'" json:"status"`                      // 账号状态
	CreatedAt                 time.Time      `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt                 time.Time      `gorm:"index" json:"updated_at"`                             // 更新时间
	DeletedAt                 gorm.DeletedAt `gorm:"index" json:"-"`                                      // 软删除时间

	Address *UserAddress `gorm:"foreignKey:UserID" json:"address,omitempty"` // 账单地址
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
