package models

import "time"

// UserAddress 用户账单地址
type UserAddress struct {
	ID        uint      `gorm:"primarykey" json:"id"`                // 主键
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"` // 用户ID
	Line1     string    `gorm:"default:''" json:"line1"`             // 地址行1
	Line2     string    `gorm:"default:''" json:"line2"`             // 地址行2
	City      string    `gorm:"default:''" json:"city"`              // 城市
	Zip       string    `gorm:"default:''" json:"zip"`               // 邮编
	State     string    `gorm:"default:''" json:"state"`             // 省/州
	Country   string    `gorm:"default:''" json:"country"`           // 国家
	UpdatedAt time.Time `json:"updated_at"`                          // 更新时间
}

// TableName 指定表名
func (UserAddress) TableName() string {
	return "user_addresses"
}
