package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID            uint           `gorm:"primarykey" json:"id"`                               // 主键
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"`                   // 唯一标识
	Title         string         `gorm:"not null" json:"title"`                              // 商品名称
	PriceAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 基础价格
	VariablePrice bool           `gorm:"not null;default:false" json:"variable_price"`       // 是否多价格选项
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间

	Prices []ProductPrice `gorm:"foreignKey:ProductID" json:"prices,omitempty"` // 价格选项
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// ProductPrice 商品价格选项
type ProductPrice struct {
	ID        uint   `gorm:"primarykey" json:"id"`                                                 // 主键
	ProductID uint   `gorm:"not null;index;uniqueIndex:idx_product_price_index" json:"product_id"` // 商品ID
	Index     uint   `gorm:"not null;uniqueIndex:idx_product_price_index" json:"index"`            // 价格选项序号
	Name      string `gorm:"not null" json:"name"`                                                 // 价格选项名称
	Amount    Money  `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                  // 价格
}

// TableName 指定表名
func (ProductPrice) TableName() string {
	return "product_prices"
}

// PriceOptionName 返回价格选项名称，未找到时返回空
func (p *Product) PriceOptionName(index *uint) string {
	if p == nil || index == nil || !p.VariablePrice {
		return ""
	}
	for _, price := range p.Prices {
		if price.Index == *index {
			return price.Name
		}
	}
	return ""
}
