package repository

import "time"

// CommissionListFilter 查询佣金记录的过滤条件
type CommissionListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	PaymentID   uint
	Statuses    []string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CommissionUserListFilter 查询有佣金记录的用户
type CommissionUserListFilter struct {
	Page     int
	PageSize int
	Keyword  string
}
