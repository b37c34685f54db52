package repository

import (
	"strings"

	"github.com/dujiao-next/payout-receipts/internal/models"

	"gorm.io/gorm"
)

// CommissionRepository 佣金记录数据访问接口
type CommissionRepository interface {
	List(filter CommissionListFilter) ([]models.Commission, error)
	Count(filter CommissionListFilter) (int64, error)
	ListAdmin(filter CommissionListFilter) ([]models.Commission, int64, error)
	ListByPayment(paymentID uint) ([]models.Commission, error)
	ListUsers(filter CommissionUserListFilter) ([]models.User, int64, error)
	Create(commission *models.Commission) error
}

// GormCommissionRepository GORM 实现
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓库
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

func (r *GormCommissionRepository) applyFilter(query *gorm.DB, filter CommissionListFilter) *gorm.DB {
	if filter.UserID != 0 {
		query = query.Where("commissions.user_id = ?", filter.UserID)
	}
	if filter.PaymentID != 0 {
		query = query.Where("commissions.payment_id = ?", filter.PaymentID)
	}
	statuses := make([]string, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		if trimmed := strings.TrimSpace(status); trimmed != "" {
			statuses = append(statuses, trimmed)
		}
	}
	if len(statuses) > 0 {
		query = query.Where("commissions.status IN ?", statuses)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("commissions.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("commissions.created_at <= ?", *filter.CreatedTo)
	}
	return query
}

// List 按过滤条件分页查询佣金，PageSize 为 0 时不分页，按 ID 升序保证分页稳定
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.Commission, error) {
	query := r.applyFilter(r.db.Model(&models.Commission{}), filter)
	query = applyPagination(query, filter.Page, filter.PageSize)

	rows := make([]models.Commission, 0)
	if err := query.Order("commissions.id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count 统计符合条件的佣金数量
func (r *GormCommissionRepository) Count(filter CommissionListFilter) (int64, error) {
	var total int64
	if err := r.applyFilter(r.db.Model(&models.Commission{}), filter).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ListAdmin 后台佣金列表
func (r *GormCommissionRepository) ListAdmin(filter CommissionListFilter) ([]models.Commission, int64, error) {
	query := r.applyFilter(r.db.Model(&models.Commission{}).Preload("User"), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	rows := make([]models.Commission, 0)
	if err := query.Order("commissions.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListByPayment 查询某次支付产生的全部佣金
func (r *GormCommissionRepository) ListByPayment(paymentID uint) ([]models.Commission, error) {
	if paymentID == 0 {
		return []models.Commission{}, nil
	}
	rows := make([]models.Commission, 0)
	if err := r.db.Where("payment_id = ?", paymentID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListUsers 查询拥有佣金记录的用户
func (r *GormCommissionRepository) ListUsers(filter CommissionUserListFilter) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{}).
		Where("users.id IN (?)", r.db.Model(&models.Commission{}).Distinct("user_id"))
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, args := keywordCondition(r.db, keyword, "users.email", "users.username", "users.display_name")
		query = query.Where(condition, args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	users := make([]models.User, 0)
	if err := query.Order("users.id asc").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Create 创建佣金记录
func (r *GormCommissionRepository) Create(commission *models.Commission) error {
	return r.db.Create(commission).Error
}
