package repository

import (
	"github.com/dujiao-next/payout-receipts/internal/models"

	"gorm.io/gorm"
)

// BatchJobRepository 批量任务数据访问接口
type BatchJobRepository interface {
	GetByID(id string) (*models.BatchJob, error)
	Create(job *models.BatchJob) error
	Update(job *models.BatchJob) error
}

// GormBatchJobRepository GORM 实现
type GormBatchJobRepository struct {
	db *gorm.DB
}

// NewBatchJobRepository 创建批量任务仓库
func NewBatchJobRepository(db *gorm.DB) *GormBatchJobRepository {
	return &GormBatchJobRepository{db: db}
}

// GetByID 根据 ID 获取任务
func (r *GormBatchJobRepository) GetByID(id string) (*models.BatchJob, error) {
	if id == "" {
		return nil, nil
	}
	return findOne[models.BatchJob](r.db.Where("id = ?", id))
}

// Create 创建任务
func (r *GormBatchJobRepository) Create(job *models.BatchJob) error {
	return r.db.Create(job).Error
}

// Update 更新任务
func (r *GormBatchJobRepository) Update(job *models.BatchJob) error {
	return r.db.Save(job).Error
}
