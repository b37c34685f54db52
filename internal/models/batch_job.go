package models

import "time"

// BatchJob 分步批量任务（生成付款文件 / 发送付款回执）
type BatchJob struct {
	ID         string    `gorm:"primarykey;type:varchar(36)" json:"id"`         // 任务ID（UUID）
	Type       string    `gorm:"type:varchar(64);not null;index" json:"type"`   // 导出类型
	AdminID    uint      `gorm:"not null;index" json:"admin_id"`                // 发起管理员
	Params     JSON      `gorm:"type:json" json:"params"`                       // 提交参数
	Step       int       `gorm:"not null;default:0" json:"step"`                // 已执行步骤
	Status     string    `gorm:"type:varchar(20);not null;index" json:"status"` // 任务状态
	Percentage int       `gorm:"not null;default:0" json:"percentage"`          // 进度百分比
	Message    string    `gorm:"type:text" json:"message"`                      // 结束提示
	FilePath   string    `gorm:"type:varchar(500)" json:"-"`                    // 输出文件路径
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt  time.Time `json:"updated_at"`                                    // 更新时间
}

// TableName 指定表名
func (BatchJob) TableName() string {
	return "batch_jobs"
}
