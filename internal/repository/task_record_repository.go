package repository

import (
	"errors"

	"github.com/tms-next/internal/models"

	"gorm.io/gorm"
)

// TaskRecordRepository 任务进度数据访问接口
type TaskRecordRepository interface {
	GetByTaskID(taskID string) (*models.TaskRecord, error)
	Create(record *models.TaskRecord) error
	UpdateColumns(taskID string, columns map[string]interface{}) error
}

// GormTaskRecordRepository GORM 实现
type GormTaskRecordRepository struct {
	db *gorm.DB
}

// NewTaskRecordRepository 创建任务进度仓库
func NewTaskRecordRepository(db *gorm.DB) *GormTaskRecordRepository {
	return &GormTaskRecordRepository{db: db}
}

// GetByTaskID 根据任务 ID 获取记录
func (r *GormTaskRecordRepository) GetByTaskID(taskID string) (*models.TaskRecord, error) {
	var record models.TaskRecord
	if err := r.db.Where("task_id = ?", taskID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Create 创建任务记录
func (r *GormTaskRecordRepository) Create(record *models.TaskRecord) error {
	return r.db.Create(record).Error
}

// UpdateColumns 定向更新任务记录
func (r *GormTaskRecordRepository) UpdateColumns(taskID string, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	return r.db.Model(&models.TaskRecord{}).Where("task_id = ?", taskID).Updates(columns).Error
}
