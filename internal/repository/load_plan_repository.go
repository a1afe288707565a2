package repository

import (
	"errors"

	"github.com/tms-next/internal/models"

	"gorm.io/gorm"
)

// LoadPlanRepository 装载计划数据访问接口
type LoadPlanRepository interface {
	WithTx(tx *gorm.DB) *GormLoadPlanRepository
	GetByID(id uint) (*models.LoadPlan, error)
	ListByComposition(compositionID uint) ([]models.LoadPlan, error)
	VehicleIDsInComposition(compositionID uint) (map[uint]bool, error)
	Create(plan *models.LoadPlan) error
	UpdateColumns(id uint, columns map[string]interface{}) error
	UpdateStatusByComposition(compositionID uint, status string) error
	DetachRoutes(compositionID uint) ([]uint, error)
	Delete(id uint) error
}

// GormLoadPlanRepository GORM 实现
type GormLoadPlanRepository struct {
	db *gorm.DB
}

// NewLoadPlanRepository 创建装载计划仓库
func NewLoadPlanRepository(db *gorm.DB) *GormLoadPlanRepository {
	return &GormLoadPlanRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLoadPlanRepository) WithTx(tx *gorm.DB) *GormLoadPlanRepository {
	if tx == nil {
		return r
	}
	return &GormLoadPlanRepository{db: tx}
}

// GetByID 根据 ID 获取装载计划（含车辆与路线）
func (r *GormLoadPlanRepository) GetByID(id uint) (*models.LoadPlan, error) {
	var plan models.LoadPlan
	err := r.db.Preload("Vehicle").
		Preload("Route").
		Preload("Route.Points", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&plan, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// ListByComposition 编排内的装载计划
func (r *GormLoadPlanRepository) ListByComposition(compositionID uint) ([]models.LoadPlan, error) {
	var plans []models.LoadPlan
	if err := r.db.Preload("Vehicle").
		Preload("Route").
		Where("composition_id = ?", compositionID).
		Order("id ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// VehicleIDsInComposition 编排内已有计划的车辆
func (r *GormLoadPlanRepository) VehicleIDsInComposition(compositionID uint) (map[uint]bool, error) {
	var ids []uint
	if err := r.db.Model(&models.LoadPlan{}).Where("composition_id = ?", compositionID).Pluck("vehicle_id", &ids).Error; err != nil {
		return nil, err
	}
	result := make(map[uint]bool, len(ids))
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// Create 创建装载计划
func (r *GormLoadPlanRepository) Create(plan *models.LoadPlan) error {
	return r.db.Omit("Vehicle", "Route").Create(plan).Error
}

// UpdateColumns 定向更新列，不触发钩子与更新时间以外的字段
func (r *GormLoadPlanRepository) UpdateColumns(id uint, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	return r.db.Model(&models.LoadPlan{}).Where("id = ?", id).Updates(columns).Error
}

// UpdateStatusByComposition 批量更新编排内计划状态
func (r *GormLoadPlanRepository) UpdateStatusByComposition(compositionID uint, status string) error {
	return r.db.Model(&models.LoadPlan{}).Where("composition_id = ?", compositionID).Update("status", status).Error
}

// DetachRoutes 解除编排内计划与路线的关联，返回被解除的路线 ID
func (r *GormLoadPlanRepository) DetachRoutes(compositionID uint) ([]uint, error) {
	var routeIDs []uint
	if err := r.db.Model(&models.LoadPlan{}).
		Where("composition_id = ? AND route_id IS NOT NULL", compositionID).
		Pluck("route_id", &routeIDs).Error; err != nil {
		return nil, err
	}
	if len(routeIDs) == 0 {
		return routeIDs, nil
	}
	if err := r.db.Model(&models.LoadPlan{}).
		Where("composition_id = ?", compositionID).
		Update("route_id", nil).Error; err != nil {
		return nil, err
	}
	return routeIDs, nil
}

// Delete 删除装载计划
func (r *GormLoadPlanRepository) Delete(id uint) error {
	return r.db.Delete(&models.LoadPlan{}, id).Error
}
