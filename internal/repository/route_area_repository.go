package repository

import (
	"errors"

	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/models"

	"gorm.io/gorm"
)

// RouteAreaRepository 配送区域数据访问接口
type RouteAreaRepository interface {
	WithTx(tx *gorm.DB) *GormRouteAreaRepository
	GetByID(id uint) (*models.RouteArea, error)
	ListActive() ([]models.RouteArea, error)
	Create(area *models.RouteArea) error
}

// GormRouteAreaRepository GORM 实现
type GormRouteAreaRepository struct {
	db *gorm.DB
}

// NewRouteAreaRepository 创建区域仓库
func NewRouteAreaRepository(db *gorm.DB) *GormRouteAreaRepository {
	return &GormRouteAreaRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRouteAreaRepository) WithTx(tx *gorm.DB) *GormRouteAreaRepository {
	if tx == nil {
		return r
	}
	return &GormRouteAreaRepository{db: tx}
}

// GetByID 根据 ID 获取区域（含发车地点）
func (r *GormRouteAreaRepository) GetByID(id uint) (*models.RouteArea, error) {
	var area models.RouteArea
	if err := r.db.Preload("DepartureLocation").First(&area, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &area, nil
}

// ListActive 启用的区域，按 ID 升序
func (r *GormRouteAreaRepository) ListActive() ([]models.RouteArea, error) {
	var areas []models.RouteArea
	if err := r.db.Preload("DepartureLocation").
		Where("status = ?", constants.RouteAreaStatusActive).
		Order("id ASC").
		Find(&areas).Error; err != nil {
		return nil, err
	}
	return areas, nil
}

// Create 校验后创建区域
func (r *GormRouteAreaRepository) Create(area *models.RouteArea) error {
	if err := area.Validate(); err != nil {
		return err
	}
	return r.db.Create(area).Error
}
