package repository

import (
	"errors"

	"github.com/tms-next/internal/models"

	"gorm.io/gorm"
)

// VehicleRepository 车辆数据访问接口
type VehicleRepository interface {
	WithTx(tx *gorm.DB) *GormVehicleRepository
	GetByID(id uint) (*models.Vehicle, error)
	ListByIDs(ids []uint) ([]models.Vehicle, error)
	ListActiveByArea(areaID uint) ([]models.Vehicle, error)
	ListActiveWithoutArea() ([]models.Vehicle, error)
	ListActive() ([]models.Vehicle, error)
	Create(vehicle *models.Vehicle) error
}

// GormVehicleRepository GORM 实现
type GormVehicleRepository struct {
	db *gorm.DB
}

// NewVehicleRepository 创建车辆仓库
func NewVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVehicleRepository) WithTx(tx *gorm.DB) *GormVehicleRepository {
	if tx == nil {
		return r
	}
	return &GormVehicleRepository{db: tx}
}

// GetByID 根据 ID 获取车辆
func (r *GormVehicleRepository) GetByID(id uint) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := r.db.First(&vehicle, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vehicle, nil
}

// ListByIDs 批量获取车辆
func (r *GormVehicleRepository) ListByIDs(ids []uint) ([]models.Vehicle, error) {
	if len(ids) == 0 {
		return []models.Vehicle{}, nil
	}
	var vehicles []models.Vehicle
	if err := r.db.Where("id IN ?", ids).Order("id ASC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

// ListActiveByArea 区域内启用的车辆
func (r *GormVehicleRepository) ListActiveByArea(areaID uint) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := r.db.Where("route_area_id = ? AND is_active = ?", areaID, true).Order("id ASC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

// ListActiveWithoutArea 未绑定区域的启用车辆
func (r *GormVehicleRepository) ListActiveWithoutArea() ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := r.db.Where("route_area_id IS NULL AND is_active = ?", true).Order("id ASC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

// ListActive 全部启用车辆
func (r *GormVehicleRepository) ListActive() ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := r.db.Where("is_active = ?", true).Order("id ASC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

// Create 校验后创建车辆
func (r *GormVehicleRepository) Create(vehicle *models.Vehicle) error {
	if err := vehicle.Validate(); err != nil {
		return err
	}
	return r.db.Create(vehicle).Error
}
