package repository

import (
	"errors"

	"github.com/tms-next/internal/models"

	"gorm.io/gorm"
)

// CompanyLocationRepository 公司站点数据访问接口
type CompanyLocationRepository interface {
	GetByID(id uint) (*models.CompanyLocation, error)
	GetPrincipal() (*models.CompanyLocation, error)
	Create(location *models.CompanyLocation) error
	SetPrincipal(id uint) error
}

// GormCompanyLocationRepository GORM 实现
type GormCompanyLocationRepository struct {
	db *gorm.DB
}

// NewCompanyLocationRepository 创建站点仓库
func NewCompanyLocationRepository(db *gorm.DB) *GormCompanyLocationRepository {
	return &GormCompanyLocationRepository{db: db}
}

// GetByID 根据 ID 获取站点
func (r *GormCompanyLocationRepository) GetByID(id uint) (*models.CompanyLocation, error) {
	var location models.CompanyLocation
	if err := r.db.First(&location, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &location, nil
}

// GetPrincipal 启用的主站点
func (r *GormCompanyLocationRepository) GetPrincipal() (*models.CompanyLocation, error) {
	var location models.CompanyLocation
	if err := r.db.Where("is_principal = ? AND is_active = ?", true, true).Order("id ASC").First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &location, nil
}

// Create 创建站点
func (r *GormCompanyLocationRepository) Create(location *models.CompanyLocation) error {
	return r.db.Create(location).Error
}

// SetPrincipal 设为主站点，其余站点取消主站点标记
func (r *GormCompanyLocationRepository) SetPrincipal(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.CompanyLocation{}).Where("id = ?", id).Update("is_principal", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.CompanyLocation{}).
			Where("id <> ? AND is_principal = ?", id, true).
			Update("is_principal", false).Error
	})
}
