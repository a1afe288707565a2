package repository

import (
	"errors"

	"github.com/tms-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompositionRepository 路线编排数据访问接口
type CompositionRepository interface {
	WithTx(tx *gorm.DB) *GormCompositionRepository
	GetByID(id uint) (*models.RouteComposition, error)
	GetByIDForUpdate(id uint) (*models.RouteComposition, error)
	List(filter CompositionListFilter) ([]models.RouteComposition, int64, error)
	Create(composition *models.RouteComposition) error
	UpdateStatus(id uint, status string) error
}

// GormCompositionRepository GORM 实现
type GormCompositionRepository struct {
	db *gorm.DB
}

// NewCompositionRepository 创建编排仓库
func NewCompositionRepository(db *gorm.DB) *GormCompositionRepository {
	return &GormCompositionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCompositionRepository) WithTx(tx *gorm.DB) *GormCompositionRepository {
	if tx == nil {
		return r
	}
	return &GormCompositionRepository{db: tx}
}

// GetByID 根据 ID 获取编排
func (r *GormCompositionRepository) GetByID(id uint) (*models.RouteComposition, error) {
	var composition models.RouteComposition
	if err := r.db.First(&composition, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &composition, nil
}

// GetByIDForUpdate 加行锁读取编排（sqlite 忽略锁）
func (r *GormCompositionRepository) GetByIDForUpdate(id uint) (*models.RouteComposition, error) {
	query := r.db
	if dbDialectName(r.db) != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var composition models.RouteComposition
	if err := query.First(&composition, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &composition, nil
}

// List 编排列表
func (r *GormCompositionRepository) List(filter CompositionListFilter) ([]models.RouteComposition, int64, error) {
	query := r.db.Model(&models.RouteComposition{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var compositions []models.RouteComposition
	if err := query.Order("id DESC").Find(&compositions).Error; err != nil {
		return nil, 0, err
	}
	return compositions, total, nil
}

// Create 创建编排
func (r *GormCompositionRepository) Create(composition *models.RouteComposition) error {
	return r.db.Omit("LoadPlans").Create(composition).Error
}

// UpdateStatus 更新编排状态
func (r *GormCompositionRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.RouteComposition{}).Where("id = ?", id).Update("status", status).Error
}
