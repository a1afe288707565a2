package repository

import (
	"errors"
	"strings"

	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/models"

	"gorm.io/gorm"
)

// DeliveryRepository 配送单数据访问接口
type DeliveryRepository interface {
	WithTx(tx *gorm.DB) *GormDeliveryRepository
	GetByID(id uint) (*models.Delivery, error)
	ListByIDs(ids []uint) ([]models.Delivery, error)
	ListPendingForPlanning(filter PlanningDeliveryFilter) ([]models.Delivery, error)
	ListMissingCoordinates(limit int) ([]models.Delivery, error)
	List(filter DeliveryListFilter) ([]models.Delivery, int64, error)
	ListByOrderNumbers(numbers []string) ([]models.Delivery, error)
	Create(delivery *models.Delivery) error
	CreateBatch(deliveries []models.Delivery) error
	UpdateStatus(ids []uint, status string) error
	UpdateCoordinates(id uint, latitude, longitude float64) error
	MarkGeocodeFailed(id uint) error
	UpdateColumns(id uint, columns map[string]interface{}) error
}

// GormDeliveryRepository GORM 实现
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository 创建配送单仓库
func NewDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDeliveryRepository) WithTx(tx *gorm.DB) *GormDeliveryRepository {
	if tx == nil {
		return r
	}
	return &GormDeliveryRepository{db: tx}
}

// GetByID 根据 ID 获取配送单
func (r *GormDeliveryRepository) GetByID(id uint) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.db.First(&delivery, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &delivery, nil
}

// ListByIDs 批量获取配送单（按 ID 升序）
func (r *GormDeliveryRepository) ListByIDs(ids []uint) ([]models.Delivery, error) {
	if len(ids) == 0 {
		return []models.Delivery{}, nil
	}
	var deliveries []models.Delivery
	if err := r.db.Where("id IN ?", ids).Order("id ASC").Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

// ListPendingForPlanning 待规划且已有坐标的配送单
func (r *GormDeliveryRepository) ListPendingForPlanning(filter PlanningDeliveryFilter) ([]models.Delivery, error) {
	query := r.db.Model(&models.Delivery{}).
		Where("status = ?", constants.DeliveryStatusPending).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL")
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var deliveries []models.Delivery
	if err := query.Order("id ASC").Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

// ListMissingCoordinates 缺少坐标且未标记失败的配送单
func (r *GormDeliveryRepository) ListMissingCoordinates(limit int) ([]models.Delivery, error) {
	query := r.db.Model(&models.Delivery{}).
		Where("(latitude IS NULL OR longitude IS NULL)").
		Where("geocode_failed = ?", false).
		Where("status = ?", constants.DeliveryStatusPending)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var deliveries []models.Delivery
	if err := query.Order("id ASC").Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

// List 配送单列表
func (r *GormDeliveryRepository) List(filter DeliveryListFilter) ([]models.Delivery, int64, error) {
	query := r.db.Model(&models.Delivery{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		query = query.Where("city = ?", city)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, args := buildLikeCondition(r.db, keyword, "order_number", "customer_name", "street")
		query = query.Where(condition, args...)
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

	var deliveries []models.Delivery
	if err := query.Order("id DESC").Find(&deliveries).Error; err != nil {
		return nil, 0, err
	}
	return deliveries, total, nil
}

// ListByOrderNumbers 按订单号批量查询
func (r *GormDeliveryRepository) ListByOrderNumbers(numbers []string) ([]models.Delivery, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	var deliveries []models.Delivery
	if err := r.db.Where("order_number IN ?", numbers).Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

// Create 创建配送单
func (r *GormDeliveryRepository) Create(delivery *models.Delivery) error {
	return r.db.Create(delivery).Error
}

// CreateBatch 批量创建配送单
func (r *GormDeliveryRepository) CreateBatch(deliveries []models.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	return r.db.CreateInBatches(&deliveries, 200).Error
}

// UpdateStatus 批量更新配送单状态
func (r *GormDeliveryRepository) UpdateStatus(ids []uint, status string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Delivery{}).Where("id IN ?", ids).Update("status", status).Error
}

// UpdateCoordinates 写入坐标并清除失败标记
func (r *GormDeliveryRepository) UpdateCoordinates(id uint, latitude, longitude float64) error {
	return r.db.Model(&models.Delivery{}).Where("id = ?", id).Updates(map[string]interface{}{
		"latitude":       latitude,
		"longitude":      longitude,
		"geocode_failed": false,
	}).Error
}

// MarkGeocodeFailed 标记地理编码失败
func (r *GormDeliveryRepository) MarkGeocodeFailed(id uint) error {
	return r.db.Model(&models.Delivery{}).Where("id = ?", id).Update("geocode_failed", true).Error
}

// UpdateColumns 定向更新字段
func (r *GormDeliveryRepository) UpdateColumns(id uint, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	return r.db.Model(&models.Delivery{}).Where("id = ?", id).Updates(columns).Error
}
