package repository

import (
	"errors"

	"github.com/tms-next/internal/models"

	"gorm.io/gorm"
)

// CompositionDeliveryRepository 编排与配送单关联数据访问接口
type CompositionDeliveryRepository interface {
	WithTx(tx *gorm.DB) *GormCompositionDeliveryRepository
	GetByDelivery(deliveryID uint) (*models.RouteCompositionDelivery, error)
	ListByComposition(compositionID uint) ([]models.RouteCompositionDelivery, error)
	ListUnassigned(compositionID uint) ([]models.RouteCompositionDelivery, error)
	ListByLoadPlan(loadPlanID uint) ([]models.RouteCompositionDelivery, error)
	DeliveryIDsByLoadPlan(loadPlanID uint) ([]uint, error)
	Create(link *models.RouteCompositionDelivery) error
	CreateBatch(links []models.RouteCompositionDelivery) error
	AssignToLoadPlan(compositionID uint, deliveryIDs []uint, loadPlanID *uint, startSequence int) error
	MaxSequence(loadPlanID uint) (int, error)
	ClearLoadPlan(loadPlanID uint) error
	DeleteByIDs(ids []uint) error
	DeleteByComposition(compositionID uint) error
	SumByLoadPlan(loadPlanID uint) (LoadSums, error)
	Stats(compositionID uint) (LinkStats, error)
}

// GormCompositionDeliveryRepository GORM 实现
type GormCompositionDeliveryRepository struct {
	db *gorm.DB
}

// NewCompositionDeliveryRepository 创建关联仓库
func NewCompositionDeliveryRepository(db *gorm.DB) *GormCompositionDeliveryRepository {
	return &GormCompositionDeliveryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCompositionDeliveryRepository) WithTx(tx *gorm.DB) *GormCompositionDeliveryRepository {
	if tx == nil {
		return r
	}
	return &GormCompositionDeliveryRepository{db: tx}
}

// GetByDelivery 配送单当前所在的关联
func (r *GormCompositionDeliveryRepository) GetByDelivery(deliveryID uint) (*models.RouteCompositionDelivery, error) {
	var link models.RouteCompositionDelivery
	if err := r.db.Where("delivery_id = ?", deliveryID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// ListByComposition 编排全部关联
func (r *GormCompositionDeliveryRepository) ListByComposition(compositionID uint) ([]models.RouteCompositionDelivery, error) {
	var links []models.RouteCompositionDelivery
	if err := r.db.Where("composition_id = ?", compositionID).Order("id ASC").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// ListUnassigned 编排内未分配装载计划的关联
func (r *GormCompositionDeliveryRepository) ListUnassigned(compositionID uint) ([]models.RouteCompositionDelivery, error) {
	var links []models.RouteCompositionDelivery
	if err := r.db.Where("composition_id = ? AND load_plan_id IS NULL", compositionID).Order("id ASC").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// ListByLoadPlan 装载计划的关联（含配送单），按顺序
func (r *GormCompositionDeliveryRepository) ListByLoadPlan(loadPlanID uint) ([]models.RouteCompositionDelivery, error) {
	var links []models.RouteCompositionDelivery
	if err := r.db.Preload("Delivery").
		Where("load_plan_id = ?", loadPlanID).
		Order("sequence ASC, id ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// DeliveryIDsByLoadPlan 装载计划关联的配送单 ID
func (r *GormCompositionDeliveryRepository) DeliveryIDsByLoadPlan(loadPlanID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.RouteCompositionDelivery{}).
		Where("load_plan_id = ?", loadPlanID).
		Order("sequence ASC, id ASC").
		Pluck("delivery_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Create 创建单条关联，delivery_id 冲突时返回 ErrDuplicateKey
func (r *GormCompositionDeliveryRepository) Create(link *models.RouteCompositionDelivery) error {
	if err := r.db.Omit("Delivery").Create(link).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// CreateBatch 批量创建关联
func (r *GormCompositionDeliveryRepository) CreateBatch(links []models.RouteCompositionDelivery) error {
	if len(links) == 0 {
		return nil
	}
	if err := r.db.Omit("Delivery").Create(&links).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// AssignToLoadPlan 将编排内的配送单指向装载计划，顺序从 startSequence 开始递增
func (r *GormCompositionDeliveryRepository) AssignToLoadPlan(compositionID uint, deliveryIDs []uint, loadPlanID *uint, startSequence int) error {
	for i, deliveryID := range deliveryIDs {
		sequence := 0
		if loadPlanID != nil {
			sequence = startSequence + i
		}
		if err := r.db.Model(&models.RouteCompositionDelivery{}).
			Where("composition_id = ? AND delivery_id = ?", compositionID, deliveryID).
			Updates(map[string]interface{}{
				"load_plan_id": loadPlanID,
				"sequence":     sequence,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// MaxSequence 装载计划当前最大顺序号
func (r *GormCompositionDeliveryRepository) MaxSequence(loadPlanID uint) (int, error) {
	var max int
	if err := r.db.Model(&models.RouteCompositionDelivery{}).
		Select("COALESCE(MAX(sequence), 0)").
		Where("load_plan_id = ?", loadPlanID).
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

// ClearLoadPlan 装载计划删除时将关联置空
func (r *GormCompositionDeliveryRepository) ClearLoadPlan(loadPlanID uint) error {
	return r.db.Model(&models.RouteCompositionDelivery{}).
		Where("load_plan_id = ?", loadPlanID).
		Updates(map[string]interface{}{
			"load_plan_id": nil,
			"sequence":     0,
		}).Error
}

// DeleteByIDs 按 ID 删除关联
func (r *GormCompositionDeliveryRepository) DeleteByIDs(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Where("id IN ?", ids).Delete(&models.RouteCompositionDelivery{}).Error
}

// DeleteByComposition 删除编排全部关联
func (r *GormCompositionDeliveryRepository) DeleteByComposition(compositionID uint) error {
	return r.db.Where("composition_id = ?", compositionID).Delete(&models.RouteCompositionDelivery{}).Error
}

// SumByLoadPlan 汇总装载计划关联配送单的重量、体积、货值与数量
func (r *GormCompositionDeliveryRepository) SumByLoadPlan(loadPlanID uint) (LoadSums, error) {
	var sums LoadSums
	err := r.db.Table("route_composition_deliveries AS l").
		Select("COALESCE(SUM(d.weight_kg), 0) AS weight_kg, COALESCE(SUM(d.volume_m3), 0) AS volume_m3, COALESCE(SUM(d.value), 0) AS value, COUNT(l.id) AS deliveries").
		Joins("JOIN deliveries d ON d.id = l.delivery_id").
		Where("l.load_plan_id = ?", loadPlanID).
		Scan(&sums).Error
	return sums, err
}

// Stats 编排关联统计
func (r *GormCompositionDeliveryRepository) Stats(compositionID uint) (LinkStats, error) {
	var stats LinkStats
	base := r.db.Model(&models.RouteCompositionDelivery{}).Where("composition_id = ?", compositionID)
	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}
	if err := base.Session(&gorm.Session{}).Where("load_plan_id IS NOT NULL").Count(&stats.WithPlan).Error; err != nil {
		return stats, err
	}
	stats.WithoutPlan = stats.Total - stats.WithPlan
	return stats, nil
}
