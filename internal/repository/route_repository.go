package repository

import (
	"errors"

	"github.com/tms-next/internal/models"

	"gorm.io/gorm"
)

// RouteRepository 路线数据访问接口
type RouteRepository interface {
	WithTx(tx *gorm.DB) *GormRouteRepository
	GetByID(id uint) (*models.Route, error)
	Create(route *models.Route) error
	UpdateMetrics(route *models.Route) error
	ReplaceStops(routeID uint, stops []models.RouteStop) error
	DeleteByIDs(ids []uint) error
}

// GormRouteRepository GORM 实现
type GormRouteRepository struct {
	db *gorm.DB
}

// NewRouteRepository 创建路线仓库
func NewRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRouteRepository) WithTx(tx *gorm.DB) *GormRouteRepository {
	if tx == nil {
		return r
	}
	return &GormRouteRepository{db: tx}
}

// GetByID 根据 ID 获取路线（站点按顺序）
func (r *GormRouteRepository) GetByID(id uint) (*models.Route, error) {
	var route models.Route
	err := r.db.Preload("Points", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&route, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &route, nil
}

// Create 创建路线
func (r *GormRouteRepository) Create(route *models.Route) error {
	return r.db.Omit("Points").Create(route).Error
}

// UpdateMetrics 写入站点数、里程、时长与几何
func (r *GormRouteRepository) UpdateMetrics(route *models.Route) error {
	if route == nil {
		return nil
	}
	return r.db.Model(&models.Route{}).Where("id = ?", route.ID).Updates(map[string]interface{}{
		"stops":       route.Stops,
		"distance_km": route.DistanceKM,
		"time_min":    route.TimeMin,
		"geometry":    route.Geometry,
	}).Error
}

// ReplaceStops 先删后建路线站点
func (r *GormRouteRepository) ReplaceStops(routeID uint, stops []models.RouteStop) error {
	if err := r.db.Where("route_id = ?", routeID).Delete(&models.RouteStop{}).Error; err != nil {
		return err
	}
	if len(stops) == 0 {
		return nil
	}
	for i := range stops {
		stops[i].ID = 0
		stops[i].RouteID = routeID
	}
	return r.db.Create(&stops).Error
}

// DeleteByIDs 先删站点再删路线
func (r *GormRouteRepository) DeleteByIDs(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("route_id IN ?", ids).Delete(&models.RouteStop{}).Error; err != nil {
		return err
	}
	return r.db.Where("id IN ?", ids).Delete(&models.Route{}).Error
}
