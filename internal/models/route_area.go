package models

import (
	"errors"
	"regexp"
	"time"

	"gorm.io/gorm"
)

// ErrRouteAreaColorInvalid 区域颜色必须为 #RRGGBB
var ErrRouteAreaColorInvalid = errors.New("route area color must be #RRGGBB")

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// RouteArea 配送区域表
type RouteArea struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                                    // 主键
	Name                string         `gorm:"type:varchar(120);not null" json:"name"`                  // 区域名称
	GeoJSON             string         `gorm:"column:geojson;type:text" json:"geojson"`                 // 区域多边形
	HexColor            string         `gorm:"type:varchar(7);not null;default:'#3388FF'" json:"color"` // 展示颜色
	Status              string         `gorm:"type:varchar(20);index;not null" json:"status"`           // 状态
	DepartureLocationID *uint          `gorm:"index" json:"departure_location_id,omitempty"`            // 发车地点
	CreatedAt           time.Time      `json:"created_at"`                                              // 创建时间
	UpdatedAt           time.Time      `json:"updated_at"`                                              // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间

	DepartureLocation *CompanyLocation `gorm:"foreignKey:DepartureLocationID" json:"departure_location,omitempty"`
}

// TableName 指定表名
func (RouteArea) TableName() string {
	return "route_areas"
}

// Validate 校验颜色格式
func (a *RouteArea) Validate() error {
	if a.HexColor != "" && !hexColorPattern.MatchString(a.HexColor) {
		return ErrRouteAreaColorInvalid
	}
	return nil
}
