package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Route 路线表，由所属装载计划独占
type Route struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                     // 主键
	Name        string    `gorm:"type:varchar(200);not null" json:"name"`                   // 路线名称
	Color       string    `gorm:"type:varchar(7)" json:"color"`                             // 展示颜色
	RouteAreaID *uint     `gorm:"index" json:"route_area_id,omitempty"`                     // 区域
	Stops       int       `gorm:"not null;default:0" json:"stops"`                          // 站点数
	DistanceKM  Measure   `gorm:"type:decimal(12,3);not null;default:0" json:"distance_km"` // 里程
	TimeMin     Measure   `gorm:"type:decimal(12,3);not null;default:0" json:"time_min"`    // 预计时长（分钟）
	Geometry    JSON      `gorm:"type:json" json:"geometry,omitempty"`                      // 路线几何 GeoJSON
	CreatedAt   time.Time `json:"created_at"`                                               // 创建时间
	UpdatedAt   time.Time `json:"updated_at"`                                               // 更新时间

	Points []RouteStop `gorm:"foreignKey:RouteID" json:"points,omitempty"`
}

// TableName 指定表名
func (Route) TableName() string {
	return "routes"
}

// RouteStop 路线站点，position 从 1 开始
type RouteStop struct {
	ID         uint     `gorm:"primarykey" json:"id"`
	RouteID    uint     `gorm:"uniqueIndex:idx_route_stop_delivery;not null" json:"route_id"`
	DeliveryID uint     `gorm:"uniqueIndex:idx_route_stop_delivery;not null" json:"delivery_id"`
	Position   int      `gorm:"not null" json:"position"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

// TableName 指定表名
func (RouteStop) TableName() string {
	return "route_stops"
}

// SetMetrics 按米与秒写入里程与时长
func (r *Route) SetMetrics(distanceMeters, durationSeconds float64) {
	r.DistanceKM = NewMeasure(decimal.NewFromFloat(distanceMeters).Div(decimal.NewFromInt(1000)))
	r.TimeMin = NewMeasure(decimal.NewFromFloat(durationSeconds).Div(decimal.NewFromInt(60)))
}
