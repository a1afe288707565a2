package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// maxUtilization 利用率列 decimal(12,2) 可容纳的上限
var maxUtilization = decimal.RequireFromString("9999999999.99")

// Percent 百分比（保留 2 位小数）
type Percent = Money

// LoadPlan 装载计划表，一辆车在一次编排中的装载
type LoadPlan struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                                   // 主键
	Code               string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`                      // 计划编号
	Name               string         `gorm:"type:varchar(200);not null" json:"name"`                                 // 计划名称
	CompositionID      *uint          `gorm:"index" json:"composition_id,omitempty"`                                  // 所属编排
	VehicleID          uint           `gorm:"index;not null" json:"vehicle_id"`                                       // 车辆
	RouteID            *uint          `gorm:"index" json:"route_id,omitempty"`                                        // 路线
	PlannedDate        time.Time      `gorm:"index" json:"planned_date"`                                              // 计划日期
	Status             string         `gorm:"type:varchar(20);index;not null" json:"status"`                          // 状态
	MaxWeightKG        Measure        `gorm:"type:decimal(12,3);not null;default:0" json:"max_weight_kg"`             // 载重快照
	MaxVolumeM3        Measure        `gorm:"type:decimal(12,3);not null;default:0" json:"max_volume_m3"`             // 容积快照
	TotalWeightKG      Measure        `gorm:"type:decimal(12,3);not null;default:0" json:"total_weight_kg"`           // 总重量
	TotalVolumeM3      Measure        `gorm:"type:decimal(12,3);not null;default:0" json:"total_volume_m3"`           // 总体积
	TotalValue         Money          `gorm:"type:decimal(14,2);not null;default:0" json:"total_value"`               // 总货值
	TotalDeliveries    int            `gorm:"not null;default:0" json:"total_deliveries"`                             // 配送单数
	WeightUtilization  Percent        `gorm:"type:decimal(12,2);not null;default:0" json:"weight_utilization"`        // 载重利用率 %
	VolumeUtilization  Percent        `gorm:"type:decimal(12,2);not null;default:0" json:"volume_utilization"`        // 容积利用率 %
	IsOverloaded       bool           `gorm:"not null;default:false" json:"is_overloaded"`                            // 是否超载
	OptimizationStatus string         `gorm:"type:varchar(20);not null;default:'pending'" json:"optimization_status"` // 路线优化状态
	OptimizationError  string         `gorm:"type:text" json:"optimization_error,omitempty"`                          // 路线优化错误
	CreatedBy          *uint          `gorm:"index" json:"created_by,omitempty"`                                      // 创建人
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                                // 创建时间
	UpdatedAt          time.Time      `json:"updated_at"`                                                             // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                         // 软删除时间

	Vehicle *Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Route   *Route   `gorm:"foreignKey:RouteID" json:"route,omitempty"`
}

// TableName 指定表名
func (LoadPlan) TableName() string {
	return "load_plans"
}

// LoadTotals 装载汇总输入
type LoadTotals struct {
	WeightKG   decimal.Decimal
	VolumeM3   decimal.Decimal
	Value      decimal.Decimal
	Deliveries int
}

// ApplyTotals 根据汇总值刷新总量、利用率与超载标记
func (lp *LoadPlan) ApplyTotals(totals LoadTotals) {
	lp.TotalWeightKG = NewMeasure(totals.WeightKG)
	lp.TotalVolumeM3 = NewMeasure(totals.VolumeM3)
	lp.TotalValue = NewMoneyFromDecimal(totals.Value)
	lp.TotalDeliveries = totals.Deliveries
	lp.WeightUtilization = NewMoneyFromDecimal(utilization(lp.TotalWeightKG.Decimal, lp.MaxWeightKG.Decimal))
	lp.VolumeUtilization = NewMoneyFromDecimal(utilization(lp.TotalVolumeM3.Decimal, lp.MaxVolumeM3.Decimal))
	lp.IsOverloaded = lp.Overloaded()
}

// Overloaded 重量或体积超过快照容量
func (lp *LoadPlan) Overloaded() bool {
	if lp == nil {
		return false
	}
	return lp.TotalWeightKG.GreaterThan(lp.MaxWeightKG.Decimal) || lp.TotalVolumeM3.GreaterThan(lp.MaxVolumeM3.Decimal)
}

// RemainingCapacity 剩余载重与容积，最小为 0
func (lp *LoadPlan) RemainingCapacity() (decimal.Decimal, decimal.Decimal) {
	if lp == nil {
		return decimal.Zero, decimal.Zero
	}
	weight := lp.MaxWeightKG.Sub(lp.TotalWeightKG.Decimal)
	volume := lp.MaxVolumeM3.Sub(lp.TotalVolumeM3.Decimal)
	return decimal.Max(weight, decimal.Zero), decimal.Max(volume, decimal.Zero)
}

func utilization(total, max decimal.Decimal) decimal.Decimal {
	if !max.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(total.Div(max).Mul(hundred).Round(2), maxUtilization)
}
