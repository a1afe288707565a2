package models

import (
	"time"

	"gorm.io/gorm"
)

// RouteComposition 路线编排表，一次规划运行的结果
type RouteComposition struct {
	ID           uint           `gorm:"primarykey" json:"id"`                          // 主键
	Name         string         `gorm:"type:varchar(200);not null" json:"name"`        // 名称
	Type         string         `gorm:"type:varchar(20);not null" json:"type"`         // 类型
	Status       string         `gorm:"type:varchar(20);index;not null" json:"status"` // 状态
	StartDate    *time.Time     `json:"start_date,omitempty"`                          // 配送单起始日期
	EndDate      *time.Time     `json:"end_date,omitempty"`                            // 配送单截止日期
	Observations string         `gorm:"type:text" json:"observations,omitempty"`       // 备注
	CreatedBy    *uint          `gorm:"index" json:"created_by,omitempty"`             // 创建人
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                    // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间

	LoadPlans []LoadPlan `gorm:"foreignKey:CompositionID" json:"load_plans,omitempty"`
}

// TableName 指定表名
func (RouteComposition) TableName() string {
	return "route_compositions"
}

// RouteCompositionDelivery 编排与配送单关联，delivery_id 全局唯一
type RouteCompositionDelivery struct {
	ID            uint      `gorm:"primarykey" json:"id"`                    // 主键
	CompositionID uint      `gorm:"index;not null" json:"composition_id"`    // 编排
	DeliveryID    uint      `gorm:"uniqueIndex;not null" json:"delivery_id"` // 配送单
	LoadPlanID    *uint     `gorm:"index" json:"load_plan_id,omitempty"`     // 装载计划（未分配为空）
	RouteAreaID   *uint     `gorm:"index" json:"route_area_id,omitempty"`    // 区域
	Sequence      int       `gorm:"not null;default:0" json:"sequence"`      // 顺序，未分配为 0
	CreatedAt     time.Time `json:"created_at"`                              // 创建时间
	UpdatedAt     time.Time `json:"updated_at"`                              // 更新时间

	Delivery *Delivery `gorm:"foreignKey:DeliveryID" json:"delivery,omitempty"`
}

// TableName 指定表名
func (RouteCompositionDelivery) TableName() string {
	return "route_composition_deliveries"
}
