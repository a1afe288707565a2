package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryListFilter 查询配送单列表的过滤条件
type DeliveryListFilter struct {
	Page        int
	PageSize    int
	Status      string
	City        string
	Keyword     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PlanningDeliveryFilter 规划运行的配送单筛选
type PlanningDeliveryFilter struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
}

// CompositionListFilter 查询编排列表的过滤条件
type CompositionListFilter struct {
	Page        int
	PageSize    int
	Status      string
	CreatedBy   *uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// NotificationListFilter 查询通知列表的过滤条件
type NotificationListFilter struct {
	Page       int
	PageSize   int
	UserID     uint
	UnreadOnly bool
}

// LinkStats 编排关联统计
type LinkStats struct {
	Total       int64
	WithPlan    int64
	WithoutPlan int64
}

// LoadSums 装载计划关联配送单汇总
type LoadSums struct {
	WeightKG   decimal.Decimal `gorm:"column:weight_kg"`
	VolumeM3   decimal.Decimal `gorm:"column:volume_m3"`
	Value      decimal.Decimal `gorm:"column:value"`
	Deliveries int             `gorm:"column:deliveries"`
}
