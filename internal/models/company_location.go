package models

import (
	"time"

	"gorm.io/gorm"
)

// CompanyLocation 公司站点表（仓库、发车点）
type CompanyLocation struct {
	ID           uint           `gorm:"primarykey" json:"id"`                             // 主键
	Name         string         `gorm:"type:varchar(120);not null" json:"name"`           // 名称
	Type         string         `gorm:"type:varchar(40)" json:"type"`                     // 类型
	Street       string         `gorm:"type:varchar(255)" json:"street"`                  // 街道
	Number       string         `gorm:"type:varchar(20)" json:"number"`                   // 门牌号
	Neighborhood string         `gorm:"type:varchar(120)" json:"neighborhood"`            // 街区
	City         string         `gorm:"type:varchar(120)" json:"city"`                    // 城市
	State        string         `gorm:"type:varchar(2)" json:"state"`                     // 州
	PostalCode   string         `gorm:"type:varchar(9)" json:"postal_code"`               // 邮编
	Latitude     *float64       `json:"latitude"`                                         // 纬度
	Longitude    *float64       `json:"longitude"`                                        // 经度
	IsActive     bool           `gorm:"not null;default:true;index" json:"is_active"`     // 是否启用
	IsPrincipal  bool           `gorm:"not null;default:false;index" json:"is_principal"` // 是否主站点
	CreatedAt    time.Time      `json:"created_at"`                                       // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                       // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                   // 软删除时间
}

// TableName 指定表名
func (CompanyLocation) TableName() string {
	return "company_locations"
}

// HasCoordinates 是否已有坐标
func (l *CompanyLocation) HasCoordinates() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}
