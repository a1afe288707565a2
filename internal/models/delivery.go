package models

import (
	"strings"
	"time"
)

// Delivery 配送单表
type Delivery struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNumber   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_number"` // 订单号
	CustomerName  string    `gorm:"type:varchar(200);not null" json:"customer_name"`           // 收货人
	Phone         string    `gorm:"type:varchar(40)" json:"phone,omitempty"`                   // 联系电话
	Street        string    `gorm:"type:varchar(255)" json:"street"`                           // 街道
	Number        string    `gorm:"type:varchar(20)" json:"number"`                            // 门牌号
	Neighborhood  string    `gorm:"type:varchar(120)" json:"neighborhood"`                     // 街区
	City          string    `gorm:"type:varchar(120);index" json:"city"`                       // 城市
	State         string    `gorm:"type:varchar(2)" json:"state"`                              // 州
	PostalCode    string    `gorm:"type:varchar(9)" json:"postal_code"`                        // 邮编
	Reference     string    `gorm:"type:varchar(255)" json:"reference,omitempty"`              // 地址参考
	Observation   string    `gorm:"type:text" json:"observation,omitempty"`                    // 备注
	Latitude      *float64  `json:"latitude"`                                                  // 纬度
	Longitude     *float64  `json:"longitude"`                                                 // 经度
	WeightKG      Measure   `gorm:"type:decimal(12,3);not null;default:0" json:"weight_kg"`    // 重量
	VolumeM3      Measure   `gorm:"type:decimal(12,3);not null;default:0" json:"volume_m3"`    // 体积
	Value         Money     `gorm:"type:decimal(14,2);not null;default:0" json:"value"`        // 货值
	Status        string    `gorm:"type:varchar(20);index;not null" json:"status"`             // 状态
	CreatedBy     *uint     `gorm:"index" json:"created_by,omitempty"`                         // 创建人
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt     time.Time `json:"updated_at"`                                                // 更新时间
	GeocodeFailed bool      `gorm:"not null;default:false" json:"geocode_failed"`              // 地理编码失败
}

// TableName 指定表名
func (Delivery) TableName() string {
	return "deliveries"
}

// HasCoordinates 是否已有坐标
func (d *Delivery) HasCoordinates() bool {
	return d != nil && d.Latitude != nil && d.Longitude != nil
}

// FullAddress 拼接完整地址
func (d *Delivery) FullAddress() string {
	if d == nil {
		return ""
	}
	parts := make([]string, 0, 5)
	street := strings.TrimSpace(d.Street)
	if number := strings.TrimSpace(d.Number); number != "" && street != "" {
		street = street + ", " + number
	}
	for _, part := range []string{street, d.Neighborhood, d.City, d.State, d.PostalCode} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " - ")
}
